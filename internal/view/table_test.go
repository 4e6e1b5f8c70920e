package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/netvigil/ispadm/config"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSubscribers() []domain.Subscriber {
	return []domain.Subscriber{
		{Username: "zed", Status: "enabled"},
		{Username: "alice", Status: "enabled"},
		{Username: "mike", Status: "disabled"},
	}
}

func TestRowsKeepServerOrderByDefault(t *testing.T) {
	table := New("subscribers", SubscriberColumns(), nil)
	rows := table.Rows(sampleSubscribers())
	assert.Equal(t, "zed", rows[0].Username)
	assert.Equal(t, "alice", rows[1].Username)
	assert.Equal(t, "mike", rows[2].Username)
}

func TestExplicitSortDoesNotMutateInput(t *testing.T) {
	table := New("subscribers", SubscriberColumns(), nil)
	require.NoError(t, table.SortBy("username", false))

	data := sampleSubscribers()
	rows := table.Rows(data)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "zed", rows[2].Username)
	assert.Equal(t, "zed", data[0].Username, "input slice must stay in server order")
}

func TestUnsortableColumnRefused(t *testing.T) {
	table := New("subscribers", SubscriberColumns(), nil)
	assert.Error(t, table.SortBy("status", false))
	assert.Error(t, table.SortBy("nope", false))
}

func TestSortOrderPersistsInPreferences(t *testing.T) {
	prefs := &config.Preferences{SortOrders: map[string]string{}}
	table := New("subscribers", SubscriberColumns(), prefs)
	require.NoError(t, table.SortBy("username", true))
	assert.Equal(t, "username:desc", prefs.SortOrders["subscribers"])

	// A new table over the same prefs restores the remembered order.
	restored := New("subscribers", SubscriberColumns(), prefs)
	rows := restored.Rows(sampleSubscribers())
	assert.Equal(t, "zed", rows[0].Username)
}

func TestLoadingDistinctFromEmpty(t *testing.T) {
	table := New("subscribers", SubscriberColumns(), nil)
	loading := table.RenderPlain(nil, true)
	empty := table.RenderPlain(nil, false)

	assert.Contains(t, loading, "loading")
	assert.NotContains(t, loading, "No rows")
	assert.Contains(t, empty, "No rows")
}

func TestRenderPlainIncludesHeadersAndCells(t *testing.T) {
	table := New("subscribers", SubscriberColumns(), nil)
	out := table.RenderPlain(sampleSubscribers(), false)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "disabled")
}

func TestTruncateCountsRunesNotBytes(t *testing.T) {
	assert.Equal(t, "héll…", truncate("héllo wörld", 5))
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "ü", truncate("ümlaut", 1))
	assert.Equal(t, "", truncate("x", 0))
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, sampleSubscribers()))
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4, "header plus one line per subscriber")
	assert.Contains(t, out, "alice")
}
