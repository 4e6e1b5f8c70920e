package tui

import (
	"context"
	"testing"
	"time"

	"github.com/netvigil/ispadm/internal/domain"
	"github.com/netvigil/ispadm/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runningPoller(t *testing.T) *telemetry.Poller {
	t.Helper()
	p := telemetry.NewPoller(telemetry.PollerConfig{
		Interval: time.Hour,
		Capacity: 4,
		Fetch: func(ctx context.Context) (*telemetry.Reading, error) {
			return &telemetry.Reading{Values: map[string]telemetry.Sample{}}, nil
		},
		Series: []telemetry.SeriesSpec{{Name: telemetry.SeriesDownload, Mode: telemetry.Gauge}},
	})
	p.Start(context.Background())
	require.True(t, p.Running())
	return p
}

func TestRefreshStopsPollerWhenTargetGoesOffline(t *testing.T) {
	p := runningPoller(t)
	m := Model{activeTab: tabLive, poller: p, pollTarget: 7}

	updated, _ := m.Update(dataMsg{subscribers: []domain.Subscriber{
		{ID: 7, Username: "cust001", Online: false},
	}})
	m = updated.(Model)

	assert.Nil(t, m.poller)
	assert.False(t, p.Running(), "no ticker may keep fetching for an offline subscriber")
}

func TestRefreshStopsPollerWhenTargetDeleted(t *testing.T) {
	p := runningPoller(t)
	m := Model{activeTab: tabLive, poller: p, pollTarget: 7}

	updated, _ := m.Update(dataMsg{subscribers: []domain.Subscriber{
		{ID: 8, Username: "cust002", Online: true},
	}})
	m = updated.(Model)

	assert.Nil(t, m.poller)
	assert.False(t, p.Running())
}

func TestRefreshKeepsPollerWhileTargetOnline(t *testing.T) {
	p := runningPoller(t)
	defer p.Stop()
	m := Model{activeTab: tabLive, poller: p, pollTarget: 7}

	updated, _ := m.Update(dataMsg{subscribers: []domain.Subscriber{
		{ID: 7, Username: "cust001", Online: true},
	}})
	m = updated.(Model)

	assert.Same(t, p, m.poller)
	assert.True(t, p.Running())
}

func TestStartPollerSkipsOfflineSubscriber(t *testing.T) {
	m := Model{
		activeTab:   tabLive,
		subscribers: []domain.Subscriber{{ID: 1, Username: "cust001", Online: false}},
	}
	assert.Nil(t, m.startPoller())
}
