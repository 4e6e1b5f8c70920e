package bulk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/netvigil/ispadm/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterPayloadOmitsZeroFields(t *testing.T) {
	p := Filter{Status: "enabled"}.Payload()
	assert.Equal(t, map[string]interface{}{"status": "enabled"}, p)

	expiry := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	p = Filter{PlanID: 7, ExpiringBefore: expiry, UsernamePrefix: "biz-"}.Payload()
	assert.Equal(t, int64(7), p["plan_id"])
	assert.Equal(t, "2026-09-01T00:00:00Z", p["expiring_before"])
	assert.Equal(t, "biz-", p["username_prefix"])
	_, hasStatus := p["status"]
	assert.False(t, hasStatus)
}

func bulkTestServer(t *testing.T, total int, failIDs map[string]string) (*api.Client, *struct {
	mu     sync.Mutex
	chunks [][]string
}) {
	t.Helper()
	state := &struct {
		mu     sync.Mutex
		chunks [][]string
	}{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/subscribers/bulk/preview", func(w http.ResponseWriter, r *http.Request) {
		ids := make([]string, 0, total)
		for i := 1; i <= total; i++ {
			ids = append(ids, strconv.Itoa(i))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"total": total, "ids": ids},
		})
	})
	mux.HandleFunc("/api/v1/subscribers/bulk", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Operation string   `json:"operation"`
			IDs       []string `json:"ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		state.mu.Lock()
		state.chunks = append(state.chunks, body.IDs)
		state.mu.Unlock()

		succeeded, failed := 0, 0
		errors := map[string]string{}
		for _, id := range body.IDs {
			if msg, bad := failIDs[id]; bad {
				failed++
				errors[id] = msg
			} else {
				succeeded++
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "bulk operation finished",
			"data":    map[string]interface{}{"succeeded": succeeded, "failed": failed, "errors": errors},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api.NewClient(api.Session{BaseURL: srv.URL, Token: "t", Timeout: 5 * time.Second}), state
}

func TestPreviewFilter(t *testing.T) {
	client, _ := bulkTestServer(t, 3, nil)
	runner, err := NewRunner(client, nil, 2, 2)
	require.NoError(t, err)
	defer runner.Close()

	preview, err := runner.PreviewFilter(context.Background(), Filter{Status: "enabled"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), preview.Total)
	assert.Equal(t, []string{"1", "2", "3"}, preview.IDs)
}

func TestRunChunksAndAggregates(t *testing.T) {
	client, state := bulkTestServer(t, 5, map[string]string{"3": "subscriber not found"})
	runner, err := NewRunner(client, nil, 2, 2)
	require.NoError(t, err)
	defer runner.Close()

	report, err := runner.Run(context.Background(), Filter{}, Action{Op: "disable"})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "subscriber not found", report.Errors["3"])

	state.mu.Lock()
	defer state.mu.Unlock()
	assert.Len(t, state.chunks, 3, "5 ids at chunk size 2")
	seen := 0
	for _, chunk := range state.chunks {
		seen += len(chunk)
		assert.LessOrEqual(t, len(chunk), 2)
	}
	assert.Equal(t, 5, seen)
}

func TestRunEmptyMatchDoesNothing(t *testing.T) {
	client, state := bulkTestServer(t, 0, nil)
	runner, err := NewRunner(client, nil, 2, 2)
	require.NoError(t, err)
	defer runner.Close()

	report, err := runner.Run(context.Background(), Filter{}, Action{Op: "enable"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)

	state.mu.Lock()
	defer state.mu.Unlock()
	assert.Empty(t, state.chunks)
}

func TestChunkFailureDoesNotAbortRun(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/subscribers/bulk/preview", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"total": 4, "ids": []string{"1", "2", "3", "4"}},
		})
	})
	mux.HandleFunc("/api/v1/subscribers/bulk", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		fail := calls == 1
		mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "backend hiccup"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"succeeded": 2, "failed": 0, "errors": map[string]string{}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := api.NewClient(api.Session{BaseURL: srv.URL, Token: "t", Timeout: 5 * time.Second})
	runner, err := NewRunner(client, nil, 1, 2)
	require.NoError(t, err)
	defer runner.Close()

	report, err := runner.Run(context.Background(), Filter{}, Action{Op: "enable"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.Len(t, report.Errors, 2)
	for _, msg := range report.Errors {
		assert.Equal(t, "backend hiccup", msg)
	}
}
