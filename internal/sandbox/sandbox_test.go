package sandbox_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/netvigil/ispadm/config"
	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/netvigil/ispadm/internal/form"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/netvigil/ispadm/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

// newSandbox boots a fresh seeded backend over httptest and returns a
// logged-in client plus the base URL for raw requests.
func newSandbox(t *testing.T) (*api.Client, string) {
	t.Helper()
	srv, err := sandbox.NewServer(config.SandboxConfig{
		DBFile: filepath.Join(t.TempDir(), "sandbox.db"),
		Secret: "test-secret",
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	anon := api.NewClient(api.Session{BaseURL: ts.URL, Timeout: 5 * time.Second})
	sess, err := anon.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)
	return anon.WithSession(sess), ts.URL
}

func seededSubscriber(t *testing.T, client *api.Client) domain.Subscriber {
	t.Helper()
	subs, _, err := api.List[domain.Subscriber](context.Background(), client, "/api/v1/subscribers")
	require.NoError(t, err)
	require.NotEmpty(t, subs)
	return subs[0]
}

func TestLoginAndBearerGate(t *testing.T) {
	client, url := newSandbox(t)

	// No session token, no data.
	anon := api.NewClient(api.Session{BaseURL: url, Timeout: 5 * time.Second})
	_, _, err := api.List[domain.Subscriber](context.Background(), anon, "/api/v1/subscribers")
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))

	// Wrong password is a 401, not a hint.
	_, err = anon.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))

	subs, total, err := api.List[domain.Subscriber](context.Background(), client, "/api/v1/subscribers")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "demo001", subs[0].Username)
}

func TestImpersonationTokenIsSingleUse(t *testing.T) {
	client, url := newSandbox(t)

	res, err := client.Post(context.Background(), "/api/v1/auth/impersonate/issue", nil)
	require.NoError(t, err)
	var grant struct {
		Token string `json:"token"`
	}
	require.NoError(t, jsonUnmarshal(res.Data, &grant))
	require.NotEmpty(t, grant.Token)

	anon := api.NewClient(api.Session{BaseURL: url, Timeout: 5 * time.Second})
	sess, err := anon.Impersonate(context.Background(), grant.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Operator)

	// The session from the exchange works like a login session.
	_, _, err = api.List[domain.Subscriber](context.Background(), anon.WithSession(sess), "/api/v1/subscribers")
	require.NoError(t, err)

	// The one-time token is consumed.
	_, err = anon.Impersonate(context.Background(), grant.Token)
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))
}

func TestSubscriberCreateConflict(t *testing.T) {
	client, _ := newSandbox(t)
	existing := seededSubscriber(t, client)

	payload := map[string]interface{}{
		"username":  existing.Username,
		"plan_id":   strconv.FormatInt(existing.PlanID, 10),
		"expire_at": time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	}
	_, err := client.Post(context.Background(), "/api/v1/subscribers", payload)
	require.Error(t, err)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "NAME_EXISTS", apiErr.Code)
}

func TestScheduleCreateEndToEnd(t *testing.T) {
	client, _ := newSandbox(t)
	ctx := context.Background()

	cache := query.NewCache()
	schedules := cache.Resource("schedules", func(ctx context.Context) (interface{}, error) {
		rows, _, err := api.List[domain.BackupSchedule](ctx, client, "/api/v1/schedules")
		return rows, err
	})
	defer schedules.Release()

	initial, err := schedules.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, initial)

	sess := form.NewSession(form.ScheduleSchema())
	require.NoError(t, sess.OpenCreate())
	require.NoError(t, sess.Set("name", "nightly"))

	notifier := &recordingNotifier{}
	var submitted map[string]interface{}
	m := query.NewMutation(query.MutationConfig{
		Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
			submitted = input.(map[string]interface{})
			return client.Post(ctx, "/api/v1/schedules", input)
		},
		Cache:         cache,
		Invalidates:   []string{"schedules"},
		Notifier:      notifier,
		FallbackError: "failed to save schedule",
	})
	require.NoError(t, sess.Submit(ctx, m))

	// Untouched fields ride on their declared defaults, in backend encoding.
	assert.Equal(t, "nightly", submitted["name"])
	assert.Equal(t, "daily", submitted["frequency"])
	assert.Equal(t, "02:00", submitted["time"])
	assert.Equal(t, int64(7), submitted["retention"])
	assert.Equal(t, "local", submitted["storage_type"])

	assert.Equal(t, form.StateClosed, sess.State())
	assert.Equal(t, []string{"schedule created"}, notifier.successes)

	// The invalidated list now shows the new schedule with a computed
	// next run.
	raw, err := schedules.Refetch(ctx)
	require.NoError(t, err)
	rows := raw.([]domain.BackupSchedule)
	require.Len(t, rows, 1)
	assert.Equal(t, "nightly", rows[0].Name)
	assert.Equal(t, "enabled", rows[0].Status)
	assert.False(t, rows[0].NextRunAt.IsZero())
}

func TestScheduleDuplicateNameRejectedVerbatim(t *testing.T) {
	client, _ := newSandbox(t)
	ctx := context.Background()

	payload := map[string]interface{}{
		"name": "nightly", "frequency": "daily", "time": "02:00",
		"retention": 7, "storage_type": "local",
	}
	_, err := client.Post(ctx, "/api/v1/schedules", payload)
	require.NoError(t, err)

	sess := form.NewSession(form.ScheduleSchema())
	require.NoError(t, sess.OpenCreate())
	require.NoError(t, sess.Set("name", "nightly"))

	notifier := &recordingNotifier{}
	m := query.NewMutation(query.MutationConfig{
		Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
			return client.Post(ctx, "/api/v1/schedules", input)
		},
		Notifier:      notifier,
		FallbackError: "failed to save schedule",
	})
	err = sess.Submit(ctx, m)
	require.Error(t, err)

	// The rejection surfaces the server's words and leaves the draft open.
	require.Len(t, notifier.errors, 1)
	assert.Equal(t, "schedule name already exists", notifier.errors[0])
	assert.Equal(t, form.StateOpen, sess.State())
	assert.Equal(t, "nightly", sess.Value("name"))
}

func TestBackupDeleteEndToEnd(t *testing.T) {
	client, _ := newSandbox(t)
	ctx := context.Background()

	res, err := client.Post(ctx, "/api/v1/backups", map[string]string{})
	require.NoError(t, err)
	var created domain.Backup
	require.NoError(t, jsonUnmarshal(res.Data, &created))
	require.NotEmpty(t, created.Filename)
	assert.Equal(t, "full", created.Kind)
	assert.Equal(t, "local", created.Storage)

	cache := query.NewCache()
	backups := cache.Resource("backups", func(ctx context.Context) (interface{}, error) {
		rows, _, err := api.List[domain.Backup](ctx, client, "/api/v1/backups")
		return rows, err
	})
	defer backups.Release()

	raw, err := backups.Get(ctx)
	require.NoError(t, err)
	require.Len(t, raw.([]domain.Backup), 1)

	notifier := &recordingNotifier{}
	var deletes int
	m := query.NewMutation(query.MutationConfig{
		Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
			deletes++
			return client.Delete(ctx, "/api/v1/backups/"+created.Filename)
		},
		Cache:         cache,
		Invalidates:   []string{"backups"},
		Notifier:      notifier,
		FallbackError: "failed to delete backup",
	})
	require.True(t, m.Run(ctx, nil))
	require.NoError(t, m.Err())
	assert.Equal(t, 1, deletes)
	assert.Equal(t, []string{"backup deleted"}, notifier.successes)

	raw, err = backups.Refetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, raw.([]domain.Backup), "deleted backup must be gone after refetch")

	// Deleting again is a 404, not a silent success.
	_, err = client.Delete(ctx, "/api/v1/backups/"+created.Filename)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestBackupDownloadLinkSignedAndChecked(t *testing.T) {
	client, url := newSandbox(t)
	ctx := context.Background()

	res, err := client.Post(ctx, "/api/v1/backups", map[string]string{})
	require.NoError(t, err)
	var created domain.Backup
	require.NoError(t, jsonUnmarshal(res.Data, &created))

	link, err := client.BackupDownloadURL(ctx, created.Filename)
	require.NoError(t, err)

	// The signed link needs no session header.
	resp, err := http.Get(url + link)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), created.Filename)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), created.Filename)

	// A tampered signature is refused.
	resp, err = http.Get(url + link + "x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLiveSampleShapesAndOfflineConflict(t *testing.T) {
	client, _ := newSandbox(t)
	ctx := context.Background()
	sub := seededSubscriber(t, client)

	path := "/api/v1/subscribers/" + strconv.FormatInt(sub.ID, 10) + "/live"
	sample, err := api.GetOne[domain.LiveSample](ctx, client, path)
	require.NoError(t, err)
	assert.NotZero(t, sample.At)
	require.Len(t, sample.Cdn, 2)
	byName := map[string]domain.CdnCounter{}
	for _, c := range sample.Cdn {
		byName[c.Name] = c
	}
	assert.False(t, byName["youtube-cache"].IsRate, "port rule reports cumulative bytes")
	assert.True(t, byName["game-dscp"].IsRate, "dscp rule reports an instantaneous rate")

	// Cumulative counters only move forward.
	second, err := api.GetOne[domain.LiveSample](ctx, client, path)
	require.NoError(t, err)
	for _, c := range second.Cdn {
		if !c.IsRate {
			assert.GreaterOrEqual(t, c.Value, byName[c.Name].Value)
		}
	}

	// An offline subscriber has no live data to sample.
	res, err := client.Post(ctx, "/api/v1/subscribers", map[string]interface{}{
		"username":  "offline001",
		"plan_id":   strconv.FormatInt(sub.PlanID, 10),
		"expire_at": time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	})
	require.NoError(t, err)
	var offline domain.Subscriber
	require.NoError(t, jsonUnmarshal(res.Data, &offline))

	_, err = api.GetOne[domain.LiveSample](ctx, client,
		"/api/v1/subscribers/"+strconv.FormatInt(offline.ID, 10)+"/live")
	require.Error(t, err)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "OFFLINE", apiErr.Code)
}

func TestPlanDeleteRefusedWhileInUse(t *testing.T) {
	client, _ := newSandbox(t)
	ctx := context.Background()
	sub := seededSubscriber(t, client)

	_, err := client.Delete(ctx, "/api/v1/plans/"+strconv.FormatInt(sub.PlanID, 10))
	require.Error(t, err)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "PLAN_IN_USE", apiErr.Code)
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, v)
}
