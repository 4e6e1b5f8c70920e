package cli_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/netvigil/ispadm/config"
	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/cli"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/netvigil/ispadm/internal/sandbox"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
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

func (n *recordingNotifier) last() (string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var s, e string
	if len(n.successes) > 0 {
		s = n.successes[len(n.successes)-1]
	}
	if len(n.errors) > 0 {
		e = n.errors[len(n.errors)-1]
	}
	return s, e
}

// setupCLI boots a seeded sandbox and injects a logged-in client and a
// recording notifier into the command tree.
func setupCLI(t *testing.T) (*api.Client, *recordingNotifier) {
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
	client := anon.WithSession(sess)

	notifier := &recordingNotifier{}
	cli.SetClient(client)
	cli.SetNotifier(notifier)
	return client, notifier
}

// resetSetFlags clears the repeatable --set flags so values from one
// command run do not leak into the next. pflag array values accumulate
// across Execute calls on a shared command tree.
func resetSetFlags(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("set"); f != nil {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		}
		f.Changed = false
	}
	for _, sub := range cmd.Commands() {
		resetSetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.RootCmd()
	resetSetFlags(root)
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestSubscriberListShowsSeedData(t *testing.T) {
	setupCLI(t)

	out, err := executeCommand(t, "subscriber", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "demo001")
}

func TestSubscriberCreateEditDelete(t *testing.T) {
	client, notifier := setupCLI(t)

	plans, _, err := api.List[domain.ServicePlan](context.Background(), client, "/api/v1/plans")
	require.NoError(t, err)
	require.NotEmpty(t, plans)
	planID := strconv.FormatInt(plans[0].ID, 10)

	_, err = executeCommand(t, "subscriber", "create",
		"--set", "username=cust002",
		"--set", "plan_id="+planID,
		"--set", "expire_at=2027-01-02 15:04",
	)
	require.NoError(t, err)
	success, _ := notifier.last()
	assert.Equal(t, "subscriber created", success)

	out, err := executeCommand(t, "subscriber", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "cust002")

	subs, _, err := api.List[domain.Subscriber](context.Background(), client, "/api/v1/subscribers?q=cust002&status=")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	id := strconv.FormatInt(subs[0].ID, 10)

	// Edit round-trips the untouched fields; only realname changes.
	_, err = executeCommand(t, "subscriber", "edit", id, "--set", "realname=Customer Two")
	require.NoError(t, err)
	success, _ = notifier.last()
	assert.Equal(t, "subscriber updated", success)

	updated, err := api.GetOne[domain.Subscriber](context.Background(), client, "/api/v1/subscribers/"+id)
	require.NoError(t, err)
	assert.Equal(t, "Customer Two", updated.Realname)
	assert.Equal(t, plans[0].ID, updated.PlanID, "untouched fields survive an edit")

	_, err = executeCommand(t, "subscriber", "delete", id, "--yes")
	require.NoError(t, err)
	success, _ = notifier.last()
	assert.Equal(t, "subscriber deleted", success)

	out, err = executeCommand(t, "subscriber", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "cust002")
}

func TestSubscriberCreateMissingPlanFails(t *testing.T) {
	setupCLI(t)

	_, err := executeCommand(t, "subscriber", "create",
		"--set", "username=cust003",
		"--set", "expire_at=2027-01-02 15:04",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Service plan")
}

func TestSubscriberLiveOfflineMessage(t *testing.T) {
	client, _ := setupCLI(t)

	plans, _, err := api.List[domain.ServicePlan](context.Background(), client, "/api/v1/plans")
	require.NoError(t, err)
	res, err := client.Post(context.Background(), "/api/v1/subscribers", map[string]interface{}{
		"username":  "offline002",
		"plan_id":   strconv.FormatInt(plans[0].ID, 10),
		"expire_at": time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	})
	require.NoError(t, err)
	var offline domain.Subscriber
	require.NoError(t, jsonUnmarshal(res.Data, &offline))

	out, err := executeCommand(t, "subscriber", "live", strconv.FormatInt(offline.ID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "Subscriber is offline; no live data.")
}

func TestUnauthenticatedCommandSurfacesAuthError(t *testing.T) {
	srv, err := sandbox.NewServer(config.SandboxConfig{
		DBFile: filepath.Join(t.TempDir(), "sandbox.db"),
		Secret: "test-secret",
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cli.SetClient(api.NewClient(api.Session{BaseURL: ts.URL, Timeout: 5 * time.Second}))
	cli.SetNotifier(&recordingNotifier{})

	_, err = executeCommand(t, "subscriber", "list")
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err), "auth failure must survive error wrapping")
	assert.Equal(t, "session expired or unauthorized; run ispadm login", cli.RenderError(err))
}

func TestVersionCommand(t *testing.T) {
	setupCLI(t)

	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ispadm")
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, v)
}
