package form

import (
	"context"
	"testing"

	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditRoundTripKeepsUntouchedEncoding(t *testing.T) {
	// 10 GB on the wire, shown as "10", submitted untouched.
	entity := map[string]interface{}{
		"username":    "demo001",
		"plan_id":     "987654321",
		"expire_at":   "2026-12-31T00:00:00Z",
		"quota_bytes": int64(10737418240),
		"status":      "enabled",
	}

	sess := NewSession(SubscriberSchema())
	require.NoError(t, sess.OpenEdit(entity))
	assert.Equal(t, "10", sess.Value("quota_bytes"))
	assert.Equal(t, "987654321", sess.Value("plan_id"))

	payload, err := sess.Payload()
	require.NoError(t, err)
	assert.Equal(t, int64(10737418240), payload["quota_bytes"])
	assert.Equal(t, "987654321", payload["plan_id"])
	assert.Equal(t, "2026-12-31T00:00:00Z", payload["expire_at"])
	assert.Equal(t, "enabled", payload["status"])
}

func TestEditedFieldReparsed(t *testing.T) {
	entity := map[string]interface{}{
		"username":    "demo001",
		"plan_id":     "1",
		"expire_at":   "2026-12-31T00:00:00Z",
		"quota_bytes": int64(10737418240),
	}
	sess := NewSession(SubscriberSchema())
	require.NoError(t, sess.OpenEdit(entity))
	require.NoError(t, sess.Set("quota_bytes", "2.5"))

	payload, err := sess.Payload()
	require.NoError(t, err)
	assert.Equal(t, int64(2684354560), payload["quota_bytes"])
}

func TestCreateSeedsDeclaredDefaults(t *testing.T) {
	sess := NewSession(ScheduleSchema())
	require.NoError(t, sess.OpenCreate())
	assert.Equal(t, "daily", sess.Value("frequency"))
	assert.Equal(t, "02:00 AM", sess.Value("time"))
	assert.Equal(t, "7", sess.Value("retention"))
	assert.Equal(t, "local", sess.Value("storage_type"))

	require.NoError(t, sess.Set("name", "nightly"))
	payload, err := sess.Payload()
	require.NoError(t, err)
	assert.Equal(t, "nightly", payload["name"])
	assert.Equal(t, "daily", payload["frequency"])
	assert.Equal(t, "02:00", payload["time"], "clock must submit in 24h encoding")
	assert.Equal(t, int64(7), payload["retention"])
	assert.Equal(t, "local", payload["storage_type"])
}

func TestClockAcceptsBothForms(t *testing.T) {
	sess := NewSession(ScheduleSchema())
	require.NoError(t, sess.OpenCreate())
	require.NoError(t, sess.Set("name", "evening"))
	require.NoError(t, sess.Set("time", "11:30 PM"))

	payload, err := sess.Payload()
	require.NoError(t, err)
	assert.Equal(t, "23:30", payload["time"])

	require.NoError(t, sess.Set("time", "14:45"))
	payload, err = sess.Payload()
	require.NoError(t, err)
	assert.Equal(t, "14:45", payload["time"])
}

func TestDisabledDependentFieldRejectsEdits(t *testing.T) {
	sess := NewSession(PlanSchema())
	require.NoError(t, sess.OpenCreate())
	// time_speed_enabled defaults to false, so the ratio fields are off.
	err := sess.Set("day_ratio", "80")
	assert.Error(t, err)

	require.NoError(t, sess.Set("time_speed_enabled", "true"))
	assert.NoError(t, sess.Set("day_ratio", "80"))
}

func TestDisabledFieldsZeroedAtSubmit(t *testing.T) {
	entity := map[string]interface{}{
		"name":               "Home 50M",
		"up_rate_kbps":       int64(10240),
		"down_rate_kbps":     int64(51200),
		"time_speed_enabled": true,
		"day_ratio":          int64(100),
		"night_ratio":        int64(50),
		"night_start":        "23:00",
	}
	sess := NewSession(PlanSchema())
	require.NoError(t, sess.OpenEdit(entity))

	// Switching the toggle off must zero the declared-zeroed ratios and
	// drop the window start entirely.
	require.NoError(t, sess.Set("time_speed_enabled", "false"))
	payload, err := sess.Payload()
	require.NoError(t, err)
	assert.Equal(t, int64(0), payload["day_ratio"])
	assert.Equal(t, int64(0), payload["night_ratio"])
	_, present := payload["night_start"]
	assert.False(t, present)
}

func TestCdnRuleDirectionExcludesInactiveMatchField(t *testing.T) {
	sess := NewSession(CdnRuleSchema())
	require.NoError(t, sess.OpenCreate())
	require.NoError(t, sess.Set("name", "game-dscp"))
	require.NoError(t, sess.Set("direction", "dscp"))
	require.NoError(t, sess.Set("dscp", "46"))
	require.NoError(t, sess.Set("rate_kbps", "5120"))

	// The port field is disabled under a dscp rule.
	assert.Error(t, sess.Set("port", "8080"))

	payload, err := sess.Payload()
	require.NoError(t, err)
	assert.Equal(t, int64(46), payload["dscp"])
	_, present := payload["port"]
	assert.False(t, present, "inactive match field must not be submitted")
}

func TestZeroSentinelPassesMinimum(t *testing.T) {
	sess := NewSession(CdnRuleSchema())
	require.NoError(t, sess.OpenCreate())
	require.NoError(t, sess.Set("name", "cache"))
	require.NoError(t, sess.Set("port", "8080"))
	require.NoError(t, sess.Set("rate_kbps", "1024"))
	// ceil_kbps zero means "same as rate" and is allowed.
	require.NoError(t, sess.Set("ceil_kbps", "0"))

	payload, err := sess.Payload()
	require.NoError(t, err)
	assert.Equal(t, int64(0), payload["ceil_kbps"])
}

func TestRequiredFieldFastFails(t *testing.T) {
	sess := NewSession(SubscriberSchema())
	require.NoError(t, sess.OpenCreate())
	_, err := sess.Payload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Username")
}

func TestEmptyIDReferenceOmitted(t *testing.T) {
	sess := NewSession(SubscriberSchema())
	require.NoError(t, sess.OpenCreate())
	require.NoError(t, sess.Set("username", "demo002"))
	require.NoError(t, sess.Set("plan_id", "42"))
	require.NoError(t, sess.Set("expire_at", "2026-12-31"))
	// node_id left empty: it must not appear as an empty string.
	payload, err := sess.Payload()
	require.NoError(t, err)
	_, present := payload["node_id"]
	assert.False(t, present)
	assert.Equal(t, "42", payload["plan_id"])
}

func TestSubmitLifecycle(t *testing.T) {
	sess := NewSession(ScheduleSchema())
	require.NoError(t, sess.OpenCreate())
	require.NoError(t, sess.Set("name", "nightly"))

	failNext := true
	m := query.NewMutation(query.MutationConfig{
		Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
			if failNext {
				return nil, &api.Error{Status: 409, Message: "schedule name already exists"}
			}
			return &api.MutationResult{Message: "schedule created"}, nil
		},
		Notifier: query.FuncNotifier{},
	})

	// Rejected: the session stays open with the draft intact.
	err := sess.Submit(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, StateOpen, sess.State())
	assert.Equal(t, "nightly", sess.Value("name"))

	failNext = false
	require.NoError(t, sess.Submit(context.Background(), m))
	assert.Equal(t, StateClosed, sess.State())
}

func TestInvalidIPRejected(t *testing.T) {
	sess := NewSession(SubscriberSchema())
	require.NoError(t, sess.OpenCreate())
	require.NoError(t, sess.Set("username", "demo003"))
	require.NoError(t, sess.Set("plan_id", "1"))
	require.NoError(t, sess.Set("expire_at", "2026-12-31"))
	require.NoError(t, sess.Set("ip_addr", "10.0.0.999"))

	_, err := sess.Payload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ip_addr")
}
