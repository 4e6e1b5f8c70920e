package query

import (
	"context"
	"errors"
	"sync"

	"github.com/netvigil/ispadm/internal/api"
	"go.uber.org/zap"
)

// MutationFunc performs one create/update/delete against the backend.
type MutationFunc func(ctx context.Context, input interface{}) (*api.MutationResult, error)

// MutationConfig wires a Mutation's side effects.
type MutationConfig struct {
	// Do executes the request.
	Do MutationFunc
	// Cache and Invalidates name every resource key the operation can
	// affect; all of them are invalidated on success.
	Cache       *Cache
	Invalidates []string
	// Notifier receives the user-visible outcome.
	Notifier Notifier
	// OnSuccess runs after notification and invalidation; a form session
	// registers its close here.
	OnSuccess func(*api.MutationResult)
	// OnError runs on failure. Form state is caller-owned and must be
	// left intact so the operator's input survives a rejection.
	OnError func(error)
	// FallbackError is shown when the failure carries no server message
	// (transport errors). E.g. "failed to save schedule".
	FallbackError string
}

// Mutation executes one operation at a time. A Run while another is
// pending is dropped, which is what prevents double-submits: the submit
// control stays disabled while Pending is true.
type Mutation struct {
	mu      sync.Mutex
	pending bool
	lastErr error
	cfg     MutationConfig
}

// NewMutation builds a runner from cfg. A nil Notifier falls back to the
// zap-backed one.
func NewMutation(cfg MutationConfig) *Mutation {
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{}
	}
	return &Mutation{cfg: cfg}
}

// Pending reports whether a run is in flight.
func (m *Mutation) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Err returns the error of the last completed run.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Run executes the mutation. It returns false without doing anything when
// another run is already pending for this runner instance. Two different
// runners may run concurrently; they operate on distinct entities.
func (m *Mutation) Run(ctx context.Context, input interface{}) bool {
	m.mu.Lock()
	if m.pending {
		m.mu.Unlock()
		return false
	}
	m.pending = true
	m.mu.Unlock()

	res, err := m.cfg.Do(ctx, input)

	m.mu.Lock()
	m.pending = false
	m.lastErr = err
	m.mu.Unlock()

	if err != nil {
		m.cfg.Notifier.Error(UserMessage(err, m.cfg.FallbackError))
		if m.cfg.OnError != nil {
			m.cfg.OnError(err)
		}
		return true
	}

	msg := ""
	if res != nil {
		msg = res.Message
	}
	if msg == "" {
		msg = "operation completed"
	}
	m.cfg.Notifier.Success(msg)

	if m.cfg.Cache != nil && len(m.cfg.Invalidates) > 0 {
		m.cfg.Cache.Invalidate(m.cfg.Invalidates...)
	}
	if m.cfg.OnSuccess != nil {
		m.cfg.OnSuccess(res)
	}
	return true
}

// UserMessage extracts what the operator should see for err: the server's
// literal message for API rejections, the fallback for transport failures.
func UserMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if fallback != "" {
		zap.L().Debug("mutation transport failure", zap.Error(err))
		return fallback
	}
	return err.Error()
}
