package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/netvigil/ispadm/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *captureNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *captureNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func TestSecondRunDroppedWhilePending(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	m := NewMutation(MutationConfig{
		Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
			close(started)
			<-release
			return &api.MutationResult{Message: "saved"}, nil
		},
		Notifier: &captureNotifier{},
	})

	done := make(chan bool)
	go func() { done <- m.Run(context.Background(), nil) }()

	<-started
	assert.True(t, m.Pending())
	assert.False(t, m.Run(context.Background(), nil), "run while pending must be dropped")

	close(release)
	assert.True(t, <-done)
	assert.False(t, m.Pending())
}

func TestSuccessNotifiesAndInvalidates(t *testing.T) {
	cache := NewCache()
	var refetched bool
	var mu sync.Mutex
	h := cache.Resource("schedules", func(ctx context.Context) (interface{}, error) {
		mu.Lock()
		refetched = true
		mu.Unlock()
		return nil, nil
	})
	_ = h

	notifier := &captureNotifier{}
	m := NewMutation(MutationConfig{
		Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
			return &api.MutationResult{Message: "schedule created"}, nil
		},
		Cache:       cache,
		Invalidates: []string{"schedules"},
		Notifier:    notifier,
	})

	require.True(t, m.Run(context.Background(), map[string]interface{}{"name": "nightly"}))
	require.NoError(t, m.Err())
	assert.Equal(t, []string{"schedule created"}, notifier.successes)

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		ok := refetched
		mu.Unlock()
		if ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("success did not invalidate the schedule list")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestServerRejectionShownVerbatim(t *testing.T) {
	notifier := &captureNotifier{}
	m := NewMutation(MutationConfig{
		Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
			return nil, &api.Error{Status: 409, Code: "NAME_EXISTS", Message: "schedule name already exists"}
		},
		Notifier:      notifier,
		FallbackError: "failed to save schedule",
	})

	require.True(t, m.Run(context.Background(), nil))
	assert.Error(t, m.Err())
	require.Len(t, notifier.errors, 1)
	assert.Equal(t, "schedule name already exists", notifier.errors[0],
		"server messages must be shown word for word")
}

func TestTransportFailureUsesFallback(t *testing.T) {
	notifier := &captureNotifier{}
	m := NewMutation(MutationConfig{
		Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
			return nil, context.DeadlineExceeded
		},
		Notifier:      notifier,
		FallbackError: "failed to save schedule",
	})

	require.True(t, m.Run(context.Background(), nil))
	require.Len(t, notifier.errors, 1)
	assert.Equal(t, "failed to save schedule", notifier.errors[0])
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "port must be 1-65535",
		UserMessage(&api.Error{Status: 400, Message: "port must be 1-65535"}, "fallback"))
	assert.Equal(t, "fallback", UserMessage(context.DeadlineExceeded, "fallback"))
	assert.Equal(t, context.DeadlineExceeded.Error(), UserMessage(context.DeadlineExceeded, ""))
}
