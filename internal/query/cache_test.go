package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentReadsShareOneFetch(t *testing.T) {
	cache := NewCache()

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []string{"a", "b"}, nil
	}

	h1 := cache.Resource("subscribers", fetch)
	h2 := cache.Resource("subscribers", fetch)

	var wg sync.WaitGroup
	results := make([]interface{}, 2)
	for i, h := range []*Handle{h1, h2} {
		wg.Add(1)
		go func(i int, h *Handle) {
			defer wg.Done()
			data, err := h.Get(context.Background())
			require.NoError(t, err)
			results[i] = data
		}(i, h)
	}

	// Let both goroutines reach the in-flight fetch before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "same-key reads must share one request")
	assert.Equal(t, results[0], results[1])
}

func TestStaleWhileError(t *testing.T) {
	cache := NewCache()

	healthy := true
	fetch := func(ctx context.Context) (interface{}, error) {
		if !healthy {
			return nil, errors.New("backend down")
		}
		return []string{"row1"}, nil
	}
	h := cache.Resource("plans", fetch)

	data, err := h.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"row1"}, data)

	healthy = false
	data, err = h.Refetch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"row1"}, data, "failed refetch must keep last known data")

	// The error is also observable on the handle.
	assert.Error(t, h.Err())
}

func TestInvalidateRefetchesMountedHandles(t *testing.T) {
	cache := NewCache()

	var calls int32
	h := cache.Resource("subscribers", func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	})

	_, err := h.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var events int32
	require.NoError(t, cache.Bus().Subscribe(TopicInvalidated, func(key string) {
		if key == "subscribers" {
			atomic.AddInt32(&events, 1)
		}
	}))

	cache.Invalidate("subscribers")

	// Background refetch and bus delivery are async.
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("invalidation did not trigger a background refetch")
		case <-time.After(10 * time.Millisecond):
		}
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&events), int32(1))
}

func TestReleasedHandleNotRefetched(t *testing.T) {
	cache := NewCache()

	var calls int32
	h := cache.Resource("ledger", func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	})
	_, err := h.Get(context.Background())
	require.NoError(t, err)

	h.Release()
	cache.Invalidate("ledger")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "released handles must not refetch")

	// Data survives release for the next mount.
	data, ok := h.Peek()
	assert.True(t, ok)
	assert.Equal(t, int32(1), data)
}

func TestDisabledHandleDoesNotFetch(t *testing.T) {
	cache := NewCache()

	var calls int32
	h := cache.Resource("backups", func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}, Options{Disabled: true})

	data, err := h.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	h.SetDisabled(false)
	_, err = h.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
