package cli

import (
	"fmt"
	"testing"

	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/stretchr/testify/assert"
)

func TestRenderErrorGuidesToLoginOnAuthFailure(t *testing.T) {
	auth := fmt.Errorf("list subscribers: %w", &api.Error{Status: 401, Message: "invalid or expired session"})
	assert.Equal(t, "session expired or unauthorized; run ispadm login", RenderError(auth))

	forbidden := fmt.Errorf("delete plan: %w", &api.Error{Status: 403, Message: "insufficient privileges"})
	assert.Equal(t, "session expired or unauthorized; run ispadm login", RenderError(forbidden))

	other := fmt.Errorf("list subscribers: %w", &api.Error{Status: 500, Message: "internal error"})
	assert.Equal(t, other.Error(), RenderError(other))
}

func TestFilteredSubscriberListUsesOwnCacheKey(t *testing.T) {
	cache = query.NewCache()
	subscriberQ, subscriberStatus = "", ""
	defer func() { subscriberQ, subscriberStatus = "", "" }()

	plain := subscriberHandle()
	defer plain.Release()

	subscriberQ, subscriberStatus = "cust", "enabled"
	filtered := subscriberHandle()
	defer filtered.Release()

	assert.Equal(t, "subscribers", plain.Key())
	assert.NotEqual(t, plain.Key(), filtered.Key(), "filtered results must not shadow the unfiltered list")
	assert.Contains(t, filtered.Key(), "q=cust")
	assert.Contains(t, filtered.Key(), "status=enabled")
}
