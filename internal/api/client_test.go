package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	ID   int64  `json:"id,string"`
	Name string `json:"name"`
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Session{
		BaseURL: srv.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	})
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    []testRow{},
		})
	})

	_, _, err := List[testRow](context.Background(), c, "/api/v1/things")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestListDecodesDataAndMeta(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"id": "9007199254740993", "name": "first"},
				{"id": "2", "name": "second"},
			},
			"meta": map[string]interface{}{"total": 42},
		})
	})

	items, total, err := List[testRow](context.Background(), c, "/api/v1/things")
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	require.Len(t, items, 2)
	// IDs above 2^53 survive because they ride as decimal strings.
	assert.Equal(t, int64(9007199254740993), items[0].ID)
}

func TestNonOKBecomesAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"code":    "NAME_EXISTS",
			"message": "plan name already exists",
		})
	})

	_, err := c.Post(context.Background(), "/api/v1/plans", map[string]string{"name": "dup"})
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "NAME_EXISTS", apiErr.Code)
	assert.Equal(t, "plan name already exists", apiErr.Message)
}

func TestAuthErrorNotRetried(t *testing.T) {
	var hits int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"code":    "BAD_SESSION",
			"message": "invalid or expired session",
		})
	})

	_, _, err := List[testRow](context.Background(), c, "/api/v1/things")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, 1, hits, "no automatic retry on any failure")
}

func TestErrorPredicatesUnwrapChains(t *testing.T) {
	// CLI call sites wrap with %w; the predicates must see through that.
	auth := fmt.Errorf("list subscribers: %w", &Error{Status: 401, Message: "invalid or expired session"})
	assert.True(t, IsAuthError(auth))
	assert.False(t, IsNotFound(auth))

	missing := fmt.Errorf("get plan: %w", fmt.Errorf("fetch: %w", &Error{Status: 404, Message: "Plan not found"}))
	assert.True(t, IsNotFound(missing))
	assert.False(t, IsAuthError(missing))

	assert.False(t, IsAuthError(fmt.Errorf("plain failure")))
}

func TestMutationEnvelopeDecoded(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "plan updated",
			"data":    map[string]interface{}{"id": "7", "name": "Home 50M"},
		})
	})

	res, err := c.Put(context.Background(), "/api/v1/plans/7", map[string]string{"name": "Home 50M"})
	require.NoError(t, err)
	assert.Equal(t, "plan updated", res.Message)

	var row testRow
	require.NoError(t, json.Unmarshal(res.Data, &row))
	assert.Equal(t, int64(7), row.ID)
}

func TestLoginSwapsBearer(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "login successful",
			"data":    map[string]string{"token": "fresh-token", "operator": "admin"},
		})
	})

	sess, err := c.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", sess.Token)
	assert.Equal(t, "admin", sess.Operator)

	// The original client keeps its old session; WithSession builds the new one.
	assert.Equal(t, "test-token", c.Session().Token)
	assert.Equal(t, "fresh-token", c.WithSession(sess).Session().Token)
}
