// Package api is the typed HTTP client for the subscriber-management
// backend. It attaches the session bearer token to every request,
// normalizes non-2xx responses into *Error, and decodes the backend's
// response envelopes. There is no automatic retry: every operation in
// this system is a deliberate operator action.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/guonaihong/gout/dataflow"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Meta carries list pagination metadata.
type Meta struct {
	Total int64 `json:"total"`
}

// listEnvelope is the backend's list response shape.
type listEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *Meta           `json:"meta"`
	Message string          `json:"message"`
}

// mutationEnvelope is the backend's mutation response shape.
type mutationEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// MutationResult is the decoded outcome of a successful mutation.
type MutationResult struct {
	Message string
	Data    json.RawMessage
}

// Client issues requests against one backend session.
type Client struct {
	sess Session
	g    *dataflow.Gout
}

// NewClient builds a client bound to sess.
func NewClient(sess Session) *Client {
	timeout := sess.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		sess: sess,
		g:    gout.New(&http.Client{Timeout: timeout}),
	}
}

// Session returns the session the client was built with.
func (c *Client) Session() Session {
	return c.sess
}

// WithSession returns a new client on the same transport settings but a
// different session (used after login / impersonation bearer swaps).
func (c *Client) WithSession(sess Session) *Client {
	return NewClient(sess)
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.sess.BaseURL, "/") + path
}

// do executes one request and returns the raw response body. Non-2xx
// responses become *Error with the body's message field when present.
// 401/403 are returned like any other error; the caller decides.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var df = c.g.GET(c.url(path))
	switch method {
	case http.MethodGet:
	case http.MethodPost:
		df = c.g.POST(c.url(path))
	case http.MethodPut:
		df = c.g.PUT(c.url(path))
	case http.MethodDelete:
		df = c.g.DELETE(c.url(path))
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}

	headers := gout.H{"Accept": "application/json"}
	if c.sess.Token != "" {
		headers["Authorization"] = "Bearer " + c.sess.Token
	}
	df = df.WithContext(ctx).SetHeader(headers)
	if body != nil {
		df = df.SetJSON(body)
	}

	var code int
	var raw []byte
	if err := df.Code(&code).BindBody(&raw).Do(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if code < 200 || code >= 300 {
		apiErr := &Error{Status: code, Message: "request failed"}
		var probe struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if len(raw) > 0 && jsonCodec.Unmarshal(raw, &probe) == nil && probe.Message != "" {
			apiErr.Message = probe.Message
			apiErr.Code = probe.Code
		}
		zap.L().Debug("api request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", code),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}
	return raw, nil
}

// List fetches a collection endpoint and decodes its data array.
func List[T any](ctx context.Context, c *Client, path string) ([]T, int64, error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}
	var env listEnvelope
	if err := jsonCodec.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("decode list %s: %w", path, err)
	}
	var items []T
	if len(env.Data) > 0 {
		if err := jsonCodec.Unmarshal(env.Data, &items); err != nil {
			return nil, 0, fmt.Errorf("decode list items %s: %w", path, err)
		}
	}
	total := int64(len(items))
	if env.Meta != nil {
		total = env.Meta.Total
	}
	return items, total, nil
}

// GetOne fetches a single-entity endpoint.
func GetOne[T any](ctx context.Context, c *Client, path string) (*T, error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var env mutationEnvelope
	if err := jsonCodec.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode entity %s: %w", path, err)
	}
	var item T
	if err := jsonCodec.Unmarshal(env.Data, &item); err != nil {
		return nil, fmt.Errorf("decode entity data %s: %w", path, err)
	}
	return &item, nil
}

// Mutate executes a create/update/delete request and decodes the mutation
// envelope. The server message is preserved for user display.
func (c *Client) Mutate(ctx context.Context, method, path string, body interface{}) (*MutationResult, error) {
	raw, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	res := &MutationResult{}
	if len(raw) > 0 {
		var env mutationEnvelope
		if err := jsonCodec.Unmarshal(raw, &env); err == nil {
			res.Message = env.Message
			res.Data = env.Data
		}
	}
	return res, nil
}

// Post is shorthand for Mutate with POST.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*MutationResult, error) {
	return c.Mutate(ctx, http.MethodPost, path, body)
}

// Put is shorthand for Mutate with PUT.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*MutationResult, error) {
	return c.Mutate(ctx, http.MethodPut, path, body)
}

// Delete is shorthand for Mutate with DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*MutationResult, error) {
	return c.Mutate(ctx, http.MethodDelete, path, nil)
}
