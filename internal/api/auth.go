package api

import (
	"context"
	"fmt"
	"net/http"
)

type tokenGrant struct {
	Token    string `json:"token"`
	Operator string `json:"operator"`
}

// Login exchanges operator credentials for a session token and returns a
// session carrying the new bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	res, err := c.Mutate(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return Session{}, err
	}
	var grant tokenGrant
	if err := jsonCodec.Unmarshal(res.Data, &grant); err != nil {
		return Session{}, fmt.Errorf("decode login grant: %w", err)
	}
	sess := c.sess
	sess.Token = grant.Token
	sess.Operator = grant.Operator
	return sess, nil
}

// Impersonate exchanges a one-time impersonation token for a session token
// (bearer swap). The one-time token is consumed by the backend.
func (c *Client) Impersonate(ctx context.Context, oneTimeToken string) (Session, error) {
	res, err := c.Mutate(ctx, http.MethodPost, "/api/v1/auth/impersonate", map[string]string{
		"token": oneTimeToken,
	})
	if err != nil {
		return Session{}, err
	}
	var grant tokenGrant
	if err := jsonCodec.Unmarshal(res.Data, &grant); err != nil {
		return Session{}, fmt.Errorf("decode impersonation grant: %w", err)
	}
	sess := c.sess
	sess.Token = grant.Token
	sess.Operator = grant.Operator
	return sess, nil
}

// BackupDownloadURL asks the backend for a short-lived signed URL for a
// backup artifact. The file itself is never streamed through this client;
// the caller opens the URL in a browser or hands it to a downloader.
func (c *Client) BackupDownloadURL(ctx context.Context, filename string) (string, error) {
	res, err := c.Mutate(ctx, http.MethodGet, "/api/v1/backups/"+filename+"/download", nil)
	if err != nil {
		return "", err
	}
	var grant struct {
		URL string `json:"url"`
	}
	if err := jsonCodec.Unmarshal(res.Data, &grant); err != nil {
		return "", fmt.Errorf("decode download grant: %w", err)
	}
	if grant.URL == "" {
		return "", fmt.Errorf("backend returned no download url for %s", filename)
	}
	return grant.URL, nil
}
