// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response body is read.
	maxErrorBody = 64 * 1024
)

// =============================================================================
// SHARED HTTP CLIENTS
// =============================================================================

var (
	// Shared client with connection pooling for all non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streaming requests are bounded
	// by their context instead.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// =============================================================================
// TOKEN SOURCE
// =============================================================================

// TokenSource supplies the current access token. The credential store
// satisfies this; operations read the token fresh on every call and never
// cache it.
type TokenSource interface {
	Token() (string, bool)
}

// StaticToken is a fixed token, useful for CI and tests.
type StaticToken string

// Token returns the static token; ok is false for an empty token.
func (s StaticToken) Token() (string, bool) {
	return string(s), s != ""
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the loom generation service.
type Client struct {
	baseURL      string
	tokens       TokenSource
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a Client for the service at baseURL. Tokens are read
// from tokens per request.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		tokens:       tokens,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
	}
}

// WithTimeout returns a copy of the client whose non-streaming requests
// use the given timeout. The receiver is unchanged; both clients keep the
// shared pooled transport.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	pooled := *c.httpClient
	pooled.Timeout = timeout
	clone := *c
	clone.httpClient = &pooled
	return &clone
}

// BaseURL returns the service root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// LOGIN
// =============================================================================

// Login exchanges a username and password for an access token. The
// credentials are form-encoded, matching the service's token endpoint. A
// rejected login returns an *AuthError carrying the server's detail message.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", &AuthError{Status: resp.StatusCode, Detail: errorDetail(body)}
		}
		return "", c.handleErrorResponse(resp, body)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("failed to parse token response: %w", err)}
	}
	if tokenResp.AccessToken == "" {
		return "", &TransportError{Status: resp.StatusCode, Detail: "token response missing access_token"}
	}
	return tokenResp.AccessToken, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// authorize attaches the bearer token to req, failing with ErrNoCredential
// when no token is available.
func (c *Client) authorize(req *http.Request) error {
	token, ok := c.tokens.Token()
	if !ok {
		return ErrNoCredential
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// doJSON performs an authorized request and decodes a JSON response into out
// (out may be nil for calls with no interesting response body).
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

// handleErrorResponse maps a non-success response to a typed error.
func (c *Client) handleErrorResponse(resp *http.Response, body []byte) error {
	detail := errorDetail(body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Status: resp.StatusCode, Detail: detail}
	case http.StatusTooManyRequests:
		return rateLimitError(resp)
	default:
		return &TransportError{Status: resp.StatusCode, Detail: detail}
	}
}

// rateLimitError builds a RateLimitError from the Retry-After header when
// present.
func rateLimitError(resp *http.Response) error {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return &RateLimitError{}
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return &RateLimitError{RetryAfter: time.Duration(seconds) * time.Second}
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return &RateLimitError{RetryAfter: time.Until(t)}
	}
	return &RateLimitError{}
}

// errorDetail extracts the service's {"detail": ...} message, falling back
// to the raw body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(body))
}
