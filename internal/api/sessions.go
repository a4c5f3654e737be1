// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// SessionSummary is one entry in the service's session list. The server is
// the source of truth; the client only caches.
type SessionSummary struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
}

// ExchangeRecord is one prompt/response pair from a session's history.
type ExchangeRecord struct {
	ID       string `json:"id"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// ListSessions fetches the session list in service order.
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var sessions []SessionSummary
	if err := c.doJSON(ctx, http.MethodGet, "/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession creates a new session and returns its id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/sessions", nil, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// DeleteSession removes a session on the service.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// SessionHistory fetches a session's completed exchanges in chronological
// order.
func (c *Client) SessionHistory(ctx context.Context, sessionID string) ([]ExchangeRecord, error) {
	var records []ExchangeRecord
	path := "/sessions/" + url.PathEscape(sessionID) + "/history"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}
