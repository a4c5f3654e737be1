// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat coordinates the session registry cache, the active session,
// its transcript, and the one in-flight generation stream. The Coordinator
// is constructed explicitly with its dependencies; there is no package
// state.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/loomchat/loom-tui/internal/api"
	"github.com/loomchat/loom-tui/internal/credstore"
	"github.com/loomchat/loom-tui/internal/transcript"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoActiveSession indicates a send with no session selected.
	ErrNoActiveSession = errors.New("no active session")

	// ErrStreamInProgress indicates a send while a previous stream for the
	// active session is still running. Stream starts are serialized; the
	// caller must wait (and disable the send action) until the current one
	// ends.
	ErrStreamInProgress = errors.New("a stream is already in progress")
)

// =============================================================================
// TYPES
// =============================================================================

// Update is one step of an in-flight send as observed by the UI. Delta
// carries newly arrived text; Done marks the final update, with Err set if
// the exchange failed or was rate limited.
type Update struct {
	ExchangeID string
	Delta      string
	Done       bool
	Err        error
}

// refreshTimeout bounds the background registry refresh after a completed
// exchange.
const refreshTimeout = 10 * time.Second

// Coordinator owns the client-side chat state. All methods are safe for
// concurrent use.
type Coordinator struct {
	client *api.Client
	creds  *credstore.Store

	mu         sync.Mutex
	sessions   []api.SessionSummary
	activeID   string
	transcript *transcript.Transcript
	stream     *api.Stream
	streaming  bool

	unsubscribe func()
}

// New creates a Coordinator and subscribes it to logout notifications so a
// cleared credential tears down all session state.
func New(client *api.Client, creds *credstore.Store) *Coordinator {
	c := &Coordinator{
		client:     client,
		creds:      creds,
		transcript: transcript.New(""),
	}
	c.unsubscribe = creds.SubscribeOnLogout(c.Teardown)
	return c
}

// Close cancels any in-flight stream and detaches from the credential
// store.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.mu.Lock()
	if c.stream != nil {
		c.stream.Cancel()
	}
	c.mu.Unlock()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Sessions returns a copy of the cached session list in service order.
func (c *Coordinator) Sessions() []api.SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.SessionSummary, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// ActiveSession returns the selected session id, if any.
func (c *Coordinator) ActiveSession() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID, c.activeID != ""
}

// Transcript returns snapshots of the active session's exchanges.
func (c *Coordinator) Transcript() []transcript.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Exchanges()
}

// Streaming reports whether a generation stream is in flight.
func (c *Coordinator) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// CancelStream aborts the in-flight stream, if any. The consumer observes a
// final failed update rather than a completion.
func (c *Coordinator) CancelStream() {
	c.mu.Lock()
	if c.stream != nil {
		c.stream.Cancel()
	}
	c.mu.Unlock()
}

// =============================================================================
// AUTH
// =============================================================================

// Login authenticates against the service and persists the credential.
func (c *Coordinator) Login(ctx context.Context, username, password string) error {
	token, err := c.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return c.creds.SetCredential(credstore.Credential{Token: token, Username: username})
}

// Logout clears the credential; the store's logout notification tears down
// session state before Logout returns.
func (c *Coordinator) Logout() error {
	return c.creds.Clear()
}

// Teardown drops the session list, active session, transcript, and any
// in-flight stream. Invoked on logout.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	if c.stream != nil {
		c.stream.Cancel()
		c.stream = nil
		c.streaming = false
	}
	c.sessions = nil
	c.activeID = ""
	c.transcript.Replace("", nil)
	c.mu.Unlock()
}

// =============================================================================
// REGISTRY
// =============================================================================

// Refresh re-fetches the session list from the service. When nothing is
// selected yet and the list is non-empty, the first session in service
// order becomes active; when the selected session no longer exists, the
// selection moves to the first remaining session or clears. The new
// selection is committed before its history is fetched, so a failed fetch
// leaves the right session active with an empty transcript, never a stale
// id.
func (c *Coordinator) Refresh(ctx context.Context) error {
	sessions, err := c.client.ListSessions(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessions = sessions
	target := ""
	switch {
	case c.activeID == "" && len(sessions) > 0:
		target = sessions[0].ID
	case c.activeID != "" && !containsSession(sessions, c.activeID):
		if len(sessions) > 0 {
			target = sessions[0].ID
		} else {
			c.clearActiveLocked()
		}
	}
	if target != "" {
		c.reassignLocked(target)
	}
	c.mu.Unlock()

	if target != "" {
		return c.Switch(ctx, target)
	}
	return nil
}

// Create makes a new session on the service and switches to it.
func (c *Coordinator) Create(ctx context.Context) (string, error) {
	id, err := c.client.CreateSession(ctx)
	if err != nil {
		return "", err
	}

	sessions, err := c.client.ListSessions(ctx)
	if err == nil {
		c.mu.Lock()
		c.sessions = sessions
		c.mu.Unlock()
	} else {
		// The session exists even if the list refresh failed; track it
		// locally so the invariant between active id and list holds.
		c.mu.Lock()
		c.sessions = append(c.sessions, api.SessionSummary{ID: id})
		c.mu.Unlock()
	}

	if err := c.Switch(ctx, id); err != nil {
		return id, err
	}
	return id, nil
}

// Delete removes a session. Deleting the active session cancels any
// in-flight stream first, then reassigns the selection to the first
// remaining session, or clears it when none remain. Reassignment is
// unconditional: the deleted session is never left active, even if loading
// the new session's history fails.
func (c *Coordinator) Delete(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if sessionID == c.activeID && c.stream != nil {
		c.stream.Cancel()
	}
	c.mu.Unlock()

	if err := c.client.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	c.mu.Lock()
	kept := c.sessions[:0]
	for _, s := range c.sessions {
		if s.ID != sessionID {
			kept = append(kept, s)
		}
	}
	c.sessions = kept

	wasActive := sessionID == c.activeID
	target := ""
	if wasActive {
		if len(c.sessions) > 0 {
			target = c.sessions[0].ID
			c.reassignLocked(target)
		} else {
			c.clearActiveLocked()
		}
	}
	c.mu.Unlock()

	if target != "" {
		return c.Switch(ctx, target)
	}
	return nil
}

// containsSession reports whether id appears in sessions.
func containsSession(sessions []api.SessionSummary, id string) bool {
	for _, s := range sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}

// clearActiveLocked resets selection and transcript. Caller holds c.mu.
func (c *Coordinator) clearActiveLocked() {
	c.activeID = ""
	c.transcript.Replace("", nil)
}

// reassignLocked makes sessionID active with an empty transcript. Caller
// holds c.mu; the history load happens afterwards via Switch.
func (c *Coordinator) reassignLocked(sessionID string) {
	c.activeID = sessionID
	c.transcript.Replace(sessionID, nil)
}

// =============================================================================
// SWITCHING
// =============================================================================

// Switch makes sessionID the active session, cancelling any in-flight
// stream before the transcript is replaced so a stale stream can never
// mutate the new view. If the history fetch fails, the previous selection
// and transcript stay untouched.
func (c *Coordinator) Switch(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if c.stream != nil {
		c.stream.Cancel()
	}
	c.mu.Unlock()

	records, err := c.client.SessionHistory(ctx, sessionID)
	if err != nil {
		return err
	}

	history := make([]transcript.Exchange, len(records))
	for i, rec := range records {
		history[i] = transcript.Exchange{
			ID:       rec.ID,
			Prompt:   rec.Prompt,
			Response: rec.Response,
		}
	}

	c.mu.Lock()
	c.activeID = sessionID
	c.transcript.Replace(sessionID, history)
	c.mu.Unlock()
	return nil
}

// =============================================================================
// SENDING
// =============================================================================

// Send starts a generation stream for prompt on the active session and
// returns a channel of updates. The exchange is appended to the transcript
// only once the stream delivers text or completes; a rate limit or
// transport failure before that leaves the transcript untouched. Only one
// stream may run at a time. Callers must receive from the channel until it
// closes; an abandoned channel stops receiving once the stream is
// cancelled (CancelStream, Switch, Delete, or Teardown).
func (c *Coordinator) Send(ctx context.Context, prompt string) (<-chan Update, error) {
	c.mu.Lock()
	if c.activeID == "" {
		c.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	if c.streaming {
		c.mu.Unlock()
		return nil, ErrStreamInProgress
	}
	sessionID := c.activeID

	stream, err := c.client.GenerateStream(ctx, sessionID, prompt)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.stream = stream
	c.streaming = true
	c.mu.Unlock()

	updates := make(chan Update, 64)
	go c.consume(stream, sessionID, prompt, updates)
	return updates, nil
}

// consume drains one stream, applying its events to the transcript and
// relaying them as updates.
func (c *Coordinator) consume(stream *api.Stream, sessionID, prompt string, updates chan<- Update) {
	defer close(updates)

	var exchangeID string
	appended := false

	// relay forwards one update. When the consumer has stopped receiving
	// and the buffer is full, the send is abandoned once the stream ends so
	// the goroutine never leaks.
	relay := func(u Update) {
		select {
		case updates <- u:
		default:
			select {
			case updates <- u:
			case <-stream.Done():
			}
		}
	}

	appendLocked := func() {
		if appended || c.activeID != sessionID {
			return
		}
		id, err := c.transcript.Append(prompt)
		if err != nil {
			return
		}
		exchangeID = id
		appended = true
	}

	for ev := range stream.Events() {
		switch ev.Kind {
		case api.EventDelta:
			c.mu.Lock()
			appendLocked()
			if appended {
				c.transcript.ApplyDelta(exchangeID, ev.Text)
			}
			c.mu.Unlock()
			relay(Update{ExchangeID: exchangeID, Delta: ev.Text})

		case api.EventComplete:
			c.mu.Lock()
			appendLocked()
			if appended {
				c.transcript.Finalize(exchangeID)
			}
			c.finishStreamLocked(stream)
			c.mu.Unlock()

			c.refreshPreview(sessionID)
			relay(Update{ExchangeID: exchangeID, Done: true})
			return

		case api.EventRateLimited, api.EventTransportFailure:
			c.mu.Lock()
			if appended {
				// Partial text stays, visibly marked failed.
				c.transcript.Fail(exchangeID)
			}
			c.finishStreamLocked(stream)
			c.mu.Unlock()
			relay(Update{ExchangeID: exchangeID, Done: true, Err: ev.Err})
			return
		}
	}

	// The event channel closed without a terminal event: the stream was
	// cancelled. Seal any partial exchange; a transcript already replaced
	// by a session switch rejects the stale Fail harmlessly.
	c.mu.Lock()
	if appended {
		c.transcript.Fail(exchangeID)
	}
	c.finishStreamLocked(stream)
	c.mu.Unlock()
	relay(Update{ExchangeID: exchangeID, Done: true, Err: context.Canceled})
}

// finishStreamLocked clears in-flight state if stream is still the current
// one. Caller holds c.mu.
func (c *Coordinator) finishStreamLocked(stream *api.Stream) {
	if c.stream == stream {
		c.stream = nil
		c.streaming = false
	}
}

// refreshPreview re-fetches the session list after a completed exchange on
// a session whose preview is still empty, so the sidebar picks up the
// server-derived preview.
func (c *Coordinator) refreshPreview(sessionID string) {
	c.mu.Lock()
	needsRefresh := false
	for _, s := range c.sessions {
		if s.ID == sessionID && s.Preview == "" {
			needsRefresh = true
		}
	}
	c.mu.Unlock()
	if !needsRefresh {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	sessions, err := c.client.ListSessions(ctx)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.sessions = sessions
	c.mu.Unlock()
}
