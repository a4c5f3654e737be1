// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript maintains the per-session exchange log under streaming
// mutation. A Transcript is not safe for concurrent use; callers serialize
// access (the chat coordinator holds its own lock around every mutation).
package transcript

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrPendingExists indicates an append while another exchange is still
	// streaming. At most one exchange may be pending at a time.
	ErrPendingExists = errors.New("transcript already has a pending exchange")

	// ErrNotPending indicates a mutation addressed to an exchange that is
	// not the current pending one.
	ErrNotPending = errors.New("exchange is not pending")
)

// =============================================================================
// TYPES
// =============================================================================

// Status is the lifecycle state of an exchange.
type Status int

const (
	// StatusPending marks the exchange currently streaming its response.
	StatusPending Status = iota
	// StatusComplete marks a finished exchange. Terminal.
	StatusComplete
	// StatusFailed marks an aborted exchange; its response keeps whatever
	// partial text arrived. Terminal.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Exchange is a read-only snapshot of one prompt/response pair.
type Exchange struct {
	ID       string
	Prompt   string
	Response string
	Status   Status
}

// exchange is the internal mutable form; the response grows through a
// builder while streaming.
type exchange struct {
	id       string
	prompt   string
	response strings.Builder
	status   Status
}

// Transcript is the ordered exchange log for exactly one session.
type Transcript struct {
	sessionID string
	exchanges []*exchange
	pendingID string
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// New returns an empty transcript scoped to sessionID.
func New(sessionID string) *Transcript {
	return &Transcript{sessionID: sessionID}
}

// FromHistory builds a transcript from server-side exchange records. Every
// restored exchange is Complete; history never contains an in-flight
// exchange.
func FromHistory(sessionID string, records []Exchange) *Transcript {
	t := New(sessionID)
	for _, rec := range records {
		ex := &exchange{
			id:     rec.ID,
			prompt: rec.Prompt,
			status: StatusComplete,
		}
		if ex.id == "" {
			ex.id = uuid.NewString()
		}
		ex.response.WriteString(rec.Response)
		t.exchanges = append(t.exchanges, ex)
	}
	return t
}

// =============================================================================
// ACCESSORS
// =============================================================================

// SessionID returns the session this transcript belongs to.
func (t *Transcript) SessionID() string {
	return t.sessionID
}

// Len returns the number of exchanges.
func (t *Transcript) Len() int {
	return len(t.exchanges)
}

// Exchanges returns snapshots of every exchange in chronological order.
func (t *Transcript) Exchanges() []Exchange {
	out := make([]Exchange, len(t.exchanges))
	for i, ex := range t.exchanges {
		out[i] = Exchange{
			ID:       ex.id,
			Prompt:   ex.prompt,
			Response: ex.response.String(),
			Status:   ex.status,
		}
	}
	return out
}

// Pending reports whether an exchange is currently streaming.
func (t *Transcript) Pending() bool {
	return t.pendingID != ""
}

// =============================================================================
// MUTATION
// =============================================================================

// Append adds a new pending exchange with an empty response and returns its
// id. It fails with ErrPendingExists if another exchange is still pending;
// callers must seal the current exchange first.
func (t *Transcript) Append(prompt string) (string, error) {
	if t.pendingID != "" {
		return "", ErrPendingExists
	}
	ex := &exchange{
		id:     uuid.NewString(),
		prompt: prompt,
		status: StatusPending,
	}
	t.exchanges = append(t.exchanges, ex)
	t.pendingID = ex.id
	return ex.id, nil
}

// ApplyDelta appends text to the response of the pending exchange.
// exchangeID must reference the current pending exchange.
func (t *Transcript) ApplyDelta(exchangeID, text string) error {
	ex, err := t.pending(exchangeID)
	if err != nil {
		return err
	}
	ex.response.WriteString(text)
	return nil
}

// Finalize seals the pending exchange as Complete.
func (t *Transcript) Finalize(exchangeID string) error {
	ex, err := t.pending(exchangeID)
	if err != nil {
		return err
	}
	ex.status = StatusComplete
	t.pendingID = ""
	return nil
}

// Fail seals the pending exchange as Failed. The response keeps whatever
// partial text was accumulated.
func (t *Transcript) Fail(exchangeID string) error {
	ex, err := t.pending(exchangeID)
	if err != nil {
		return err
	}
	ex.status = StatusFailed
	t.pendingID = ""
	return nil
}

// Replace substitutes this transcript's contents wholesale, discarding any
// in-flight pending state. The caller must cancel the associated stream
// before replacing; a late Finalize or Fail from a cancelled stream then
// returns ErrNotPending and mutates nothing.
func (t *Transcript) Replace(sessionID string, records []Exchange) {
	fresh := FromHistory(sessionID, records)
	t.sessionID = fresh.sessionID
	t.exchanges = fresh.exchanges
	t.pendingID = ""
}

// pending resolves exchangeID to the current pending exchange.
func (t *Transcript) pending(exchangeID string) (*exchange, error) {
	if t.pendingID == "" || t.pendingID != exchangeID {
		return nil, ErrNotPending
	}
	for _, ex := range t.exchanges {
		if ex.id == exchangeID {
			return ex, nil
		}
	}
	return nil, ErrNotPending
}
