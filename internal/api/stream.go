// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/loomchat/loom-tui/internal/textstream"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventKind discriminates stream events.
type EventKind int

const (
	// EventDelta carries one decoded text fragment.
	EventDelta EventKind = iota
	// EventRateLimited reports the service throttled the request. Terminal.
	EventRateLimited
	// EventTransportFailure reports a network or protocol failure. Terminal.
	EventTransportFailure
	// EventComplete reports the response body ended cleanly. Terminal.
	EventComplete
)

func (k EventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventRateLimited:
		return "rate_limited"
	case EventTransportFailure:
		return "transport_failure"
	case EventComplete:
		return "complete"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one element of a generation stream. Text is set for EventDelta;
// Err is set for EventRateLimited and EventTransportFailure.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// =============================================================================
// STREAM
// =============================================================================

// streamBufferSize decouples the network reader from a slow consumer.
const streamBufferSize = 64

// Stream is a single-consumption sequence of generation events. Exactly one
// terminal event (RateLimited, TransportFailure, or Complete) is delivered
// before the channel closes, except after cancellation, where the channel
// closes with no terminal event at all: a cancelled stream is never
// mistakable for a completed one.
type Stream struct {
	events chan Event
	cancel context.CancelFunc
	done   <-chan struct{}
}

// Events returns the event channel. It closes when the stream ends for any
// reason.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Cancel aborts the stream, closing the underlying connection promptly.
// Safe to call more than once and after the stream has ended.
func (s *Stream) Cancel() {
	s.cancel()
}

// Done is closed once the stream is cancelled or has ended. Relays that
// forward events elsewhere can select on it so an abandoned consumer does
// not strand them.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// =============================================================================
// GENERATE
// =============================================================================

// GenerateStream opens a generation request for sessionID carrying prompt
// and the current credential. It returns an error only when the request
// cannot be attempted at all (no credential, malformed request); every
// failure after that point arrives as a stream event, so callers observe
// protocol failures and text through one ordered sequence.
func (c *Client) GenerateStream(ctx context.Context, sessionID, prompt string) (*Stream, error) {
	token, ok := c.tokens.Token()
	if !ok {
		return nil, ErrNoCredential
	}

	ctx, cancel := context.WithCancel(ctx)

	body, err := json.Marshal(struct {
		Prompt string `json:"prompt"`
	}{Prompt: prompt})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to encode prompt: %w", err)
	}

	reqURL := c.baseURL + "/generate/stream/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	s := &Stream{
		events: make(chan Event, streamBufferSize),
		cancel: cancel,
		done:   ctx.Done(),
	}
	go c.runStream(ctx, req, s)
	return s, nil
}

// runStream drives the request and translates the response into events.
func (c *Client) runStream(ctx context.Context, req *http.Request, s *Stream) {
	defer close(s.events)
	defer s.cancel()

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled before the response arrived; no terminal event.
			return
		}
		s.send(ctx, Event{Kind: EventTransportFailure, Err: &TransportError{Err: err}})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		s.send(ctx, Event{Kind: EventRateLimited, Err: rateLimitError(resp)})
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.send(ctx, Event{Kind: EventTransportFailure, Err: c.handleErrorResponse(resp, body)})
		return
	}

	// One decoder per stream; chunk boundaries may split characters.
	decoder := textstream.NewDecoder()
	received := false
	buf := make([]byte, 4096)

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			received = true
			if text := decoder.Feed(buf[:n]); text != "" {
				if !s.send(ctx, Event{Kind: EventDelta, Text: text}) {
					return
				}
			}
		}
		if err == nil {
			continue
		}
		if err == io.EOF {
			if !received {
				s.send(ctx, Event{Kind: EventTransportFailure,
					Err: &TransportError{Status: resp.StatusCode, Detail: "empty response body"}})
				return
			}
			if _, derr := decoder.Finish(); derr != nil {
				// A truncated character at end-of-stream is fatal; text
				// already delivered stays delivered.
				s.send(ctx, Event{Kind: EventTransportFailure,
					Err: &TransportError{Status: resp.StatusCode, Err: derr}})
				return
			}
			s.send(ctx, Event{Kind: EventComplete})
			return
		}
		if ctx.Err() != nil {
			// Cancelled mid-body; close without a terminal event.
			return
		}
		s.send(ctx, Event{Kind: EventTransportFailure, Err: &TransportError{Err: err}})
		return
	}
}

// send delivers ev unless the stream is cancelled first.
func (s *Stream) send(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
