// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loomchat/loom-tui/internal/textstream"
)

// collect drains a stream, returning all events in order.
func collect(t *testing.T, s *Stream) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out draining stream")
		}
	}
}

func TestGenerateStreamDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/generate/stream/s1", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var body struct {
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "hello", body.Prompt)

		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Hi", " there", "!"} {
			w.Write([]byte(chunk))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	s, err := c.GenerateStream(context.Background(), "s1", "hello")
	require.NoError(t, err)

	events := collect(t, s)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, EventComplete, last.Kind)

	var text strings.Builder
	for _, ev := range events[:len(events)-1] {
		require.Equal(t, EventDelta, ev.Kind)
		require.NotEmpty(t, ev.Text)
		text.WriteString(ev.Text)
	}
	require.Equal(t, "Hi there!", text.String())
}

func TestGenerateStreamSplitRune(t *testing.T) {
	// € is E2 82 AC; the server splits it across flushes.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte{'1', 0xE2})
		flusher.Flush()
		w.Write([]byte{0x82})
		flusher.Flush()
		w.Write([]byte{0xAC, '2'})
		flusher.Flush()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	s, err := c.GenerateStream(context.Background(), "s1", "p")
	require.NoError(t, err)

	events := collect(t, s)
	require.Equal(t, EventComplete, events[len(events)-1].Kind)

	var text strings.Builder
	for _, ev := range events[:len(events)-1] {
		require.Equal(t, EventDelta, ev.Kind)
		text.WriteString(ev.Text)
	}
	require.Equal(t, "1€2", text.String())
}

func TestGenerateStreamRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	s, err := c.GenerateStream(context.Background(), "s1", "p")
	require.NoError(t, err)

	events := collect(t, s)
	require.Len(t, events, 1)
	require.Equal(t, EventRateLimited, events[0].Kind)
	require.ErrorIs(t, events[0].Err, ErrRateLimited)
}

func TestGenerateStreamServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"detail": "upstream worker lost"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	s, err := c.GenerateStream(context.Background(), "s1", "p")
	require.NoError(t, err)

	events := collect(t, s)
	require.Len(t, events, 1)
	require.Equal(t, EventTransportFailure, events[0].Kind)

	var transportErr *TransportError
	require.ErrorAs(t, events[0].Err, &transportErr)
	require.Equal(t, http.StatusBadGateway, transportErr.Status)
	require.Equal(t, "upstream worker lost", transportErr.Detail)
}

func TestGenerateStreamEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	s, err := c.GenerateStream(context.Background(), "s1", "p")
	require.NoError(t, err)

	events := collect(t, s)
	require.Len(t, events, 1)
	require.Equal(t, EventTransportFailure, events[0].Kind)
}

func TestGenerateStreamTruncatedRune(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("ok "))
		flusher.Flush()
		// First two bytes of € and then the body ends.
		w.Write([]byte{0xE2, 0x82})
		flusher.Flush()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	s, err := c.GenerateStream(context.Background(), "s1", "p")
	require.NoError(t, err)

	events := collect(t, s)
	require.NotEmpty(t, events)

	// The complete text before the truncation is still delivered.
	require.Equal(t, EventDelta, events[0].Kind)
	require.Equal(t, "ok ", events[0].Text)

	last := events[len(events)-1]
	require.Equal(t, EventTransportFailure, last.Kind)

	var decErr *textstream.DecodeError
	require.ErrorAs(t, last.Err, &decErr)
	require.Equal(t, []byte{0xE2, 0x82}, decErr.Tail)
}

func TestGenerateStreamNoCredential(t *testing.T) {
	c := NewClient("http://unused.invalid", StaticToken(""))
	_, err := c.GenerateStream(context.Background(), "s1", "p")
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestGenerateStreamCancelMidBody(t *testing.T) {
	firstChunk := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("partial"))
		flusher.Flush()
		close(firstChunk)
		// Hold the body open until the client disconnects.
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	s, err := c.GenerateStream(context.Background(), "s1", "p")
	require.NoError(t, err)

	select {
	case ev := <-s.Events():
		require.Equal(t, EventDelta, ev.Kind)
		require.Equal(t, "partial", ev.Text)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for first delta")
	}
	<-firstChunk

	s.Cancel()

	// The channel closes with no terminal event: cancellation must never
	// look like completion.
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return
			}
			require.NotEqual(t, EventComplete, ev.Kind, "cancelled stream must not complete")
		case <-timeout:
			t.Fatal("timed out waiting for stream close after cancel")
		}
	}
}

func TestGenerateStreamContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL, StaticToken("tok-1"))
	s, err := c.GenerateStream(ctx, "s1", "p")
	require.NoError(t, err)

	cancel()

	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return
			}
			require.NotEqual(t, EventComplete, ev.Kind)
		case <-timeout:
			t.Fatal("timed out waiting for stream close after context cancel")
		}
	}
}
