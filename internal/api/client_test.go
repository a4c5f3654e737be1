// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/token", r.URL.Path)
		require.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		require.NoError(t, r.ParseForm())
		require.Equal(t, "ada", r.PostForm.Get("username"))
		require.Equal(t, "s3cret", r.PostForm.Get("password"))

		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-abc"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken(""))
	token, err := c.Login(context.Background(), "ada", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "tok-abc", token)
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect username or password"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken(""))
	_, err := c.Login(context.Background(), "ada", "wrong")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.Status)
	require.Equal(t, "Incorrect username or password", authErr.Detail)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestLoginMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken(""))
	_, err := c.Login(context.Background(), "ada", "pw")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestListSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "/sessions", r.URL.Path)
		json.NewEncoder(w).Encode([]SessionSummary{
			{ID: "s1", Preview: "first question"},
			{ID: "s2", Preview: ""},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	sessions, err := c.ListSessions(context.Background())
	require.NoError(t, err)
	require.Equal(t, []SessionSummary{
		{ID: "s1", Preview: "first question"},
		{ID: "s2", Preview: ""},
	}, sessions)
}

func TestListSessionsNoCredential(t *testing.T) {
	c := NewClient("http://unused.invalid", StaticToken(""))
	_, err := c.ListSessions(context.Background())
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sessions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"session_id": "s-new"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	id, err := c.CreateSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "s-new", id)
}

func TestDeleteSession(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/sessions/s1", r.URL.Path)
		deleted = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	require.NoError(t, c.DeleteSession(context.Background(), "s1"))
	require.True(t, deleted)
}

func TestSessionHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions/s1/history", r.URL.Path)
		json.NewEncoder(w).Encode([]ExchangeRecord{
			{ID: "e1", Prompt: "q1", Response: "a1"},
			{ID: "e2", Prompt: "q2", Response: "a2"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	records, err := c.SessionHistory(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "q1", records[0].Prompt)
	require.Equal(t, "a2", records[1].Response)
}

func TestRateLimitedList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	_, err := c.ListSessions(context.Background())

	require.ErrorIs(t, err, ErrRateLimited)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	require.Equal(t, float64(30), rlErr.RetryAfter.Seconds())
}

func TestServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "model crashed"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	_, err := c.ListSessions(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.StatusInternalServerError, transportErr.Status)
	require.Equal(t, "model crashed", transportErr.Detail)
	require.False(t, errors.Is(err, ErrRateLimited))
	require.False(t, errors.Is(err, ErrAuthFailed))
}

func TestMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/metrics", r.URL.Path)
		w.Write([]byte(`{
			"gpu": {"name": "RTX 4090", "utilization": 61.5, "memory_used": 8123.0, "memory_total": 24564.0},
			"memory": {"used": 9000.0, "total": 32000.0},
			"inference_time_ms": 412.7
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	m, err := c.Metrics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m.GPU)
	require.Equal(t, "RTX 4090", m.GPU.Name)
	require.Equal(t, 61.5, m.GPU.Utilization)
	require.Equal(t, 9000.0, m.Memory.Used)
	require.NotNil(t, m.InferenceTimeMs)
	require.Equal(t, 412.7, *m.InferenceTimeMs)
}

func TestMetricsNoGPU(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gpu": null, "memory": {"used": 100.0, "total": 200.0}, "inference_time_ms": null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-1"))
	m, err := c.Metrics(context.Background())
	require.NoError(t, err)
	require.Nil(t, m.GPU)
	require.Nil(t, m.InferenceTimeMs)
	require.Equal(t, 200.0, m.Memory.Total)
}

func TestStaticToken(t *testing.T) {
	if _, ok := StaticToken("").Token(); ok {
		t.Error("empty static token must report absent")
	}
	token, ok := StaticToken("abc").Token()
	if !ok || token != "abc" {
		t.Errorf("Token() = %q, %v", token, ok)
	}
}

func TestWithTimeoutReturnsCopy(t *testing.T) {
	base := NewClient("http://example.test", StaticToken("tok-1"))
	custom := base.WithTimeout(5 * time.Second)

	if base == custom {
		t.Fatal("WithTimeout must not return the receiver")
	}
	require.Equal(t, DefaultTimeout, base.httpClient.Timeout)
	require.Equal(t, 5*time.Second, custom.httpClient.Timeout)

	// Both clients keep the shared streaming client and base URL.
	require.Equal(t, base.streamClient, custom.streamClient)
	require.Equal(t, base.BaseURL(), custom.BaseURL())
}
