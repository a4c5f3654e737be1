// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNoCredential indicates an operation that requires a credential was
	// attempted with none stored.
	ErrNoCredential = errors.New("no credential available")

	// ErrAuthFailed indicates the service rejected the credential.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the service signalled throttling.
	ErrRateLimited = errors.New("rate limited")
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// AuthError is an authentication failure reported by the service, carrying
// the server's detail message.
type AuthError struct {
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("authentication failed (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("authentication failed (status %d)", e.Status)
}

// Is allows AuthError to be compared with ErrAuthFailed.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

// RateLimitError is a throttling response, with retry timing when the
// service provided one.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
	}
	return "rate limited"
}

// Is allows RateLimitError to be compared with ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// TransportError is a network failure or an unexpected non-success status.
type TransportError struct {
	Status int
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("transport failure: %v", e.Err)
	case e.Detail != "":
		return fmt.Sprintf("transport failure (status %d): %s", e.Status, e.Detail)
	default:
		return fmt.Sprintf("transport failure (status %d)", e.Status)
	}
}

// Unwrap returns the underlying error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}
