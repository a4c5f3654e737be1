// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the loom generation service: login,
// session registry operations, metrics, and the streaming generate call.
package api
