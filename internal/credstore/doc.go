// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credstore persists the service credential (access token plus
// username) in a local SQLite database and notifies registered observers
// when the credential is cleared.
package credstore
