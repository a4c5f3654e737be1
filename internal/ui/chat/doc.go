// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen Bubble Tea interface: the login
// form, the session sidebar, the streaming transcript view, and the status
// bar with service metrics.
package chat
