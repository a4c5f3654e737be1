// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	ctl "github.com/loomchat/loom-tui/internal/chat"
	"github.com/loomchat/loom-tui/internal/config"
	"github.com/loomchat/loom-tui/internal/monitor"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// LoginResultMsg reports the outcome of a login attempt.
type LoginResultMsg struct {
	Err error
}

// SessionsRefreshedMsg reports the outcome of a registry refresh, create,
// delete, or switch.
type SessionsRefreshedMsg struct {
	Err error
}

// StreamStartedMsg carries the update channel of a newly started send.
type StreamStartedMsg struct {
	Updates <-chan ctl.Update
	Err     error
}

// StreamUpdateMsg delivers one update from the in-flight stream, along with
// the channel to re-arm the next read.
type StreamUpdateMsg struct {
	Update  ctl.Update
	Updates <-chan ctl.Update
}

// StreamClosedMsg signals that the update channel closed.
type StreamClosedMsg struct{}

// MetricsMsg delivers one monitor snapshot.
type MetricsMsg struct {
	Snapshot  monitor.Snapshot
	Snapshots <-chan monitor.Snapshot
}

// MetricsClosedMsg signals the monitor channel closed.
type MetricsClosedMsg struct{}

// ConfigReloadedMsg delivers a config picked up by the file watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
}
