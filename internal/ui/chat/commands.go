// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	ctl "github.com/loomchat/loom-tui/internal/chat"
	"github.com/loomchat/loom-tui/internal/monitor"
)

// requestTimeout bounds the registry and login calls issued from the UI.
const requestTimeout = 15 * time.Second

// =============================================================================
// COMMANDS
// =============================================================================

func loginCmd(coord *ctl.Coordinator, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return LoginResultMsg{Err: coord.Login(ctx, username, password)}
	}
}

func refreshCmd(coord *ctl.Coordinator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return SessionsRefreshedMsg{Err: coord.Refresh(ctx)}
	}
}

func createSessionCmd(coord *ctl.Coordinator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := coord.Create(ctx)
		return SessionsRefreshedMsg{Err: err}
	}
}

func deleteSessionCmd(coord *ctl.Coordinator, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return SessionsRefreshedMsg{Err: coord.Delete(ctx, sessionID)}
	}
}

func switchSessionCmd(coord *ctl.Coordinator, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return SessionsRefreshedMsg{Err: coord.Switch(ctx, sessionID)}
	}
}

func sendCmd(coord *ctl.Coordinator, prompt string) tea.Cmd {
	return func() tea.Msg {
		// The stream itself is unbounded; it ends via events or Cancel.
		updates, err := coord.Send(context.Background(), prompt)
		return StreamStartedMsg{Updates: updates, Err: err}
	}
}

// waitForUpdate blocks on the stream channel and re-arms itself through the
// returned message.
func waitForUpdate(updates <-chan ctl.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return StreamClosedMsg{}
		}
		return StreamUpdateMsg{Update: u, Updates: updates}
	}
}

// waitForMetrics blocks on the monitor channel.
func waitForMetrics(snapshots <-chan monitor.Snapshot) tea.Cmd {
	if snapshots == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-snapshots
		if !ok {
			return MetricsClosedMsg{}
		}
		return MetricsMsg{Snapshot: snap, Snapshots: snapshots}
	}
}
