// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomchat/loom-tui/internal/ui/styles"
)

// Update is the Bubble Tea update loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.initRenderer()
		m.layoutViewport()
		m.ready = true
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case LoginResultMsg:
		if msg.Err != nil {
			m.loginErr = msg.Err.Error()
			m.password.SetValue("")
			return m, nil
		}
		m.loginErr = ""
		m.state = StateReady
		m.input.Focus()
		return m, refreshCmd(m.coord)

	case SessionsRefreshedMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		m.refreshTranscript()
		return m, nil

	case StreamStartedMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			m.state = StateReady
			return m, nil
		}
		m.updates = msg.Updates
		return m, waitForUpdate(msg.Updates)

	case StreamUpdateMsg:
		if msg.Update.Done {
			m.state = StateReady
			m.updates = nil
			m.input.Focus()
			if msg.Update.Err != nil {
				m.errText = msg.Update.Err.Error()
			}
			m.refreshTranscript()
			// Drain the channel close that follows the final update.
			return m, waitForUpdate(msg.Updates)
		}
		m.refreshTranscript()
		return m, waitForUpdate(msg.Updates)

	case StreamClosedMsg:
		if m.state == StateStreaming {
			m.state = StateReady
			m.input.Focus()
			m.refreshTranscript()
		}
		m.updates = nil
		return m, nil

	case MetricsMsg:
		if msg.Snapshot.Err == nil {
			m.metrics = msg.Snapshot.Metrics
		}
		return m, waitForMetrics(msg.Snapshots)

	case MetricsClosedMsg:
		return m, nil

	case ConfigReloadedMsg:
		// Live theme change from an edited config file.
		m.theme = styles.New(msg.Config.UI.Theme)
		m.spin.Style = m.theme.Spinner
		m.initRenderer()
		m.refreshTranscript()
		return m, nil
	}

	return m.updateComponents(msg)
}

// handleKey routes key presses by state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.state == StateLogin {
		return m.handleLoginKey(msg)
	}
	return m.handleChatKey(msg)
}

// handleLoginKey drives the two-field login form.
func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.passwordFocus = !m.passwordFocus
		if m.passwordFocus {
			m.username.Blur()
			return m, m.password.Focus()
		}
		m.password.Blur()
		return m, m.username.Focus()

	case "enter":
		if !m.passwordFocus {
			m.passwordFocus = true
			m.username.Blur()
			return m, m.password.Focus()
		}
		username := strings.TrimSpace(m.username.Value())
		password := m.password.Value()
		if username == "" || password == "" {
			m.loginErr = "username and password are required"
			return m, nil
		}
		m.loginErr = ""
		return m, loginCmd(m.coord, username, password)
	}

	return m.updateComponents(msg)
}

// handleChatKey drives the main chat view.
func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Esc cancels the in-flight stream; the Done update restores
		// StateReady.
		if m.state == StateStreaming {
			m.coord.CancelStream()
		}
		return m, nil

	case "enter":
		if m.state != StateReady {
			return m, nil
		}
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return m, nil
		}
		if _, ok := m.coord.ActiveSession(); !ok {
			m.errText = "no session selected (ctrl+n creates one)"
			return m, nil
		}
		m.input.SetValue("")
		m.input.Blur()
		m.state = StateStreaming
		m.errText = ""
		return m, sendCmd(m.coord, prompt)

	case "ctrl+n":
		if m.state == StateStreaming {
			return m, nil
		}
		return m, createSessionCmd(m.coord)

	case "ctrl+x":
		if active, ok := m.coord.ActiveSession(); ok {
			return m, deleteSessionCmd(m.coord, active)
		}
		return m, nil

	case "ctrl+p", "ctrl+o":
		if m.state == StateStreaming {
			return m, nil
		}
		if target, ok := m.neighborSession(msg.String() == "ctrl+o"); ok {
			return m, switchSessionCmd(m.coord, target)
		}
		return m, nil

	case "ctrl+l":
		if err := m.coord.Logout(); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.state = StateLogin
		m.passwordFocus = false
		m.username.SetValue("")
		m.password.SetValue("")
		m.input.Blur()
		m.metrics = nil
		m.errText = ""
		m.refreshTranscript()
		return m, m.username.Focus()
	}

	return m.updateComponents(msg)
}

// neighborSession returns the session before or after the active one.
func (m Model) neighborSession(next bool) (string, bool) {
	sessions := m.coord.Sessions()
	if len(sessions) == 0 {
		return "", false
	}
	active, ok := m.coord.ActiveSession()
	if !ok {
		return sessions[0].ID, true
	}
	for i, s := range sessions {
		if s.ID != active {
			continue
		}
		if next {
			return sessions[(i+1)%len(sessions)].ID, true
		}
		return sessions[(i-1+len(sessions))%len(sessions)].ID, true
	}
	return sessions[0].ID, true
}

// updateComponents forwards a message to the focused child components.
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.state == StateLogin {
		m.username, cmd = m.username.Update(msg)
		cmds = append(cmds, cmd)
		m.password, cmd = m.password.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spin, cmd = m.spin.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}
