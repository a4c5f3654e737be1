// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/loomchat/loom-tui/internal/api"
	ctl "github.com/loomchat/loom-tui/internal/chat"
	"github.com/loomchat/loom-tui/internal/monitor"
	"github.com/loomchat/loom-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State is the top-level UI mode.
type State int

const (
	// StateLogin shows the username/password form.
	StateLogin State = iota
	// StateReady accepts a prompt.
	StateReady
	// StateStreaming displays an in-flight response; input is disabled and
	// a second send cannot be issued.
	StateStreaming
)

const sidebarWidth = 28

// Model is the Bubble Tea model for the loom TUI.
type Model struct {
	coord     *ctl.Coordinator
	theme     *styles.Theme
	snapshots <-chan monitor.Snapshot

	state  State
	width  int
	height int
	ready  bool

	// Login form
	username      textinput.Model
	password      textinput.Model
	passwordFocus bool
	loginErr      string

	// Chat view
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	updates <-chan ctl.Update
	metrics *api.Metrics
	errText string
}

// New creates the TUI model. loggedIn selects the initial state; snapshots
// may be nil when the monitor is disabled.
func New(coord *ctl.Coordinator, theme *styles.Theme, snapshots <-chan monitor.Snapshot, loggedIn bool) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 128
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword

	input := textinput.New()
	input.Placeholder = "Ask something..."
	input.CharLimit = 4096

	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Spinner),
	)

	state := StateLogin
	if loggedIn {
		state = StateReady
		input.Focus()
	}

	return Model{
		coord:     coord,
		theme:     theme,
		snapshots: snapshots,
		state:     state,
		username:  username,
		password:  password,
		input:     input,
		spin:      spin,
	}
}

// Init starts the blink, spinner, metrics wait, and, when already logged
// in, the first registry refresh.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spin.Tick}
	if cmd := waitForMetrics(m.snapshots); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.state != StateLogin {
		cmds = append(cmds, refreshCmd(m.coord))
	}
	return tea.Batch(cmds...)
}

// initRenderer (re)builds the markdown renderer for the current width.
func (m *Model) initRenderer() {
	wrap := m.width - sidebarWidth - 8
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.GlamourStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		// Fall back to plain text rendering.
		m.renderer = nil
		return
	}
	m.renderer = renderer
}
