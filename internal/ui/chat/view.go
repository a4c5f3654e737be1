// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/loomchat/loom-tui/internal/transcript"
	"github.com/loomchat/loom-tui/internal/util"
)

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.state == StateLogin {
		return m.loginView()
	}
	return m.chatView()
}

// =============================================================================
// LOGIN VIEW
// =============================================================================

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("loom"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.FormLabel.Render("Username"))
	b.WriteString("\n")
	b.WriteString(m.username.View())
	b.WriteString("\n\n")
	b.WriteString(m.theme.FormLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n")
	if m.loginErr != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.ErrorBox.Render(m.loginErr))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render("enter: sign in · tab: next field · ctrl+c: quit"))

	form := m.theme.FormBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

// =============================================================================
// CHAT VIEW
// =============================================================================

func (m Model) chatView() string {
	sidebar := m.sidebarView()
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.inputView(),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusView())
}

func (m Model) sidebarView() string {
	sessions := m.coord.Sessions()
	active, _ := m.coord.ActiveSession()

	var b strings.Builder
	b.WriteString(m.theme.Header.Render("sessions"))
	b.WriteString("\n")
	if len(sessions) == 0 {
		b.WriteString(m.theme.Muted.Render("none yet (ctrl+n)"))
	}
	for _, s := range sessions {
		label := s.Preview
		if label == "" {
			label = "(empty)"
		}
		label = util.TruncateWidth(label, sidebarWidth-4)
		if s.ID == active {
			b.WriteString(m.theme.SessionItemSelected.Render("> " + label))
		} else {
			b.WriteString(m.theme.SessionItem.Render("  " + label))
		}
		b.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(m.height - 3).
		Render(b.String())
}

func (m Model) inputView() string {
	if m.state == StateStreaming {
		return m.theme.InputContainer.Render(
			m.spin.View() + m.theme.Muted.Render(" generating... (esc cancels)"))
	}
	return m.theme.InputContainer.Render(
		m.theme.InputPrompt.Render("> ") + m.input.View())
}

func (m Model) statusView() string {
	parts := []string{
		m.theme.StatusKey.Render("ctrl+n") + m.theme.StatusVal.Render(" new"),
		m.theme.StatusKey.Render("ctrl+x") + m.theme.StatusVal.Render(" delete"),
		m.theme.StatusKey.Render("ctrl+p/o") + m.theme.StatusVal.Render(" switch"),
		m.theme.StatusKey.Render("ctrl+l") + m.theme.StatusVal.Render(" logout"),
	}
	if m.metrics != nil {
		if m.metrics.GPU != nil {
			parts = append(parts, m.theme.StatusVal.Render(fmt.Sprintf(
				"gpu %.0f%% %.0f/%.0fMB",
				m.metrics.GPU.Utilization,
				m.metrics.GPU.MemoryUsed,
				m.metrics.GPU.MemoryTotal,
			)))
		}
		if m.metrics.InferenceTimeMs != nil {
			parts = append(parts, m.theme.StatusVal.Render(fmt.Sprintf(
				"%.0fms", *m.metrics.InferenceTimeMs)))
		}
	}
	if m.errText != "" {
		parts = append(parts, m.theme.StatusWarn.Render(util.TruncateWidth(m.errText, 48)))
	}

	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// layoutViewport sizes the viewport for the current window.
func (m *Model) layoutViewport() {
	w := m.width - sidebarWidth
	if w < 20 {
		w = 20
	}
	h := m.height - 6
	if h < 3 {
		h = 3
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(w, h)
	} else {
		m.viewport.Width = w
		m.viewport.Height = h
	}
}

// refreshTranscript re-renders the active transcript into the viewport and
// scrolls to the bottom.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	exchanges := m.coord.Transcript()
	if len(exchanges) == 0 {
		return m.theme.Muted.Render("no messages yet")
	}

	wrap := m.viewport.Width - 4
	if wrap < 16 {
		wrap = 16
	}

	var b strings.Builder
	for i, ex := range exchanges {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.theme.UserBubble.Width(wrap).Render(ex.Prompt))
		b.WriteString("\n")

		switch ex.Status {
		case transcript.StatusPending:
			text := ex.Response
			if text == "" {
				text = m.spin.View()
			}
			b.WriteString(m.theme.ReplyBubble.Width(wrap).Render(text))
		case transcript.StatusFailed:
			body := ex.Response
			if body != "" {
				body += "\n"
			}
			body += m.theme.FailedMark.Render("✗ incomplete")
			b.WriteString(m.theme.FailedBubble.Width(wrap).Render(body))
		default:
			b.WriteString(m.theme.ReplyBubble.Width(wrap).Render(m.renderMarkdown(ex.Response)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderMarkdown renders a completed response through glamour, falling back
// to the raw text.
func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
