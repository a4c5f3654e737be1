// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the loom TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER / STATUS
	// ==========================================================================

	Header     lipgloss.Style
	StatusBar  lipgloss.Style
	StatusKey  lipgloss.Style
	StatusVal  lipgloss.Style
	StatusWarn lipgloss.Style

	// ==========================================================================
	// SESSION SIDEBAR
	// ==========================================================================

	Sidebar             lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionPreview      lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLES
	// ==========================================================================

	UserBubble   lipgloss.Style
	ReplyBubble  lipgloss.Style
	FailedBubble lipgloss.Style
	FailedMark   lipgloss.Style

	// ==========================================================================
	// INPUT / FORMS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	FormLabel      lipgloss.Style
	FormBox        lipgloss.Style

	// ==========================================================================
	// FEEDBACK
	// ==========================================================================

	Spinner  lipgloss.Style
	ErrorBox lipgloss.Style
	Muted    lipgloss.Style
}

// New creates a theme. variant is "auto", "dark", or "light"; "auto" uses
// the terminal's detected background.
func New(variant string) *Theme {
	isDark := termenv.HasDarkBackground()
	switch variant {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.StatusVal = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.StatusWarn = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SessionItem = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.SessionItemSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.SessionPreview = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)
	t.ReplyBubble = lipgloss.NewStyle().
		Foreground(ReplyBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ReplyBubbleBorder).
		Padding(0, 1)
	t.FailedBubble = lipgloss.NewStyle().
		Foreground(ReplyBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(FailedBubbleBorder).
		Padding(0, 1)
	t.FailedMark = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Green)
	t.FormLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)
	t.FormBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)
	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)
}
