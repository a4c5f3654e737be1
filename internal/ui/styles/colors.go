// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// All colors use Lip Gloss AdaptiveColor so light and dark terminals both
// get readable contrast.

// Accent colors.
var (
	Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	Cyan   = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	Green  = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	Rose   = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	Amber  = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
)

// Surfaces.
var (
	Surface    = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
	SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay    = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
)

// Text.
var (
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
)

// Message bubbles.
var (
	UserBubbleFg       = lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"}
	UserBubbleBorder   = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}
	ReplyBubbleFg      = lipgloss.AdaptiveColor{Light: "#5B4B8A", Dark: "#E9E4F5"}
	ReplyBubbleBorder  = lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"}
	FailedBubbleBorder = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
)
