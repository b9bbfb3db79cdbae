// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Teal - Brand color, citations, links
var Teal = lipgloss.AdaptiveColor{Light: "#1F8A99", Dark: "#20B8CD"}

// TealDeep - Darker teal for badges
var TealDeep = lipgloss.AdaptiveColor{Light: "#13686F", Dark: "#115E67"}

// Emerald - Finished steps, local mode indicator
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Violet - Pro mode indicator
var Violet = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Notices, pending steps
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// TEXT AND SURFACE COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#13343B", Dark: "#E8E8E6"}

// TextMuted - Hints, timestamps, related queries
var TextMuted = lipgloss.AdaptiveColor{Light: "#64645E", Dark: "#8D9191"}

// TextInverse - Text on colored backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#191A1A"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E0", Dark: "#3D3F40"}
