// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the lipgloss palette and styles of the pplx TUI.
//
// Colors are lipgloss AdaptiveColor values so light and dark terminals both
// read well. The "plain" theme drops all colors for notty output.
package styles
