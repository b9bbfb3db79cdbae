// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the TUI.
type Theme struct {
	// Plain disables colors and decorations.
	Plain bool

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style

	Query       lipgloss.Style
	Answer      lipgloss.Style
	Notice      lipgloss.Style
	StepPending lipgloss.Style
	StepDone    lipgloss.Style
	Related     lipgloss.Style
	Separator   lipgloss.Style

	StatusBar   lipgloss.Style
	ModePro     lipgloss.Style
	ModeLocal   lipgloss.Style
	ModeOff     lipgloss.Style
	Spinner     lipgloss.Style
	ShortcutKey lipgloss.Style
	Muted       lipgloss.Style
	Error       lipgloss.Style
}

// NewTheme builds the theme for a configured name ("auto", "dark", "light"
// or "plain").
func NewTheme(name string) *Theme {
	switch name {
	case "plain", "notty":
		return plainTheme()
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}

	t := &Theme{}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().Foreground(Teal).Bold(true)

	t.Query = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true).PaddingLeft(1)
	t.Answer = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Notice = lipgloss.NewStyle().Foreground(Amber).Italic(true).PaddingLeft(1)
	t.StepPending = lipgloss.NewStyle().Foreground(Amber).PaddingLeft(2)
	t.StepDone = lipgloss.NewStyle().Foreground(Emerald).PaddingLeft(2)
	t.Related = lipgloss.NewStyle().Foreground(TextMuted).PaddingLeft(2)
	t.Separator = lipgloss.NewStyle().Foreground(Overlay)

	t.StatusBar = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.ModePro = lipgloss.NewStyle().Foreground(TextInverse).Background(Violet).Padding(0, 1)
	t.ModeLocal = lipgloss.NewStyle().Foreground(TextInverse).Background(Emerald).Padding(0, 1)
	t.ModeOff = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(Teal)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Teal).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)
}

func plainTheme() *Theme {
	s := lipgloss.NewStyle()
	return &Theme{
		Plain:       true,
		Header:      s,
		HeaderBrand: s,
		Query:       s,
		Answer:      s,
		Notice:      s,
		StepPending: s.PaddingLeft(2),
		StepDone:    s.PaddingLeft(2),
		Related:     s.PaddingLeft(2),
		Separator:   s,
		StatusBar:   s,
		ModePro:     s,
		ModeLocal:   s,
		ModeOff:     s,
		Spinner:     s,
		ShortcutKey: s,
		Muted:       s,
		Error:       s,
	}
}
