// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages. Store actions called from here never
// wait on the UI because the feed only records the newest snapshot.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.snap = msg.snap
		m.dirty = true
		return m, m.feed.wait()

	case frameTickMsg:
		if m.dirty && m.ready {
			m.refresh()
		}
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case streamDoneMsg:
		m.cancelMgr.cancel()
		if msg.err != nil {
			m.err = msg.err
			m.logger.Warn("stream failed", zap.Error(msg.err))
		} else if m.status == "" {
			m.status = "Done"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.cancel()
		m.feed.close()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.NewThread):
		m.cancelMgr.cancel()
		m.store.Reset()
		m.cache.reset()
		m.err = nil
		m.status = "New thread"
		return m, nil

	case key.Matches(msg, m.keys.ProMode):
		if m.store.ToggleProMode() {
			m.status = "Pro search on"
		} else {
			m.status = "Pro search off"
		}
		return m, nil

	case key.Matches(msg, m.keys.LocalMode):
		if m.store.ToggleLocalMode() {
			m.status = "Local mode on"
		} else {
			m.status = "Local mode off"
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// layout sizes the viewport to the space left by header, status bar and help.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.help.Width = m.width
	chrome := lipgloss.Height(m.headerView()) + lipgloss.Height(m.statusView()) + lipgloss.Height(m.helpView())
	h := m.height - chrome
	if h < 1 {
		h = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, h)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = h
	}

	if m.wrap == 0 {
		m.rebuildRenderer(m.width - 4)
	}
	m.dirty = true
}

// refresh re-renders the thread into the viewport, following the bottom
// when it was already there.
func (m *Model) refresh() {
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.threadView())
	if follow {
		m.viewport.GotoBottom()
	}
	m.dirty = false
}
