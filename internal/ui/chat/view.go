// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the header, the thread viewport, the status bar and help.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.viewport.View(),
		m.statusView(),
		m.helpView(),
	)
}

func (m Model) headerView() string {
	title := m.title
	if title == "" && m.snap.Thread != nil {
		title = m.snap.Thread.Title
	}
	line := m.theme.HeaderBrand.Render("pplx")
	if title != "" {
		line += " " + title
	}
	return m.theme.Header.MaxWidth(m.width).Render(line)
}

func (m Model) statusView() string {
	var parts []string

	if m.snap.Flags.ProMode {
		parts = append(parts, m.theme.ModePro.Render("PRO"))
	} else {
		parts = append(parts, m.theme.ModeOff.Render("pro"))
	}
	if m.snap.Flags.LocalMode {
		parts = append(parts, m.theme.ModeLocal.Render("LOCAL"))
	} else {
		parts = append(parts, m.theme.ModeOff.Render("local"))
	}

	switch {
	case m.snap.Thread != nil && m.snap.Streaming():
		parts = append(parts, m.spinner.View()+" streaming")
	case m.err != nil:
		parts = append(parts, m.theme.Error.Render("Error: "+m.err.Error()))
	case m.status != "":
		parts = append(parts, m.theme.Muted.Render(m.status))
	}

	if m.ready {
		parts = append(parts, m.theme.Muted.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)))
	}
	return m.theme.StatusBar.MaxWidth(m.width).Render(strings.Join(parts, " "))
}

func (m Model) helpView() string {
	return m.help.View(m.keys)
}

// threadView renders every message of the current snapshot.
func (m Model) threadView() string {
	if m.snap.Thread == nil || len(m.snap.Thread.Messages) == 0 {
		return m.theme.Muted.Render("No messages yet.")
	}

	var b strings.Builder
	for i, msg := range m.snap.Thread.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case model.RoleUser:
			b.WriteString(m.theme.Query.Render("> " + msg.Content))
			b.WriteString("\n")
		case model.RoleAssistant:
			m.writeAnswer(&b, msg)
		default:
			b.WriteString(m.theme.Notice.Render(msg.Content))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) writeAnswer(b *strings.Builder, msg *model.Message) {
	for i, step := range msg.Steps {
		line := fmt.Sprintf("Step %d: %s", i+1, step.Title)
		if len(step.Queries) > 0 {
			line += " (" + strings.Join(step.Queries, ", ") + ")"
		}
		if step.Done {
			b.WriteString(m.theme.StepDone.Render("[x] " + line))
		} else {
			b.WriteString(m.theme.StepPending.Render("[ ] " + line))
		}
		b.WriteString("\n")
	}

	if msg.Content == "" && msg.IsStreaming {
		b.WriteString(m.theme.Muted.Render("Searching..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.theme.Answer.Render(m.renderMessage(msg)))
	}

	if len(msg.RelatedQueries) > 0 {
		b.WriteString(m.theme.Separator.Render("Related"))
		b.WriteString("\n")
		for _, q := range msg.RelatedQueries {
			b.WriteString(m.theme.Related.Render("- " + q))
			b.WriteString("\n")
		}
	}
}

// renderMessage renders msg through the terminal renderer. A failed render
// shows the footnoted markdown instead.
func (m Model) renderMessage(msg *model.Message) string {
	if out, ok := m.cache.get(msg); ok {
		return out
	}
	out, err := m.renderer.Render(msg)
	if err != nil {
		m.logger.Debug("render failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
	m.cache.put(msg, out)
	return out
}

// =============================================================================
// RENDER CACHE
// =============================================================================

type cacheKey struct {
	id        string
	length    int
	sources   int
	streaming bool
}

// renderCache keeps the last render of each message, keyed by the parts of
// the message that change its output.
type renderCache struct {
	entries map[string]cacheEntry
}

type cacheEntry struct {
	key cacheKey
	out string
}

func newRenderCache() *renderCache {
	return &renderCache{entries: make(map[string]cacheEntry)}
}

func keyFor(msg *model.Message) cacheKey {
	return cacheKey{id: msg.ID, length: len(msg.Content), sources: len(msg.Sources), streaming: msg.IsStreaming}
}

func (c *renderCache) get(msg *model.Message) (string, bool) {
	e, ok := c.entries[msg.ID]
	if !ok || e.key != keyFor(msg) {
		return "", false
	}
	return e.out, true
}

func (c *renderCache) put(msg *model.Message, out string) {
	c.entries[msg.ID] = cacheEntry{key: keyFor(msg), out: out}
}

func (c *renderCache) reset() {
	clear(c.entries)
}
