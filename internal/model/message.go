// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Answer"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole maps a wire role onto a Role. Unknown roles become RoleAssistant,
// which is how the backend treats system prompts in history as well.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser
	case "system":
		return RoleSystem
	default:
		return RoleAssistant
	}
}

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is a cited search result. Its citation number is its 1-indexed
// position in Message.Sources.
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// =============================================================================
// PRO SEARCH STEP TYPE
// =============================================================================

// Step is one step of a pro-search query plan.
type Step struct {
	Number  int      `json:"step_number"`
	Title   string   `json:"step"`
	Queries []string `json:"queries,omitempty"`
	Results []Source `json:"results,omitempty"`
	Done    bool     `json:"done,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a thread.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Content is raw markdown; it may be a truncated prefix while streaming.
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`

	// Extras delivered by the search backend alongside the answer
	RelatedQueries []string `json:"related_queries,omitempty"`
	Images         []string `json:"images,omitempty"`
	Steps          []Step   `json:"steps,omitempty"`

	// Streaming state (not persisted)
	IsStreaming bool `json:"-"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID("msg_"),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new, empty assistant message in streaming state.
func NewAssistantMessage() *Message {
	msg := NewMessage(RoleAssistant, "")
	msg.IsStreaming = true
	return msg
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// SourceAt returns the source cited as number n (1-indexed).
// ok is false when n is out of range.
func (m *Message) SourceAt(n int) (Source, bool) {
	if n < 1 || n > len(m.Sources) {
		return Source{}, false
	}
	return m.Sources[n-1], true
}

// Clone returns a deep copy safe to hand to renderers and subscribers.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Sources = append([]Source(nil), m.Sources...)
	c.RelatedQueries = append([]string(nil), m.RelatedQueries...)
	c.Images = append([]string(nil), m.Images...)
	if m.Steps != nil {
		c.Steps = make([]Step, len(m.Steps))
		for i, s := range m.Steps {
			s.Queries = append([]string(nil), s.Queries...)
			s.Results = append([]Source(nil), s.Results...)
			c.Steps[i] = s
		}
	}
	return &c
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	runes := []rune(content)
	if maxLen <= 3 || len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique, prefixed identifier.
func generateID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
