// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// MaxMessages is the maximum number of messages kept in a thread.
// When exceeded, the oldest messages are pruned.
const MaxMessages = 1000

// defaultTitle is used until a thread has a user message.
const defaultTitle = "New thread"

// =============================================================================
// THREAD TYPE
// =============================================================================

// Thread holds a conversation: alternating queries and answers.
type Thread struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// RemoteID is the backend thread id reported by stream-end, 0 if none.
	RemoteID int64 `json:"remote_id,omitempty"`

	Messages []*Message `json:"messages"`
}

// NewThread creates a new thread with a generated ID.
func NewThread() *Thread {
	now := time.Now()
	return &Thread{
		ID:        generateID("thr_"),
		Title:     defaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the thread.
func (t *Thread) AddMessage(msg *Message) {
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now()
	t.updateTitle()
	t.pruneOldMessages()
}

// GetLastMessage returns the most recent message, or nil if empty.
func (t *Thread) GetLastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}

// GetLastAssistantMessage returns the most recent assistant message.
func (t *Thread) GetLastAssistantMessage() *Message {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleAssistant {
			return t.Messages[i]
		}
	}
	return nil
}

// GetMessageByID returns a message by its ID.
func (t *Thread) GetMessageByID(id string) *Message {
	for _, msg := range t.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (t *Thread) MessageCount() int {
	return len(t.Messages)
}

// IsEmpty returns true if there are no messages.
func (t *Thread) IsEmpty() bool {
	return len(t.Messages) == 0
}

// =============================================================================
// INTERNAL
// =============================================================================

// updateTitle derives the title from the first user message.
func (t *Thread) updateTitle() {
	if t.Title != "" && t.Title != defaultTitle {
		return
	}
	for _, msg := range t.Messages {
		if msg.Role == RoleUser && strings.TrimSpace(msg.Content) != "" {
			t.Title = msg.Preview(50)
			return
		}
	}
}

func (t *Thread) pruneOldMessages() {
	if len(t.Messages) > MaxMessages {
		excess := len(t.Messages) - MaxMessages
		t.Messages = append([]*Message(nil), t.Messages[excess:]...)
	}
}
