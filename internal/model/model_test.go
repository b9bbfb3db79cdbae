// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_SourceAt(t *testing.T) {
	msg := NewAssistantMessage()
	msg.Sources = []Source{{URL: "u1"}, {URL: "u2"}}

	tests := []struct {
		n      int
		wantOK bool
		want   string
	}{
		{n: 0, wantOK: false},
		{n: 1, wantOK: true, want: "u1"},
		{n: 2, wantOK: true, want: "u2"},
		{n: 3, wantOK: false},
		{n: -1, wantOK: false},
	}

	for _, tc := range tests {
		src, ok := msg.SourceAt(tc.n)
		if ok != tc.wantOK {
			t.Errorf("SourceAt(%d) ok = %v, want %v", tc.n, ok, tc.wantOK)
		}
		if src.URL != tc.want {
			t.Errorf("SourceAt(%d) = %q, want %q", tc.n, src.URL, tc.want)
		}
	}
}

func TestMessage_CloneIsDeep(t *testing.T) {
	msg := NewAssistantMessage()
	msg.Sources = []Source{{URL: "u1"}}
	msg.Steps = []Step{{Number: 1, Queries: []string{"q"}}}

	c := msg.Clone()
	c.Sources[0].URL = "changed"
	c.Steps[0].Queries[0] = "changed"

	if msg.Sources[0].URL != "u1" {
		t.Error("Clone shares the Sources slice")
	}
	if msg.Steps[0].Queries[0] != "q" {
		t.Error("Clone shares step queries")
	}
	if c.ID != msg.ID {
		t.Error("Clone should keep the ID")
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("line one\nline   two")
	if got := msg.Preview(100); got != "line one line two" {
		t.Errorf("Preview() = %q", got)
	}

	long := NewUserMessage(strings.Repeat("日本", 20))
	got := long.Preview(10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("Preview(10) = %q, want 10 runes ending in ...", got)
	}
}

func TestNewAssistantMessage_Streaming(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsStreaming {
		t.Error("new assistant message should be streaming")
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID = %q, want msg_ prefix", msg.ID)
	}
	if msg.ID == NewAssistantMessage().ID {
		t.Error("IDs should be unique")
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"user":      RoleUser,
		" USER ":    RoleUser,
		"assistant": RoleAssistant,
		"system":    RoleSystem,
		"tool":      RoleAssistant,
	}
	for in, want := range tests {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}

// =============================================================================
// THREAD TESTS
// =============================================================================

func TestThread_TitleFromFirstUserMessage(t *testing.T) {
	thread := NewThread()
	if thread.Title != defaultTitle {
		t.Errorf("Title = %q, want %q", thread.Title, defaultTitle)
	}

	thread.AddMessage(NewSystemMessage("notice"))
	thread.AddMessage(NewUserMessage("How do goroutines work?"))
	thread.AddMessage(NewUserMessage("second question"))

	if thread.Title != "How do goroutines work?" {
		t.Errorf("Title = %q", thread.Title)
	}
}

func TestThread_LastMessages(t *testing.T) {
	thread := NewThread()
	if thread.GetLastMessage() != nil || thread.GetLastAssistantMessage() != nil {
		t.Fatal("empty thread should have no last message")
	}

	answer := NewAssistantMessage()
	thread.AddMessage(NewUserMessage("q"))
	thread.AddMessage(answer)
	thread.AddMessage(NewUserMessage("q2"))

	if thread.GetLastAssistantMessage() != answer {
		t.Error("GetLastAssistantMessage returned the wrong message")
	}
	if thread.GetMessageByID(answer.ID) != answer {
		t.Error("GetMessageByID returned the wrong message")
	}
	if thread.MessageCount() != 3 {
		t.Errorf("MessageCount() = %d, want 3", thread.MessageCount())
	}
}

func TestThread_Prune(t *testing.T) {
	thread := NewThread()
	for i := 0; i < MaxMessages+5; i++ {
		thread.AddMessage(NewUserMessage("q"))
	}
	if thread.MessageCount() != MaxMessages {
		t.Errorf("MessageCount() = %d, want %d", thread.MessageCount(), MaxMessages)
	}
}
