// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client's conversation state: the current thread and
// its messages, the session ID and the display flags.
//
// A Store is created once at startup and injected where needed. All actions
// are serialized by a mutex because bubbletea commands and stream followers
// run on their own goroutines.
//
// Streamed answers are written through a Handle returned by BeginStream. A
// handle is bound to the store epoch it was created in; replacing or resetting
// the thread advances the epoch so late updates from an abandoned stream fail
// with ErrStaleStream instead of corrupting the new thread.
package store

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/model"
)

// ErrStaleStream is returned by Handle methods whose stream no longer
// belongs to the current thread, or whose message has already finished.
var ErrStaleStream = errors.New("stale stream")

// =============================================================================
// STATE
// =============================================================================

// Flags are the display and search flags held for the session.
type Flags struct {
	ProMode   bool
	LocalMode bool
	Theme     string
}

// Snapshot is a deep copy of the store state at one point in time.
type Snapshot struct {
	Epoch     uint64
	Thread    *model.Thread
	SessionID string
	Flags     Flags
}

// Streaming reports whether any message in the snapshot is still streaming.
func (s Snapshot) Streaming() bool {
	for _, msg := range s.Thread.Messages {
		if msg.IsStreaming {
			return true
		}
	}
	return false
}

// Listener receives a snapshot after every mutation, in mutation order.
// Listeners run synchronously and must not call back into the store.
type Listener func(Snapshot)

// Store is the mutex-guarded state container.
type Store struct {
	mu        sync.Mutex
	epoch     uint64
	thread    *model.Thread
	sessionID string
	flags     Flags

	notifyMu  sync.Mutex
	listeners map[int]Listener
	nextID    int

	logger *zap.Logger
}

// New creates a store with an empty thread. A nil logger disables logging.
func New(flags Flags, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		thread:    model.NewThread(),
		flags:     flags,
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscribe registers fn and returns a function that unregisters it.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.notifyMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.listeners, id)
			s.notifyMu.Unlock()
		})
	}
}

// commit releases s.mu after a mutation and delivers the new state.
// notifyMu is taken before s.mu is released so deliveries keep mutation order.
func (s *Store) commit() {
	snap := s.snapshotLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range s.listeners {
		fn(snap)
	}
}

// =============================================================================
// ACTIONS
// =============================================================================

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AppendMessage adds msg to the current thread.
func (s *Store) AppendMessage(msg *model.Message) {
	s.mu.Lock()
	s.thread.AddMessage(msg.Clone())
	s.commit()
}

// ReplaceMessages swaps the thread's messages wholesale. In-flight streams
// become stale.
func (s *Store) ReplaceMessages(msgs []*model.Message) {
	s.mu.Lock()
	s.epoch++
	s.thread.Messages = cloneMessages(msgs)
	s.commit()
}

// LoadThread makes t the current thread. In-flight streams become stale.
func (s *Store) LoadThread(t *model.Thread) {
	s.mu.Lock()
	s.epoch++
	c := *t
	c.Messages = cloneMessages(t.Messages)
	s.thread = &c
	s.logger.Debug("thread loaded", zap.String("thread_id", t.ID), zap.Int("messages", len(t.Messages)))
	s.commit()
}

// SetThreadID records the backend thread ID. Adopting an ID for a thread
// that had none keeps in-flight streams; switching to a different ID makes
// them stale.
func (s *Store) SetThreadID(id int64) {
	s.mu.Lock()
	if s.thread.RemoteID != 0 && s.thread.RemoteID != id {
		s.epoch++
	}
	s.thread.RemoteID = id
	s.commit()
}

// SetSessionID records the session ID.
func (s *Store) SetSessionID(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.commit()
}

// ToggleProMode flips pro mode and returns the new value.
func (s *Store) ToggleProMode() bool {
	s.mu.Lock()
	s.flags.ProMode = !s.flags.ProMode
	on := s.flags.ProMode
	s.commit()
	return on
}

// ToggleLocalMode flips local mode and returns the new value.
func (s *Store) ToggleLocalMode() bool {
	s.mu.Lock()
	s.flags.LocalMode = !s.flags.LocalMode
	on := s.flags.LocalMode
	s.commit()
	return on
}

// SetTheme sets the display theme.
func (s *Store) SetTheme(theme string) {
	s.mu.Lock()
	s.flags.Theme = theme
	s.commit()
}

// Reset starts a new, empty thread. Flags and session survive; in-flight
// streams become stale.
func (s *Store) Reset() {
	s.mu.Lock()
	s.epoch++
	s.thread = model.NewThread()
	s.logger.Debug("thread reset", zap.Uint64("epoch", s.epoch))
	s.commit()
}

// =============================================================================
// STREAMING
// =============================================================================

// Handle writes one streamed message. It is safe for use from any goroutine.
type Handle struct {
	store     *Store
	epoch     uint64
	messageID string
}

// BeginStream appends msg as a streaming message and returns its handle.
func (s *Store) BeginStream(msg *model.Message) *Handle {
	s.mu.Lock()
	c := msg.Clone()
	c.IsStreaming = true
	s.thread.AddMessage(c)
	h := &Handle{store: s, epoch: s.epoch, messageID: c.ID}
	s.commit()
	return h
}

// MessageID returns the ID of the streamed message.
func (h *Handle) MessageID() string {
	return h.messageID
}

// Apply runs fn on the live message. It fails with ErrStaleStream, without
// calling fn, when the handle no longer targets a streaming message of the
// current thread.
func (h *Handle) Apply(fn func(msg *model.Message)) error {
	s := h.store
	s.mu.Lock()
	msg := s.liveMessage(h)
	if msg == nil {
		s.mu.Unlock()
		return ErrStaleStream
	}
	fn(msg)
	s.commit()
	return nil
}

// Update replaces the message content with the full content received so far.
// A nil sources slice leaves the sources unchanged.
func (h *Handle) Update(content string, sources []model.Source) error {
	return h.Apply(func(msg *model.Message) {
		msg.Content = content
		if sources != nil {
			msg.Sources = append([]model.Source(nil), sources...)
		}
	})
}

// Finish stores the final content and ends streaming for the message.
func (h *Handle) Finish(content string) error {
	return h.Apply(func(msg *model.Message) {
		msg.Content = content
		msg.IsStreaming = false
	})
}

// Stale reports whether updates through h would be rejected.
func (h *Handle) Stale() bool {
	s := h.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveMessage(h) == nil
}

// liveMessage returns the message targeted by h, or nil if it is stale.
// Callers hold s.mu.
func (s *Store) liveMessage(h *Handle) *model.Message {
	if h.epoch != s.epoch {
		return nil
	}
	msg := s.thread.GetMessageByID(h.messageID)
	if msg == nil || !msg.IsStreaming {
		return nil
	}
	return msg
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) snapshotLocked() Snapshot {
	t := *s.thread
	t.Messages = cloneMessages(s.thread.Messages)
	return Snapshot{
		Epoch:     s.epoch,
		Thread:    &t,
		SessionID: s.sessionID,
		Flags:     s.flags,
	}
}

func cloneMessages(msgs []*model.Message) []*model.Message {
	out := make([]*model.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Clone()
	}
	return out
}
