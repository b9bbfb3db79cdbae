// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LyzrCore/perplexity-oss/internal/store"
)

// snapshotFeed carries store snapshots to the Bubble Tea loop. Store
// listeners run under the store's notify lock, so push never blocks: it
// keeps only the newest snapshot and signals a waiting command.
type snapshotFeed struct {
	mu     sync.Mutex
	latest *store.Snapshot

	signal chan struct{}
	done   chan struct{}
	once   sync.Once

	unsubscribe func()
}

func newSnapshotFeed(s *store.Store) *snapshotFeed {
	f := &snapshotFeed{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	f.unsubscribe = s.Subscribe(f.push)
	return f
}

func (f *snapshotFeed) push(snap store.Snapshot) {
	f.mu.Lock()
	f.latest = &snap
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// wait returns a command that blocks until a snapshot is pushed.
func (f *snapshotFeed) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-f.signal:
			case <-f.done:
				return nil
			}
			f.mu.Lock()
			snap := f.latest
			f.latest = nil
			f.mu.Unlock()
			// A signal can outlive the snapshot it announced.
			if snap != nil {
				return snapshotMsg{snap: *snap}
			}
		}
	}
}

func (f *snapshotFeed) close() {
	f.once.Do(func() {
		f.unsubscribe()
		close(f.done)
	})
}
