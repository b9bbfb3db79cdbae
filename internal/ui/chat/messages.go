// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/LyzrCore/perplexity-oss/internal/store"
)

// snapshotMsg delivers the newest store state.
type snapshotMsg struct {
	snap store.Snapshot
}

// frameTickMsg paces viewport re-renders.
type frameTickMsg time.Time

// streamDoneMsg is sent when the stream command returns.
type streamDoneMsg struct {
	err error
}
