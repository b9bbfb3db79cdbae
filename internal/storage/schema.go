// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema is the SQLite schema for the thread store.
const Schema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Threads table: one row per conversation
CREATE TABLE IF NOT EXISTS threads (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    remote_id INTEGER NOT NULL DEFAULT 0, -- Backend thread id, 0 if none
    created_at INTEGER NOT NULL,          -- Unix nanoseconds
    updated_at INTEGER NOT NULL           -- Unix nanoseconds
);

CREATE INDEX IF NOT EXISTS idx_threads_updated_at ON threads(updated_at);

-- Messages table: ordered messages of a thread
CREATE TABLE IF NOT EXISTS messages (
    thread_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    extras TEXT,                          -- JSON: related queries, images, steps
    PRIMARY KEY(thread_id, position),
    FOREIGN KEY(thread_id) REFERENCES threads(id) ON DELETE CASCADE
);

-- Sources table: citation targets of a message; position + 1 is the citation number
CREATE TABLE IF NOT EXISTS sources (
    thread_id TEXT NOT NULL,
    message_position INTEGER NOT NULL,
    position INTEGER NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    PRIMARY KEY(thread_id, message_position, position),
    FOREIGN KEY(thread_id, message_position) REFERENCES messages(thread_id, position) ON DELETE CASCADE
);
`

// InitMetadata records the schema version.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
