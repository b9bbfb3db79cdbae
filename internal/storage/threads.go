// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/LyzrCore/perplexity-oss/internal/model"
)

// ErrNotFound is returned when a thread does not exist.
var ErrNotFound = errors.New("thread not found")

// DefaultMaxThreads limits how many threads are kept.
const DefaultMaxThreads = 100

// =============================================================================
// THREAD META TYPE
// =============================================================================

// ThreadMeta contains metadata for listing threads.
type ThreadMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	RemoteID     int64     `json:"remote_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// messageExtras holds the message fields stored as JSON.
type messageExtras struct {
	RelatedQueries []string     `json:"related_queries,omitempty"`
	Images         []string     `json:"images,omitempty"`
	Steps          []model.Step `json:"steps,omitempty"`
}

// =============================================================================
// THREAD STORE
// =============================================================================

// ThreadStore handles thread persistence.
type ThreadStore struct {
	db   *sql.DB
	path string

	// MaxThreads limits stored threads (0 = unlimited); the least recently
	// updated are pruned on Save.
	MaxThreads int
}

// Open opens or creates the thread database at path.
func Open(path string) (*ThreadStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &ThreadStore{db: db, path: path, MaxThreads: DefaultMaxThreads}, nil
}

// Path returns the database path.
func (s *ThreadStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *ThreadStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save writes t, replacing any stored version with the same ID.
func (s *ThreadStore) Save(ctx context.Context, t *model.Thread) error {
	if t == nil || t.ID == "" {
		return errors.New("thread has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO threads (id, title, remote_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			remote_id = excluded.remote_id,
			updated_at = excluded.updated_at`,
		t.ID, t.Title, t.RemoteID, t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save thread %s: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sources WHERE thread_id = ?", t.ID); err != nil {
		return fmt.Errorf("clear sources: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE thread_id = ?", t.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	for pos, msg := range t.Messages {
		if err := insertMessage(ctx, tx, t.ID, pos, msg); err != nil {
			return err
		}
	}

	if err := s.prune(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMessage(ctx context.Context, tx *sql.Tx, threadID string, pos int, msg *model.Message) error {
	extras, err := encodeExtras(msg)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (thread_id, position, id, role, content, created_at, extras)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		threadID, pos, msg.ID, string(msg.Role), msg.Content, msg.CreatedAt.UnixNano(), extras)
	if err != nil {
		return fmt.Errorf("save message %s: %w", msg.ID, err)
	}

	for i, src := range msg.Sources {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sources (thread_id, message_position, position, url, title, content)
			VALUES (?, ?, ?, ?, ?, ?)`,
			threadID, pos, i, src.URL, src.Title, src.Content)
		if err != nil {
			return fmt.Errorf("save source %d of message %s: %w", i+1, msg.ID, err)
		}
	}
	return nil
}

// prune removes the least recently updated threads beyond MaxThreads.
func (s *ThreadStore) prune(ctx context.Context, tx *sql.Tx) error {
	if s.MaxThreads <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		DELETE FROM threads WHERE id IN (
			SELECT id FROM threads ORDER BY updated_at DESC LIMIT -1 OFFSET ?
		)`, s.MaxThreads)
	if err != nil {
		return fmt.Errorf("prune threads: %w", err)
	}
	return nil
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load reads the thread with the given ID.
func (s *ThreadStore) Load(ctx context.Context, id string) (*model.Thread, error) {
	t := &model.Thread{ID: id}
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT title, remote_id, created_at, updated_at FROM threads WHERE id = ?", id).
		Scan(&t.Title, &t.RemoteID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", id, err)
	}
	t.CreatedAt = time.Unix(0, created)
	t.UpdatedAt = time.Unix(0, updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at, extras FROM messages
		WHERE thread_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg    model.Message
			role   string
			at     int64
			extras sql.NullString
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &at, &extras); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = model.ParseRole(role)
		msg.CreatedAt = time.Unix(0, at)
		if err := decodeExtras(extras, &msg); err != nil {
			return nil, err
		}
		t.Messages = append(t.Messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	if err := s.loadSources(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ThreadStore) loadSources(ctx context.Context, t *model.Thread) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_position, url, title, content FROM sources
		WHERE thread_id = ? ORDER BY message_position, position`, t.ID)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos int
			src model.Source
		)
		if err := rows.Scan(&pos, &src.URL, &src.Title, &src.Content); err != nil {
			return fmt.Errorf("scan source: %w", err)
		}
		if pos < 0 || pos >= len(t.Messages) {
			continue
		}
		t.Messages[pos].Sources = append(t.Messages[pos].Sources, src)
	}
	return rows.Err()
}

// List returns thread metadata, most recently updated first. A limit of 0
// or less returns every thread.
func (s *ThreadStore) List(ctx context.Context, limit int) ([]ThreadMeta, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.remote_id, t.created_at, t.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.thread_id = t.id),
			COALESCE((SELECT m.content FROM messages m
				WHERE m.thread_id = t.id AND m.role = 'user'
				ORDER BY m.position LIMIT 1), '')
		FROM threads t
		ORDER BY t.updated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var metas []ThreadMeta
	for rows.Next() {
		var (
			meta             ThreadMeta
			created, updated int64
			first            string
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &meta.RemoteID, &created, &updated, &meta.MessageCount, &first); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		meta.CreatedAt = time.Unix(0, created)
		meta.UpdatedAt = time.Unix(0, updated)
		meta.Preview = (&model.Message{Content: first}).Preview(60)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Delete removes the thread with the given ID.
func (s *ThreadStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM threads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func encodeExtras(msg *model.Message) (any, error) {
	if len(msg.RelatedQueries) == 0 && len(msg.Images) == 0 && len(msg.Steps) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(messageExtras{
		RelatedQueries: msg.RelatedQueries,
		Images:         msg.Images,
		Steps:          msg.Steps,
	})
	if err != nil {
		return nil, fmt.Errorf("encode message extras: %w", err)
	}
	return string(data), nil
}

func decodeExtras(raw sql.NullString, msg *model.Message) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var extras messageExtras
	if err := json.Unmarshal([]byte(raw.String), &extras); err != nil {
		return fmt.Errorf("decode extras of message %s: %w", msg.ID, err)
	}
	msg.RelatedQueries = extras.RelatedQueries
	msg.Images = extras.Images
	msg.Steps = extras.Steps
	return nil
}
