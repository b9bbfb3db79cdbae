// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists finished threads in a local SQLite database.
//
// Messages and their sources are stored with their positions so a loaded
// thread cites exactly the sources it cited when it was saved.
//
// # Usage
//
//	threads, err := storage.Open(path)
//	err = threads.Save(ctx, thread)
//	metas, err := threads.List(ctx, 20)
//	thread, err := threads.Load(ctx, metas[0].ID)
//
// # Storage Location
//
// Threads are stored in ~/.pplx/threads.db unless configured otherwise.
package storage
