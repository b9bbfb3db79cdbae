// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes threads to shareable formats.
//
// # Supported Formats
//
//   - HTML: standalone page; answers go through the citation and HTML
//     render pipeline, with highlighted code and numbered sources
//   - Markdown: raw answer markdown followed by its numbered sources
//   - JSON: the thread as stored
//
// # Usage
//
//	exporter, err := export.ForFormat("html", pipeline, opts)
//	path, err := export.ExportToFile(thread, exporter, opts)
package export
