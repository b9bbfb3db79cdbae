// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the pplx configuration.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation. The client only reads its
// configuration; nothing is written back.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PPLX_*)
//   - ~/.pplx/config.toml
//   - ~/.pplx/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, path, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	theme := cfg.UI.Theme
package config
