// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers of pplx.
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: global flags plus the raw command arguments
//   - ArgParser: flag and positional parsing for one command
//   - Env: streams, configuration and logger shared by handlers
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	env, err := cli.NewEnv(args)
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	switch cmd {
//	case cli.CmdRender:
//	    err = cli.HandleRender(env, args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - render: markdown or message JSON to terminal output or HTML
//   - replay: play back a recorded answer stream
//   - follow: show a recording while it is written
//   - threads: list, show, open, delete and export stored threads
//   - config: show the effective read-only configuration
//   - version, help
//
// # Exit Codes
//
//	0 success, 1 general error, 2 usage, 3 config, 5 stream error, 7 not found
package cli
