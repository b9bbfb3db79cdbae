// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdRender
	CmdReplay
	CmdFollow
	CmdThreads
	CmdConfig
	CmdVersion
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON       bool   // Output in JSON format
	Verbose    bool   // Log at debug level
	ConfigPath string // Explicit config file
	Theme      string // Overrides ui.theme
	DB         string // Overrides storage.path

	// Name is the command word as typed
	Name string

	// Subcommand is the first argument after the command
	Subcommand string

	// Raw holds the command arguments after global flags are removed
	Raw []string
}

const usageText = `pplx - terminal and HTML client for a chat-style search assistant

Usage:
  pplx [global flags] <command> [arguments]

Commands:
  render [file|-]          Render an answer (message JSON or markdown)
      --format FORMAT      terminal, html, page or markdown
                           (default: terminal on a TTY, html otherwise)
      --sources FILE       JSON array of sources to cite
      --streaming          Treat the content as a stream prefix

  replay <file|->          Replay a recorded answer stream
      --delay MS           Pause between events (default: stream.replay_delay_ms)
      --plain              Print the final thread instead of opening the TUI
      --no-save            Do not store the finished thread

  follow <file>            Follow a recording as it is written
      --plain, --no-save   As for replay

  threads list             List stored threads
      --limit N            Show at most N threads
  threads show <id>        Print a stored thread
  threads open <id>        Open a stored thread in the TUI
  threads delete <id>      Delete a stored thread
  threads export <id>      Export a thread to a file
      --format FORMAT      html, markdown or json (default: html)
      --out DIR            Output directory (default: current directory)
      --stdout             Write to stdout instead of a file
      --open               Open the file after exporting

  config show              Show the effective configuration
  config path              Show the config file location
  config get <key>         Show one value (e.g. ui.theme)
  config keys              List every config key

  version                  Show version information
  help                     Show this help

Global flags:
  --json                   JSON output (threads list, config, version)
  -v, --verbose            Debug logging
  --config FILE            Config file (default: ~/.pplx/config.toml)
  --theme NAME             auto, dark, light or plain
  --db FILE                Thread database (default: ~/.pplx/threads.db)

Keys in the TUI:
  q/C-c quit   n new thread   p pro search   l local mode
  up/down/PgUp/PgDn scroll   g/G top/bottom   ? help

Version: %s
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "pplx version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdHelp, args
	}

	args.Name = strings.ToLower(remaining[0])
	args.Raw = remaining[1:]
	if len(args.Raw) > 0 && !strings.HasPrefix(args.Raw[0], "-") {
		args.Subcommand = strings.ToLower(args.Raw[0])
	}

	switch args.Name {
	case "render":
		return CmdRender, args
	case "replay":
		return CmdReplay, args
	case "follow", "tail":
		return CmdFollow, args
	case "threads", "thread":
		return CmdThreads, args
	case "config":
		return CmdConfig, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

// parseGlobalFlags removes global flags appearing before the command.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	i := 0
	for ; i < len(argv); i++ {
		arg := argv[i]
		name, value, hasValue := strings.Cut(arg, "=")
		takeValue := func() string {
			if hasValue {
				return value
			}
			if i+1 < len(argv) {
				i++
				return argv[i]
			}
			return ""
		}

		switch name {
		case "--json":
			args.JSON = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--config":
			args.ConfigPath = takeValue()
		case "--theme":
			args.Theme = takeValue()
		case "--db":
			args.DB = takeValue()
		default:
			return argv[i:], args
		}
	}
	return argv[i:], args
}

// HandleHelp handles the "help" command.
func HandleHelp(w io.Writer) {
	PrintUsage(w)
}

// VersionData is the JSON form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion handles the "version" command.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(w)
	}
	PrintVersion(w)
	return nil
}
