// pplx - terminal and HTML client for a chat-style search assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/LyzrCore/perplexity-oss/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	// Commands that need no configuration
	switch cmd {
	case cli.CmdHelp:
		cli.HandleHelp(os.Stdout)
		return
	case cli.CmdVersion:
		exit(cli.HandleVersion(os.Stdout, args), args)
		return
	case cli.CmdUnknown:
		exit(cli.NewUsageError(fmt.Sprintf("unknown command: %s (see 'pplx help')", args.Name)), args)
		return
	}

	env, err := cli.NewEnv(args)
	if err != nil {
		exit(err, args)
		return
	}
	defer env.Logger.Sync()

	switch cmd {
	case cli.CmdRender:
		err = cli.HandleRender(env, args)
	case cli.CmdReplay:
		err = cli.HandleReplay(env, args)
	case cli.CmdFollow:
		err = cli.HandleFollow(env, args)
	case cli.CmdThreads:
		err = cli.HandleThreads(env, args)
	case cli.CmdConfig:
		err = cli.HandleConfig(env, args)
	}
	if err != nil {
		env.Logger.Sync()
		exit(err, args)
	}
}

// exit reports err and terminates with its exit code. A nil error returns.
func exit(err error, args cli.Args) {
	if err == nil {
		return
	}
	cli.DisplayError(os.Stderr, err, args.JSON)
	os.Exit(cli.GetExitCode(err))
}
