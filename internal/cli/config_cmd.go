// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/LyzrCore/perplexity-oss/internal/config"
)

// HandleConfig handles "pplx config <subcommand>". The configuration is
// read-only; edit the file to change it.
func HandleConfig(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "json")
	jsonMode := args.JSON || p.BoolFlag("json")

	sub := strings.ToLower(p.Subcommand())
	switch sub {
	case "", "show":
		if jsonMode {
			return NewJSONResponse("config show", ConfigData{Path: env.ConfigPath, Config: env.Config}).Print(env.Stdout)
		}
		if env.ConfigPath != "" {
			fmt.Fprintf(env.Stdout, "# %s\n", env.ConfigPath)
		} else {
			fmt.Fprintln(env.Stdout, "# built-in defaults")
		}
		fmt.Fprint(env.Stdout, env.Config.String())
		return nil

	case "path":
		path := env.ConfigPath
		if path == "" {
			def, err := config.ConfigPathTOML()
			if err != nil {
				return err
			}
			path = def
		}
		if jsonMode {
			return NewJSONResponse("config path", ConfigData{Path: path}).Print(env.Stdout)
		}
		if env.ConfigPath == "" {
			fmt.Fprintf(env.Stdout, "%s %s\n", path, DimStyle.Render("(not found, using defaults)"))
			return nil
		}
		fmt.Fprintln(env.Stdout, path)
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "pplx config get <key>")
		}
		value, err := env.Config.Get(key)
		if err != nil {
			return &UsageError{Reason: err.Error(), Usage: "pplx config keys"}
		}
		if jsonMode {
			return NewJSONResponse("config get", ConfigData{Path: env.ConfigPath, Key: key, Value: value}).Print(env.Stdout)
		}
		fmt.Fprintln(env.Stdout, value)
		return nil

	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(env.Stdout, k)
		}
		return nil

	default:
		return ErrUnknownSubcommand("config", sub)
	}
}
