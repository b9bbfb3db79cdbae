// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/config"
	"github.com/LyzrCore/perplexity-oss/internal/storage"
	"github.com/LyzrCore/perplexity-oss/internal/stream"
)

const recording = `{"event":"begin-stream","data":{"query":"What is Go?"}}
{"event":"search-results","data":{"results":[{"url":"https://go.dev","title":"The Go Programming Language"}]}}
{"event":"text-chunk","data":{"text":"Go is a language [1"}}
{"event":"text-chunk","data":{"text":"] from Google."}}
{"event":"related-queries","data":{"related_queries":["Who created Go?"]}}
{"event":"stream-end","data":{"thread_id":9}}
`

type testEnv struct {
	*Env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T, stdin string) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "threads.db")
	cfg.Stream.ReplayDelayMS = 0

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &testEnv{
		Env: &Env{
			Stdin:  strings.NewReader(stdin),
			Stdout: stdout,
			Stderr: stderr,
			Config: cfg,
			Logger: zap.NewNop(),
		},
		stdout: stdout,
		stderr: stderr,
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		switches []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"list", "--limit", "5"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("limit") != "5" {
					t.Errorf("Flag(limit) = %q, want %q", p.Flag("limit"), "5")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"export", "--format=markdown"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "markdown" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "markdown")
				}
			},
		},
		{
			name:    "trailing boolean flag",
			args:    []string{"list", "--json"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:     "switch does not take a value",
			args:     []string{"--plain", "answer.jsonl"},
			switches: []string{"plain"},
			wantSub:  "answer.jsonl",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("plain") {
					t.Error("BoolFlag(plain) should be true")
				}
			},
		},
		{
			name:    "explicit false",
			args:    []string{"--open=false"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("open") {
					t.Error("BoolFlag(open) should be false")
				}
				if !p.HasFlag("open") {
					t.Error("HasFlag(open) should be true")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"show", "--", "--not-a-flag"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "--not-a-flag" {
					t.Errorf("Positional(1) = %q", p.Positional(1))
				}
			},
		},
		{
			name:    "dash is positional",
			args:    []string{"-"},
			wantSub: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.switches...)
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_Positional(t *testing.T) {
	p := NewArgParser([]string{"export", "thr_1", "--format", "html", "extra"})

	if p.PositionalCount() != 3 {
		t.Errorf("PositionalCount() = %d, want 3", p.PositionalCount())
	}
	if p.Positional(1) != "thr_1" {
		t.Errorf("Positional(1) = %q, want thr_1", p.Positional(1))
	}
	if p.Positional(9) != "" {
		t.Errorf("Positional(9) = %q, want empty", p.Positional(9))
	}
	if got := strings.Join(p.PositionalFrom(1), " "); got != "thr_1 extra" {
		t.Errorf("PositionalFrom(1) = %q", got)
	}
	if len(p.PositionalFrom(5)) != 0 {
		t.Error("PositionalFrom past the end should be empty")
	}
}

func TestArgParser_FlagInt(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr bool
	}{
		{[]string{"--limit", "10"}, 10, false},
		{[]string{}, 3, false},
		{[]string{"--limit", "ten"}, 0, true},
	}
	for _, tt := range tests {
		got, err := NewArgParser(tt.args).FlagInt("limit", 3)
		if (err != nil) != tt.wantErr {
			t.Errorf("FlagInt(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FlagInt(%v) = %d, want %d", tt.args, got, tt.want)
		}
		if err != nil && GetExitCode(err) != ExitUsageError {
			t.Errorf("FlagInt error exit code = %d, want %d", GetExitCode(err), ExitUsageError)
		}
	}
}

// =============================================================================
// PARSE TESTS (cli.go)
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		argv    []string
		want    Command
		wantSub string
	}{
		{nil, CmdHelp, ""},
		{[]string{"help"}, CmdHelp, ""},
		{[]string{"--help"}, CmdHelp, ""},
		{[]string{"render", "answer.md"}, CmdRender, "answer.md"},
		{[]string{"replay", "rec.jsonl"}, CmdReplay, "rec.jsonl"},
		{[]string{"tail", "rec.jsonl"}, CmdFollow, "rec.jsonl"},
		{[]string{"threads", "list"}, CmdThreads, "list"},
		{[]string{"THREADS", "Show", "x"}, CmdThreads, "show"},
		{[]string{"config", "--json"}, CmdConfig, ""},
		{[]string{"version"}, CmdVersion, ""},
		{[]string{"bogus"}, CmdUnknown, ""},
	}
	for _, tt := range tests {
		cmd, args := Parse(tt.argv)
		if cmd != tt.want {
			t.Errorf("Parse(%v) = %v, want %v", tt.argv, cmd, tt.want)
		}
		if args.Subcommand != tt.wantSub {
			t.Errorf("Parse(%v).Subcommand = %q, want %q", tt.argv, args.Subcommand, tt.wantSub)
		}
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	cmd, args := Parse([]string{"--json", "-v", "--theme", "light", "--db=/tmp/t.db", "--config", "c.toml", "threads", "list", "--limit", "2"})

	assert.Equal(t, CmdThreads, cmd)
	assert.True(t, args.JSON)
	assert.True(t, args.Verbose)
	assert.Equal(t, "light", args.Theme)
	assert.Equal(t, "/tmp/t.db", args.DB)
	assert.Equal(t, "c.toml", args.ConfigPath)
	assert.Equal(t, "threads", args.Name)
	assert.Equal(t, []string{"list", "--limit", "2"}, args.Raw)
}

func TestHandleVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HandleVersion(&buf, Args{}))
	assert.Contains(t, buf.String(), "pplx version "+Version)

	buf.Reset()
	require.NoError(t, HandleVersion(&buf, Args{JSON: true}))
	var resp struct {
		Success bool        `json:"success"`
		Data    VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, Version, resp.Data.Version)
}

func TestHandleHelp(t *testing.T) {
	var buf bytes.Buffer
	HandleHelp(&buf)
	assert.Contains(t, buf.String(), "threads export <id>")
	assert.Contains(t, buf.String(), "Version: "+Version)
}

// =============================================================================
// ENV AND ERROR TESTS
// =============================================================================

func TestNewEnv_AppliesGlobalFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"PPLX_THEME", "PPLX_PRO_MODE", "PPLX_LOCAL_MODE", "PPLX_DB", "PPLX_LOG_LEVEL", "PPLX_LOG_FILE", "PPLX_MAX_FPS"} {
		t.Setenv(k, "")
	}
	path := writeFile(t, "config.toml", "[ui]\ntheme = \"dark\"\n[log]\nfile = \""+filepath.ToSlash(filepath.Join(t.TempDir(), "pplx.log"))+"\"\n")

	env, err := NewEnv(Args{ConfigPath: path, DB: "/tmp/x.db", Verbose: true})
	require.NoError(t, err)
	defer env.Logger.Sync()

	assert.Equal(t, path, env.ConfigPath)
	assert.Equal(t, "dark", env.Config.UI.Theme)
	assert.Equal(t, "/tmp/x.db", env.Config.Storage.Path)
	assert.Equal(t, "debug", env.Config.Log.Level)

	_, err = NewEnv(Args{ConfigPath: path, Theme: "neon"})
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{NewUsageError("bad"), ExitUsageError},
		{&ConfigError{Err: errors.New("bad")}, ExitConfigError},
		{&stream.BackendError{Detail: "down"}, ExitStreamError},
		{storage.ErrNotFound, ExitNotFoundError},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.err); got != tt.want {
			t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, NewUsageError("missing file"), false)
	assert.Contains(t, buf.String(), "[ERROR] missing file")

	buf.Reset()
	DisplayError(&buf, &ConfigError{Err: config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}}, true)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "config_error", out["error_type"])
	assert.Equal(t, []interface{}{"ui.theme"}, out["fields"])
}

// =============================================================================
// RENDER COMMAND TESTS
// =============================================================================

func TestHandleRender_MarkdownToHTML(t *testing.T) {
	env := newTestEnv(t, "Go is fast [1] and simple [2].")
	sources := writeFile(t, "sources.json", `[{"url":"https://go.dev","title":"Go"}]`)

	require.NoError(t, HandleRender(env.Env, Args{Raw: []string{"-", "--sources", sources}}))
	out := env.stdout.String()

	assert.Contains(t, out, `href="https://go.dev"`)
	assert.Equal(t, 2, strings.Count(out, `<span class="citation-badge">`))
}

func TestHandleRender_MessageJSON(t *testing.T) {
	msg := `{"content": "Hello **world** [1", "sources": [{"url": "http://a"}]}`
	env := newTestEnv(t, msg)

	require.NoError(t, HandleRender(env.Env, Args{Raw: []string{"--streaming", "--format", "html"}}))
	out := env.stdout.String()
	assert.Contains(t, out, "<strong>world</strong>")
	assert.NotContains(t, out, "[1")
}

func TestHandleRender_Formats(t *testing.T) {
	input := writeFile(t, "answer.json", `{"content": "See [1].", "sources": [{"url": "https://go.dev", "title": "Go"}]}`)

	tests := []struct {
		format string
		want   string
	}{
		{"page", "<!DOCTYPE html>"},
		{"terminal", "Sources"},
		{"markdown", "https://go.dev"},
	}
	for _, tt := range tests {
		env := newTestEnv(t, "")
		require.NoError(t, HandleRender(env.Env, Args{Raw: []string{input, "--format", tt.format}}), tt.format)
		assert.Contains(t, env.stdout.String(), tt.want, tt.format)
	}

	env := newTestEnv(t, "")
	err := HandleRender(env.Env, Args{Raw: []string{input, "--format", "pdf"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleRender_MissingFile(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Error(t, HandleRender(env.Env, Args{Raw: []string{filepath.Join(t.TempDir(), "missing.md")}}))
}

// =============================================================================
// STREAM AND THREADS COMMAND TESTS
// =============================================================================

func TestHandleReplay_PlainSavesThread(t *testing.T) {
	env := newTestEnv(t, "")
	path := writeFile(t, "answer.jsonl", recording)

	require.NoError(t, HandleReplay(env.Env, Args{Raw: []string{path}}))
	out := env.stdout.String()
	assert.Contains(t, out, "> What is Go?")
	assert.Contains(t, out, "from Google.")
	assert.Contains(t, out, "Who created Go?")
	assert.Contains(t, env.stderr.String(), "Saved thread")

	// The stored thread is listed, exported and deleted.
	list := newTestEnv(t, "")
	list.Config = env.Config
	require.NoError(t, HandleThreads(list.Env, Args{Raw: []string{"list", "--json"}}))
	var resp struct {
		Data []ThreadData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(list.stdout.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	id := resp.Data[0].ID
	assert.Equal(t, "What is Go?", resp.Data[0].Title)
	assert.Equal(t, 2, resp.Data[0].MessageCount)
	assert.Equal(t, int64(9), resp.Data[0].RemoteID)

	exp := newTestEnv(t, "")
	exp.Config = env.Config
	require.NoError(t, HandleThreads(exp.Env, Args{Raw: []string{"export", id, "--format", "markdown", "--stdout"}}))
	assert.Contains(t, exp.stdout.String(), "# What is Go?")
	assert.Contains(t, exp.stdout.String(), "1. [The Go Programming Language](https://go.dev)")

	del := newTestEnv(t, "")
	del.Config = env.Config
	require.NoError(t, HandleThreads(del.Env, Args{Raw: []string{"delete", id}}))
	assert.Contains(t, del.stdout.String(), "Deleted thread "+id)

	err := HandleThreads(del.Env, Args{Raw: []string{"show", id}})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestHandleReplay_Stdin(t *testing.T) {
	env := newTestEnv(t, recording)
	require.NoError(t, HandleReplay(env.Env, Args{Raw: []string{"-", "--no-save"}}))
	assert.Contains(t, env.stdout.String(), "from Google.")
	assert.Empty(t, env.stderr.String())
}

func TestHandleReplay_BackendError(t *testing.T) {
	env := newTestEnv(t, `{"event":"text-chunk","data":{"text":"partial"}}
{"event":"error","data":{"detail":"search failed"}}
`)
	err := HandleReplay(env.Env, Args{Raw: []string{"-", "--no-save"}})
	require.Error(t, err)
	assert.Equal(t, ExitStreamError, GetExitCode(err))
	assert.Contains(t, env.stdout.String(), "search failed")
}

func TestHandleReplay_Usage(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, ExitUsageError, GetExitCode(HandleReplay(env.Env, Args{})))
	assert.Equal(t, ExitUsageError, GetExitCode(HandleReplay(env.Env, Args{Raw: []string{"x", "--delay", "-5"}})))
}

func TestHandleFollow_Plain(t *testing.T) {
	env := newTestEnv(t, "")
	path := writeFile(t, "live.jsonl", recording+"[DONE]\n")

	require.NoError(t, HandleFollow(env.Env, Args{Raw: []string{path, "--no-save"}}))
	assert.Contains(t, env.stdout.String(), "from Google.")

	err := HandleFollow(env.Env, Args{Raw: []string{filepath.Join(t.TempDir(), "missing")}})
	assert.Error(t, err)
}

func TestHandleThreads_EmptyList(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, HandleThreads(env.Env, Args{Raw: []string{"list"}}))
	assert.Contains(t, env.stdout.String(), "No stored threads.")
}

func TestHandleThreads_TableAndUsage(t *testing.T) {
	env := newTestEnv(t, recording)
	require.NoError(t, HandleReplay(env.Env, Args{Raw: []string{"-"}}))

	env.stdout.Reset()
	require.NoError(t, HandleThreads(env.Env, Args{Raw: []string{}}))
	lines := strings.Split(strings.TrimSpace(env.stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "What is Go?")

	assert.Equal(t, ExitUsageError, GetExitCode(HandleThreads(env.Env, Args{Raw: []string{"show"}})))
	assert.Equal(t, ExitUsageError, GetExitCode(HandleThreads(env.Env, Args{Raw: []string{"frobnicate", "x"}})))
}

func TestHandleThreads_ExportToFile(t *testing.T) {
	env := newTestEnv(t, recording)
	require.NoError(t, HandleReplay(env.Env, Args{Raw: []string{"-"}}))

	ts, err := env.OpenThreads()
	require.NoError(t, err)
	metas, err := ts.List(t.Context(), 0)
	require.NoError(t, err)
	require.NoError(t, ts.Close())
	require.Len(t, metas, 1)

	dir := t.TempDir()
	env.stdout.Reset()
	require.NoError(t, HandleThreads(env.Env, Args{Raw: []string{"export", metas[0].ID, "--out", dir}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".html", filepath.Ext(entries[0].Name()))
	assert.Contains(t, env.stdout.String(), "Exported")
}

// =============================================================================
// CONFIG COMMAND TESTS
// =============================================================================

func TestHandleConfig(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, HandleConfig(env.Env, Args{}))
	assert.Contains(t, env.stdout.String(), "# built-in defaults")
	assert.Contains(t, env.stdout.String(), `theme = "auto"`)

	env.stdout.Reset()
	require.NoError(t, HandleConfig(env.Env, Args{Raw: []string{"get", "stream.max_fps"}}))
	assert.Equal(t, "30\n", env.stdout.String())

	env.stdout.Reset()
	require.NoError(t, HandleConfig(env.Env, Args{Raw: []string{"keys"}}))
	assert.Contains(t, env.stdout.String(), "render.code_style\n")

	env.stdout.Reset()
	require.NoError(t, HandleConfig(env.Env, Args{JSON: true, Raw: []string{"get", "ui.theme"}}))
	var resp struct {
		Data ConfigData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.stdout.Bytes(), &resp))
	assert.Equal(t, "auto", resp.Data.Value)

	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfig(env.Env, Args{Raw: []string{"get", "ui.colour"}})))
	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfig(env.Env, Args{Raw: []string{"get"}})))
	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfig(env.Env, Args{Raw: []string{"set", "ui.theme", "dark"}})))
}
