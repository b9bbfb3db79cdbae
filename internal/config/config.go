// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete pplx configuration.
type Config struct {
	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Answer rendering configuration
	Render RenderConfig `toml:"render" json:"render"`

	// Stream consumption configuration
	Stream StreamConfig `toml:"stream" json:"stream"`

	// Thread storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Logging configuration
	Log LogConfig `toml:"log" json:"log"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is the terminal theme: "auto", "dark", "light" or "plain"
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the answer wrap width in columns (0 = terminal width)
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// ProMode starts new threads with multi-step pro search enabled
	ProMode bool `toml:"pro_mode" json:"pro_mode"`
	// LocalMode starts new threads with local models selected
	LocalMode bool `toml:"local_mode" json:"local_mode"`
}

// RenderConfig contains HTML rendering configuration.
type RenderConfig struct {
	// Sanitize passes rendered HTML through the sanitizer policy
	Sanitize bool `toml:"sanitize" json:"sanitize"`
	// Highlight enables syntax highlighting of fenced code
	Highlight bool `toml:"highlight" json:"highlight"`
	// CodeStyle is the chroma style name used for highlighting
	CodeStyle string `toml:"code_style" json:"code_style"`
}

// StreamConfig contains stream consumption configuration.
type StreamConfig struct {
	// MaxFPS caps how often the terminal UI redraws while streaming
	MaxFPS int `toml:"max_fps" json:"max_fps"`
	// ReplayDelayMS is the default pause between replayed events
	ReplayDelayMS int `toml:"replay_delay_ms" json:"replay_delay_ms"`
}

// StorageConfig contains thread storage configuration.
type StorageConfig struct {
	// Path is the thread database path (empty = ~/.pplx/threads.db)
	Path string `toml:"path" json:"path"`
	// MaxThreads limits stored threads (0 = unlimited)
	MaxThreads int `toml:"max_threads" json:"max_threads"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is the minimum level: "debug", "info", "warn" or "error"
	Level string `toml:"level" json:"level"`
	// Development enables the human-readable console encoder
	Development bool `toml:"development" json:"development"`
	// File is the log file path (empty = stderr)
	File string `toml:"file" json:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		UI: UIConfig{
			Theme: "auto",
		},
		Render: RenderConfig{
			Sanitize:  true,
			Highlight: true,
			CodeStyle: "github",
		},
		Stream: StreamConfig{
			MaxFPS:        30,
			ReplayDelayMS: 40,
		},
		Storage: StorageConfig{
			MaxThreads: 100,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the pplx configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".pplx"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// StoragePath returns the configured thread database path.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return expandHome(c.Storage.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "threads.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
//
// The returned path is the file that was read, empty when none exists.
func Load() (*Config, string, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		return cfg, path, err
	}

	cfg := Default()
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, "", nil
}

// LoadFromPath loads configuration from a specific file on top of the
// defaults, then applies environment overrides and validates.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg. Keys absent from the file keep the
// values already in cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg. Keys absent from the file keep the
// values already in cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true, "plain": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light, plain", c.UI.Theme),
		})
	}

	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: "word_wrap cannot be negative",
		})
	}

	if c.Render.Highlight && strings.TrimSpace(c.Render.CodeStyle) == "" {
		errs = append(errs, ValidationError{
			Field:   "render.code_style",
			Message: "code_style is required when highlight is enabled",
		})
	}

	if c.Stream.MaxFPS < 1 || c.Stream.MaxFPS > 120 {
		errs = append(errs, ValidationError{
			Field:   "stream.max_fps",
			Message: fmt.Sprintf("max_fps %d out of range (1-120)", c.Stream.MaxFPS),
		})
	}

	if c.Stream.ReplayDelayMS < 0 {
		errs = append(errs, ValidationError{
			Field:   "stream.replay_delay_ms",
			Message: "replay_delay_ms cannot be negative",
		})
	}

	if c.Storage.MaxThreads < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.max_threads",
			Message: "max_threads cannot be negative",
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PPLX_THEME: overrides ui.theme
//   - PPLX_PRO_MODE: overrides ui.pro_mode
//   - PPLX_LOCAL_MODE: overrides ui.local_mode
//   - PPLX_DB: overrides storage.path
//   - PPLX_LOG_LEVEL: overrides log.level
//   - PPLX_LOG_FILE: overrides log.file
//   - PPLX_MAX_FPS: overrides stream.max_fps
func (c *Config) ApplyEnvOverrides() error {
	if theme := os.Getenv("PPLX_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if pro := os.Getenv("PPLX_PRO_MODE"); pro != "" {
		c.UI.ProMode = parseBool(pro)
	}
	if local := os.Getenv("PPLX_LOCAL_MODE"); local != "" {
		c.UI.LocalMode = parseBool(local)
	}
	if db := os.Getenv("PPLX_DB"); db != "" {
		c.Storage.Path = db
	}
	if level := os.Getenv("PPLX_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if file := os.Getenv("PPLX_LOG_FILE"); file != "" {
		c.Log.File = file
	}
	if fps := os.Getenv("PPLX_MAX_FPS"); fps != "" {
		n, err := strconv.Atoi(fps)
		if err != nil {
			return fmt.Errorf("PPLX_MAX_FPS: %w", err)
		}
		c.Stream.MaxFPS = n
	}
	return nil
}

func parseBool(s string) bool {
	return s == "1" || strings.EqualFold(s, "true") || strings.EqualFold(s, "yes")
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
// Keys are matched against the TOML names.
func (c *Config) Get(key string) (interface{}, error) {
	if key == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// Keys returns every leaf key in dot notation, in declaration order.
func Keys() []string {
	var keys []string
	collectKeys(reflect.TypeOf(Config{}), "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := prefix + f.Tag.Get("toml")
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, name+".", keys)
			continue
		}
		*keys = append(*keys, name)
	}
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// String returns the configuration as TOML.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return b.String()
}

// =============================================================================
// HELPERS
// =============================================================================

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
