// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/LyzrCore/perplexity-oss/internal/config"
	"github.com/LyzrCore/perplexity-oss/internal/storage"
	"github.com/LyzrCore/perplexity-oss/internal/stream"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitStreamError indicates the answer stream reported an error
	ExitStreamError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid command usage.
type UsageError struct {
	Reason string
	Usage  string // Example invocation (optional)
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Usage)
	}
	return e.Reason
}

// NewUsageError creates a usage error.
func NewUsageError(reason string) error {
	return &UsageError{Reason: reason}
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Reason: "missing required argument: " + argName, Usage: usage}
}

// ErrUnknownSubcommand reports a subcommand the command does not have.
func ErrUnknownSubcommand(command, sub string) error {
	return &UsageError{Reason: fmt.Sprintf("unknown %s subcommand: %s", command, sub), Usage: "pplx help"}
}

// ConfigError wraps a configuration failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "config: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// DisplayErrorJSON writes err as a JSON object.
func DisplayErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"error":      err.Error(),
		"success":    false,
		"error_type": errorType(err),
		"exit_code":  GetExitCode(err),
	}
	var validation config.ValidateErrors
	if errors.As(err, &validation) {
		fields := make([]string, len(validation))
		for i, v := range validation {
			fields[i] = v.Field
		}
		output["fields"] = fields
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func errorType(err error) string {
	var (
		usage   *UsageError
		cfg     *ConfigError
		backend *stream.BackendError
	)
	switch {
	case errors.As(err, &usage):
		return "usage_error"
	case errors.As(err, &cfg):
		return "config_error"
	case errors.As(err, &backend):
		return "stream_error"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found_error"
	default:
		return "generic_error"
	}
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch errorType(err) {
	case "usage_error":
		return ExitUsageError
	case "config_error":
		return ExitConfigError
	case "stream_error":
		return ExitStreamError
	case "not_found_error":
		return ExitNotFoundError
	default:
		return ExitGeneralError
	}
}
