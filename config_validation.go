// config_validation.go - configuration validation for Arcanum
//
// This module validates session configuration before any directory is
// touched, with detailed error and warning reporting.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// Validation errors
var (
	ErrInvalidSuffix        = errors.New(ErrCodeInvalidSuffix, "credential suffix must be a non-empty file extension")
	ErrInvalidDebounce      = errors.New(ErrCodeInvalidDebounce, "debounce window must be positive")
	ErrInvalidDebounceTick  = errors.New(ErrCodeInvalidDebounce, "debounce tick must be positive")
	ErrInvalidIntakeBuffer  = errors.New(ErrCodeInvalidIntakeBuffer, "intake buffer must be positive")
	ErrInvalidAuditConfig   = errors.New(ErrCodeInvalidAuditConfig, "audit configuration is invalid")
	ErrInvalidBufferSize    = errors.New(ErrCodeInvalidBufferSize, "audit buffer size must not be negative")
	ErrInvalidFlushInterval = errors.New(ErrCodeInvalidFlushInterval, "audit flush interval must not be negative")
	ErrInvalidOutputFile    = errors.New(ErrCodeInvalidOutputFile, "audit output file path is invalid")
)

// ValidationResult contains the result of configuration validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a human-readable representation of validation results
func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "Configuration is valid"
		}
		return fmt.Sprintf("Configuration is valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("Configuration is invalid: %d error(s), %d warning(s)",
		len(vr.Errors), len(vr.Warnings))
}

// Validate returns the first validation error, or nil. Call it on the
// result of WithDefaults to validate the effective configuration.
func (c *Config) Validate() error {
	result := c.ValidateDetailed()
	if result.Valid || len(result.Errors) == 0 {
		return nil
	}

	firstError := result.Errors[0]
	for _, known := range []error{
		ErrInvalidSuffix,
		ErrInvalidDebounce,
		ErrInvalidDebounceTick,
		ErrInvalidIntakeBuffer,
		ErrInvalidBufferSize,
		ErrInvalidFlushInterval,
		ErrInvalidOutputFile,
	} {
		if firstError == known.Error() {
			return known
		}
	}
	return errors.New(ErrCodeInvalidConfig, firstError)
}

// ValidateDetailed performs validation and returns errors and warnings.
func (c *Config) ValidateDetailed() ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	c.validateCoreConfig(&result)
	c.validateAuditConfig(&result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (c *Config) validateCoreConfig(result *ValidationResult) {
	if c.Suffix == "" || !strings.HasPrefix(c.Suffix, ".") || strings.ContainsAny(c.Suffix, `/\`) {
		result.Errors = append(result.Errors, ErrInvalidSuffix.Error())
	}

	if c.Debounce <= 0 {
		result.Errors = append(result.Errors, ErrInvalidDebounce.Error())
	} else if c.Debounce > time.Minute {
		result.Warnings = append(result.Warnings,
			"Debounce window above one minute delays new entries noticeably")
	}

	if c.DebounceTick <= 0 {
		result.Errors = append(result.Errors, ErrInvalidDebounceTick.Error())
	} else if c.DebounceTick < 10*time.Millisecond {
		result.Warnings = append(result.Warnings,
			"Debounce tick below 10ms wakes the watcher very often")
	}

	if c.IntakeBuffer <= 0 {
		result.Errors = append(result.Errors, ErrInvalidIntakeBuffer.Error())
	} else if c.IntakeBuffer > 65536 {
		result.Warnings = append(result.Warnings, "Large intake buffer may consume significant memory")
	}
}

func (c *Config) validateAuditConfig(result *ValidationResult) {
	if !c.Audit.Enabled {
		return
	}

	if c.Audit.BufferSize < 0 {
		result.Errors = append(result.Errors, ErrInvalidBufferSize.Error())
	} else if c.Audit.BufferSize == 0 {
		result.Warnings = append(result.Warnings,
			"Audit buffer size is 0, every event is written immediately")
	}

	if c.Audit.FlushInterval < 0 {
		result.Errors = append(result.Errors, ErrInvalidFlushInterval.Error())
	}

	if c.Audit.MaxFileSize < 0 {
		result.Errors = append(result.Errors, "audit max file size must not be negative")
	}

	if c.Audit.OutputFile != "" {
		if err := validateOutputFile(c.Audit.OutputFile); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
}

// validateOutputFile checks that the audit output path is usable.
func validateOutputFile(outputFile string) error {
	cleanPath := filepath.Clean(outputFile)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return ErrInvalidOutputFile
	}

	dir := filepath.Dir(cleanPath)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Backends create missing directories.
			return nil
		}
		return errors.Wrap(err, ErrCodeInvalidOutputFile,
			fmt.Sprintf("cannot access directory '%s'", dir))
	}
	if !info.IsDir() {
		return errors.New(ErrCodeInvalidOutputFile,
			fmt.Sprintf("'%s' is not a directory", dir))
	}
	return nil
}

// GetValidationErrorCode extracts the error code from an Arcanum error.
func GetValidationErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if coder, ok := err.(errors.ErrorCoder); ok {
		return string(coder.ErrorCode())
	}

	errStr := err.Error()
	// go-errors format: [CODE]: Message
	if len(errStr) > 3 && errStr[0] == '[' {
		if end := strings.IndexByte(errStr, ']'); end > 1 {
			return errStr[1:end]
		}
	}
	return ""
}

// IsValidationError reports whether err carries an Arcanum error code.
func IsValidationError(err error) bool {
	return strings.HasPrefix(GetValidationErrorCode(err), "ARCANUM_")
}
