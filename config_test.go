// config_test.go: Tests for configuration defaults and validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig_WithDefaults(t *testing.T) {
	config := (&Config{}).WithDefaults()

	if config.Suffix != ".gpg" {
		t.Errorf("Suffix = %q, want .gpg", config.Suffix)
	}
	if config.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", config.Debounce)
	}
	if config.DebounceTick != 100*time.Millisecond {
		t.Errorf("DebounceTick = %v, want 100ms", config.DebounceTick)
	}
	if config.IntakeBuffer != 64 {
		t.Errorf("IntakeBuffer = %d, want 64", config.IntakeBuffer)
	}
	if config.TrackRemovals {
		t.Error("TrackRemovals should default to false")
	}
	if config.Audit.Enabled || config.Audit.BufferSize != 100 {
		t.Errorf("unexpected audit defaults %+v", config.Audit)
	}
	if config.ErrorHandler == nil {
		t.Error("ErrorHandler should default to stderr")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_WithDefaultsKeepsValuesAndClampsTick(t *testing.T) {
	original := &Config{Suffix: ".age", Debounce: 50 * time.Millisecond}
	config := original.WithDefaults()

	if config.Suffix != ".age" {
		t.Errorf("Suffix overwritten: %q", config.Suffix)
	}
	if config.DebounceTick != 50*time.Millisecond {
		t.Errorf("DebounceTick = %v, want clamp to 50ms", config.DebounceTick)
	}
	if original.DebounceTick != 0 {
		t.Error("WithDefaults modified its receiver")
	}
}

func TestConfig_ValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"suffix without dot", func(c *Config) { c.Suffix = "gpg" }, ErrCodeInvalidSuffix},
		{"suffix with separator", func(c *Config) { c.Suffix = ".x/y" }, ErrCodeInvalidSuffix},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Second }, ErrCodeInvalidDebounce},
		{"negative tick", func(c *Config) { c.DebounceTick = -time.Second }, ErrCodeInvalidDebounce},
		{"zero intake buffer", func(c *Config) { c.IntakeBuffer = 0 }, ErrCodeInvalidIntakeBuffer},
		{"negative audit buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = -1
		}, ErrCodeInvalidBufferSize},
		{"negative flush interval", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.FlushInterval = -time.Second
		}, ErrCodeInvalidFlushInterval},
		{"root as output file", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.OutputFile = "/"
		}, ErrCodeInvalidOutputFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := (&Config{}).WithDefaults()
			tt.mutate(config)
			err := config.Validate()
			if code := errorCode(t, err); code != tt.want {
				t.Errorf("code = %s, want %s", code, tt.want)
			}
			if !IsValidationError(err) {
				t.Error("IsValidationError = false")
			}
		})
	}
}

func TestConfig_AuditChecksSkippedWhenDisabled(t *testing.T) {
	config := (&Config{}).WithDefaults()
	config.Audit.BufferSize = -5
	if err := config.Validate(); err != nil {
		t.Errorf("disabled audit config should not be validated: %v", err)
	}
}

func TestConfig_ValidateDetailedWarnings(t *testing.T) {
	config := (&Config{
		Debounce:     2 * time.Minute,
		DebounceTick: time.Millisecond,
		IntakeBuffer: 100000,
		Audit: AuditConfig{
			Enabled:    true,
			OutputFile: filepath.Join(t.TempDir(), "audit.jsonl"),
		},
	}).WithDefaults()

	result := config.ValidateDetailed()
	if !result.Valid {
		t.Fatalf("expected valid config, errors: %v", result.Errors)
	}
	if len(result.Warnings) != 4 {
		t.Errorf("warnings = %v, want 4", result.Warnings)
	}
	if !strings.Contains(result.String(), "4 warning(s)") {
		t.Errorf("String() = %q", result.String())
	}
}

func TestGetValidationErrorCode(t *testing.T) {
	if GetValidationErrorCode(nil) != "" {
		t.Error("nil error should have no code")
	}
	if got := GetValidationErrorCode(ErrInvalidSuffix); got != ErrCodeInvalidSuffix {
		t.Errorf("code = %q", got)
	}
	if IsValidationError(errPlain("boom")) {
		t.Error("plain errors are not validation errors")
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
