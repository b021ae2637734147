// config.go: Configuration management for Arcanum
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"fmt"
	"os"
	"time"
)

// Config configures a Session
type Config struct {
	// StoreDir is the password store root.
	// Default: $PASSWORD_STORE_DIR, then ~/.password-store
	StoreDir string `json:"store_dir" yaml:"store_dir"`

	// Suffix marks encrypted credential files.
	// Default: ".gpg"
	Suffix string `json:"suffix" yaml:"suffix"`

	// Debounce is how long a path must stay quiet after its last create
	// event before it is indexed. Editors writing through temporary files
	// produce several events per save.
	// Default: 2 seconds
	Debounce time.Duration `json:"debounce" yaml:"debounce"`

	// DebounceTick is how often pending paths are checked.
	// Default: 100ms, never more than Debounce
	DebounceTick time.Duration `json:"debounce_tick" yaml:"debounce_tick"`

	// IntakeBuffer is the capacity of the channel between the producers
	// and the aggregator. Producers block when it is full.
	// Default: 64
	IntakeBuffer int `json:"intake_buffer" yaml:"intake_buffer"`

	// TrackRemovals removes entries whose file is deleted or renamed away.
	// Default: false (append-only index)
	TrackRemovals bool `json:"track_removals" yaml:"track_removals"`

	// Audit configuration for security and compliance
	// Default: disabled
	Audit AuditConfig `json:"audit" yaml:"audit"`

	// ErrorHandler is called for non-fatal scan and watch errors
	// If nil, errors are written to stderr
	ErrorHandler ErrorHandler `json:"-" yaml:"-"`
}

// WithDefaults returns a copy of the configuration with zero values
// replaced by defaults.
func (c *Config) WithDefaults() *Config {
	config := *c

	if config.Suffix == "" {
		config.Suffix = DefaultSuffix
	}

	if config.Debounce <= 0 {
		config.Debounce = 2 * time.Second
	}

	if config.DebounceTick <= 0 {
		config.DebounceTick = 100 * time.Millisecond
	}

	// GUARD RAIL: a tick longer than the window delays every emission
	if config.DebounceTick > config.Debounce {
		config.DebounceTick = config.Debounce
	}

	if config.IntakeBuffer <= 0 {
		config.IntakeBuffer = 64
	}

	if config.Audit == (AuditConfig{}) {
		config.Audit = DefaultAuditConfig()
	}

	if config.ErrorHandler == nil {
		config.ErrorHandler = stderrErrorHandler
	}

	return &config
}

func stderrErrorHandler(err error, path string) {
	fmt.Fprintf(os.Stderr, "arcanum: %s: %v\n", path, err)
}
