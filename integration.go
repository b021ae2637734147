// integration.go: Command-line layer for Arcanum configuration
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// FlagConfig stacks command-line flags on top of the other sources:
// flags > environment > configuration file > defaults.

package arcanum

import (
	"fmt"
	"os"
	"strings"
	"time"

	flashflags "github.com/agilira/flash-flags"
	"github.com/agilira/go-errors"
)

// ErrHelpRequested is returned by Parse when -h or --help is present.
var ErrHelpRequested = errors.New(ErrCodeHelpRequested, "help requested")

// Flag names understood by FlagConfig.
const (
	FlagConfigFile    = "config"
	FlagStore         = "store"
	FlagSuffix        = "suffix"
	FlagDebounce      = "debounce"
	FlagTrackRemovals = "track-removals"
	FlagAudit         = "audit"
	FlagAuditFile     = "audit-file"
	FlagLockFile      = "lock-file"
	FlagInterval      = "stats-interval"
)

// FlagConfig parses daemon flags with FlashFlags and merges them into a
// Config.
type FlagConfig struct {
	flags   *flashflags.FlagSet
	appName string
	parsed  bool
}

// NewFlagConfig registers the Arcanum flags for the named application.
func NewFlagConfig(appName string) *FlagConfig {
	fs := flashflags.New(appName)
	fs.String(FlagConfigFile, "", "YAML configuration file")
	fs.String(FlagStore, "", "Password store directory (default $PASSWORD_STORE_DIR or ~/.password-store)")
	fs.String(FlagSuffix, "", "Credential file suffix (default .gpg)")
	fs.Duration(FlagDebounce, 0, "Quiet period before a new file is indexed (default 2s)")
	fs.Bool(FlagTrackRemovals, false, "Drop entries whose file is deleted")
	fs.Bool(FlagAudit, false, "Enable the audit trail")
	fs.String(FlagAuditFile, "", "Audit output file (.jsonl or SQLite database)")
	fs.String(FlagLockFile, "", "Lock file guarding against a second daemon")
	fs.Duration(FlagInterval, 0, "Log index statistics at this interval (0 disables)")

	return &FlagConfig{flags: fs, appName: appName}
}

// SetDescription sets the application description for help text
func (fc *FlagConfig) SetDescription(description string) *FlagConfig {
	fc.flags.SetDescription(description)
	return fc
}

// SetVersion sets the application version for help text
func (fc *FlagConfig) SetVersion(version string) *FlagConfig {
	fc.flags.SetVersion(version)
	return fc
}

// Parse parses args. It returns ErrHelpRequested without parsing when help
// is asked for.
func (fc *FlagConfig) Parse(args []string) error {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return ErrHelpRequested
		}
	}

	if err := fc.flags.Parse(args); err != nil {
		return errors.Wrap(err, ErrCodeInvalidConfig, "failed to parse command-line flags")
	}
	fc.parsed = true
	return nil
}

// Config builds the effective configuration. Flags set to a non-zero value
// override the configuration file and the environment.
func (fc *FlagConfig) Config() (*Config, error) {
	if !fc.parsed {
		return nil, errors.New(ErrCodeInvalidConfig, "flags have not been parsed")
	}

	config, err := LoadConfigMultiSource(fc.flags.GetString(FlagConfigFile))
	if err != nil {
		return nil, err
	}

	if v := fc.flags.GetString(FlagStore); v != "" {
		config.StoreDir = v
	}
	if v := fc.flags.GetString(FlagSuffix); v != "" {
		config.Suffix = v
	}
	if v := fc.flags.GetDuration(FlagDebounce); v > 0 {
		config.Debounce = v
		if config.DebounceTick > v {
			config.DebounceTick = v
		}
	}
	if fc.flags.GetBool(FlagTrackRemovals) {
		config.TrackRemovals = true
	}
	if fc.flags.GetBool(FlagAudit) {
		config.Audit.Enabled = true
	}
	if v := fc.flags.GetString(FlagAuditFile); v != "" {
		config.Audit.Enabled = true
		config.Audit.OutputFile = v
	}

	return config.WithDefaults(), nil
}

// LockFile returns the lock file path, defaulting to a file next to the
// unified audit database.
func (fc *FlagConfig) LockFile() string {
	if v := fc.flags.GetString(FlagLockFile); v != "" {
		return v
	}
	return strings.TrimSuffix(UnifiedAuditPath(), "audit.db") + fc.appName + ".lock"
}

// StatsInterval returns the periodic statistics interval, zero if disabled.
func (fc *FlagConfig) StatsInterval() time.Duration {
	return fc.flags.GetDuration(FlagInterval)
}

// PrintUsage prints help information for all flags
func (fc *FlagConfig) PrintUsage() {
	fc.flags.PrintHelp()
}

// FlagNames lists the registered flags.
func (fc *FlagConfig) FlagNames() []string {
	var names []string
	fc.flags.VisitAll(func(flag *flashflags.Flag) {
		names = append(names, flag.Name())
	})
	return names
}

// EnvKey converts a flag name to its environment variable, e.g.
// "track-removals" to "ARCANUM_TRACK_REMOVALS".
func EnvKey(flagName string) string {
	return "ARCANUM_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// ParseOrExit parses os.Args and exits on help or error.
func (fc *FlagConfig) ParseOrExit() {
	if err := fc.Parse(os.Args[1:]); err != nil {
		if err == ErrHelpRequested {
			fc.PrintUsage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fc.PrintUsage()
		os.Exit(1)
	}
}
