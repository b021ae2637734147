// env_config.go: Environment variable and file support for Arcanum configuration
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// EnvConfig represents configuration loaded from environment variables
type EnvConfig struct {
	// Core Configuration
	StoreDir      string        `env:"ARCANUM_STORE_DIR"`
	Suffix        string        `env:"ARCANUM_SUFFIX"`
	Debounce      time.Duration `env:"ARCANUM_DEBOUNCE"`
	DebounceTick  time.Duration `env:"ARCANUM_DEBOUNCE_TICK"`
	IntakeBuffer  int           `env:"ARCANUM_INTAKE_BUFFER"`
	TrackRemovals bool          `env:"ARCANUM_TRACK_REMOVALS"`

	// Audit Configuration
	AuditEnabled       bool          `env:"ARCANUM_AUDIT_ENABLED"`
	AuditOutputFile    string        `env:"ARCANUM_AUDIT_OUTPUT_FILE"`
	AuditMinLevel      string        `env:"ARCANUM_AUDIT_MIN_LEVEL"`
	AuditBufferSize    int           `env:"ARCANUM_AUDIT_BUFFER_SIZE"`
	AuditFlushInterval time.Duration `env:"ARCANUM_AUDIT_FLUSH_INTERVAL"`
	AuditMaxFileSize   int64         `env:"ARCANUM_AUDIT_MAX_FILE_SIZE"`
}

// LoadConfigFromEnv loads Arcanum configuration from environment variables
func LoadConfigFromEnv() (*Config, error) {
	config := &Config{}
	envConfig := &EnvConfig{}

	if err := loadEnvVars(envConfig); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}

	if err := convertEnvToConfig(envConfig, config); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to convert environment configuration")
	}

	return config.WithDefaults(), nil
}

// LoadConfigMultiSource loads configuration with precedence:
// 1. Environment variables (highest priority)
// 2. File configuration
// 3. Default values (lowest priority)
func LoadConfigMultiSource(configFile string) (*Config, error) {
	config := (&Config{}).WithDefaults()

	if configFile != "" {
		fileConfig, err := LoadConfigFile(configFile)
		if err != nil {
			return config, err
		}
		config = fileConfig
	}

	envConfig := &EnvConfig{}
	if err := loadEnvVars(envConfig); err != nil {
		return config, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}
	envOverrides := &Config{}
	if err := convertEnvToConfig(envConfig, envOverrides); err != nil {
		return config, errors.Wrap(err, ErrCodeInvalidConfig, "failed to convert environment configuration")
	}

	mergeConfigs(config, envOverrides)
	return config, nil
}

// fileConfig is the YAML layout of a configuration file. Durations are
// written as Go duration strings ("2s", "500ms").
type fileConfig struct {
	StoreDir      string `yaml:"store_dir"`
	Suffix        string `yaml:"suffix"`
	Debounce      string `yaml:"debounce"`
	DebounceTick  string `yaml:"debounce_tick"`
	IntakeBuffer  int    `yaml:"intake_buffer"`
	TrackRemovals bool   `yaml:"track_removals"`
	Audit         struct {
		Enabled       bool   `yaml:"enabled"`
		OutputFile    string `yaml:"output_file"`
		MinLevel      string `yaml:"min_level"`
		BufferSize    int    `yaml:"buffer_size"`
		FlushInterval string `yaml:"flush_interval"`
		MaxFileSize   int64  `yaml:"max_file_size"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"audit"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- intentional config file loading
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(ErrCodeConfigNotFound, "configuration file '"+path+"' not found")
		}
		return nil, errors.Wrap(err, ErrCodeConfigNotFound, "cannot read configuration file '"+path+"'")
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to parse YAML config").
			WithContext("path", path)
	}

	config := &Config{
		StoreDir:      fc.StoreDir,
		Suffix:        fc.Suffix,
		IntakeBuffer:  fc.IntakeBuffer,
		TrackRemovals: fc.TrackRemovals,
	}
	if config.Debounce, err = parseOptionalDuration("debounce", fc.Debounce); err != nil {
		return nil, err
	}
	if config.DebounceTick, err = parseOptionalDuration("debounce_tick", fc.DebounceTick); err != nil {
		return nil, err
	}

	if fc.Audit.Enabled || fc.Audit.OutputFile != "" {
		config.Audit = DefaultAuditConfig()
		config.Audit.Enabled = fc.Audit.Enabled
		config.Audit.OutputFile = fc.Audit.OutputFile
		if fc.Audit.MinLevel != "" {
			level, err := parseAuditLevel(fc.Audit.MinLevel)
			if err != nil {
				return nil, err
			}
			config.Audit.MinLevel = level
		}
		if fc.Audit.BufferSize > 0 {
			config.Audit.BufferSize = fc.Audit.BufferSize
		}
		flush, err := parseOptionalDuration("audit.flush_interval", fc.Audit.FlushInterval)
		if err != nil {
			return nil, err
		}
		if flush > 0 {
			config.Audit.FlushInterval = flush
		}
		if fc.Audit.MaxFileSize > 0 {
			config.Audit.MaxFileSize = fc.Audit.MaxFileSize
		}
		if fc.Audit.RetentionDays > 0 {
			config.Audit.RetentionDays = fc.Audit.RetentionDays
		}
	}

	return config.WithDefaults(), nil
}

func parseOptionalDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrap(err, ErrCodeInvalidConfig, "invalid duration for "+key).
			WithContext("value", value)
	}
	return d, nil
}

// loadEnvVars loads environment variables into the EnvConfig struct
func loadEnvVars(envConfig *EnvConfig) error {
	if err := loadCoreConfig(envConfig); err != nil {
		return err
	}
	return loadAuditConfig(envConfig)
}

// loadCoreConfig loads core configuration from environment variables
func loadCoreConfig(envConfig *EnvConfig) error {
	envConfig.StoreDir = os.Getenv("ARCANUM_STORE_DIR")
	envConfig.Suffix = os.Getenv("ARCANUM_SUFFIX")

	if debounceStr := os.Getenv("ARCANUM_DEBOUNCE"); debounceStr != "" {
		if duration, err := time.ParseDuration(debounceStr); err == nil {
			envConfig.Debounce = duration
		} else {
			return errors.New(ErrCodeInvalidConfig, "invalid ARCANUM_DEBOUNCE format")
		}
	}

	if tickStr := os.Getenv("ARCANUM_DEBOUNCE_TICK"); tickStr != "" {
		if duration, err := time.ParseDuration(tickStr); err == nil {
			envConfig.DebounceTick = duration
		} else {
			return errors.New(ErrCodeInvalidConfig, "invalid ARCANUM_DEBOUNCE_TICK format")
		}
	}

	if bufStr := os.Getenv("ARCANUM_INTAKE_BUFFER"); bufStr != "" {
		if buf, err := strconv.Atoi(bufStr); err == nil && buf > 0 {
			envConfig.IntakeBuffer = buf
		} else {
			return errors.New(ErrCodeInvalidConfig, "invalid ARCANUM_INTAKE_BUFFER value")
		}
	}

	if trackStr := os.Getenv("ARCANUM_TRACK_REMOVALS"); trackStr != "" {
		envConfig.TrackRemovals = parseBool(trackStr)
	}
	return nil
}

// loadAuditConfig loads audit configuration from environment variables
func loadAuditConfig(envConfig *EnvConfig) error {
	if auditStr := os.Getenv("ARCANUM_AUDIT_ENABLED"); auditStr != "" {
		envConfig.AuditEnabled = parseBool(auditStr)
	}

	envConfig.AuditOutputFile = os.Getenv("ARCANUM_AUDIT_OUTPUT_FILE")
	envConfig.AuditMinLevel = os.Getenv("ARCANUM_AUDIT_MIN_LEVEL")

	if bufferStr := os.Getenv("ARCANUM_AUDIT_BUFFER_SIZE"); bufferStr != "" {
		if buffer, err := strconv.Atoi(bufferStr); err == nil && buffer > 0 {
			envConfig.AuditBufferSize = buffer
		}
	}

	if flushStr := os.Getenv("ARCANUM_AUDIT_FLUSH_INTERVAL"); flushStr != "" {
		if duration, err := time.ParseDuration(flushStr); err == nil {
			envConfig.AuditFlushInterval = duration
		}
	}

	if sizeStr := os.Getenv("ARCANUM_AUDIT_MAX_FILE_SIZE"); sizeStr != "" {
		if size, err := strconv.ParseInt(sizeStr, 10, 64); err == nil && size > 0 {
			envConfig.AuditMaxFileSize = size
		}
	}
	return nil
}

// convertEnvToConfig converts EnvConfig to standard Config
func convertEnvToConfig(envConfig *EnvConfig, config *Config) error {
	config.StoreDir = envConfig.StoreDir
	config.Suffix = envConfig.Suffix
	config.Debounce = envConfig.Debounce
	config.DebounceTick = envConfig.DebounceTick
	config.IntakeBuffer = envConfig.IntakeBuffer
	config.TrackRemovals = envConfig.TrackRemovals
	return convertAuditConfig(envConfig, config)
}

// convertAuditConfig converts audit configuration from EnvConfig to Config
func convertAuditConfig(envConfig *EnvConfig, config *Config) error {
	if !envConfig.AuditEnabled && envConfig.AuditOutputFile == "" {
		return nil
	}

	config.Audit = DefaultAuditConfig()
	config.Audit.Enabled = envConfig.AuditEnabled

	if envConfig.AuditOutputFile != "" {
		config.Audit.OutputFile = envConfig.AuditOutputFile
	}

	if envConfig.AuditMinLevel != "" {
		level, err := parseAuditLevel(envConfig.AuditMinLevel)
		if err != nil {
			return err
		}
		config.Audit.MinLevel = level
	}

	if envConfig.AuditBufferSize > 0 {
		config.Audit.BufferSize = envConfig.AuditBufferSize
	}

	if envConfig.AuditFlushInterval > 0 {
		config.Audit.FlushInterval = envConfig.AuditFlushInterval
	}

	if envConfig.AuditMaxFileSize > 0 {
		config.Audit.MaxFileSize = envConfig.AuditMaxFileSize
	}
	return nil
}

// parseAuditLevel parses audit level string to AuditLevel type
func parseAuditLevel(levelStr string) (AuditLevel, error) {
	switch strings.ToLower(levelStr) {
	case "info":
		return AuditInfo, nil
	case "warn", "warning":
		return AuditWarn, nil
	case "critical", "error":
		return AuditCritical, nil
	case "security":
		return AuditSecurity, nil
	default:
		return AuditInfo, errors.New(ErrCodeInvalidConfig, "invalid audit level")
	}
}

// mergeConfigs merges non-zero environment values into base
func mergeConfigs(base, env *Config) {
	if env.StoreDir != "" {
		base.StoreDir = env.StoreDir
	}
	if env.Suffix != "" {
		base.Suffix = env.Suffix
	}
	if env.Debounce > 0 {
		base.Debounce = env.Debounce
		if base.DebounceTick > base.Debounce {
			base.DebounceTick = base.Debounce
		}
	}
	if env.DebounceTick > 0 {
		base.DebounceTick = env.DebounceTick
	}
	if env.IntakeBuffer > 0 {
		base.IntakeBuffer = env.IntakeBuffer
	}
	if env.TrackRemovals {
		base.TrackRemovals = true
	}

	if env.Audit.Enabled {
		base.Audit.Enabled = true
	}
	if env.Audit.OutputFile != "" {
		base.Audit.OutputFile = env.Audit.OutputFile
	}
	if env.Audit.MinLevel != AuditInfo {
		base.Audit.MinLevel = env.Audit.MinLevel
	}
	if env.Audit.BufferSize > 0 && env.Audit.BufferSize != DefaultAuditConfig().BufferSize {
		base.Audit.BufferSize = env.Audit.BufferSize
	}
	if env.Audit.FlushInterval > 0 && env.Audit.FlushInterval != DefaultAuditConfig().FlushInterval {
		base.Audit.FlushInterval = env.Audit.FlushInterval
	}
	if env.Audit.MaxFileSize > 0 && env.Audit.MaxFileSize != DefaultAuditConfig().MaxFileSize {
		base.Audit.MaxFileSize = env.Audit.MaxFileSize
	}
}

// parseBool parses boolean values from environment variables
// Supports: true/false, 1/0, yes/no, on/off, enabled/disabled
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}

// GetEnvWithDefault returns environment variable value or default if not set
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDurationWithDefault returns environment variable as duration or default
func GetEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
