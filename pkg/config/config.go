// Package config provides configuration management and settings for secpatch
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/logger"
	"github.com/fumiya-kume/secpatch/pkg/pipeline"
)

// Log level constants
const (
	logLevelDebug = "debug"
)

// ValidationLevel represents the level of configuration validation
type ValidationLevel int

const (
	ValidationLevelBasic ValidationLevel = iota
	ValidationLevelStrict
)

// ConfigValidator validates configuration
type ConfigValidator struct {
	level ValidationLevel
}

// ConfigValidationResult contains validation results
type ConfigValidationResult struct {
	Errors   []error
	Warnings []string
}

// HasErrors returns true if there are validation errors
func (cvr *ConfigValidationResult) HasErrors() bool {
	return len(cvr.Errors) > 0
}

// NewConfigValidator creates a new config validator
func NewConfigValidator(level ValidationLevel) *ConfigValidator {
	return &ConfigValidator{level: level}
}

// ValidateConfig validates a configuration, collecting every problem rather
// than stopping at the first
func (cv *ConfigValidator) ValidateConfig(config *Config) *ConfigValidationResult {
	result := &ConfigValidationResult{
		Errors:   []error{},
		Warnings: []string{},
	}

	if config == nil {
		result.Errors = append(result.Errors, fmt.Errorf("config cannot be nil"))
		return result
	}

	cv.validateVersion(config, result)
	cv.validatePatchConfig(config, result)
	cv.validateUIConfig(config, result)
	cv.validateStrictLevel(config, result)

	return result
}

func (cv *ConfigValidator) validateVersion(config *Config, result *ConfigValidationResult) {
	if config.Version == "" {
		result.Errors = append(result.Errors, fmt.Errorf("version cannot be empty"))
		return
	}
	if config.Version != "1.0" {
		result.Errors = append(result.Errors, fmt.Errorf("invalid version format: %s", config.Version))
	}
}

func (cv *ConfigValidator) validatePatchConfig(config *Config, result *ConfigValidationResult) {
	if _, err := types.ParseFamilies(config.Patch.Families); err != nil {
		result.Errors = append(result.Errors, err)
	}
	if _, err := pipeline.ParseToolPolicy(config.Patch.UnregisteredToolPolicy); err != nil {
		result.Errors = append(result.Errors, err)
	}
	if config.Patch.Workers < 1 {
		result.Errors = append(result.Errors, fmt.Errorf("patch.workers must be at least 1"))
	}
}

func (cv *ConfigValidator) validateUIConfig(config *Config, result *ConfigValidationResult) {
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[config.UI.Theme] {
		result.Errors = append(result.Errors, fmt.Errorf("invalid theme: %s", config.UI.Theme))
	}
}

func (cv *ConfigValidator) validateStrictLevel(config *Config, result *ConfigValidationResult) {
	if cv.level < ValidationLevelStrict {
		return
	}

	families, err := types.ParseFamilies(config.Patch.Families)
	if err == nil && !config.Patch.TransportRequireSignal {
		for _, f := range families {
			if f == types.FamilyTransport {
				result.Warnings = append(result.Warnings,
					"transport family prepends its preamble to every fragment; set patch.transport_require_signal to limit it")
				break
			}
		}
	}
	if config.Server.Cache.Enabled && config.Server.Cache.RedisAddr == "" {
		result.Warnings = append(result.Warnings, "server cache enabled without a redis address")
	}
}

// Config represents the application configuration
type Config struct {
	Version string `yaml:"version"`

	Dataset DatasetConfig `yaml:"dataset"`
	Patch   PatchConfig   `yaml:"patch"`
	Server  ServerConfig  `yaml:"server"`
	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`
}

// DatasetConfig describes the tabular input and output
type DatasetConfig struct {
	InputColumn  string `yaml:"input_column"`
	OutputColumn string `yaml:"output_column"`
	OutputSuffix string `yaml:"output_suffix"`
}

// PatchConfig holds pipeline settings
type PatchConfig struct {
	Families               []string `yaml:"families"`
	Workers                int      `yaml:"workers"`
	TransportRequireSignal bool     `yaml:"transport_require_signal"`
	UnregisteredToolPolicy string   `yaml:"unregistered_tool_policy"`
	MaxInputLength         int      `yaml:"max_input_length"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Address string      `yaml:"address"`
	Metrics bool        `yaml:"metrics"`
	Cache   CacheConfig `yaml:"cache"`
}

// CacheConfig holds the patch result cache settings
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
	Prefix    string        `yaml:"prefix"`
}

// UIConfig holds user interface settings
type UIConfig struct {
	Theme    string `yaml:"theme"`
	Progress bool   `yaml:"progress"`
	Notify   bool   `yaml:"notify"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",

		Dataset: DatasetConfig{
			InputColumn:  "Code Snippet",
			OutputColumn: "code_fix",
			OutputSuffix: "_fixes",
		},

		Patch: PatchConfig{
			Families:               []string{"input", "process", "transport"},
			Workers:                4,
			TransportRequireSignal: false,
			UnregisteredToolPolicy: string(pipeline.PolicyPassthrough),
			MaxInputLength:         1000,
		},

		Server: ServerConfig{
			Address: ":8080",
			Metrics: true,
			Cache: CacheConfig{
				Enabled: false,
				TTL:     24 * time.Hour,
				Prefix:  "secpatch:",
			},
		},

		UI: UIConfig{
			Theme:    "dark",
			Progress: true,
			Notify:   false,
		},

		Logging: LoggingConfig{
			Level:  "info",
			File:   "",
			Format: "text",
		},
	}
}

// GetConfigPaths returns the list of configuration file paths to check
func GetConfigPaths() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Use current directory as fallback if home directory cannot be determined
		homeDir = "."
	}

	paths := []string{
		".secpatch.yaml",
		".secpatch.yml",
		filepath.Join(homeDir, ".secpatch.yaml"),
		filepath.Join(homeDir, ".config", "secpatch", "config.yaml"),
	}

	if envPath := os.Getenv("SECPATCH_CONFIG"); envPath != "" {
		paths = append([]string{envPath}, paths...)
	}

	return paths
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := types.ParseFamilies(c.Patch.Families); err != nil {
		return fmt.Errorf("patch.families: %w", err)
	}
	if c.Patch.Workers < 1 {
		return fmt.Errorf("patch.workers must be at least 1")
	}
	if _, err := pipeline.ParseToolPolicy(c.Patch.UnregisteredToolPolicy); err != nil {
		return fmt.Errorf("patch.unregistered_tool_policy must be 'passthrough' or 'error'")
	}
	if c.Patch.MaxInputLength < 0 {
		return fmt.Errorf("patch.max_input_length cannot be negative")
	}

	if c.Dataset.InputColumn == "" {
		return fmt.Errorf("dataset.input_column cannot be empty")
	}
	if c.Dataset.OutputColumn == "" {
		return fmt.Errorf("dataset.output_column cannot be empty")
	}

	if c.Server.Address == "" {
		return fmt.Errorf("server.address cannot be empty")
	}
	if c.Server.Cache.Enabled && c.Server.Cache.TTL < time.Second {
		return fmt.Errorf("server.cache.ttl must be at least 1 second")
	}

	validLevels := map[string]bool{
		logLevelDebug: true,
		"info":        true,
		"warn":        true,
		"error":       true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}

	return nil
}

// ApplyEnvironmentOverrides applies environment variable overrides to the configuration
func (c *Config) ApplyEnvironmentOverrides() {
	if level := os.Getenv("SECPATCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("SECPATCH_LOG_FILE"); file != "" {
		c.Logging.File = file
	}

	if workers := os.Getenv("SECPATCH_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			c.Patch.Workers = n
		}
	}

	if addr := os.Getenv("SECPATCH_REDIS_ADDR"); addr != "" {
		c.Server.Cache.RedisAddr = addr
		c.Server.Cache.Enabled = true
	}

	// Debug mode override
	if os.Getenv("SECPATCH_DEBUG") == "true" {
		c.Logging.Level = logLevelDebug
	}
}

// ToLoggerConfig converts the logging configuration to logger.Config
func (c *Config) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:     logger.ParseLevel(c.Logging.Level),
		LogFile:   c.Logging.File,
		Debug:     c.Logging.Level == logLevelDebug,
		Timestamp: true,
		Prefix:    "secpatch",
		Format:    c.Logging.Format,
	}
}

// ToPipelineOptions converts the patch configuration to pipeline options
func (c *Config) ToPipelineOptions(log *logger.Logger) (pipeline.Options, error) {
	families, err := types.ParseFamilies(c.Patch.Families)
	if err != nil {
		return pipeline.Options{}, err
	}
	policy, err := pipeline.ParseToolPolicy(c.Patch.UnregisteredToolPolicy)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Families:               families,
		UnregisteredToolPolicy: policy,
		TransportRequireSignal: c.Patch.TransportRequireSignal,
		MaxInputLength:         c.Patch.MaxInputLength,
		Logger:                 log,
	}, nil
}

// OutputPath derives the default output dataset path from the input path,
// e.g. data/LOIS.csv becomes data/LOIS_fixes.csv
func (c *Config) OutputPath(input string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		ext = ".csv"
	}
	base := input[:len(input)-len(filepath.Ext(input))]
	return base + c.Dataset.OutputSuffix + ext
}
