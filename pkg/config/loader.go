package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fumiya-kume/secpatch/pkg/errors"
)

// Loader handles configuration loading and saving
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	envFile := os.Getenv("SECPATCH_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	return &Loader{
		configPath: configPath,
		envFile:    envFile,
	}
}

// WithEnvFile sets the dotenv file read before environment overrides apply
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// LoadConfig loads configuration from file or returns default config
func (l *Loader) LoadConfig() (*Config, error) {
	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}

	config := DefaultConfig()

	if l.configPath == "" {
		configPath, err := l.findConfigFile()
		if err != nil {
			// No config file found, use defaults with environment overrides
			config.ApplyEnvironmentOverrides()
			return config, config.Validate()
		}
		l.configPath = configPath
	}

	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		config.ApplyEnvironmentOverrides()
		return config, config.Validate()
	}

	// #nosec G304 - config path is chosen by the user
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, errors.FileSystemError("read", l.configPath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.NewError(errors.ErrorTypeConfiguration).
			WithMessagef("failed to parse config file %s", l.configPath).
			WithCause(err).
			WithSeverity(errors.SeverityHigh).
			WithSuggestion("Run 'secpatch config init' to write a fresh configuration").
			Build()
	}

	config.ApplyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(fmt.Sprintf("invalid configuration: %v", err))
	}

	return config, nil
}

// loadEnvFile reads KEY=VALUE pairs into the process environment. Variables
// already set are left alone and a missing file is not an error.
func (l *Loader) loadEnvFile() error {
	if l.envFile == "" {
		return nil
	}
	if _, err := os.Stat(l.envFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(l.envFile); err != nil {
		return errors.NewError(errors.ErrorTypeConfiguration).
			WithMessagef("failed to load env file %s", l.envFile).
			WithCause(err).
			Build()
	}
	return nil
}

// SaveConfig saves the configuration to file
func (l *Loader) SaveConfig(config *Config) error {
	if l.configPath == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		l.configPath = path
	}

	configDir := filepath.Dir(l.configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.FileSystemError("mkdir", configDir, err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(l.configPath, data, 0600); err != nil {
		return errors.FileSystemError("write", l.configPath, err)
	}

	return nil
}

// GetConfigPath returns the current config file path
func (l *Loader) GetConfigPath() string {
	return l.configPath
}

func (l *Loader) findConfigFile() (string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found")
}

// DefaultConfigPath is where 'config init' writes when no path is given
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "secpatch", "config.yaml"), nil
}

// CreateDefaultConfig creates a default configuration file
func CreateDefaultConfig(path string) error {
	return NewLoader(path).SaveConfig(DefaultConfig())
}
