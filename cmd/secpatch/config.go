package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fumiya-kume/secpatch/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage secpatch configuration",
	Long: `Manage secpatch configuration settings.

Configuration files are searched in the following order:
  1. $SECPATCH_CONFIG (if set)
  2. ./.secpatch.yaml or ./.secpatch.yml
  3. ~/.secpatch.yaml
  4. ~/.config/secpatch/config.yaml

Variables from ./.env (or $SECPATCH_ENV_FILE) are loaded before the
SECPATCH_* environment overrides are applied.`,
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration settings, including defaults and overrides.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader(cfgFile).LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// configValidateCmd validates the configuration
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration file for syntax and semantic errors.

With --strict, settings that are valid but probably unintended are reported
as warnings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader(cfgFile).LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		level := config.ValidationLevelBasic
		if strict, _ := cmd.Flags().GetBool("strict"); strict {
			level = config.ValidationLevelStrict
		}
		result := config.NewConfigValidator(level).ValidateConfig(cfg)

		out := cmd.OutOrStdout()
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if result.HasErrors() {
			for _, e := range result.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			return fmt.Errorf("configuration validation failed with %d errors", len(result.Errors))
		}

		fmt.Fprintln(out, "Configuration is valid ✓")
		return nil
	},
}

// configInitCmd initializes a new configuration file
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a new configuration file",
	Long: `Initialize a new configuration file with default settings.

If no path is provided, creates config in ~/.config/secpatch/config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var configPath string
		if len(args) > 0 {
			configPath = args[0]
		} else {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			configPath = path
		}

		if _, err := os.Stat(configPath); err == nil {
			overwrite, err := cmd.Flags().GetBool("force")
			if err != nil {
				return fmt.Errorf("failed to get force flag: %w", err)
			}
			if !overwrite {
				return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
			}
		}

		if err := config.CreateDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to create configuration file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", configPath)
		return nil
	},
}

// configPathCmd shows the path to the configuration file
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  "Display the path to the configuration file that would be used.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfgFile != "" {
			fmt.Fprintln(out, cfgFile)
			return nil
		}

		for _, path := range config.GetConfigPaths() {
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, path)
				return nil
			}
		}

		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (would be created)\n", defaultPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolP("force", "f", false, "overwrite existing configuration file")
	configValidateCmd.Flags().Bool("strict", false, "also report warnings for questionable settings")
}
