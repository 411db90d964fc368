package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/secpatch/pkg/config"
	"github.com/fumiya-kume/secpatch/pkg/errors"
	"github.com/fumiya-kume/secpatch/pkg/logger"
	"github.com/fumiya-kume/secpatch/pkg/version"
)

var (
	cfgFile string
	verbose bool
	debug   bool

	// appConfig is loaded once in initConfig and shared by every subcommand
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "secpatch",
	Short: "Detect and patch vulnerable sites in Java code fragments",
	Long: `secpatch finds vulnerable sites in Java code fragments and rewrites them.

Three remediation families run in a fixed order:
- process:   external-process invocations are routed through a hardened executor
- transport: plain sockets are replaced with certificate-verified channels
- input:     externally supplied parameters are checked against a whitelist

Fragments come from a CSV dataset (patch), a single file or stdin (scan),
the HEAD commit of a git repository (repo) or the HTTP API (serve).`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		for _, suggestion := range errors.GetSuggestions(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", suggestion)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.secpatch.yaml or ~/.config/secpatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "log file path")
	rootCmd.PersistentFlags().String("theme", "", "UI theme (dark, light, auto)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.NewLoader(cfgFile).LoadConfig()
	if err != nil {
		if debug {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		}
		cfg = config.DefaultConfig()
	}

	if debug {
		cfg.Logging.Level = "debug"
	}

	if logLevel, _ := rootCmd.PersistentFlags().GetString("log-level"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile, _ := rootCmd.PersistentFlags().GetString("log-file"); logFile != "" {
		cfg.Logging.File = logFile
	}
	if theme, _ := rootCmd.PersistentFlags().GetString("theme"); theme != "" {
		cfg.UI.Theme = theme
	}

	globalLogger, err := logger.New(cfg.ToLoggerConfig())
	if err != nil {
		if debug {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logger: %v\n", err)
		}
		globalLogger = logger.NewDefault()
	}
	logger.SetGlobalLogger(globalLogger)

	appConfig = cfg
}

// currentConfig returns the loaded configuration, or the defaults when
// initConfig has not run
func currentConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}
