package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/secpatch/pkg/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display version, build date, and system information for secpatch.",
	Run: func(cmd *cobra.Command, args []string) {
		showDetailed, err := cmd.Flags().GetBool("detailed")
		if err != nil {
			showDetailed = false
		}
		showShort, err := cmd.Flags().GetBool("short")
		if err != nil {
			showShort = false
		}

		info := version.GetInfo()
		out := cmd.OutOrStdout()
		switch {
		case showShort:
			fmt.Fprintf(out, "%s\n", info.Version)
		case showDetailed:
			fmt.Fprintf(out, "%s version %s\n", info.AppName, info.Version)
			fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "Git commit: %s\n", info.GitCommit)
			fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
			fmt.Fprintf(out, "OS/Arch: %s\n", info.Platform)
		default:
			fmt.Fprintf(out, "%s version %s\n", info.AppName, info.Version)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("detailed", "d", false, "show detailed version information")
	versionCmd.Flags().BoolP("short", "s", false, "show only version number")
}
