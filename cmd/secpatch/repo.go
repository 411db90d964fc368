package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/logger"
	"github.com/fumiya-kume/secpatch/pkg/source"
	"github.com/fumiya-kume/secpatch/pkg/ui"
)

// repoCmd represents the repo command
var repoCmd = &cobra.Command{
	Use:   "repo [path]",
	Short: "List the vulnerable sites in a git repository",
	Long: `List the vulnerable sites in the files committed at HEAD of a git repository.

Only files with a matching extension (default .java) are scanned; binary
files and files above --max-size are skipped. Uncommitted changes are not
included.

Examples:
  secpatch repo
  secpatch repo ../service --ext .java,.jsp --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepoCmd,
}

// repoFindings is the JSON shape of one scanned file
type repoFindings struct {
	Path     string          `json:"path"`
	Findings []types.Finding `json:"findings"`
}

func init() {
	rootCmd.AddCommand(repoCmd)

	repoCmd.Flags().StringSlice("ext", []string{".java"}, "file extensions to scan")
	repoCmd.Flags().Int64("max-size", source.DefaultMaxFileSize, "skip files larger than this many bytes")
	repoCmd.Flags().StringSlice("families", nil, "remediation families to run (process, transport, input, all)")
	repoCmd.Flags().Bool("json", false, "print findings as JSON")
}

func runRepoCmd(cmd *cobra.Command, args []string) error {
	cfg := *currentConfig()
	if cmd.Flags().Changed("families") {
		cfg.Patch.Families, _ = cmd.Flags().GetStringSlice("families")
	}

	path := "."
	if len(args) == 1 {
		path = args[0]
	}

	opts := source.DefaultOptions()
	opts.Extensions, _ = cmd.Flags().GetStringSlice("ext")
	opts.MaxFileSize, _ = cmd.Flags().GetInt64("max-size")

	repo, err := source.Open(path)
	if err != nil {
		return err
	}
	files, err := repo.Files(opts)
	if err != nil {
		return err
	}

	log := logger.GetGlobalLogger().WithPrefix("repo")
	p, err := newPipeline(&cfg, log)
	if err != nil {
		return err
	}

	var (
		results []repoFindings
		total   int
	)
	for _, f := range files {
		findings, err := p.Findings(f.Content)
		if err != nil {
			log.Warn("skipping %s: %v", f.Path, err)
			continue
		}
		if len(findings) == 0 && !verbose {
			continue
		}
		total += len(findings)
		results = append(results, repoFindings{Path: f.Path, Findings: findings})
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if results == nil {
			results = []repoFindings{}
		}
		return writeJSON(out, results)
	}

	theme := ui.ThemeFor(cfg.UI.Theme)
	for _, r := range results {
		fmt.Fprintln(out, ui.RenderFindings(theme, r.Path, r.Findings))
	}
	fmt.Fprintf(out, "%d findings in %d of %d scanned files\n", total, countWithFindings(results), len(files))
	return nil
}

func countWithFindings(results []repoFindings) int {
	n := 0
	for _, r := range results {
		if len(r.Findings) > 0 {
			n++
		}
	}
	return n
}
