package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/batch"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/config"
	"github.com/fumiya-kume/secpatch/pkg/logger"
	"github.com/fumiya-kume/secpatch/pkg/pipeline"
	"github.com/fumiya-kume/secpatch/pkg/ui"
)

// patchCmd represents the patch command
var patchCmd = &cobra.Command{
	Use:   "patch <dataset.csv>",
	Short: "Patch every code fragment in a CSV dataset",
	Long: `Patch every code fragment in a CSV dataset.

The fragment column (default "Code Snippet") is read from every row, patched
and written to the output column (default "code_fix") of a copy of the
dataset. Rows that fail are copied through unchanged and counted.

Examples:
  secpatch patch data/LOIS.csv
  secpatch patch data/LOIS.csv -o out.csv --families process,input
  secpatch patch data/LOIS.csv --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runPatchCmd,
}

func init() {
	rootCmd.AddCommand(patchCmd)

	patchCmd.Flags().StringP("output", "o", "", "output dataset (default is <input><suffix>.csv)")
	patchCmd.Flags().String("column", "", "input column holding the fragments")
	patchCmd.Flags().String("output-column", "", "column the patched fragments are written to")
	patchCmd.Flags().StringSlice("families", nil, "remediation families to run (process, transport, input, all)")
	patchCmd.Flags().IntP("workers", "w", 0, "number of fragments patched in parallel")
	patchCmd.Flags().Bool("watch", false, "re-run whenever the input dataset changes")
	patchCmd.Flags().Bool("no-progress", false, "disable the progress view")
	patchCmd.Flags().Bool("notify", false, "beep and post a desktop notification when a run finishes")
}

func runPatchCmd(cmd *cobra.Command, args []string) error {
	cfg := *currentConfig()
	if err := applyPatchFlags(cmd, &cfg); err != nil {
		return err
	}

	input := args[0]
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if output == "" {
		output = cfg.OutputPath(input)
	}

	log := logger.GetGlobalLogger()
	p, err := newPipeline(&cfg, log)
	if err != nil {
		return err
	}

	runner := batch.NewRunner(p, batch.Options{
		Workers:      cfg.Patch.Workers,
		InputColumn:  cfg.Dataset.InputColumn,
		OutputColumn: cfg.Dataset.OutputColumn,
		Logger:       log,
	})

	notifier := ui.NewNotifier(ui.DefaultNotifyConfig())
	notifier.SetEnabled(cfg.UI.Notify)
	defer notifier.Wait()

	theme := ui.ThemeFor(cfg.UI.Theme)
	out := cmd.OutOrStdout()

	run := func(ctx context.Context) error {
		report, err := patchDataset(ctx, runner, &cfg, input, output)
		notifier.RunFinished(report, err)
		if err != nil {
			return err
		}
		printReport(out, theme, report, output)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		return err
	}

	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	if !watch {
		return nil
	}

	fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", input)
	return batch.Watch(ctx, input, run, log)
}

// applyPatchFlags lets command line flags override the loaded configuration
func applyPatchFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("column") {
		cfg.Dataset.InputColumn, _ = flags.GetString("column")
	}
	if flags.Changed("output-column") {
		cfg.Dataset.OutputColumn, _ = flags.GetString("output-column")
	}
	if flags.Changed("families") {
		cfg.Patch.Families, _ = flags.GetStringSlice("families")
	}
	if flags.Changed("workers") {
		cfg.Patch.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("no-progress") {
		noProgress, _ := flags.GetBool("no-progress")
		cfg.UI.Progress = !noProgress
	}
	if flags.Changed("notify") {
		cfg.UI.Notify, _ = flags.GetBool("notify")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// newPipeline builds the pipeline described by cfg over the built-in catalog
func newPipeline(cfg *config.Config, log *logger.Logger) (*pipeline.Pipeline, error) {
	opts, err := cfg.ToPipelineOptions(log)
	if err != nil {
		return nil, err
	}
	return pipeline.New(catalog.Default(), opts)
}

// patchDataset runs one batch, behind the progress view when it is enabled
func patchDataset(ctx context.Context, runner *batch.Runner, cfg *config.Config, input, output string) (*types.Report, error) {
	if !cfg.UI.Progress {
		return runner.RunDataset(ctx, input, output)
	}

	work := func(ctx context.Context, progress func(done, total int)) (*types.Report, error) {
		runner.SetProgress(progress)
		defer runner.SetProgress(nil)
		return runner.RunDataset(ctx, input, output)
	}
	return ui.RunWithProgress(ctx, ui.ThemeFor(cfg.UI.Theme), 0, work)
}

func printReport(w io.Writer, theme ui.Theme, report *types.Report, output string) {
	fmt.Fprintln(w, ui.RenderSummary(theme, report))
	fmt.Fprintln(w, ui.FormatStats(report))
	fmt.Fprintf(w, "Output written to %s\n", output)
}
