package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/errors"
	"github.com/fumiya-kume/secpatch/pkg/logger"
	"github.com/fumiya-kume/secpatch/pkg/ui"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "List the vulnerable sites in one fragment",
	Long: `List the vulnerable sites in one code fragment.

The fragment is read from the given file, or from stdin when no file or "-"
is given. With --patch the patched fragment is printed instead.

Examples:
  secpatch scan Converter.java
  cat Converter.java | secpatch scan --json
  secpatch scan Converter.java --patch --families transport`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSlice("families", nil, "remediation families to run (process, transport, input, all)")
	scanCmd.Flags().Bool("json", false, "print findings as JSON")
	scanCmd.Flags().Bool("patch", false, "print the patched fragment instead of findings")
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg := *currentConfig()
	if cmd.Flags().Changed("families") {
		cfg.Patch.Families, _ = cmd.Flags().GetStringSlice("families")
	}

	source := ""
	if len(args) == 1 && args[0] != "-" {
		source = args[0]
	}
	fragment, err := readFragment(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}

	p, err := newPipeline(&cfg, logger.GetGlobalLogger())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if patch, _ := cmd.Flags().GetBool("patch"); patch {
		res := p.Patch(fragment)
		if res.Err != nil {
			return res.Err
		}
		fmt.Fprint(out, res.Patched)
		if verbose {
			for _, o := range res.Outcomes {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %s %s%s\n", ui.OutcomeIcon(o.Status), o.Family, o.Category, o.SubKind, o.Identifier)
			}
		}
		return nil
	}

	findings, err := p.Findings(fragment)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if findings == nil {
			findings = []types.Finding{}
		}
		return writeJSON(out, findings)
	}
	if source == "" {
		source = "stdin"
	}
	fmt.Fprintln(out, ui.RenderFindings(ui.ThemeFor(cfg.UI.Theme), source, findings))
	return nil
}

// readFragment reads source, or stdin when source is empty
func readFragment(stdin io.Reader, source string) (string, error) {
	var (
		data []byte
		err  error
	)
	if source == "" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", errors.FileSystemError("read", source, err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
