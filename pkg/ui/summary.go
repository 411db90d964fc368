package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fumiya-kume/secpatch/internal/types"
)

var titleCaser = cases.Title(language.English)

// DisplayName turns a family or category name into a title,
// e.g. "transport-channel" becomes "Transport Channel"
func DisplayName(name string) string {
	return titleCaser.String(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}

// FormatStats returns the plain batch statistics, one per line
func FormatStats(report *types.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total rows processed: %d\n", report.Rows)
	fmt.Fprintf(&b, "Rows with modifications: %d\n", report.Modified)
	fmt.Fprintf(&b, "Percentage of rows modified: %.2f%%\n", report.Coverage())
	fmt.Fprintf(&b, "Rows left unchanged after errors: %d\n", report.Failed)
	return b.String()
}

type outcomeTally struct {
	family types.Family
	status types.OutcomeStatus
	count  int
}

func tallyOutcomes(results []types.PatchResult) []outcomeTally {
	counts := make(map[[2]string]int)
	for _, res := range results {
		for _, o := range res.Outcomes {
			counts[[2]string{string(o.Family), string(o.Status)}]++
		}
	}

	tallies := make([]outcomeTally, 0, len(counts))
	for k, n := range counts {
		tallies = append(tallies, outcomeTally{family: types.Family(k[0]), status: types.OutcomeStatus(k[1]), count: n})
	}
	order := make(map[types.Family]int)
	for i, f := range types.AllFamilies() {
		order[f] = i
	}
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].family != tallies[j].family {
			return order[tallies[i].family] < order[tallies[j].family]
		}
		return tallies[i].status < tallies[j].status
	})
	return tallies
}

// RenderSummary renders the batch statistics and per-family outcome counts
func RenderSummary(theme Theme, report *types.Report) string {
	s := theme.Styles
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, s.Label.Render(label), s.Value.Render(value))
	}

	families := make([]string, len(report.Families))
	for i, f := range report.Families {
		families[i] = DisplayName(string(f))
	}

	coverage := fmt.Sprintf("%.2f%%", report.Coverage())
	failed := fmt.Sprintf("%d", report.Failed)
	if report.Failed > 0 {
		failed = s.StatusError.Render(failed)
	}

	lines := []string{
		s.Title.Render("secpatch batch summary"),
		row("Run", report.RunID),
		row("Families", strings.Join(families, ", ")),
		row("Rows processed", fmt.Sprintf("%d", report.Rows)),
		row("Rows modified", fmt.Sprintf("%d", report.Modified)),
		row("Coverage", coverage),
		row("Failed rows", failed),
		row("Duration", report.Duration.Round(time.Millisecond).String()),
	}

	if tallies := tallyOutcomes(report.Results); len(tallies) > 0 {
		lines = append(lines, "", s.Muted.Render("Outcomes"))
		for _, t := range tallies {
			status := theme.OutcomeStyle(t.status).Render(OutcomeIcon(t.status) + " " + string(t.status))
			lines = append(lines, fmt.Sprintf("  %s %s %d", s.Label.Render(DisplayName(string(t.family))), status, t.count))
		}
	}

	return s.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderFindings renders findings for one source, grouped under its name
func RenderFindings(theme Theme, source string, findings []types.Finding) string {
	s := theme.Styles
	if len(findings) == 0 {
		return s.Muted.Render(fmt.Sprintf("%s: no findings", source))
	}

	lines := []string{s.Value.Render(fmt.Sprintf("%s: %d findings", source, len(findings)))}
	for _, f := range findings {
		head := fmt.Sprintf("  L%-4d %s %s", f.LineNumber, s.StatusWarning.Render(f.CWEID), DisplayName(f.Category))
		lines = append(lines, head, "        "+s.Code.Render(f.VulnerableCode))
	}
	return strings.Join(lines, "\n")
}
