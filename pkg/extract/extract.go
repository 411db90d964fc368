// Package extract runs catalog detectors over one fragment and reports the
// vulnerability sites they find. A detector that fails (returns an error or
// panics) is suppressed on its own; the remaining detectors still run and
// the failure is handed back to the caller as a pattern error.
package extract

import (
	"fmt"
	"strings"

	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/errors"
)

// Site is one located construct matching a detector
type Site struct {
	Category    catalog.Category
	SubKind     string
	Detector    string
	Identifiers []string
	Start       int
	End         int
	Text        string
}

// Line returns the 1-based line the site starts on within fragment
func (s Site) Line(fragment string) int {
	return LineOf(fragment, s.Start)
}

// LineOf converts a byte offset into a 1-based line number
func LineOf(fragment string, offset int) int {
	if offset > len(fragment) {
		offset = len(fragment)
	}
	if offset < 0 {
		offset = 0
	}
	return strings.Count(fragment[:offset], "\n") + 1
}

// run invokes one detector and converts a panic inside its matcher into an error
func run(d catalog.Detector, fragment string) (matches []catalog.Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("matcher panicked: %v", r)
		}
	}()

	if d.Matcher == nil {
		return nil, fmt.Errorf("detector has no matcher")
	}
	return d.Matcher.Match(fragment)
}

func sitesFor(d catalog.Detector, fragment string, matches []catalog.Match) []Site {
	sites := make([]Site, 0, len(matches))
	for _, m := range matches {
		start, end := clampSpan(m.Start, m.End, len(fragment))
		sites = append(sites, Site{
			Category: d.Category,
			SubKind:  d.SubKind,
			Detector: d.Name,
			Start:    start,
			End:      end,
			Text:     fragment[start:end],
		})
	}
	return sites
}

func clampSpan(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return start, end
}

// ProcessSites finds process-executor invocations. Each site's SubKind is the
// tool enumeration name taken from the call argument, whether or not the
// catalog knows that tool.
func ProcessSites(cat *catalog.Catalog, fragment string) ([]Site, []error) {
	var (
		sites []Site
		diags []error
	)

	for _, d := range cat.ProcessDetectors() {
		matches, err := run(d, fragment)
		if err != nil {
			diags = append(diags, errors.PatternError(d.Name, err))
			continue
		}
		for i, site := range sitesFor(d, fragment, matches) {
			arg := ""
			if len(matches[i].Groups) > 0 {
				arg = matches[i].Groups[0]
			}
			site.SubKind = ToolName(arg)
			sites = append(sites, site)
		}
	}

	return sites, diags
}

// ToolName reduces an invocation argument such as
// "ProcessExecutor.Processes.LIBRE_OFFICE" to its final segment
func ToolName(arg string) string {
	arg = strings.TrimSpace(arg)
	if i := strings.LastIndex(arg, "."); i >= 0 {
		arg = arg[i+1:]
	}
	return strings.TrimSpace(arg)
}
