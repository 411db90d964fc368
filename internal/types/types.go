// Package types provides the value types shared by the patching pipeline, the
// batch runner, and the outer surfaces (CLI, HTTP server).
package types

import (
	"fmt"
	"strings"
	"time"
)

// Fragment is one unit of scanned source text, one dataset row
type Fragment struct {
	Row  int
	Text string
}

// Family names one of the three remediation families
type Family string

const (
	// FamilyProcess hardens external-process invocations
	FamilyProcess Family = "process"
	// FamilyTransport adds certificate-verified channels around socket use
	FamilyTransport Family = "transport"
	// FamilyInput whitelists externally supplied input
	FamilyInput Family = "input"
)

// AllFamilies returns every family in the order they are chained. Input
// whitelisting comes first so it only reads the caller's code, never the
// classes and preambles the other two prepend.
func AllFamilies() []Family {
	return []Family{FamilyInput, FamilyProcess, FamilyTransport}
}

// ParseFamily accepts a family name or one of its historical aliases
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "process", "osr":
		return FamilyProcess, nil
	case "transport", "tcvr":
		return FamilyTransport, nil
	case "input", "wvr":
		return FamilyInput, nil
	default:
		return "", fmt.Errorf("unknown remediation family: %q", s)
	}
}

// ParseFamilies expands a list of names; "all" selects every family
func ParseFamilies(names []string) ([]Family, error) {
	var families []Family
	seen := make(map[Family]bool)
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			return AllFamilies(), nil
		}
		family, err := ParseFamily(name)
		if err != nil {
			return nil, err
		}
		if !seen[family] {
			seen[family] = true
			families = append(families, family)
		}
	}
	return families, nil
}

// OutcomeStatus is the observable result of handling one site
type OutcomeStatus string

const (
	// OutcomeApplied means a remediation block was rendered and spliced in
	OutcomeApplied OutcomeStatus = "applied"
	// OutcomeNoRemediation means the sub-kind is known but has no generator
	OutcomeNoRemediation OutcomeStatus = "no-remediation"
	// OutcomeUnrecognized means the sub-kind is outside the catalog
	OutcomeUnrecognized OutcomeStatus = "unrecognized"
	// OutcomeNotApplicable means the site was detected but nothing could be spliced
	OutcomeNotApplicable OutcomeStatus = "not-applicable"
)

// Outcome records what happened to one detected site
type Outcome struct {
	Family     Family        `json:"family"`
	Category   string        `json:"category"`
	SubKind    string        `json:"sub_kind,omitempty"`
	Identifier string        `json:"identifier,omitempty"`
	Status     OutcomeStatus `json:"status"`
	Detail     string        `json:"detail,omitempty"`
}

// PatchResult is the per-fragment output of the pipeline
type PatchResult struct {
	Original    string    `json:"-"`
	Patched     string    `json:"patched"`
	Modified    bool      `json:"modified"`
	Outcomes    []Outcome `json:"outcomes,omitempty"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
	Err         error     `json:"-"`
}

// Unchanged returns a result that passes the fragment through
func Unchanged(fragment string) PatchResult {
	return PatchResult{Original: fragment, Patched: fragment}
}

// Failed reports whether the fragment boundary caught an error
func (r PatchResult) Failed() bool {
	return r.Err != nil
}

// Applied counts outcomes with status applied
func (r PatchResult) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == OutcomeApplied {
			n++
		}
	}
	return n
}

// Finding is one located vulnerability site with its suggested fix, shaped for
// the code-review UI
type Finding struct {
	ID                string `json:"id"`
	Family            Family `json:"family"`
	Category          string `json:"category"`
	LineNumber        int    `json:"line_number"`
	CWEID             string `json:"cwe_id"`
	Description       string `json:"description"`
	VulnerableCode    string `json:"vulnerable_code"`
	FixVulnerableCode string `json:"fix_vulnerable_code"`
}

// Report aggregates one batch run
type Report struct {
	RunID    string        `json:"run_id"`
	Families []Family      `json:"families"`
	Rows     int           `json:"rows"`
	Modified int           `json:"modified"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
	Results  []PatchResult `json:"-"`
}

// Coverage is the percentage of rows whose patched text differs from the input
func (r *Report) Coverage() float64 {
	if r.Rows == 0 {
		return 0
	}
	return float64(r.Modified) / float64(r.Rows) * 100
}

// Patched returns the patched text column in row order
func (r *Report) Patched() []string {
	out := make([]string, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Patched
	}
	return out
}
