// Package pipeline chains the remediation families over one fragment. Patch is
// the per-fragment boundary: whatever goes wrong inside a family, the caller
// gets the original text back together with a pipeline error.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/errors"
	"github.com/fumiya-kume/secpatch/pkg/logger"
)

// ToolPolicy decides what happens to a process tool without a generator
type ToolPolicy string

const (
	// PolicyPassthrough leaves the invocation unchanged
	PolicyPassthrough ToolPolicy = "passthrough"
	// PolicyError fails the fragment with a capability error
	PolicyError ToolPolicy = "error"
)

// ParseToolPolicy validates a configured policy name
func ParseToolPolicy(s string) (ToolPolicy, error) {
	switch ToolPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyPassthrough:
		return PolicyPassthrough, nil
	case PolicyError:
		return PolicyError, nil
	default:
		return "", fmt.Errorf("unknown unregistered tool policy: %q", s)
	}
}

// Step is what one family produced for one fragment
type Step struct {
	Text        string
	Outcomes    []types.Outcome
	Diagnostics []error
}

// Family is one remediation family. Apply returns an error only for failures
// that should abort the fragment; suppressed detector failures travel in
// Step.Diagnostics.
type Family interface {
	Name() types.Family
	Apply(text string) (Step, error)
}

// Options configures a pipeline
type Options struct {
	Families               []types.Family
	UnregisteredToolPolicy ToolPolicy
	TransportRequireSignal bool
	// MaxInputLength overrides the whitelist length threshold when positive
	MaxInputLength int
	Logger         *logger.Logger
}

// Pipeline patches fragments with a fixed, ordered set of families
type Pipeline struct {
	cat      *catalog.Catalog
	families []Family
	opts     Options
	log      *logger.Logger
}

// New builds a pipeline over cat. The configured families always chain in
// the order of types.AllFamilies, whatever order they were listed in. With
// no families configured, all three run.
func New(cat *catalog.Catalog, opts Options) (*Pipeline, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	if opts.UnregisteredToolPolicy == "" {
		opts.UnregisteredToolPolicy = PolicyPassthrough
	}
	if len(opts.Families) == 0 {
		opts.Families = types.AllFamilies()
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	enabled := make(map[types.Family]bool, len(opts.Families))
	for _, name := range opts.Families {
		switch name {
		case types.FamilyProcess, types.FamilyTransport, types.FamilyInput:
			enabled[name] = true
		default:
			return nil, errors.ValidationError(fmt.Sprintf("unknown remediation family %q", name))
		}
	}

	p := &Pipeline{cat: cat, opts: opts, log: log.WithPrefix("pipeline")}
	for _, name := range types.AllFamilies() {
		if !enabled[name] {
			continue
		}
		switch name {
		case types.FamilyInput:
			p.families = append(p.families, &InputWhitelisting{cat: cat, maxLength: opts.MaxInputLength})
		case types.FamilyProcess:
			p.families = append(p.families, &ProcessHardening{cat: cat, policy: opts.UnregisteredToolPolicy})
		case types.FamilyTransport:
			p.families = append(p.families, &TransportVerification{cat: cat, requireSignal: opts.TransportRequireSignal})
		}
	}

	return p, nil
}

// Families returns the enabled family names in chaining order
func (p *Pipeline) Families() []types.Family {
	names := make([]types.Family, 0, len(p.families))
	for _, f := range p.families {
		names = append(names, f.Name())
	}
	return names
}

// Catalog returns the catalog the pipeline was built over
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.cat
}

// Patch runs every family over fragment. It never panics: on any failure the
// result carries the original text and a pipeline error.
func (p *Pipeline) Patch(fragment string) (result types.PatchResult) {
	result = types.Unchanged(fragment)
	if strings.TrimSpace(fragment) == "" {
		return result
	}

	current := "pipeline"
	defer func() {
		if r := recover(); r != nil {
			result = failed(fragment, result, errors.PipelineError(current, fmt.Errorf("panic: %v", r)))
		}
	}()

	text := fragment
	for _, family := range p.families {
		current = string(family.Name())

		step, err := family.Apply(text)
		for _, d := range step.Diagnostics {
			result.Diagnostics = append(result.Diagnostics, d.Error())
		}
		p.logSuppressed(family.Name(), step.Diagnostics)
		if err != nil {
			return failed(fragment, result, errors.PipelineError(current, err))
		}

		result.Outcomes = append(result.Outcomes, step.Outcomes...)
		text = step.Text
	}

	result.Patched = text
	result.Modified = text != fragment
	return result
}

// PatchFragment is Patch with the row number attached to any log output
func (p *Pipeline) PatchFragment(f types.Fragment) types.PatchResult {
	res := p.Patch(f.Text)
	if res.Failed() {
		p.log.WithField("row", f.Row).Warn("fragment left unchanged: %v", res.Err)
	}
	return res
}

func (p *Pipeline) logSuppressed(family types.Family, diags []error) {
	for _, d := range diags {
		p.log.Debug("%s: suppressed detector failure: %v", family, d)
	}
}

func failed(fragment string, partial types.PatchResult, err error) types.PatchResult {
	return types.PatchResult{
		Original:    fragment,
		Patched:     fragment,
		Modified:    false,
		Outcomes:    partial.Outcomes,
		Diagnostics: append(partial.Diagnostics, err.Error()),
		Err:         err,
	}
}
