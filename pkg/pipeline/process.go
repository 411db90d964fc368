package pipeline

import (
	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/errors"
	"github.com/fumiya-kume/secpatch/pkg/extract"
	"github.com/fumiya-kume/secpatch/pkg/inject"
	"github.com/fumiya-kume/secpatch/pkg/remedy"
)

// ProcessHardening replaces external-process invocations with sanitizing
// wrappers and prepends the security context once something was replaced
type ProcessHardening struct {
	cat    *catalog.Catalog
	policy ToolPolicy
}

// NewProcessHardening returns the family on its own, outside a Pipeline
func NewProcessHardening(cat *catalog.Catalog, policy ToolPolicy) *ProcessHardening {
	return &ProcessHardening{cat: cat, policy: policy}
}

func (f *ProcessHardening) Name() types.Family {
	return types.FamilyProcess
}

func (f *ProcessHardening) Apply(text string) (Step, error) {
	sites, diags := extract.ProcessSites(f.cat, text)
	step := Step{Text: text, Diagnostics: diags}
	if len(sites) == 0 {
		return step, nil
	}

	// Each distinct tool is remediated once, in first-seen order.
	var order []catalog.Tool
	byTool := make(map[string][]int)

	for _, site := range sites {
		sel := remedy.SelectProcess(f.cat, site.SubKind)
		outcome := types.Outcome{
			Family:   types.FamilyProcess,
			Category: string(site.Category),
			SubKind:  site.SubKind,
			Status:   sel.Status(),
		}

		switch outcome.Status {
		case types.OutcomeUnrecognized:
			outcome.Detail = "tool is not in the catalog"
		case types.OutcomeNoRemediation:
			if f.policy == PolicyError {
				return step, errors.CapabilityError(site.SubKind)
			}
			outcome.Detail = "no remediation registered for this tool"
		case types.OutcomeApplied:
			if _, ok := byTool[sel.Tool.Name]; !ok {
				order = append(order, sel.Tool)
			}
			byTool[sel.Tool.Name] = append(byTool[sel.Tool.Name], len(step.Outcomes))
		}
		step.Outcomes = append(step.Outcomes, outcome)
	}

	applied := 0
	for _, tool := range order {
		locs := tool.Span().FindAllStringIndex(step.Text, -1)
		if len(locs) == 0 {
			for _, i := range byTool[tool.Name] {
				step.Outcomes[i].Status = types.OutcomeNotApplicable
				step.Outcomes[i].Detail = "invocation has no command argument to replace"
			}
			continue
		}

		block, err := remedy.RenderProcess(tool)
		if err != nil {
			return step, err
		}

		spans := make([]inject.Span, 0, len(locs))
		for _, loc := range locs {
			spans = append(spans, inject.Span{Start: loc[0], End: loc[1]})
		}
		step.Text = inject.ReplaceSpans(step.Text, spans, block)
		applied++
	}

	if applied > 0 {
		preamble, err := remedy.RenderSecurityContext(f.cat.Tools())
		if err != nil {
			return step, err
		}
		step.Text = inject.Prepend(step.Text, preamble)
	}

	return step, nil
}
