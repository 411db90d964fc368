package pipeline

import (
	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/extract"
	"github.com/fumiya-kume/secpatch/pkg/inject"
	"github.com/fumiya-kume/secpatch/pkg/remedy"
)

// InputWhitelisting inserts one validation block per distinct identifier. Each
// pass works on the output of the previous one. Passes run in reverse
// detection order: every pass inserts at the first qualifying line, so the
// finished blocks read top to bottom in detection order.
type InputWhitelisting struct {
	cat       *catalog.Catalog
	maxLength int
}

// NewInputWhitelisting returns the family on its own, outside a Pipeline
func NewInputWhitelisting(cat *catalog.Catalog, maxLength int) *InputWhitelisting {
	return &InputWhitelisting{cat: cat, maxLength: maxLength}
}

func (f *InputWhitelisting) Name() types.Family {
	return types.FamilyInput
}

func (f *InputWhitelisting) Apply(text string) (Step, error) {
	identifiers, diags := extract.InputIdentifiers(f.cat, text)
	step := Step{Text: text, Diagnostics: diags}
	if len(identifiers) == 0 {
		return step, nil
	}

	reversed := make([]string, len(identifiers))
	for i, id := range identifiers {
		reversed[len(identifiers)-1-i] = id
	}

	patched, outcomes, err := fold(text, reversed, f.pass)
	if err != nil {
		return step, err
	}
	step.Text = patched
	step.Outcomes = outcomes
	return step, nil
}

// pass is one identifier's step: it takes a fragment and returns the next one
type pass func(text, identifier string) (string, types.Outcome, error)

func fold(text string, identifiers []string, step pass) (string, []types.Outcome, error) {
	outcomes := make([]types.Outcome, 0, len(identifiers))
	for _, id := range identifiers {
		next, outcome, err := step(text, id)
		if err != nil {
			return text, outcomes, err
		}
		outcomes = append(outcomes, outcome)
		text = next
	}
	return text, outcomes, nil
}

func (f *InputWhitelisting) rule(identifier string) catalog.WhitelistRule {
	rule := remedy.Classify(f.cat, identifier)
	if f.maxLength > 0 {
		rule.MaxLength = f.maxLength
	}
	return rule
}

func (f *InputWhitelisting) pass(text, identifier string) (string, types.Outcome, error) {
	rule := f.rule(identifier)
	outcome := types.Outcome{
		Family:     types.FamilyInput,
		Category:   string(catalog.CategoryExternalInput),
		SubKind:    string(rule.Bucket),
		Identifier: identifier,
	}

	block, err := remedy.RenderValidation(identifier, rule)
	if err != nil {
		return text, outcome, err
	}

	next, ok := inject.InsertValidation(text, f.cat.DeclarationPattern(), f.cat.VulnerabilityKeywords(), block)
	if !ok {
		outcome.Status = types.OutcomeNotApplicable
		outcome.Detail = "no declaration or input-consuming line to guard"
		return text, outcome, nil
	}

	outcome.Status = types.OutcomeApplied
	return next, outcome, nil
}
