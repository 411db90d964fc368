package pipeline

import (
	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/extract"
	"github.com/fumiya-kume/secpatch/pkg/inject"
	"github.com/fumiya-kume/secpatch/pkg/remedy"
)

// TransportVerification routes socket use through certificate-verified
// channels. The trust-store preamble is prepended even when no socket
// operation was found, unless requireSignal is set.
type TransportVerification struct {
	cat           *catalog.Catalog
	requireSignal bool
}

// NewTransportVerification returns the family on its own, outside a Pipeline
func NewTransportVerification(cat *catalog.Catalog, requireSignal bool) *TransportVerification {
	return &TransportVerification{cat: cat, requireSignal: requireSignal}
}

func (f *TransportVerification) Name() types.Family {
	return types.FamilyTransport
}

func (f *TransportVerification) Apply(text string) (Step, error) {
	signals, diags := extract.TransportSignals(f.cat, text)
	step := Step{Text: text, Diagnostics: diags}
	if f.requireSignal && !signals.Any() {
		return step, nil
	}

	ops := remedy.ComposeTransport(signals)
	block, err := remedy.RenderTransportBlock(ops)
	if err != nil {
		return step, err
	}

	// The anchor is located before rewriting: the rewrites remove the very
	// tokens it is found by, and never change the line count.
	anchor := inject.FirstLineContaining(text, f.cat.SocketTokens())

	active := signals.Active()
	for _, rw := range f.cat.TransportRewrites() {
		if rw.Triggered(active) {
			step.Text = rw.Pattern.ReplaceAllString(step.Text, rw.Replacement)
		}
	}

	status := types.OutcomeNotApplicable
	if block != "" && anchor >= 0 {
		step.Text = inject.InsertBefore(step.Text, anchor, block)
		status = types.OutcomeApplied
	}
	for _, op := range ops {
		outcome := types.Outcome{
			Family:   types.FamilyTransport,
			Category: string(catalog.CategoryTransportChannel),
			SubKind:  string(op),
			Status:   status,
		}
		if status == types.OutcomeNotApplicable {
			outcome.Detail = "no socket operation line to anchor the verification block"
		}
		step.Outcomes = append(step.Outcomes, outcome)
	}

	preamble, err := remedy.RenderTransportPreamble()
	if err != nil {
		return step, err
	}
	step.Text = inject.Prepend(step.Text, preamble)

	return step, nil
}
