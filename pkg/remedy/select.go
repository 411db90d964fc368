// Package remedy decides which remediation applies to a detected site and
// renders the remediation text from embedded templates.
package remedy

import (
	"strings"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/extract"
)

// Selection is the outcome of looking up a process-execution sub-kind
type Selection struct {
	SubKind string
	Tool    catalog.Tool
	Known   bool
}

// Status is the outcome a site gets if the selection is acted on
func (s Selection) Status() types.OutcomeStatus {
	switch {
	case !s.Known:
		return types.OutcomeUnrecognized
	case !s.Tool.Remediable():
		return types.OutcomeNoRemediation
	default:
		return types.OutcomeApplied
	}
}

// SelectProcess looks the sub-kind up in the catalog's tool enumeration
func SelectProcess(cat *catalog.Catalog, subKind string) Selection {
	tool, ok := cat.LookupTool(subKind)
	return Selection{SubKind: subKind, Tool: tool, Known: ok}
}

// ComposeTransport returns the snippet operations to render, always in
// connect, read, write order
func ComposeTransport(signals extract.Signals) []catalog.SocketOp {
	return signals.Ops()
}

// Classify picks the whitelist rule for an identifier: the first keyword group
// contained in the lower-cased name wins, otherwise the default rule
func Classify(cat *catalog.Catalog, identifier string) catalog.WhitelistRule {
	name := strings.ToLower(identifier)
	for _, kr := range cat.KeywordRules() {
		for _, kw := range kr.Keywords {
			if strings.Contains(name, kw) {
				return kr.Rule
			}
		}
	}
	return cat.DefaultRule()
}
