package extract

import (
	"strings"

	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/errors"
)

// InputSites runs the structured external-input detectors and then the generic
// typed-parameter pass. Each site carries the cleaned identifiers its match
// contributed; sites that contribute nothing are dropped.
func InputSites(cat *catalog.Catalog, fragment string) ([]Site, []error) {
	var (
		sites []Site
		diags []error
	)

	detectors := append(cat.InputDetectors(), cat.GenericParameterDetector())
	for _, d := range detectors {
		matches, err := run(d, fragment)
		if err != nil {
			diags = append(diags, errors.PatternError(d.Name, err))
			continue
		}

		for i, site := range sitesFor(d, fragment, matches) {
			site.Identifiers = identifiersOf(d, matches[i])
			if len(site.Identifiers) > 0 {
				sites = append(sites, site)
			}
		}
	}

	return sites, diags
}

// InputIdentifiers returns the distinct candidate identifiers of a fragment in
// first-seen order across the ordered detector list
func InputIdentifiers(cat *catalog.Catalog, fragment string) ([]string, []error) {
	sites, diags := InputSites(cat, fragment)

	seen := make(map[string]bool)
	var identifiers []string
	for _, site := range sites {
		for _, id := range site.Identifiers {
			if seen[id] {
				continue
			}
			seen[id] = true
			identifiers = append(identifiers, id)
		}
	}

	return identifiers, diags
}

func identifiersOf(d catalog.Detector, m catalog.Match) []string {
	var raw []string
	if d.Groups == nil {
		raw = m.Groups
	} else {
		for _, g := range d.Groups {
			if g >= 1 && g <= len(m.Groups) {
				raw = append(raw, m.Groups[g-1])
			}
		}
	}

	var out []string
	for _, r := range raw {
		if id, ok := CleanIdentifier(r); ok {
			out = append(out, id)
		}
	}
	return out
}

// CleanIdentifier trims whitespace and then quote characters from a capture.
// Empty results and format placeholders (leading brace) are rejected.
func CleanIdentifier(raw string) (string, bool) {
	id := strings.Trim(strings.TrimSpace(raw), `"'`)
	if id == "" || strings.HasPrefix(id, "{") {
		return "", false
	}
	return id, true
}
