package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/errors"
	"github.com/fumiya-kume/secpatch/pkg/extract"
	"github.com/fumiya-kume/secpatch/pkg/inject"
	"github.com/fumiya-kume/secpatch/pkg/remedy"
)

// findingNamespace seeds the name-based finding IDs
var findingNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/fumiya-kume/secpatch/findings"))

var socketCWE = map[catalog.SocketOp]string{
	catalog.SocketConnect: "CWE-295",
	catalog.SocketRead:    "CWE-353",
	catalog.SocketWrite:   "CWE-347",
}

var socketDescription = map[catalog.SocketOp]string{
	catalog.SocketConnect: "Socket connection is established without certificate verification",
	catalog.SocketRead:    "Data read from the socket is used without an integrity check",
	catalog.SocketWrite:   "Data written to the socket is not signed",
}

// Findings locates every site the enabled families detect in fragment and
// pairs it with the remediation that would be applied. The result is sorted
// by line and is identical for identical input.
func (p *Pipeline) Findings(fragment string) (findings []types.Finding, err error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = errors.PipelineError("findings", fmt.Errorf("panic: %v", r))
		}
	}()

	lines := inject.Lines(fragment)
	for _, family := range p.Families() {
		var found []types.Finding
		switch family {
		case types.FamilyProcess:
			found, err = p.processFindings(fragment, lines)
		case types.FamilyTransport:
			found, err = p.transportFindings(fragment, lines)
		case types.FamilyInput:
			found, err = p.inputFindings(fragment, lines)
		}
		if err != nil {
			return nil, errors.PipelineError(string(family), err)
		}
		findings = append(findings, found...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].LineNumber < findings[j].LineNumber
	})
	return findings, nil
}

func (p *Pipeline) processFindings(fragment string, lines []string) ([]types.Finding, error) {
	sites, diags := extract.ProcessSites(p.cat, fragment)
	p.logSuppressed(types.FamilyProcess, diags)

	var out []types.Finding
	for _, site := range sites {
		sel := remedy.SelectProcess(p.cat, site.SubKind)
		if !sel.Known {
			continue
		}

		fix := ""
		if sel.Tool.Remediable() {
			block, err := remedy.RenderProcess(sel.Tool)
			if err != nil {
				return nil, err
			}
			fix = block
		}

		line := site.Line(fragment)
		out = append(out, newFinding(types.FamilyProcess, catalog.CategoryProcessExecution, line, site.SubKind,
			"CWE-78",
			fmt.Sprintf("Command for external tool %s is executed without sanitizing its arguments", site.SubKind),
			lineText(lines, line), fix))
	}
	return out, nil
}

func (p *Pipeline) transportFindings(fragment string, lines []string) ([]types.Finding, error) {
	signals, diags := extract.TransportSignals(p.cat, fragment)
	p.logSuppressed(types.FamilyTransport, diags)
	active := signals.Active()

	var out []types.Finding
	seen := make(map[string]bool)
	for _, site := range signals.Sites {
		op := catalog.SocketOp(site.SubKind)
		line := site.Line(fragment)
		key := fmt.Sprintf("%s:%d", op, line)
		if seen[key] {
			continue
		}
		seen[key] = true

		snippet, err := remedy.RenderTransportBlock([]catalog.SocketOp{op})
		if err != nil {
			return nil, err
		}

		vulnerable := lineText(lines, line)
		rewritten := vulnerable
		for _, rw := range p.cat.TransportRewrites() {
			if rw.Triggered(active) {
				rewritten = rw.Pattern.ReplaceAllString(rewritten, rw.Replacement)
			}
		}

		out = append(out, newFinding(types.FamilyTransport, catalog.CategoryTransportChannel, line, string(op),
			socketCWE[op], socketDescription[op], vulnerable, snippet+"\n"+rewritten))
	}
	return out, nil
}

func (p *Pipeline) inputFindings(fragment string, lines []string) ([]types.Finding, error) {
	sites, diags := extract.InputSites(p.cat, fragment)
	p.logSuppressed(types.FamilyInput, diags)

	var out []types.Finding
	seen := make(map[string]bool)
	for _, site := range sites {
		for _, id := range site.Identifiers {
			if seen[id] {
				continue
			}
			seen[id] = true

			rule := remedy.Classify(p.cat, id)
			if p.opts.MaxInputLength > 0 {
				rule.MaxLength = p.opts.MaxInputLength
			}
			block, err := remedy.RenderValidation(id, rule)
			if err != nil {
				return nil, err
			}

			line := site.Line(fragment)
			out = append(out, newFinding(types.FamilyInput, catalog.CategoryExternalInput, line, id,
				"CWE-20",
				fmt.Sprintf("External input %s is used without whitelist validation (%s)", id, rule.Bucket),
				lineText(lines, line), block))
		}
	}
	return out, nil
}

func newFinding(family types.Family, category catalog.Category, line int, key, cwe, description, vulnerable, fix string) types.Finding {
	name := fmt.Sprintf("%s|%s|%d|%s|%s", family, category, line, key, vulnerable)
	return types.Finding{
		ID:                uuid.NewSHA1(findingNamespace, []byte(name)).String(),
		Family:            family,
		Category:          string(category),
		LineNumber:        line,
		CWEID:             cwe,
		Description:       description,
		VulnerableCode:    vulnerable,
		FixVulnerableCode: fix,
	}
}

func lineText(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}
