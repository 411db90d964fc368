// Package catalog holds the ordered, read-only registry of vulnerability-site
// detectors and the keyword-to-whitelist-rule table used by the remediation
// families. A Catalog is built once and never mutated afterwards, so it can be
// shared by any number of goroutines without locking.
//
// Extending the catalog (a sixth process tool, another input pattern, another
// keyword bucket) is a data change expressed through Options; no other package
// needs to change.
package catalog

import (
	"fmt"
	"regexp"
	"sync"
)

// Category is the vulnerability class a detector belongs to
type Category string

const (
	CategoryProcessExecution Category = "process-execution"
	CategoryTransportChannel Category = "transport-channel"
	CategoryExternalInput    Category = "external-input"
)

// Match is one hit of a Matcher: the matched byte span and its capture groups
// (group 1 first; a group that did not participate is the empty string)
type Match struct {
	Start  int
	End    int
	Groups []string
}

// Matcher finds every match of a detector in a fragment
type Matcher interface {
	Match(text string) ([]Match, error)
}

// MatcherFunc adapts a function to the Matcher interface
type MatcherFunc func(text string) ([]Match, error)

// Match implements Matcher
func (f MatcherFunc) Match(text string) ([]Match, error) {
	return f(text)
}

// RegexMatcher is a Matcher backed by a compiled regular expression
type RegexMatcher struct {
	re *regexp.Regexp
}

// Regex compiles expr into a RegexMatcher. It panics on an invalid expression,
// which only happens for programmer-supplied catalog data.
func Regex(expr string) *RegexMatcher {
	return &RegexMatcher{re: regexp.MustCompile(expr)}
}

// Match implements Matcher
func (m *RegexMatcher) Match(text string) ([]Match, error) {
	locs := m.re.FindAllStringSubmatchIndex(text, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		groups := make([]string, 0, len(loc)/2-1)
		for g := 2; g+1 < len(loc); g += 2 {
			if loc[g] < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, text[loc[g]:loc[g+1]])
		}
		matches = append(matches, Match{Start: loc[0], End: loc[1], Groups: groups})
	}
	return matches, nil
}

// Regexp returns the underlying expression
func (m *RegexMatcher) Regexp() *regexp.Regexp {
	return m.re
}

func (m *RegexMatcher) String() string {
	return m.re.String()
}

// Detector is a named matching rule within one category
type Detector struct {
	Name     string
	Category Category
	// SubKind narrows the category, e.g. a socket operation
	SubKind string
	Matcher Matcher
	// Groups selects which capture groups (1-based) yield identifiers; nil means all
	Groups []int
}

// Catalog is the process-wide detector registry
type Catalog struct {
	processDetectors   []Detector
	tools              []Tool
	toolIndex          map[string]int
	transportDetectors []Detector
	rewrites           []Rewrite
	socketTokens       []string
	inputDetectors     []Detector
	genericParameter   Detector
	keywordRules       []KeywordRule
	defaultRule        WhitelistRule
	declaration        *regexp.Regexp
	vulnKeywords       []string
}

// Option customizes a catalog during construction
type Option func(*Catalog) error

var (
	defaultCatalog *Catalog
	defaultOnce    sync.Once
)

// Default returns the built-in catalog, constructed on first use
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New()
		if err != nil {
			panic(fmt.Sprintf("catalog: built-in data is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// New builds a catalog from the built-in data plus the given options
func New(opts ...Option) (*Catalog, error) {
	c := &Catalog{
		processDetectors:   builtinProcessDetectors(),
		transportDetectors: builtinTransportDetectors(),
		rewrites:           builtinRewrites(),
		socketTokens:       builtinSocketTokens(),
		inputDetectors:     builtinInputDetectors(),
		genericParameter:   builtinGenericParameterDetector(),
		keywordRules:       builtinKeywordRules(),
		defaultRule:        builtinDefaultRule(),
		declaration:        regexp.MustCompile(declarationPattern),
		vulnKeywords:       builtinVulnerabilityKeywords(),
		toolIndex:          make(map[string]int),
	}

	for _, tool := range builtinTools() {
		if err := c.addTool(tool); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// WithTool registers an additional process tool, replacing one with the same name
func WithTool(tool Tool) Option {
	return func(c *Catalog) error {
		return c.addTool(tool)
	}
}

// WithInputDetector appends an external-input detector after the built-in ones
func WithInputDetector(d Detector) Option {
	return func(c *Catalog) error {
		if d.Name == "" || d.Matcher == nil {
			return fmt.Errorf("input detector needs a name and a matcher")
		}
		d.Category = CategoryExternalInput
		c.inputDetectors = append(c.inputDetectors, d)
		return nil
	}
}

// WithKeywordRule appends a keyword bucket at the lowest priority
func WithKeywordRule(rule KeywordRule) Option {
	return func(c *Catalog) error {
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("keyword rule for bucket %q has no keywords", rule.Rule.Bucket)
		}
		if _, err := regexp.Compile(rule.Rule.Pattern); err != nil {
			return fmt.Errorf("keyword rule for bucket %q: %w", rule.Rule.Bucket, err)
		}
		c.keywordRules = append(c.keywordRules, rule)
		return nil
	}
}

// ProcessDetectors returns the process-execution detectors in order
func (c *Catalog) ProcessDetectors() []Detector {
	return append([]Detector(nil), c.processDetectors...)
}

// Tools returns the known external tools in registration order
func (c *Catalog) Tools() []Tool {
	return append([]Tool(nil), c.tools...)
}

// LookupTool finds a registered tool by its enumeration name
func (c *Catalog) LookupTool(name string) (Tool, bool) {
	i, ok := c.toolIndex[name]
	if !ok {
		return Tool{}, false
	}
	return c.tools[i], true
}

// TransportDetectors returns the socket-operation detectors in connect, read, write order
func (c *Catalog) TransportDetectors() []Detector {
	return append([]Detector(nil), c.transportDetectors...)
}

// TransportRewrites returns the call-site substitutions for secure channels
func (c *Catalog) TransportRewrites() []Rewrite {
	return append([]Rewrite(nil), c.rewrites...)
}

// SocketTokens returns the substrings that mark a line as a socket operation
func (c *Catalog) SocketTokens() []string {
	return append([]string(nil), c.socketTokens...)
}

// InputDetectors returns the structured external-input detectors in order
func (c *Catalog) InputDetectors() []Detector {
	return append([]Detector(nil), c.inputDetectors...)
}

// GenericParameterDetector returns the typed-parameter safety-net detector
func (c *Catalog) GenericParameterDetector() Detector {
	return c.genericParameter
}

// KeywordRules returns the keyword buckets in priority order
func (c *Catalog) KeywordRules() []KeywordRule {
	return append([]KeywordRule(nil), c.keywordRules...)
}

// DefaultRule returns the rule used when no keyword bucket matches
func (c *Catalog) DefaultRule() WhitelistRule {
	return c.defaultRule
}

// DeclarationPattern matches a line that opens a routine declaration
func (c *Catalog) DeclarationPattern() *regexp.Regexp {
	return c.declaration
}

// VulnerabilityKeywords returns the substrings that mark a line as consuming external input
func (c *Catalog) VulnerabilityKeywords() []string {
	return append([]string(nil), c.vulnKeywords...)
}
