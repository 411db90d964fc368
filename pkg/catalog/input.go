package catalog

// Bucket is a keyword class of identifiers sharing one whitelist rule
type Bucket string

const (
	BucketPath       Bucket = "path"
	BucketURL        Bucket = "url"
	BucketTimestamp  Bucket = "timestamp"
	BucketIdentifier Bucket = "identifier"
	BucketMessage    Bucket = "message"
	BucketFormat     Bucket = "format"
	BucketGeneric    Bucket = "generic"
)

// DefaultMaxLength caps whitelisted input length
const DefaultMaxLength = 1000

// WhitelistRule is the validation applied to one identifier
type WhitelistRule struct {
	Bucket    Bucket
	Pattern   string
	MaxLength int
}

// KeywordRule maps identifiers containing any keyword to a whitelist rule
type KeywordRule struct {
	Keywords []string
	Rule     WhitelistRule
}

const declarationPattern = `(public|private|protected)\s+[\w<>\[\],\s]+\s+\w+\s*\(`

func inputDetector(name, expr string) Detector {
	return Detector{Name: name, Category: CategoryExternalInput, Matcher: Regex(expr)}
}

func builtinInputDetectors() []Detector {
	return []Detector{
		inputDetector("path-param", `@PathParam\("([^"]+)"\)`),
		inputDetector("query-param", `@QueryParam\("([^"]+)"\)`),
		inputDetector("form-param", `@FormParam\("([^"]+)"\)`),
		inputDetector("request-param", `@RequestParam\("([^"]+)"\)`),
		inputDetector("model-attribute", `@ModelAttribute\s+\w+\s+(\w+)`),
		inputDetector("get-parameter", `getParameter\("([^"]+)"\)`),
		inputDetector("get-message", `getMessage\(([^,)]+)`),
		inputDetector("resource-bundle", `ResourceBundle\.getBundle\("([^"]+)"`),
		inputDetector("format-literal", `format\("([^"]+)"`),
		inputDetector("string-format", `String\.format\("([^"]+)"`),
		inputDetector("message-format", `MessageFormat\.format\("([^"]+)"`),
		inputDetector("string-declaration", `String\s+(\w+)\s*=`),
		inputDetector("assigned-parameter", `(\w+)\s*=\s*[^=]+getParameter`),
		inputDetector("assigned-message", `(\w+)\s*=\s*[^=]+getMessage`),
		inputDetector("assigned-format", `(\w+)\s*=\s*[^=]+format`),
		inputDetector("public-method-params", `public\s+[\w<>\[\],\s]+\s+\w+\(([^)]+)\)`),
		inputDetector("private-method-params", `private\s+[\w<>\[\],\s]+\s+\w+\(([^)]+)\)`),
		inputDetector("protected-method-params", `protected\s+[\w<>\[\],\s]+\s+\w+\(([^)]+)\)`),
		inputDetector("format-args", `\.format\(([^)]+)\)`),
		inputDetector("printf-args", `\.printf\(([^)]+)\)`),
		inputDetector("print-stream-printf", `PrintStream\.printf\(([^)]+)\)`),
		inputDetector("formatter-format", `Formatter\.format\(([^)]+)\)`),
		inputDetector("logger-call", `logger\.(error|warn|info|debug)\(([^)]+)\)`),
		inputDetector("log-call", `LOG\.(error|warn|info|debug)\(([^)]+)\)`),
		inputDetector("exception-message", `throw new \w+Exception\(([^)]+)\)`),
		inputDetector("new-file", `new File\("([^"]+)"\)`),
		inputDetector("paths-get", `Paths\.get\("([^"]+)"\)`),
		inputDetector("create-temp-file", `createTempFile\("([^"]+)"`),
		inputDetector("file-input-stream", `FileInputStream\("([^"]+)"\)`),
		inputDetector("file-output-stream", `FileOutputStream\("([^"]+)"\)`),
		inputDetector("request-attribute", `request\.getAttribute\("([^"]+)"\)`),
		inputDetector("session-attribute", `session\.getAttribute\("([^"]+)"\)`),
		inputDetector("cookie-value", `cookie\.getValue\("([^"]+)"\)`),
		inputDetector("header-get", `headers\.get\("([^"]+)"\)`),
	}
}

func builtinGenericParameterDetector() Detector {
	return Detector{
		Name:     "typed-parameter",
		Category: CategoryExternalInput,
		Matcher:  Regex(`(\w+)\s+(\w+)\s*[,)]`),
		Groups:   []int{2},
	}
}

func builtinKeywordRules() []KeywordRule {
	return []KeywordRule{
		{
			Keywords: []string{"file", "path", "directory"},
			Rule:     WhitelistRule{Bucket: BucketPath, Pattern: `^[\w\-. /\\]+$`, MaxLength: DefaultMaxLength},
		},
		{
			Keywords: []string{"url", "uri", "http"},
			Rule:     WhitelistRule{Bucket: BucketURL, Pattern: `^[a-zA-Z0-9\-._~:/?#\[\]@!$&'()*+,;=\s]+$`, MaxLength: DefaultMaxLength},
		},
		{
			Keywords: []string{"date", "time", "timestamp"},
			Rule:     WhitelistRule{Bucket: BucketTimestamp, Pattern: `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(.\d{3})?Z?$`, MaxLength: DefaultMaxLength},
		},
		{
			Keywords: []string{"id", "key", "index"},
			Rule:     WhitelistRule{Bucket: BucketIdentifier, Pattern: `^\d+$`, MaxLength: DefaultMaxLength},
		},
		{
			Keywords: []string{"message", "error", "log"},
			Rule:     WhitelistRule{Bucket: BucketMessage, Pattern: `^[\w\-._{}\s]+$`, MaxLength: DefaultMaxLength},
		},
		{
			Keywords: []string{"format", "type", "mime"},
			Rule:     WhitelistRule{Bucket: BucketFormat, Pattern: `^[\w\-/+.]+$`, MaxLength: DefaultMaxLength},
		},
	}
}

func builtinDefaultRule() WhitelistRule {
	return WhitelistRule{Bucket: BucketGeneric, Pattern: `^[\w\-._\s]+$`, MaxLength: DefaultMaxLength}
}

func builtinVulnerabilityKeywords() []string {
	return []string{
		"getMessage",
		"ResourceBundle.getBundle",
		"@PathParam",
		"getParameter",
		"format",
		"new File",
		"Paths.get",
		"createTempFile",
		"FileInputStream",
		"FileOutputStream",
		"getAttribute",
		"getValue",
		"headers.get",
	}
}
