package catalog

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsShared(t *testing.T) {
	a := Default()
	b := Default()
	assert.Same(t, a, b)
}

func TestBuiltinTools(t *testing.T) {
	c := Default()

	tools := c.Tools()
	require.Len(t, tools, 5)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{ToolLibreOffice, ToolOCRMyPDF, ToolPythonOpenCV, ToolCalibre, ToolGhostscript}, names)

	lo, ok := c.LookupTool(ToolLibreOffice)
	require.True(t, ok)
	assert.True(t, lo.Remediable())
	assert.Equal(t, GeneratorSecureExecutor, lo.Generator)

	gs, ok := c.LookupTool(ToolGhostscript)
	require.True(t, ok)
	assert.False(t, gs.Remediable())

	_, ok = c.LookupTool("IMAGEMAGICK")
	assert.False(t, ok)
}

func TestToolSpanCrossesLines(t *testing.T) {
	lo, ok := Default().LookupTool(ToolLibreOffice)
	require.True(t, ok)

	fragment := "ProcessExecutor.getInstance(ProcessExecutor.Processes.LIBRE_OFFICE)\n" +
		"    .runCommandWithOutputHandling(command);\nreturn;"
	loc := lo.Span().FindStringIndex(fragment)
	require.NotNil(t, loc)
	assert.Equal(t, "ProcessExecutor.getInstance(ProcessExecutor.Processes.LIBRE_OFFICE)\n"+
		"    .runCommandWithOutputHandling(command)", fragment[loc[0]:loc[1]])

	assert.True(t, lo.Span().MatchString("ProcessExecutor.getInstance(LIBRE_OFFICE).run(command)"))
	assert.False(t, lo.Span().MatchString("ProcessExecutor.getInstance(Processes.CALIBRE).run(command)"))
}

func TestWithToolAddsSixthTool(t *testing.T) {
	c, err := New(WithTool(Tool{Name: "IMAGEMAGICK", Executable: "convert", Generator: GeneratorSecureExecutor}))
	require.NoError(t, err)

	assert.Len(t, c.Tools(), 6)
	tool, ok := c.LookupTool("IMAGEMAGICK")
	require.True(t, ok)
	assert.True(t, tool.Remediable())
	assert.True(t, tool.Span().MatchString("ProcessExecutor.getInstance(ProcessExecutor.Processes.IMAGEMAGICK).x(command)"))

	// the shared catalog is unaffected
	_, ok = Default().LookupTool("IMAGEMAGICK")
	assert.False(t, ok)
}

func TestWithToolReplacesExisting(t *testing.T) {
	c, err := New(WithTool(Tool{Name: ToolCalibre, Executable: "ebook-convert", Generator: GeneratorSecureExecutor}))
	require.NoError(t, err)

	assert.Len(t, c.Tools(), 5)
	tool, _ := c.LookupTool(ToolCalibre)
	assert.True(t, tool.Remediable())
}

func TestOptionValidation(t *testing.T) {
	_, err := New(WithTool(Tool{Name: "X", Generator: "shell-wrapper"}))
	assert.Error(t, err)

	_, err = New(WithInputDetector(Detector{Name: "no-matcher"}))
	assert.Error(t, err)

	_, err = New(WithKeywordRule(KeywordRule{Rule: WhitelistRule{Bucket: "empty"}}))
	assert.Error(t, err)

	_, err = New(WithKeywordRule(KeywordRule{Keywords: []string{"x"}, Rule: WhitelistRule{Bucket: "bad", Pattern: "(["}}))
	assert.Error(t, err)
}

func TestRegexMatcherGroups(t *testing.T) {
	m := Regex(`logger\.(error|warn|info|debug)\(([^)]+)\)`)
	matches, err := m.Match(`logger.info(userName); logger.warn(count)`)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, []string{"info", "userName"}, matches[0].Groups)
	assert.Equal(t, []string{"warn", "count"}, matches[1].Groups)

	opt := Regex(`a(b)?c`)
	matches, err = opt.Match("ac")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{""}, matches[0].Groups)
}

func TestMatcherFunc(t *testing.T) {
	boom := errors.New("boom")
	var m Matcher = MatcherFunc(func(string) ([]Match, error) { return nil, boom })
	_, err := m.Match("x")
	assert.ErrorIs(t, err, boom)
}

func TestInputDetectorsOrdered(t *testing.T) {
	detectors := Default().InputDetectors()
	require.Len(t, detectors, 34)
	assert.Equal(t, "path-param", detectors[0].Name)
	assert.Equal(t, "header-get", detectors[len(detectors)-1].Name)

	for _, d := range detectors {
		assert.Equal(t, CategoryExternalInput, d.Category, d.Name)
	}

	generic := Default().GenericParameterDetector()
	matches, err := generic.Matcher.Match("void run(String fileName, int count)")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "fileName", matches[0].Groups[1])
	assert.Equal(t, []int{2}, generic.Groups)
}

func TestWithInputDetectorAppends(t *testing.T) {
	c, err := New(WithInputDetector(Detector{Name: "env", Matcher: Regex(`System\.getenv\("([^"]+)"\)`)}))
	require.NoError(t, err)

	detectors := c.InputDetectors()
	last := detectors[len(detectors)-1]
	assert.Equal(t, "env", last.Name)
	assert.Equal(t, CategoryExternalInput, last.Category)
}

func TestKeywordRulesCompile(t *testing.T) {
	c := Default()
	rules := c.KeywordRules()
	require.Len(t, rules, 6)
	assert.Equal(t, BucketPath, rules[0].Rule.Bucket)

	for _, r := range append(rules, KeywordRule{Keywords: []string{"*"}, Rule: c.DefaultRule()}) {
		_, err := regexp.Compile(r.Rule.Pattern)
		assert.NoError(t, err, r.Rule.Bucket)
		assert.Equal(t, DefaultMaxLength, r.Rule.MaxLength)
	}

	ts := regexp.MustCompile(rules[2].Rule.Pattern)
	assert.True(t, ts.MatchString("2024-01-02T03:04:05.123Z"))
	assert.False(t, ts.MatchString("yesterday"))
}

func TestDeclarationPattern(t *testing.T) {
	decl := Default().DeclarationPattern()
	assert.True(t, decl.MatchString("public Response get(@PathParam(\"id\") String id) {"))
	assert.True(t, decl.MatchString("private static Map<String, List<Integer>> load (String path)"))
	assert.True(t, decl.MatchString("protected byte[] read(File f)"))
	assert.False(t, decl.MatchString("String name = request.getParameter(\"name\");"))
}

func TestTransportData(t *testing.T) {
	c := Default()

	detectors := c.TransportDetectors()
	require.Len(t, detectors, 3)
	var ops []SocketOp
	for _, d := range detectors {
		ops = append(ops, SocketOp(d.SubKind))
	}
	assert.Equal(t, SocketOps(), ops)

	connect := detectors[0].Matcher
	m, _ := connect.Match("Socket s = new Socket(host, 443);")
	assert.Len(t, m, 1)
	m, _ = connect.Match("mysocket.connect(addr)")
	assert.Empty(t, m)

	rewrites := c.TransportRewrites()
	require.Len(t, rewrites, 2)
	assert.Equal(t, "Socket s = sslSocketFactory.createSocket(host, 443);",
		rewrites[0].Pattern.ReplaceAllString("Socket s = new Socket(host, 443);", rewrites[0].Replacement))
	assert.Equal(t, "InputStream in = sslSocket.getInputStream();",
		rewrites[1].Pattern.ReplaceAllString("InputStream in = socket.getInputStream();", rewrites[1].Replacement))

	assert.True(t, rewrites[1].Triggered(map[SocketOp]bool{SocketWrite: true}))
	assert.False(t, rewrites[0].Triggered(map[SocketOp]bool{SocketRead: true}))

	assert.Contains(t, c.SocketTokens(), "new Socket")
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := Default()
	kw := c.VulnerabilityKeywords()
	kw[0] = "mutated"
	assert.Equal(t, "getMessage", c.VulnerabilityKeywords()[0])
}
