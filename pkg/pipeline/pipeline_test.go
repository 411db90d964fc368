package pipeline

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/errors"
)

const libreOfficeFragment = `List<String> command = new ArrayList<>();
command.add("unoconv");
command.add(inputFile.getAbsolutePath());
ProcessExecutorResult result = ProcessExecutor.getInstance(ProcessExecutor.Processes.LIBRE_OFFICE)
        .runCommandWithOutputHandling(command);
return result;`

const socketFragment = `Socket socket = new Socket(host, port);
InputStream inputStream = socket.getInputStream();
byte[] buf = inputStream.readAllBytes();`

const annotatedFragment = `public Response getFile(@PathParam("filePath") String filePath) {
    File target = new File(BASE, filePath);
    return Response.ok(target).build();
}`

func newPipeline(t *testing.T, families ...types.Family) *Pipeline {
	t.Helper()
	p, err := New(catalog.Default(), Options{Families: families})
	require.NoError(t, err)
	return p
}

func TestScenarioProcessHardening(t *testing.T) {
	p := newPipeline(t, types.FamilyProcess)

	res := p.Patch(libreOfficeFragment)
	require.False(t, res.Failed())
	assert.True(t, res.Modified)

	assert.Contains(t, res.Patched, "class SecureCommandExecutor")
	assert.Contains(t, res.Patched, "validator.sanitizeInput(component)")
	assert.NotContains(t, res.Patched, ".runCommandWithOutputHandling(command)")
	assert.True(t, strings.HasPrefix(res.Patched, "// Add security context"))
	assert.Contains(t, res.Patched, "class InputValidator")

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, types.OutcomeApplied, res.Outcomes[0].Status)
	assert.Equal(t, catalog.ToolLibreOffice, res.Outcomes[0].SubKind)
}

func TestProcessHardeningRepeatedTool(t *testing.T) {
	fragment := `ProcessExecutor.getInstance(ProcessExecutor.Processes.LIBRE_OFFICE).runCommandWithOutputHandling(command);
ProcessExecutor.getInstance(ProcessExecutor.Processes.LIBRE_OFFICE).runCommandWithOutputHandling(command);`

	res := newPipeline(t, types.FamilyProcess).Patch(fragment)
	assert.Equal(t, 2, strings.Count(res.Patched, "class SecureCommandExecutor"))
	assert.Equal(t, 1, strings.Count(res.Patched, "class SecurityContext"))
	assert.Equal(t, 2, res.Applied())
}

func TestProcessHardeningOCR(t *testing.T) {
	fragment := `return ProcessExecutor.getInstance(ProcessExecutor.Processes.OCR_MY_PDF).runCommandWithOutputHandling(command);`

	res := newPipeline(t, types.FamilyProcess).Patch(fragment)
	assert.Contains(t, res.Patched, "class SecureOCRCommandBuilder")
	assert.Contains(t, res.Patched, "pathValidator.validatePath(input);")
	assert.Contains(t, res.Patched, ".runCommandWithSecurityContext(sanitizedCommand)")
}

func TestProcessToolWithoutGenerator(t *testing.T) {
	fragment := `ProcessExecutor.getInstance(ProcessExecutor.Processes.CALIBRE).runCommandWithOutputHandling(command);`

	t.Run("passthrough", func(t *testing.T) {
		res := newPipeline(t, types.FamilyProcess).Patch(fragment)
		assert.False(t, res.Failed())
		assert.Equal(t, fragment, res.Patched)
		assert.False(t, res.Modified)
		require.Len(t, res.Outcomes, 1)
		assert.Equal(t, types.OutcomeNoRemediation, res.Outcomes[0].Status)
	})

	t.Run("error policy", func(t *testing.T) {
		p, err := New(catalog.Default(), Options{
			Families:               []types.Family{types.FamilyProcess},
			UnregisteredToolPolicy: PolicyError,
		})
		require.NoError(t, err)

		res := p.Patch(fragment)
		require.True(t, res.Failed())
		assert.Equal(t, fragment, res.Patched)
		assert.True(t, errors.IsType(res.Err, errors.ErrorTypePipeline))
		assert.True(t, errors.IsType(stderrors.Unwrap(res.Err), errors.ErrorTypeRemediation))
	})
}

func TestProcessUnrecognizedTool(t *testing.T) {
	fragment := `ProcessExecutor.getInstance(ProcessExecutor.Processes.IMAGEMAGICK).run(command);`

	res := newPipeline(t, types.FamilyProcess).Patch(fragment)
	assert.Equal(t, fragment, res.Patched)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, types.OutcomeUnrecognized, res.Outcomes[0].Status)
}

func TestSixthToolIsDataOnly(t *testing.T) {
	cat, err := catalog.New(catalog.WithTool(catalog.Tool{
		Name:       "IMAGEMAGICK",
		Executable: "convert",
		Generator:  catalog.GeneratorSecureExecutor,
	}))
	require.NoError(t, err)

	p, err := New(cat, Options{Families: []types.Family{types.FamilyProcess}})
	require.NoError(t, err)

	res := p.Patch(`ProcessExecutor.getInstance(ProcessExecutor.Processes.IMAGEMAGICK).run(command);`)
	assert.True(t, res.Modified)
	assert.Contains(t, res.Patched, "ProcessExecutor.Processes.IMAGEMAGICK")
	assert.Contains(t, res.Patched, `"convert"`)
}

func TestScenarioTransportVerification(t *testing.T) {
	res := newPipeline(t, types.FamilyTransport).Patch(socketFragment)
	require.False(t, res.Failed())

	assert.True(t, strings.HasPrefix(res.Patched, "import javax.net.ssl.*;"))
	assert.Contains(t, res.Patched, "private static final TrustManager[] trustStore = createTrustStore();")
	assert.Contains(t, res.Patched, `SSLContext.getInstance("TLS")`)
	assert.Contains(t, res.Patched, "verifyMessageIntegrity(inputStream)")
	assert.NotContains(t, res.Patched, "signAndWriteData")
	assert.NotContains(t, res.Patched, "new Socket(")
	assert.Contains(t, res.Patched, "Socket socket = sslSocketFactory.createSocket(host, port);")
	assert.Contains(t, res.Patched, "InputStream inputStream = sslSocket.getInputStream();")

	// the verification block lands before the first socket line
	guard := strings.Index(res.Patched, "// Verify server certificate")
	socketLine := strings.Index(res.Patched, "Socket socket = sslSocketFactory")
	assert.True(t, guard >= 0 && guard < socketLine)

	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, string(catalog.SocketConnect), res.Outcomes[0].SubKind)
	assert.Equal(t, string(catalog.SocketRead), res.Outcomes[1].SubKind)
}

func TestTransportReadOnlyComposition(t *testing.T) {
	fragment := "InputStream in = conn.getInputStream();"

	res := newPipeline(t, types.FamilyTransport).Patch(fragment)
	assert.True(t, strings.HasPrefix(res.Patched, "import javax.net.ssl.*;"))
	assert.Contains(t, res.Patched, "verifyMessageIntegrity(inputStream)")
	assert.NotContains(t, res.Patched, "SSLContext")
	assert.NotContains(t, res.Patched, "signAndWriteData")
	assert.True(t, strings.HasSuffix(res.Patched, fragment))
}

func TestTransportPreambleWithoutSignals(t *testing.T) {
	fragment := "int total = a + b;"

	res := newPipeline(t, types.FamilyTransport).Patch(fragment)
	assert.True(t, res.Modified)
	assert.Equal(t, "import javax.net.ssl.*;", firstLine(res.Patched))
	assert.Empty(t, res.Outcomes)

	gated, err := New(catalog.Default(), Options{
		Families:               []types.Family{types.FamilyTransport},
		TransportRequireSignal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, fragment, gated.Patch(fragment).Patched)
}

func firstLine(text string) string {
	first, _, _ := strings.Cut(text, "\n")
	return first
}

func TestScenarioInputWhitelisting(t *testing.T) {
	res := newPipeline(t, types.FamilyInput).Patch(annotatedFragment)
	require.False(t, res.Failed())
	assert.True(t, res.Modified)

	lines := strings.Split(res.Patched, "\n")
	assert.Equal(t, `public Response getFile(@PathParam("filePath") String filePath) {`, lines[0])
	assert.Equal(t, "    // Input validation for filePath (path)", lines[1])
	assert.Equal(t, "    if (filePath != null) {", lines[2])

	block := strings.Join(lines[1:20], "\n")
	assert.Contains(t, block, `Pattern.matches("^[\\w\\-. /\\\\]+$", filePath)`)
	assert.Contains(t, block, `if (filePath.contains("..")) {`)

	var applied []string
	for _, o := range res.Outcomes {
		if o.Status == types.OutcomeApplied {
			applied = append(applied, o.Identifier)
		}
	}
	assert.Contains(t, applied, "filePath")
}

func TestInputWhitelistingBeforeKeywordLine(t *testing.T) {
	fragment := "String userId = request.getParameter(\"userId\");\nload(userId);"

	res := newPipeline(t, types.FamilyInput).Patch(fragment)
	lines := strings.Split(res.Patched, "\n")
	assert.Equal(t, "// Input validation for userId (identifier)", lines[0])
	assert.Contains(t, res.Patched, `Pattern.matches("^\\d+$", userId)`)
	assert.True(t, strings.HasSuffix(res.Patched, fragment))
}

func TestFoldIsSequential(t *testing.T) {
	step := func(text, id string) (string, types.Outcome, error) {
		return text + "+" + id, types.Outcome{Identifier: id}, nil
	}

	out, outcomes, err := fold("x", []string{"a", "b", "c"}, step)
	require.NoError(t, err)
	assert.Equal(t, "x+a+b+c", out)
	assert.Len(t, outcomes, 3)

	boom := stderrors.New("boom")
	failing := func(text, id string) (string, types.Outcome, error) {
		if id == "b" {
			return "", types.Outcome{}, boom
		}
		return text + id, types.Outcome{}, nil
	}
	out, _, err = fold("x", []string{"a", "b", "c"}, failing)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "xa", out)
}

func TestNoMatchPassthrough(t *testing.T) {
	fragment := "int total = a + b;\nreturn total;"

	res := newPipeline(t, types.FamilyProcess, types.FamilyInput).Patch(fragment)
	assert.Equal(t, fragment, res.Patched)
	assert.False(t, res.Modified)
	assert.Empty(t, res.Outcomes)
}

func TestEmptyFragment(t *testing.T) {
	p := newPipeline(t)
	for _, fragment := range []string{"", "   ", "\n\t"} {
		res := p.Patch(fragment)
		assert.Equal(t, fragment, res.Patched)
		assert.False(t, res.Modified)
	}
}

func TestDeterminism(t *testing.T) {
	fragment := libreOfficeFragment + "\n" + socketFragment + "\n" + annotatedFragment
	p := newPipeline(t)

	first := p.Patch(fragment)
	for i := 0; i < 5; i++ {
		again := p.Patch(fragment)
		require.Equal(t, first.Patched, again.Patched)
		require.Equal(t, first.Outcomes, again.Outcomes)
	}
}

func TestAllFamiliesGuardOnlyCallerCode(t *testing.T) {
	const declaration = "public Result convert(String userFile) {"
	fragment := declaration + `
    List<String> command = new ArrayList<>();
    command.add(userFile);
    ProcessExecutorResult result = ProcessExecutor.getInstance(ProcessExecutor.Processes.LIBRE_OFFICE)
            .runCommandWithOutputHandling(command);
    return result;
}`

	p, err := New(catalog.Default(), Options{})
	require.NoError(t, err)
	full := p.Patch(fragment)
	require.False(t, full.Failed())
	inputOnly := newPipeline(t, types.FamilyInput).Patch(fragment)
	require.NotEmpty(t, inputOnly.Outcomes)

	assert.Contains(t, full.Patched, "class SecureCommandExecutor")
	assert.Contains(t, full.Patched, "class InputValidator")

	var guarded []string
	for _, o := range full.Outcomes {
		if o.Family == types.FamilyInput {
			guarded = append(guarded, o.Identifier)
		}
	}
	assert.Equal(t, inputOnly.Outcomes, full.Outcomes[:len(guarded)])
	for _, generated := range []string{"sanitized", "cmd", "input", "String cmd", "String input",
		"Input cannot be null or empty", "Path traversal attempt detected"} {
		assert.NotContains(t, guarded, generated)
	}

	lines := strings.Split(full.Patched, "\n")
	at := -1
	for i, line := range lines {
		if line == declaration {
			at = i
			break
		}
	}
	require.GreaterOrEqual(t, at, 0)
	require.Less(t, at+1, len(lines))

	want := strings.Split(inputOnly.Patched, "\n")
	assert.Equal(t, want[1], lines[at+1])
	assert.True(t, strings.HasPrefix(lines[at+1], "    // Input validation for "), lines[at+1])
	assert.NotContains(t, strings.Join(lines[:at], "\n"), "// Input validation for")
}

func TestConfiguredOrderDoesNotChangeChaining(t *testing.T) {
	p := newPipeline(t, types.FamilyTransport, types.FamilyInput, types.FamilyProcess)
	assert.Equal(t, []types.Family{types.FamilyInput, types.FamilyProcess, types.FamilyTransport}, p.Families())

	fragment := annotatedFragment + "\n" + libreOfficeFragment
	assert.Equal(t, newPipeline(t).Patch(fragment), p.Patch(fragment))
}

func TestSecondPassIsNotIdempotent(t *testing.T) {
	p := newPipeline(t, types.FamilyInput)

	first := p.Patch(annotatedFragment)
	second := p.Patch(first.Patched)

	// Only the first pass has a defined shape; re-running re-inserts.
	assert.NotEqual(t, first.Patched, second.Patched)
	assert.Greater(t, strings.Count(second.Patched, "// Input validation for filePath"),
		strings.Count(first.Patched, "// Input validation for filePath"))
}

func TestFailingDetectorDoesNotAbortFragment(t *testing.T) {
	cat, err := catalog.New(catalog.WithInputDetector(catalog.Detector{
		Name: "broken",
		Matcher: catalog.MatcherFunc(func(string) ([]catalog.Match, error) {
			panic("matcher bug")
		}),
	}))
	require.NoError(t, err)

	p, err := New(cat, Options{Families: []types.Family{types.FamilyInput}})
	require.NoError(t, err)

	res := p.Patch(annotatedFragment)
	baseline := newPipeline(t, types.FamilyInput).Patch(annotatedFragment)

	assert.False(t, res.Failed())
	assert.Equal(t, baseline.Patched, res.Patched)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0], "broken")
}

type panickingFamily struct{}

func (panickingFamily) Name() types.Family { return types.FamilyInput }

func (panickingFamily) Apply(string) (Step, error) {
	var m map[string]int
	m["boom"]++
	return Step{}, nil
}

func TestPatchRecoversPanics(t *testing.T) {
	p := newPipeline(t, types.FamilyProcess)
	p.families = append(p.families, panickingFamily{})

	res := p.Patch(libreOfficeFragment)
	require.True(t, res.Failed())
	assert.Equal(t, libreOfficeFragment, res.Patched)
	assert.False(t, res.Modified)
	assert.True(t, errors.IsType(res.Err, errors.ErrorTypePipeline))
	assert.Equal(t, "input", errors.GetContext(res.Err)["family"])
}

func TestNewRejectsUnknownFamily(t *testing.T) {
	_, err := New(nil, Options{Families: []types.Family{"sql"}})
	assert.Error(t, err)

	p, err := New(nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, types.AllFamilies(), p.Families())
}

func TestParseToolPolicy(t *testing.T) {
	policy, err := ParseToolPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyPassthrough, policy)

	policy, err = ParseToolPolicy("ERROR")
	require.NoError(t, err)
	assert.Equal(t, PolicyError, policy)

	_, err = ParseToolPolicy("ignore")
	assert.Error(t, err)
}
