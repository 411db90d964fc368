package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/logger"
)

const mixedFragment = `public void convert(String inputPath) {
    Socket socket = new Socket(host, port);
    ProcessExecutor.getInstance(ProcessExecutor.Processes.LIBRE_OFFICE).runCommandWithOutputHandling(command);
}`

func TestFindings(t *testing.T) {
	p := newPipeline(t)

	findings, err := p.Findings(mixedFragment)
	require.NoError(t, err)
	require.NotEmpty(t, findings)

	byCWE := make(map[string]types.Finding)
	for _, f := range findings {
		if _, ok := byCWE[f.CWEID]; !ok {
			byCWE[f.CWEID] = f
		}
	}

	process, ok := byCWE["CWE-78"]
	require.True(t, ok)
	assert.Equal(t, 3, process.LineNumber)
	assert.Equal(t, types.FamilyProcess, process.Family)
	assert.Contains(t, process.VulnerableCode, "ProcessExecutor.getInstance")
	assert.Contains(t, process.FixVulnerableCode, "class SecureCommandExecutor")

	connect, ok := byCWE["CWE-295"]
	require.True(t, ok)
	assert.Equal(t, 2, connect.LineNumber)
	assert.Equal(t, "Socket socket = new Socket(host, port);", connect.VulnerableCode)
	assert.Contains(t, connect.FixVulnerableCode, "Socket socket = sslSocketFactory.createSocket(host, port);")

	input, ok := byCWE["CWE-20"]
	require.True(t, ok)
	assert.Equal(t, 1, input.LineNumber)
	assert.Contains(t, input.FixVulnerableCode, `.contains("..")`)

	for i := 1; i < len(findings); i++ {
		assert.LessOrEqual(t, findings[i-1].LineNumber, findings[i].LineNumber)
	}
}

func TestFindingIDsAreStable(t *testing.T) {
	p := newPipeline(t)

	first, err := p.Findings(mixedFragment)
	require.NoError(t, err)
	second, err := p.Findings(mixedFragment)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	ids := make(map[string]bool)
	for _, f := range first {
		assert.False(t, ids[f.ID], "duplicate finding id %s", f.ID)
		ids[f.ID] = true
	}
}

func TestFindingsRespectFamilies(t *testing.T) {
	p := newPipeline(t, types.FamilyTransport)

	findings, err := p.Findings(mixedFragment)
	require.NoError(t, err)
	for _, f := range findings {
		assert.Equal(t, types.FamilyTransport, f.Family)
	}

	findings, err = p.Findings("  ")
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestFindingsLogSuppressedDetectorFailures(t *testing.T) {
	cat, err := catalog.New(catalog.WithInputDetector(catalog.Detector{
		Name: "broken",
		Matcher: catalog.MatcherFunc(func(string) ([]catalog.Match, error) {
			panic("matcher bug")
		}),
	}))
	require.NoError(t, err)

	var buf bytes.Buffer
	log := logger.NewDefault()
	log.SetLevel(logger.LevelDebug)
	log.Logrus().SetOutput(&buf)

	p, err := New(cat, Options{Families: []types.Family{types.FamilyInput}, Logger: log})
	require.NoError(t, err)

	findings, err := p.Findings(annotatedFragment)
	require.NoError(t, err)
	baseline, err := newPipeline(t, types.FamilyInput).Findings(annotatedFragment)
	require.NoError(t, err)
	assert.Equal(t, baseline, findings)

	out := buf.String()
	assert.Contains(t, out, "level=debug")
	assert.Contains(t, out, "input: suppressed detector failure")
	assert.Contains(t, out, "broken")
}
