package catalog

import (
	"fmt"
	"regexp"
)

// Process tool enumeration names as they appear at invocation sites
const (
	ToolLibreOffice  = "LIBRE_OFFICE"
	ToolOCRMyPDF     = "OCR_MY_PDF"
	ToolPythonOpenCV = "PYTHON_OPENCV"
	ToolCalibre      = "CALIBRE"
	ToolGhostscript  = "GHOSTSCRIPT"
)

const processInvocation = `ProcessExecutor\.getInstance\((.*?)\)`

// Generator names the remediation template a tool is hardened with
type Generator string

const (
	// GeneratorNone marks a known tool that has no remediation
	GeneratorNone Generator = ""
	// GeneratorSecureExecutor renders a sanitizing command executor
	GeneratorSecureExecutor Generator = "secure-executor"
	// GeneratorOCRBuilder renders a path-validating OCR command builder
	GeneratorOCRBuilder Generator = "ocr-builder"
)

// Tool is an external program reachable through the process executor
type Tool struct {
	Name       string
	Executable string
	Generator  Generator

	span *regexp.Regexp
}

// Remediable reports whether the tool has a remediation generator
func (t Tool) Remediable() bool {
	return t.Generator != GeneratorNone
}

// Span matches an invocation of this tool from the getInstance call through
// the first following "command)", across line breaks.
func (t Tool) Span() *regexp.Regexp {
	return t.span
}

func (c *Catalog) addTool(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("process tool needs a name")
	}
	switch tool.Generator {
	case GeneratorNone, GeneratorSecureExecutor, GeneratorOCRBuilder:
	default:
		return fmt.Errorf("process tool %s: unknown generator %q", tool.Name, tool.Generator)
	}

	tool.span = regexp.MustCompile(
		`ProcessExecutor\.getInstance\((?:ProcessExecutor\.)?(?:Processes\.)?` +
			regexp.QuoteMeta(tool.Name) + `\)(?s:.*?)command\)`)

	if i, ok := c.toolIndex[tool.Name]; ok {
		c.tools[i] = tool
		return nil
	}
	c.toolIndex[tool.Name] = len(c.tools)
	c.tools = append(c.tools, tool)
	return nil
}

func builtinTools() []Tool {
	return []Tool{
		{Name: ToolLibreOffice, Executable: "unoconv", Generator: GeneratorSecureExecutor},
		{Name: ToolOCRMyPDF, Executable: "ocrmypdf", Generator: GeneratorOCRBuilder},
		{Name: ToolPythonOpenCV, Executable: "python"},
		{Name: ToolCalibre, Executable: "ebook-convert"},
		{Name: ToolGhostscript, Executable: "gs"},
	}
}

func builtinProcessDetectors() []Detector {
	return []Detector{
		{
			Name:     "process-executor-instance",
			Category: CategoryProcessExecution,
			Matcher:  Regex(processInvocation),
		},
	}
}
