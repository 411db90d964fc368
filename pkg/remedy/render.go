package remedy

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("remedy").
		Funcs(template.FuncMap{"jstr": javaString}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

type processData struct {
	Tool       string
	Executable string
}

type securityContextData struct {
	AllowedCommands []string
}

type validationData struct {
	Identifier string
	Bucket     string
	Pattern    string
	MaxLength  int
}

func render(name string, data interface{}) (string, error) {
	var out strings.Builder
	if err := templates.ExecuteTemplate(&out, name, data); err != nil {
		return "", fmt.Errorf("template %s execution failed: %w", name, err)
	}
	return strings.Trim(out.String(), "\n"), nil
}

// RenderProcess renders the drop-in replacement for an invocation of tool.
// A tool without a generator yields a capability error.
func RenderProcess(tool catalog.Tool) (string, error) {
	data := processData{Tool: tool.Name, Executable: tool.Executable}

	switch tool.Generator {
	case catalog.GeneratorSecureExecutor:
		return render("secure_executor", data)
	case catalog.GeneratorOCRBuilder:
		return render("ocr_builder", data)
	default:
		return "", errors.CapabilityError(tool.Name)
	}
}

// RenderSecurityContext renders the restricted-environment context and input
// validator classes prepended to a hardened fragment. The command allow-list
// is built from the executables of the given tools.
func RenderSecurityContext(tools []catalog.Tool) (string, error) {
	var allowed []string
	seen := make(map[string]bool)
	for _, tool := range tools {
		if tool.Executable == "" || seen[tool.Executable] {
			continue
		}
		seen[tool.Executable] = true
		allowed = append(allowed, tool.Executable)
	}
	return render("security_context", securityContextData{AllowedCommands: allowed})
}

// RenderTransportPreamble renders the trust-store and key-store declarations
func RenderTransportPreamble() (string, error) {
	return render("transport_preamble", nil)
}

// RenderTransportBlock renders one snippet per operation, newline-joined, in
// the order given. No operations yields an empty block.
func RenderTransportBlock(ops []catalog.SocketOp) (string, error) {
	snippets := make([]string, 0, len(ops))
	for _, op := range ops {
		snippet, err := render("transport_"+string(op), nil)
		if err != nil {
			return "", err
		}
		snippets = append(snippets, snippet)
	}
	return strings.Join(snippets, "\n"), nil
}

// RenderValidation renders the guard sequence for one identifier. The
// parent-directory check is part of every block regardless of the rule.
func RenderValidation(identifier string, rule catalog.WhitelistRule) (string, error) {
	if identifier == "" {
		return "", errors.ValidationError("identifier must not be empty")
	}
	maxLength := rule.MaxLength
	if maxLength <= 0 {
		maxLength = catalog.DefaultMaxLength
	}
	return render("validation", validationData{
		Identifier: identifier,
		Bucket:     string(rule.Bucket),
		Pattern:    rule.Pattern,
		MaxLength:  maxLength,
	})
}

// javaString quotes s as a Java string literal
func javaString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
