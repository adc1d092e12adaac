package toolexec

import (
	"fmt"
	"os/exec"
	"strings"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
)

// Tool names an external program the pipeline depends on.
type Tool struct {
	Name     string // Logical role, e.g. "renderer"
	Binary   string // Binary name or path
	Hint     string // Installation hint shown when missing
	Optional bool
}

// Well-known tools.
var (
	// Dot is the Graphviz layout renderer.
	Dot = Tool{
		Name:   "renderer",
		Binary: "dot",
		Hint:   "install Graphviz: brew install graphviz (macOS), apt install graphviz (Linux)",
	}

	// Convert is the ImageMagick compositor.
	Convert = Tool{
		Name:   "compositor",
		Binary: "convert",
		Hint:   "install ImageMagick: brew install imagemagick (macOS), apt install imagemagick (Linux)",
	}
)

// WithBinary returns a copy of t using the given binary, if non-empty.
func (t Tool) WithBinary(binary string) Tool {
	if b := strings.TrimSpace(binary); b != "" {
		t.Binary = b
	}
	return t
}

// Check resolves the binary on PATH.
// It returns a *apperrors.ToolUnavailableError if it cannot be found.
func (t Tool) Check() error {
	_, err := t.Resolve()
	return err
}

// Resolve returns the absolute path of the binary.
func (t Tool) Resolve() (string, error) {
	bin := strings.TrimSpace(t.Binary)
	if bin == "" {
		return "", &apperrors.ToolUnavailableError{Tool: t.Name, Binary: bin, Hint: "binary not configured"}
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", &apperrors.ToolUnavailableError{Tool: t.Name, Binary: bin, Hint: t.Hint, Cause: err}
	}
	return path, nil
}

// Check verifies that every tool is available and returns the first failure.
func Check(tools ...Tool) error {
	for _, t := range tools {
		if err := t.Check(); err != nil {
			return err
		}
	}
	return nil
}

// Status reports the availability of a tool.
type Status struct {
	Tool      Tool
	Path      string // Resolved path when available
	Available bool
	Detail    string
}

// CheckAll evaluates every tool and reports availability.
func CheckAll(tools []Tool) []Status {
	results := make([]Status, 0, len(tools))
	for _, t := range tools {
		status := Status{Tool: t}
		path, err := t.Resolve()
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", t.Binary)
			if strings.TrimSpace(t.Binary) == "" {
				status.Detail = "binary not configured"
			}
		} else {
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}
