package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/observability"
)

// Command describes one program invocation.
type Command struct {
	Name string   // Binary name or path
	Args []string // Arguments, not including Name
	Dir  string   // Working directory; empty means the current one
}

// String returns the command line, for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Output holds the captured streams of a finished process.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Combined returns stderr followed by stdout, trimmed. This is the diagnostic
// text reported when a tool fails.
func (o Output) Combined() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(string(o.Stderr)); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(string(o.Stdout)); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// Runner executes commands. Implementations must be safe for concurrent use.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds each call. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// NewExecRunner creates a runner with the given per-call timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run starts the command and waits for it to exit.
//
// A missing binary yields a *apperrors.ToolUnavailableError. A run that
// exceeds the timeout yields an error with code apperrors.ErrCodeTimeout. If ctx itself
// is cancelled, the returned error wraps ctx.Err().
func (r *ExecRunner) Run(ctx context.Context, c Command) (out Output, err error) {
	hooks := observability.Tool()
	hooks.OnToolStart(ctx, c.Name, c.Args)
	start := time.Now()
	defer func() { hooks.OnToolComplete(ctx, c.Name, time.Since(start), err) }()

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	out = Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return out, nil
	}

	if ctx.Err() != nil {
		return out, fmt.Errorf("%s: %w", c.Name, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return out, apperrors.Wrap(apperrors.ErrCodeTimeout, runCtx.Err(), "%s timed out after %s", c.Name, r.Timeout)
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) || (cmd.ProcessState == nil && errors.Is(err, fs.ErrNotExist)) {
		return out, &apperrors.ToolUnavailableError{Tool: c.Name, Binary: c.Name, Cause: err}
	}
	return out, fmt.Errorf("%s: %w", c.Name, err)
}

var _ Runner = (*ExecRunner)(nil)
