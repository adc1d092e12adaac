// Package engine drives the regexp engine's trace output.
//
// The engine is an external executable (tools/compinfo in the engine
// project) that prints a trace when invoked as
//
//	compinfo --match_type=<full|first> --trace_matching <regexp> <text>
//
// When the executable is missing, [Driver.Ensure] runs a configured build
// command (scons -C <root> tools/compinfo by default) and checks again.
package engine

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
)

// Match types understood by the engine.
const (
	MatchFull  = "full"
	MatchFirst = "first"
)

// Option configures a Driver.
type Option func(*Driver)

// WithRunner sets the runner used for trace invocations.
func WithRunner(r toolexec.Runner) Option {
	return func(d *Driver) {
		if r != nil {
			d.runner = r
		}
	}
}

// WithBuildRunner sets the runner used for the build command. Builds are
// usually much slower than traces, so it has its own timeout.
func WithBuildRunner(r toolexec.Runner) Option {
	return func(d *Driver) {
		if r != nil {
			d.buildRunner = r
		}
	}
}

// WithBuildCommand sets the command that builds the engine. An empty command
// disables building.
func WithBuildCommand(cmd []string) Option {
	return func(d *Driver) { d.buildCommand = cmd }
}

// WithMatchType sets "full" or "first".
func WithMatchType(matchType string) Option {
	return func(d *Driver) { d.matchType = strings.TrimSpace(matchType) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// Driver runs the engine to produce traces.
type Driver struct {
	binary       string
	buildCommand []string
	matchType    string
	runner       toolexec.Runner
	buildRunner  toolexec.Runner
	logger       *log.Logger
}

// NewDriver creates a driver for the engine executable at binary.
func NewDriver(binary string, opts ...Option) (*Driver, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "engine binary required")
	}
	d := &Driver{
		binary:      binary,
		matchType:   MatchFull,
		runner:      toolexec.NewExecRunner(0),
		buildRunner: toolexec.NewExecRunner(0),
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.matchType != MatchFull && d.matchType != MatchFirst {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "match type must be %q or %q, got %q", MatchFull, MatchFirst, d.matchType)
	}
	return d, nil
}

// Binary returns the engine executable path.
func (d *Driver) Binary() string {
	return d.binary
}

// Tool describes the engine for availability reports.
func (d *Driver) Tool() toolexec.Tool {
	hint := "set root in the configuration to the engine project"
	if len(d.buildCommand) > 0 {
		hint = "build it with: " + strings.Join(d.buildCommand, " ")
	}
	return toolexec.Tool{Name: "engine", Binary: d.binary, Hint: hint, Optional: true}
}

// Available reports whether the engine executable exists and is executable.
func (d *Driver) Available() bool {
	return isExecutable(d.binary)
}

// Ensure builds the engine if it is not executable yet.
func (d *Driver) Ensure(ctx context.Context) error {
	if isExecutable(d.binary) {
		return nil
	}
	if len(d.buildCommand) == 0 {
		return apperrors.New(apperrors.ErrCodeEngineFailed, "engine %s is not executable and no build command is configured", d.binary)
	}

	cmd := toolexec.Command{Name: d.buildCommand[0], Args: d.buildCommand[1:]}
	d.logger.Info("building engine", "cmd", cmd)
	out, err := d.buildRunner.Run(ctx, cmd)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeEngineFailed, err, "build engine: %s", detail(out))
	}
	if !isExecutable(d.binary) {
		return apperrors.New(apperrors.ErrCodeEngineFailed, "failed to use %s after building", d.binary)
	}
	return nil
}

// Trace matches pattern against text and returns the engine's trace output.
func (d *Driver) Trace(ctx context.Context, pattern, text string) (string, error) {
	if err := d.Ensure(ctx); err != nil {
		return "", err
	}

	cmd := toolexec.Command{
		Name: d.binary,
		Args: []string{"--match_type=" + d.matchType, "--trace_matching", pattern, text},
	}
	d.logger.Debug("running engine", "cmd", cmd)
	out, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeEngineFailed, err, "trace %q: %s", pattern, detail(out))
	}
	d.logger.Debug("engine trace", "bytes", len(out.Stdout))
	return string(out.Stdout), nil
}

func detail(out toolexec.Output) string {
	if s := out.Combined(); s != "" {
		return s
	}
	return "no output"
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
