package render

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
)

// ErrNoImages is the cause of a CompositeError for a position without images.
var ErrNoImages = errors.New("no images to composite")

// Compositor stacks the images of one position vertically.
type Compositor interface {
	// Composite writes images, top to bottom in the given order, to out.
	// Failures are returned as *errors.CompositeError. Implementations may
	// skip the external tool for a single image as long as out ends up
	// identical to that image; ConvertCompositor copies it.
	Composite(ctx context.Context, position int, images []string, out string) error

	// Tools lists the external programs the compositor needs.
	Tools() []toolexec.Tool
}

// ConvertCompositor runs ImageMagick convert with -append.
type ConvertCompositor struct {
	tool   toolexec.Tool
	runner toolexec.Runner
	logger *log.Logger
}

// NewConvertCompositor creates a compositor invoking convert.
func NewConvertCompositor(opts ...Option) *ConvertCompositor {
	o := buildOptions(opts)
	return &ConvertCompositor{
		tool:   toolexec.Convert.WithBinary(o.binary),
		runner: o.runner,
		logger: o.logger,
	}
}

// Tools returns the convert tool.
func (c *ConvertCompositor) Tools() []toolexec.Tool {
	return []toolexec.Tool{c.tool}
}

// Composite runs convert <images...> -append <out>.
//
// A single image is copied byte for byte instead, which yields the same
// file the tool would produce for a one-image stack.
func (c *ConvertCompositor) Composite(ctx context.Context, position int, images []string, out string) error {
	switch len(images) {
	case 0:
		return &apperrors.CompositeError{Position: position, Cause: ErrNoImages}
	case 1:
		if err := copyFile(images[0], out); err != nil {
			return &apperrors.CompositeError{Position: position, Cause: err}
		}
		c.logger.Debug("copied single tick", "position", position, "out", out)
		return nil
	}

	args := make([]string, 0, len(images)+2)
	args = append(args, images...)
	args = append(args, "-append", out)
	cmd := toolexec.Command{Name: c.tool.Binary, Args: args}
	c.logger.Debug("compositing position", "position", position, "images", len(images), "cmd", cmd)

	output, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return &apperrors.CompositeError{
			Position: position,
			Output:   output.Combined(),
			Cause:    err,
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

var _ Compositor = (*ConvertCompositor)(nil)
