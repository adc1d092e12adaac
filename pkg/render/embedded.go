package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-graphviz"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// EmbeddedRenderer lays graphs out in-process with the WebAssembly build of
// Graphviz. A Graphviz instance is not safe for concurrent use, so calls are
// serialized.
type EmbeddedRenderer struct {
	mu sync.Mutex
	gv *graphviz.Graphviz
}

// NewEmbeddedRenderer initializes the Graphviz runtime. Call Close when done.
func NewEmbeddedRenderer(ctx context.Context) (*EmbeddedRenderer, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	return &EmbeddedRenderer{gv: gv}, nil
}

// Tools returns nil: no external program is required.
func (r *EmbeddedRenderer) Tools() []toolexec.Tool {
	return nil
}

// Render writes the graph file and the image produced by the embedded layout.
func (r *EmbeddedRenderer) Render(ctx context.Context, doc trace.GraphDocument, format, graphPath, imagePath string) error {
	if err := writeGraph(doc, graphPath); err != nil {
		return err
	}

	data, err := r.render(ctx, doc.Source, format)
	if err != nil {
		return &apperrors.RenderError{Position: doc.Position, Tick: doc.Tick, Cause: err}
	}
	if err := os.WriteFile(imagePath, data, 0644); err != nil {
		return &apperrors.RenderError{Position: doc.Position, Tick: doc.Tick, Cause: fmt.Errorf("write image: %w", err)}
	}
	return nil
}

func (r *EmbeddedRenderer) render(ctx context.Context, source, format string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := graphviz.ParseBytes([]byte(source))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := r.gv.Render(ctx, g, graphviz.Format(format), &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Close releases the Graphviz runtime.
func (r *EmbeddedRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gv.Close()
}

var _ Renderer = (*EmbeddedRenderer)(nil)
