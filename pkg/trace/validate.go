package trace

import (
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/tracegraph/pkg/errors"
)

// Validator checks DOT syntax with the embedded Graphviz parser.
// It needs no external tools. A Validator is not safe for concurrent use.
type Validator struct {
	gv *graphviz.Graphviz
}

// NewValidator initializes the embedded Graphviz runtime.
// Call Close when done.
func NewValidator(ctx context.Context) (*Validator, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	return &Validator{gv: gv}, nil
}

// Validate parses the document and reports a syntax error, if any.
func (v *Validator) Validate(doc GraphDocument) error {
	g, err := graphviz.ParseBytes([]byte(doc.Source))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid graph at position %d tick %d", doc.Position, doc.Tick)
	}
	defer g.Close()
	return nil
}

// Close releases the Graphviz runtime.
func (v *Validator) Close() error {
	return v.gv.Close()
}
