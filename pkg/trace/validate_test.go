package trace

import (
	"context"
	"testing"

	"github.com/matzehuels/tracegraph/pkg/errors"
)

func TestValidator(t *testing.T) {
	v, err := NewValidator(context.Background())
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	defer v.Close()

	valid := GraphDocument{Position: 0, Tick: 0, Source: "digraph regexp {\n  0 -> 1 [label=\"a{2}\"];\n}"}
	if err := v.Validate(valid); err != nil {
		t.Errorf("Validate(valid) error = %v", err)
	}

	invalid := GraphDocument{Position: 3, Tick: 1, Source: "digraph { -> -> }"}
	err = v.Validate(invalid)
	if err == nil {
		t.Fatal("Validate(invalid) expected error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Validate(invalid) code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}
