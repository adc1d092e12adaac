package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/tracegraph/pkg/cache"
	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// fakeRunner records commands and simulates tool behavior.
type fakeRunner struct {
	mu    sync.Mutex
	calls []toolexec.Command
	fn    func(toolexec.Command) (toolexec.Output, error)
}

func (f *fakeRunner) Run(_ context.Context, c toolexec.Command) (toolexec.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(c)
	}
	return toolexec.Output{}, nil
}

// writesOutput creates the file following "-o" (dot) or the last argument
// (convert), containing the joined arguments.
func writesOutput(c toolexec.Command) (toolexec.Output, error) {
	out := c.Args[len(c.Args)-1]
	for i, a := range c.Args {
		if a == "-o" && i+1 < len(c.Args) {
			out = c.Args[i+1]
		}
	}
	return toolexec.Output{}, os.WriteFile(out, []byte(strings.Join(c.Args, " ")), 0644)
}

var sampleDoc = trace.GraphDocument{
	Position: 2,
	Tick:     1,
	Source:   "digraph regexp {\n  0 -> 1;\n}",
}

func TestDotRendererCommand(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{fn: writesOutput}
	r := NewDotRenderer(WithRunner(runner), WithBinary("/opt/graphviz/bin/dot"))

	graph := filepath.Join(dir, "2_1.dot")
	image := filepath.Join(dir, "2_1.svg")
	if err := r.Render(context.Background(), sampleDoc, "svg", graph, image); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(runner.calls))
	}
	want := toolexec.Command{Name: "/opt/graphviz/bin/dot", Args: []string{"-Tsvg", "-o", image, graph}}
	if !reflect.DeepEqual(runner.calls[0], want) {
		t.Errorf("command = %+v, want %+v", runner.calls[0], want)
	}

	data, err := os.ReadFile(graph)
	if err != nil {
		t.Fatalf("graph file: %v", err)
	}
	if string(data) != sampleDoc.Source {
		t.Errorf("graph file = %q, want source", data)
	}
	if _, err := os.Stat(image); err != nil {
		t.Errorf("image not produced: %v", err)
	}
}

func TestDotRendererFailure(t *testing.T) {
	dir := t.TempDir()
	cause := errors.New("exit status 1")
	runner := &fakeRunner{fn: func(toolexec.Command) (toolexec.Output, error) {
		return toolexec.Output{Stderr: []byte("Error: syntax error in line 2 near '->'\n")}, cause
	}}
	r := NewDotRenderer(WithRunner(runner))

	err := r.Render(context.Background(), sampleDoc, "png", filepath.Join(dir, "g.dot"), filepath.Join(dir, "g.png"))
	var renderErr *apperrors.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("Render() error = %v, want RenderError", err)
	}
	if renderErr.Position != 2 || renderErr.Tick != 1 {
		t.Errorf("coordinates = (%d, %d), want (2, 1)", renderErr.Position, renderErr.Tick)
	}
	if !strings.Contains(renderErr.Output, "syntax error in line 2") {
		t.Errorf("Output = %q, want captured stderr", renderErr.Output)
	}
	if !errors.Is(err, cause) {
		t.Error("RenderError should unwrap to the runner error")
	}
	if !apperrors.Is(err, apperrors.ErrCodeRenderFailed) {
		t.Errorf("code = %v", apperrors.GetCode(err))
	}
}

func TestDotRendererTimeoutKeepsCode(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{fn: func(toolexec.Command) (toolexec.Output, error) {
		return toolexec.Output{}, apperrors.New(apperrors.ErrCodeTimeout, "dot timed out after 30s")
	}}
	err := NewDotRenderer(WithRunner(runner)).Render(context.Background(), sampleDoc, "png",
		filepath.Join(dir, "g.dot"), filepath.Join(dir, "g.png"))

	if !apperrors.Is(err, apperrors.ErrCodeRenderFailed) || !apperrors.Is(err, apperrors.ErrCodeTimeout) {
		t.Errorf("error %v should carry both render and timeout codes", err)
	}
}

func TestDotRendererGraphWriteFailure(t *testing.T) {
	runner := &fakeRunner{}
	r := NewDotRenderer(WithRunner(runner))

	missing := filepath.Join(t.TempDir(), "absent", "g.dot")
	err := r.Render(context.Background(), sampleDoc, "png", missing, "out.png")
	if !apperrors.Is(err, apperrors.ErrCodeRenderFailed) {
		t.Fatalf("Render() error = %v, want render failure", err)
	}
	if len(runner.calls) != 0 {
		t.Error("dot should not run when the graph file cannot be written")
	}
}

func TestDotRendererTools(t *testing.T) {
	tools := NewDotRenderer(WithBinary("dot2")).Tools()
	if len(tools) != 1 || tools[0].Binary != "dot2" || tools[0].Name != toolexec.Dot.Name {
		t.Errorf("Tools() = %+v", tools)
	}
}

func TestConvertCompositorCommand(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{fn: writesOutput}
	c := NewConvertCompositor(WithRunner(runner))

	images := []string{filepath.Join(dir, "0_0.png"), filepath.Join(dir, "0_1.png"), filepath.Join(dir, "0_2.png")}
	out := filepath.Join(dir, "0_0.out.png")
	if err := c.Composite(context.Background(), 0, images, out); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	want := toolexec.Command{Name: "convert", Args: append(append([]string{}, images...), "-append", out)}
	if len(runner.calls) != 1 || !reflect.DeepEqual(runner.calls[0], want) {
		t.Errorf("calls = %+v, want %+v", runner.calls, want)
	}
}

func TestConvertCompositorNoImages(t *testing.T) {
	runner := &fakeRunner{}
	err := NewConvertCompositor(WithRunner(runner)).Composite(context.Background(), 4, nil, "out.png")

	var compErr *apperrors.CompositeError
	if !errors.As(err, &compErr) {
		t.Fatalf("Composite() error = %v, want CompositeError", err)
	}
	if compErr.Position != 4 || !errors.Is(err, ErrNoImages) {
		t.Errorf("CompositeError = %+v", compErr)
	}
	if len(runner.calls) != 0 {
		t.Error("convert should not run without images")
	}
}

func TestConvertCompositorSingleImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "1_0.png")
	content := []byte("\x89PNG single tick")
	if err := os.WriteFile(src, content, 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "composite.png")

	runner := &fakeRunner{}
	if err := NewConvertCompositor(WithRunner(runner)).Composite(context.Background(), 1, []string{src}, out); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("composite = %q, want identical to the single tick", got)
	}
	if len(runner.calls) != 0 {
		t.Error("convert should not run for a single image")
	}
}

func TestConvertCompositorFailure(t *testing.T) {
	runner := &fakeRunner{fn: func(toolexec.Command) (toolexec.Output, error) {
		return toolexec.Output{Stderr: []byte("convert: unable to open image")}, errors.New("exit status 1")
	}}
	err := NewConvertCompositor(WithRunner(runner)).Composite(context.Background(), 3, []string{"a.png", "b.png"}, "out.png")

	var compErr *apperrors.CompositeError
	if !errors.As(err, &compErr) {
		t.Fatalf("Composite() error = %v, want CompositeError", err)
	}
	if compErr.Position != 3 || !strings.Contains(compErr.Output, "unable to open image") {
		t.Errorf("CompositeError = %+v", compErr)
	}
}

// countingCache wraps a FileCache and counts Set calls.
type countingCache struct {
	cache.Cache
	sets    int
	lastTTL time.Duration
}

func (c *countingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.sets++
	c.lastTTL = ttl
	return c.Cache.Set(ctx, key, data, ttl)
}

func TestCachingRenderer(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	store := &countingCache{Cache: fc}
	runner := &fakeRunner{fn: writesOutput}
	r := NewCachingRenderer(NewDotRenderer(WithRunner(runner)), store, nil, nil)
	ctx := context.Background()

	first := filepath.Join(dir, "first.png")
	if err := r.Render(ctx, sampleDoc, "png", filepath.Join(dir, "first.dot"), first); err != nil {
		t.Fatalf("first Render() error = %v", err)
	}

	// Same source at other coordinates hits the cache.
	again := sampleDoc
	again.Position, again.Tick = 7, 0
	secondGraph := filepath.Join(dir, "second.dot")
	second := filepath.Join(dir, "second.png")
	if err := r.Render(ctx, again, "png", secondGraph, second); err != nil {
		t.Fatalf("second Render() error = %v", err)
	}

	if len(runner.calls) != 1 {
		t.Errorf("dot calls = %d, want 1", len(runner.calls))
	}
	if store.sets != 1 {
		t.Errorf("cache sets = %d, want 1", store.sets)
	}
	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	if len(a) == 0 || string(a) != string(b) {
		t.Errorf("cached image differs: %q vs %q", a, b)
	}
	if _, err := os.Stat(secondGraph); err != nil {
		t.Errorf("graph file should be written on a cache hit: %v", err)
	}

	// A different format misses.
	if err := r.Render(ctx, sampleDoc, "svg", filepath.Join(dir, "third.dot"), filepath.Join(dir, "third.svg")); err != nil {
		t.Fatal(err)
	}
	if len(runner.calls) != 2 {
		t.Errorf("dot calls after format change = %d, want 2", len(runner.calls))
	}
}

func TestCachingRendererTTL(t *testing.T) {
	dir := t.TempDir()
	store := &countingCache{Cache: cache.NewNullCache()}
	r := NewCachingRenderer(NewDotRenderer(WithRunner(&fakeRunner{fn: writesOutput})), store, nil, nil)
	if r.TTL != cache.TTLImage {
		t.Errorf("default TTL = %v, want %v", r.TTL, cache.TTLImage)
	}

	r.TTL = time.Hour
	if err := r.Render(context.Background(), sampleDoc, "png", filepath.Join(dir, "g.dot"), filepath.Join(dir, "g.png")); err != nil {
		t.Fatal(err)
	}
	if store.lastTTL != time.Hour {
		t.Errorf("Set ttl = %v, want 1h", store.lastTTL)
	}
}

func TestCachingRendererPropagatesFailure(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{fn: func(toolexec.Command) (toolexec.Output, error) {
		return toolexec.Output{}, errors.New("exit status 1")
	}}
	store := &countingCache{Cache: cache.NewNullCache()}
	r := NewCachingRenderer(NewDotRenderer(WithRunner(runner)), store, nil, nil)

	err := r.Render(context.Background(), sampleDoc, "png", filepath.Join(dir, "g.dot"), filepath.Join(dir, "g.png"))
	if !apperrors.Is(err, apperrors.ErrCodeRenderFailed) {
		t.Errorf("Render() error = %v", err)
	}
	if store.sets != 0 {
		t.Error("failed renders must not be cached")
	}
	if tools := r.Tools(); len(tools) != 1 {
		t.Errorf("Tools() = %+v", tools)
	}
}

func TestEmbeddedRenderer(t *testing.T) {
	ctx := context.Background()
	r, err := NewEmbeddedRenderer(ctx)
	if err != nil {
		t.Fatalf("NewEmbeddedRenderer() error = %v", err)
	}
	defer r.Close()

	if tools := r.Tools(); len(tools) != 0 {
		t.Errorf("Tools() = %+v, want none", tools)
	}

	dir := t.TempDir()
	image := filepath.Join(dir, "0_0.svg")
	if err := r.Render(ctx, sampleDoc, "svg", filepath.Join(dir, "0_0.dot"), image); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	data, err := os.ReadFile(image)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Errorf("output is not SVG: %.80s", data)
	}

	bad := trace.GraphDocument{Position: 1, Tick: 2, Source: "digraph { -> -> }"}
	err = r.Render(ctx, bad, "svg", filepath.Join(dir, "1_2.dot"), filepath.Join(dir, "1_2.svg"))
	var renderErr *apperrors.RenderError
	if !errors.As(err, &renderErr) || renderErr.Position != 1 || renderErr.Tick != 2 {
		t.Errorf("Render(bad) error = %v, want RenderError at (1, 2)", err)
	}
}
