package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matzehuels/tracegraph/pkg/observability"
)

// runCounts summarizes one pipeline run as seen through the hooks.
type runCounts struct {
	Positions  int // Positions found by the parser
	Ticks      int // Ticks found by the parser
	Rendered   int // Ticks whose render completed
	Composited int // Positions whose composite completed
	CacheHits  int
	CacheMiss  int
}

// progressHooks counts pipeline and cache events and mirrors them into the
// attached spinner. It is registered once and reset per run.
type progressHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks

	mu      sync.Mutex
	counts  runCounts
	spinner *Spinner
}

func newProgressHooks() *progressHooks {
	return &progressHooks{}
}

// attach resets the counters and starts reporting to s, which may be nil.
func (h *progressHooks) attach(s *Spinner) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts = runCounts{}
	h.spinner = s
}

// detach stops reporting and returns the final counts.
func (h *progressHooks) detach() runCounts {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.spinner = nil
	return h.counts
}

func (h *progressHooks) OnParseComplete(_ context.Context, positions, ticks int, _ time.Duration, _ error) {
	h.update(func(c *runCounts) {
		c.Positions = positions
		c.Ticks = ticks
	})
}

func (h *progressHooks) OnRenderComplete(_ context.Context, _, _ int, _ time.Duration, err error) {
	if err != nil {
		return
	}
	h.update(func(c *runCounts) { c.Rendered++ })
}

func (h *progressHooks) OnCompositeComplete(_ context.Context, _ int, _ time.Duration, err error) {
	if err != nil {
		return
	}
	h.update(func(c *runCounts) { c.Composited++ })
}

func (h *progressHooks) OnCacheHit(context.Context, string) {
	h.update(func(c *runCounts) { c.CacheHits++ })
}

func (h *progressHooks) OnCacheMiss(context.Context, string) {
	h.update(func(c *runCounts) { c.CacheMiss++ })
}

func (h *progressHooks) update(fn func(*runCounts)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.counts)
	if h.spinner != nil {
		h.spinner.SetMessage(h.counts.message())
	}
}

// message renders the counts as a spinner line.
func (c runCounts) message() string {
	if c.Ticks == 0 {
		return "Parsing trace"
	}
	return fmt.Sprintf("Rendering position %d/%d · tick %d/%d",
		min(c.Composited+1, c.Positions), c.Positions, c.Rendered, c.Ticks)
}

var (
	_ observability.PipelineHooks = (*progressHooks)(nil)
	_ observability.CacheHooks    = (*progressHooks)(nil)
)
