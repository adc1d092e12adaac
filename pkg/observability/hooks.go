// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pipeline stages, cache operations, and external tool
// invocations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so packages that emit
// events never import a concrete backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnParseStart(ctx, len(raw))
//	// ... parse ...
//	observability.Pipeline().OnParseComplete(ctx, positions, ticks, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the trace visualization pipeline.
type PipelineHooks interface {
	// Parse events
	OnParseStart(ctx context.Context, traceBytes int)
	OnParseComplete(ctx context.Context, positions, ticks int, duration time.Duration, err error)

	// Render events, one pair per tick
	OnRenderStart(ctx context.Context, position, tick int, format string)
	OnRenderComplete(ctx context.Context, position, tick int, duration time.Duration, err error)

	// Composite events, one pair per position
	OnCompositeStart(ctx context.Context, position, images int)
	OnCompositeComplete(ctx context.Context, position int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Tool Hooks
// =============================================================================

// ToolHooks receives events from external process invocations.
type ToolHooks interface {
	// OnToolStart records the launch of an external program.
	OnToolStart(ctx context.Context, binary string, args []string)

	// OnToolComplete records its termination.
	OnToolComplete(ctx context.Context, binary string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnParseStart(context.Context, int)                                 {}
func (NoopPipelineHooks) OnParseComplete(context.Context, int, int, time.Duration, error)   {}
func (NoopPipelineHooks) OnRenderStart(context.Context, int, int, string)                   {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, int, int, time.Duration, error)  {}
func (NoopPipelineHooks) OnCompositeStart(context.Context, int, int)                        {}
func (NoopPipelineHooks) OnCompositeComplete(context.Context, int, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopToolHooks is a no-op implementation of ToolHooks.
type NoopToolHooks struct{}

func (NoopToolHooks) OnToolStart(context.Context, string, []string)                {}
func (NoopToolHooks) OnToolComplete(context.Context, string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	toolHooks     ToolHooks     = NoopToolHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetToolHooks registers custom tool hooks.
func SetToolHooks(h ToolHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		toolHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Tool returns the registered tool hooks.
func Tool() ToolHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return toolHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	toolHooks = NoopToolHooks{}
}
