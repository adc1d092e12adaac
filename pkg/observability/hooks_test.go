package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnParseStart(ctx, 1024)
	p.OnParseComplete(ctx, 2, 5, time.Second, nil)
	p.OnRenderStart(ctx, 0, 1, "png")
	p.OnRenderComplete(ctx, 0, 1, time.Second, errors.New("boom"))
	p.OnCompositeStart(ctx, 0, 3)
	p.OnCompositeComplete(ctx, 0, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "image")
	c.OnCacheMiss(ctx, "image")
	c.OnCacheSet(ctx, "image", 1024)

	// Tool hooks
	h := NoopToolHooks{}
	h.OnToolStart(ctx, "dot", []string{"-Tpng"})
	h.OnToolComplete(ctx, "dot", time.Second, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Tool().(NoopToolHooks); !ok {
		t.Error("Tool() should return NoopToolHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customTool := &testToolHooks{}
	SetToolHooks(customTool)
	if Tool() != customTool {
		t.Error("SetToolHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Tool().(NoopToolHooks); !ok {
		t.Error("Reset() should restore NoopToolHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)
	SetCacheHooks(nil)
	SetToolHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("SetCacheHooks(nil) should keep the default")
	}
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testToolHooks struct{ NoopToolHooks }
