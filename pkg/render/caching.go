package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tracegraph/pkg/cache"
	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/observability"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

const keyTypeImage = "image"

// CachingRenderer reuses images of identical graph sources.
//
// On a hit the raw graph file is still written and the cached bytes are
// copied to the image path, so the output layout is the same either way.
// Cache errors are logged and treated as misses.
type CachingRenderer struct {
	Inner  Renderer
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
}

// NewCachingRenderer wraps inner. A nil cache disables caching; a nil keyer
// uses the default keyer.
func NewCachingRenderer(inner Renderer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *CachingRenderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachingRenderer{
		Inner:  inner,
		Cache:  c,
		Keyer:  keyer,
		TTL:    cache.TTLImage,
		Logger: logger,
	}
}

// Tools returns the tools of the wrapped renderer.
func (r *CachingRenderer) Tools() []toolexec.Tool {
	return r.Inner.Tools()
}

// Render serves the image from the cache or renders and stores it.
func (r *CachingRenderer) Render(ctx context.Context, doc trace.GraphDocument, format, graphPath, imagePath string) error {
	key := r.Keyer.ImageKey(cache.Hash([]byte(doc.Source)), format)
	hooks := observability.Cache()

	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "position", doc.Position, "tick", doc.Tick, "error", err)
	}
	if err == nil && hit {
		hooks.OnCacheHit(ctx, keyTypeImage)
		if err := writeGraph(doc, graphPath); err != nil {
			return err
		}
		if err := os.WriteFile(imagePath, data, 0644); err != nil {
			return &apperrors.RenderError{Position: doc.Position, Tick: doc.Tick, Cause: fmt.Errorf("write image: %w", err)}
		}
		r.Logger.Debug("image cache hit", "position", doc.Position, "tick", doc.Tick)
		return nil
	}
	hooks.OnCacheMiss(ctx, keyTypeImage)

	if err := r.Inner.Render(ctx, doc, format, graphPath, imagePath); err != nil {
		return err
	}

	img, err := os.ReadFile(imagePath)
	if err != nil {
		r.Logger.Warn("cannot read rendered image for cache", "path", imagePath, "error", err)
		return nil
	}
	if err := r.Cache.Set(ctx, key, img, r.TTL); err != nil {
		r.Logger.Warn("cache write failed", "position", doc.Position, "tick", doc.Tick, "error", err)
		return nil
	}
	hooks.OnCacheSet(ctx, keyTypeImage, len(img))
	return nil
}

var _ Renderer = (*CachingRenderer)(nil)
