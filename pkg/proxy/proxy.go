// Package proxy serves per-vibe raster tiles through the tile store.
//
// A request is answered from the store when possible. On a miss the raw tile
// is fetched from the upstream once, restyled, written to the store and
// returned. Only the upstream fetch is required to succeed:
//
//   - a transform failure serves (and stores) the untransformed upstream tile
//   - a store write failure still serves the tile, which is then regenerated
//     on the next request for the same key
//
// Concurrent misses for the same key are collapsed into a single
// fetch/transform/write unless single-flight is disabled.
package proxy

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/vibetiles/pkg/cache"
	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/observability"
	"github.com/matzehuels/vibetiles/pkg/tile"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// Fetcher retrieves raw upstream tiles.
type Fetcher interface {
	Tile(ctx context.Context, t maptile.Tile) ([]byte, error)
}

// Transformer restyles raw tile bytes.
type Transformer interface {
	Transform(ctx context.Context, key tile.Key, raw []byte) ([]byte, error)
}

// Options configures a Proxy.
type Options struct {
	// DisableSingleFlight lets concurrent misses of one key each do the
	// full fetch/transform/write.
	DisableSingleFlight bool
}

// Proxy is the raster tile path.
type Proxy struct {
	Cache       cache.Cache
	Fetcher     Fetcher
	Transformer Transformer
	Registry    *vibe.Registry
	Logger      *log.Logger

	singleFlight bool
	group        singleflight.Group
}

// New creates a Proxy.
// If c is nil, a NullCache is used (caching disabled).
// If reg is nil, the built-in vibe registry is used.
func New(c cache.Cache, f Fetcher, t Transformer, reg *vibe.Registry, logger *log.Logger, opts Options) *Proxy {
	if c == nil {
		c = cache.NewNullCache()
	}
	if reg == nil {
		reg = vibe.Builtin()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Proxy{
		Cache:        c,
		Fetcher:      f,
		Transformer:  t,
		Registry:     reg,
		Logger:       logger,
		singleFlight: !opts.DisableSingleFlight,
	}
}

// RasterTile returns the PNG bytes for key.
//
// Unknown vibes fail with ErrCodeUnknownVibe before the store or upstream is
// touched. An upstream failure on a miss fails with
// ErrCodeUpstreamUnavailable and stores nothing.
func (p *Proxy) RasterTile(ctx context.Context, key tile.Key) ([]byte, error) {
	if !p.Registry.Has(key.Vibe) {
		return nil, errors.New(errors.ErrCodeUnknownVibe, "unknown vibe %q", key.Vibe)
	}

	hooks := observability.Tiles()
	id := string(key.Vibe)

	data, hit, err := p.Cache.Get(ctx, key.Path())
	if err != nil {
		p.Logger.Warn("cache read failed, treating as miss", "tile", key, "err", err)
	}
	if hit {
		hooks.OnCacheHit(ctx, id)
		return data, nil
	}
	hooks.OnCacheMiss(ctx, id)

	if !p.singleFlight {
		return p.fill(ctx, key)
	}

	// The shared fill outlives any single caller's cancellation; the
	// upstream and transform timeouts bound it.
	v, err, shared := p.group.Do(key.Path(), func() (any, error) {
		return p.fill(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.Logger.Debug("joined in-flight tile", "tile", key)
	}
	return v.([]byte), nil
}

// fill runs fetch, transform and store for one missing tile.
func (p *Proxy) fill(ctx context.Context, key tile.Key) ([]byte, error) {
	hooks := observability.Tiles()
	id := string(key.Vibe)

	start := time.Now()
	raw, err := p.Fetcher.Tile(ctx, key.Tile)
	hooks.OnUpstreamFetch(ctx, id, time.Since(start), err)
	if err != nil {
		p.Logger.Error("upstream tile fetch failed", "tile", key, "err", err)
		return nil, errors.Wrap(errors.ErrCodeUpstreamUnavailable, err, "fetch tile %s", key)
	}

	out, err := p.Transformer.Transform(ctx, key, raw)
	if err != nil {
		p.Logger.Warn("transform failed, serving upstream tile", "tile", key, "err", err)
		hooks.OnFallback(ctx, id, observability.StageTransform, err)
		out = raw
	}

	if err := p.Cache.Set(ctx, key.Path(), out); err != nil {
		err = errors.Wrap(errors.ErrCodeCacheWrite, err, "store tile %s", key)
		p.Logger.Warn("cache write failed", "tile", key, "err", err)
		hooks.OnFallback(ctx, id, observability.StageCacheWrite, err)
	} else {
		hooks.OnCacheSet(ctx, id, len(out))
	}

	p.Logger.Debug("filled tile", "tile", key, "bytes", len(out), "took", time.Since(start).Round(time.Millisecond))
	return out, nil
}
