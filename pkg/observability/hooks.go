// Package observability provides hooks for metrics and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup
// to receive events about style derivation, the raster tile path and
// outgoing HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [MeterHooks] implements every interface on top of an OpenTelemetry meter.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m, _ := observability.NewPrometheus()
//	    observability.Install(m.Hooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Tiles().OnCacheMiss(ctx, "vintage")
//	observability.Tiles().OnFallback(ctx, "vintage", observability.StageTransform, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stages of the raster tile path that can fall back.
const (
	StageRemote     = "remote"      // remote transform failed, local pipeline used
	StageTransform  = "transform"   // pixel transform failed, upstream bytes served
	StageCacheWrite = "cache_write" // tile served without being cached
)

// =============================================================================
// Style Hooks
// =============================================================================

// StyleHooks receives events from the style deriver.
type StyleHooks interface {
	// OnCanonicalFetch records a fetch of the canonical upstream style.
	OnCanonicalFetch(ctx context.Context, duration time.Duration, err error)

	// OnDerive records a per-vibe derivation (memo miss).
	OnDerive(ctx context.Context, vibe string, duration time.Duration)
}

// =============================================================================
// Tile Hooks
// =============================================================================

// TileHooks receives events from the raster tile path.
type TileHooks interface {
	OnCacheHit(ctx context.Context, vibe string)
	OnCacheMiss(ctx context.Context, vibe string)
	OnCacheSet(ctx context.Context, vibe string, size int)

	// OnUpstreamFetch records a raw tile fetch.
	OnUpstreamFetch(ctx context.Context, vibe string, duration time.Duration, err error)

	// OnTransform records a pixel transform on the remote or local path.
	OnTransform(ctx context.Context, vibe, path string, duration time.Duration, err error)

	// OnFallback records a best-effort stage that failed and was skipped.
	OnFallback(ctx context.Context, vibe, stage string, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopStyleHooks is a no-op implementation of StyleHooks.
type NoopStyleHooks struct{}

func (NoopStyleHooks) OnCanonicalFetch(context.Context, time.Duration, error) {}
func (NoopStyleHooks) OnDerive(context.Context, string, time.Duration)        {}

// NoopTileHooks is a no-op implementation of TileHooks.
type NoopTileHooks struct{}

func (NoopTileHooks) OnCacheHit(context.Context, string)                                {}
func (NoopTileHooks) OnCacheMiss(context.Context, string)                               {}
func (NoopTileHooks) OnCacheSet(context.Context, string, int)                           {}
func (NoopTileHooks) OnUpstreamFetch(context.Context, string, time.Duration, error)     {}
func (NoopTileHooks) OnTransform(context.Context, string, string, time.Duration, error) {}
func (NoopTileHooks) OnFallback(context.Context, string, string, error)                 {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	styleHooks StyleHooks = NoopStyleHooks{}
	tileHooks  TileHooks  = NoopTileHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetStyleHooks registers custom style hooks.
// This should be called once at application startup.
func SetStyleHooks(h StyleHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		styleHooks = h
	}
}

// SetTileHooks registers custom tile hooks.
// This should be called once at application startup.
func SetTileHooks(h TileHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		tileHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Install registers h for every hook category.
func Install(h interface {
	StyleHooks
	TileHooks
	HTTPHooks
}) {
	SetStyleHooks(h)
	SetTileHooks(h)
	SetHTTPHooks(h)
}

// Style returns the registered style hooks.
func Style() StyleHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return styleHooks
}

// Tiles returns the registered tile hooks.
func Tiles() TileHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return tileHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	styleHooks = NoopStyleHooks{}
	tileHooks = NoopTileHooks{}
	httpHooks = NoopHTTPHooks{}
}
