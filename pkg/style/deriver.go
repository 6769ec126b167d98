// Package style derives per-vibe vector styles from one canonical upstream
// style.
//
// The canonical style is fetched lazily, at most once successfully per
// [Deriver], and never refreshed. Each vibe's derived style is computed from
// a deep copy of it on first request and memoized for the Deriver's
// lifetime. The "default" vibe is the canonical document itself.
//
// Documents returned by [Deriver.Style] are shared between callers and must
// be treated as read-only.
package style

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/observability"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// Document is a decoded MapLibre style document.
type Document = map[string]any

// Fetcher retrieves the canonical style document.
type Fetcher interface {
	Style(ctx context.Context) (map[string]any, error)
}

// Deriver serves canonical and derived styles.
type Deriver struct {
	fetcher  Fetcher
	registry *vibe.Registry
	opts     Options
	logger   *log.Logger

	mu        sync.Mutex
	canonical atomic.Pointer[Document]

	derived sync.Map // vibe.ID -> Document
}

// NewDeriver creates a Deriver. A nil registry selects vibe.Builtin() and a
// nil logger discards output.
func NewDeriver(f Fetcher, reg *vibe.Registry, opts Options, logger *log.Logger) *Deriver {
	if reg == nil {
		reg = vibe.Builtin()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Deriver{
		fetcher:  f,
		registry: reg,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Style returns the style document for id.
//
// Unknown ids fail with ErrCodeUnknownVibe before any upstream call. If the
// canonical style has never been fetched successfully and the fetch fails,
// Style returns ErrCodeUpstreamUnavailable and the next call tries again.
func (d *Deriver) Style(ctx context.Context, id vibe.ID) (Document, error) {
	profile, err := d.registry.Get(id)
	if err != nil {
		return nil, err
	}

	if doc, ok := d.derived.Load(id); ok {
		return doc.(Document), nil
	}

	canonical, err := d.canonicalStyle(ctx)
	if err != nil {
		return nil, err
	}
	if profile.Base {
		return canonical, nil
	}

	start := time.Now()
	doc := Derive(canonical, profile, d.opts)
	// Concurrent derivations of the same vibe produce equal documents, so the
	// first stored one wins and later ones are dropped.
	actual, _ := d.derived.LoadOrStore(id, doc)
	observability.Style().OnDerive(ctx, string(id), time.Since(start))
	d.logger.Debug("derived style", "vibe", id, "layers", len(layers(doc)))
	return actual.(Document), nil
}

// canonicalStyle returns the canonical document, fetching it under d.mu on
// first use. Only success is remembered.
func (d *Deriver) canonicalStyle(ctx context.Context) (Document, error) {
	if doc := d.canonical.Load(); doc != nil {
		return *doc, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if doc := d.canonical.Load(); doc != nil {
		return *doc, nil
	}

	start := time.Now()
	doc, err := d.fetcher.Style(ctx)
	observability.Style().OnCanonicalFetch(ctx, time.Since(start), err)
	if err != nil {
		d.logger.Warn("canonical style fetch failed", "err", err)
		return nil, errors.Wrap(errors.ErrCodeUpstreamUnavailable, err, "fetch canonical style")
	}
	d.logger.Info("fetched canonical style", "layers", len(layers(doc)), "took", time.Since(start).Round(time.Millisecond))

	d.canonical.Store(&doc)
	return doc, nil
}
