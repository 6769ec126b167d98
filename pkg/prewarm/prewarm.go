// Package prewarm fills a running server's tile store by requesting every
// tile of the low zoom levels through its public raster endpoint.
//
// Going through the endpoint keeps a single writer per store and exercises
// the same fetch/transform/fallback path as real clients.
package prewarm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/httputil"
	"github.com/matzehuels/vibetiles/pkg/tile"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// Defaults mirror a local server warmed to zoom 4.
const (
	DefaultBaseURL = "http://localhost:5003"
	DefaultMaxZoom = 4
	DefaultWorkers = 8
	DefaultTimeout = 30 * time.Second
)

// Options configures a prewarm run.
type Options struct {
	BaseURL string
	// Vibes to warm. Empty means every vibe of Registry that has its own
	// tiles.
	Vibes []vibe.ID
	// Registry the server runs with. Nil means the built-in registry.
	Registry *vibe.Registry
	// MaxZoom is at most tile.MaxZoom.
	MaxZoom uint32
	Workers int
	// Timeout bounds each tile request.
	Timeout time.Duration
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Registry == nil {
		o.Registry = vibe.Builtin()
	}
	if len(o.Vibes) == 0 {
		o.Vibes = DerivedVibes(o.Registry)
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Client == nil {
		o.Client = httputil.NewClient(o.Timeout)
	}
	return o
}

// Validate rejects options whose pyramid is too deep to enumerate.
func (o Options) Validate() error {
	if o.MaxZoom > tile.MaxZoom {
		return errors.New(errors.ErrCodeInvalidInput, "max zoom %d exceeds %d", o.MaxZoom, tile.MaxZoom)
	}
	return nil
}

// Total returns the number of requests a run with these options makes.
func (o Options) Total() int64 {
	o = o.withDefaults()
	return int64(len(o.Vibes)) * tile.PyramidSize(o.MaxZoom)
}

// DerivedVibes returns the non-base vibes of reg; the base vibe's tiles are
// the upstream's own.
func DerivedVibes(reg *vibe.Registry) []vibe.ID {
	var ids []vibe.ID
	for _, p := range reg.Profiles() {
		if !p.Base {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Progress is called once per finished tile, from worker goroutines but
// never concurrently. err is nil on success.
type Progress func(key tile.Key, err error)

// Result summarizes a run.
type Result struct {
	Total  int64
	OK     int64
	Failed int64
}

// Run requests every tile of zoom 0 through opts.MaxZoom for each vibe.
// Individual tile failures are counted, not returned; the error is non-nil
// only when the options are invalid or ctx ends the run early.
func Run(ctx context.Context, opts Options, progress Progress) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	opts = opts.withDefaults()
	res := Result{Total: opts.Total()}

	var mu sync.Mutex
	report := func(key tile.Key, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failed++
		} else {
			res.OK++
		}
		if progress != nil {
			progress(key, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	pyramid := tile.Pyramid(opts.MaxZoom)
dispatch:
	for _, id := range opts.Vibes {
		for _, t := range pyramid {
			if gctx.Err() != nil {
				break dispatch
			}
			key := tile.Key{Vibe: id, Tile: t}
			g.Go(func() error {
				report(key, fetch(gctx, opts.Client, tile.RasterURL(opts.BaseURL, key)))
				return nil
			})
		}
	}
	_ = g.Wait()

	return res, ctx.Err()
}

func fetch(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return nil
}
