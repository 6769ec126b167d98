package proxy

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb/maptile"

	"github.com/matzehuels/vibetiles/pkg/cache"
	vterrors "github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/tile"
)

type fakeFetcher struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (f *fakeFetcher) Tile(ctx context.Context, t maptile.Tile) ([]byte, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("raw:" + tile.NewKey("default", uint32(t.Z), t.X, t.Y).String()), nil
}

type fakeTransformer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTransformer) Transform(ctx context.Context, key tile.Key, raw []byte) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte(string(key.Vibe)+":"), raw...), nil
}

// failingCache reads from an inner cache but never stores.
type failingCache struct {
	cache.Cache
}

func (failingCache) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func quiet() *log.Logger {
	return log.New(&bytes.Buffer{})
}

func newDisk(t *testing.T) *cache.DiskCache {
	t.Helper()
	c, err := cache.NewDiskCache(filepath.Join(t.TempDir(), "tiles"))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRasterTileMissThenHit(t *testing.T) {
	ctx := context.Background()
	f, tr := &fakeFetcher{}, &fakeTransformer{}
	p := New(newDisk(t), f, tr, nil, quiet(), Options{})
	key := tile.NewKey("vintage", 2, 1, 1)

	first, err := p.RasterTile(ctx, key)
	if err != nil {
		t.Fatalf("RasterTile: %v", err)
	}
	second, err := p.RasterTile(ctx, key)
	if err != nil {
		t.Fatalf("RasterTile (cached): %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("cached tile differs from the first response")
	}
	if string(first) != "vintage:raw:default/2/1/1" {
		t.Errorf("tile = %q", first)
	}
	if f.calls.Load() != 1 || tr.calls.Load() != 1 {
		t.Errorf("fetches = %d, transforms = %d, want 1 each", f.calls.Load(), tr.calls.Load())
	}
}

func TestRasterTileServesCacheWithoutUpstream(t *testing.T) {
	ctx := context.Background()
	c := newDisk(t)
	key := tile.NewKey("toner", 5, 10, 12)
	if err := c.Set(ctx, key.Path(), []byte("stored")); err != nil {
		t.Fatal(err)
	}

	f := &fakeFetcher{err: errors.New("unreachable")}
	p := New(c, f, &fakeTransformer{}, nil, quiet(), Options{})

	got, err := p.RasterTile(ctx, key)
	if err != nil {
		t.Fatalf("RasterTile: %v", err)
	}
	if string(got) != "stored" {
		t.Errorf("tile = %q, want stored bytes", got)
	}
	if f.calls.Load() != 0 {
		t.Error("cache hit should not reach the upstream")
	}
}

func TestRasterTileUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	c := newDisk(t)
	f := &fakeFetcher{err: errors.New("connection refused")}
	tr := &fakeTransformer{}
	p := New(c, f, tr, nil, quiet(), Options{})
	key := tile.NewKey("noir", 1, 0, 0)

	_, err := p.RasterTile(ctx, key)
	if !vterrors.Is(err, vterrors.ErrCodeUpstreamUnavailable) {
		t.Fatalf("error = %v, want %s", err, vterrors.ErrCodeUpstreamUnavailable)
	}
	if tr.calls.Load() != 0 {
		t.Error("transform ran without upstream bytes")
	}
	if _, hit, _ := c.Get(ctx, key.Path()); hit {
		t.Error("failed fetch left a cache entry")
	}
}

func TestRasterTileTransformFailureServesUpstream(t *testing.T) {
	ctx := context.Background()
	c := newDisk(t)
	tr := &fakeTransformer{err: errors.New("decode failed")}
	p := New(c, &fakeFetcher{}, tr, nil, quiet(), Options{})
	key := tile.NewKey("blueprint", 3, 2, 1)

	got, err := p.RasterTile(ctx, key)
	if err != nil {
		t.Fatalf("RasterTile: %v", err)
	}
	want := "raw:default/3/2/1"
	if string(got) != want {
		t.Errorf("tile = %q, want upstream bytes %q", got, want)
	}

	stored, hit, err := c.Get(ctx, key.Path())
	if err != nil || !hit {
		t.Fatalf("Get: hit=%v err=%v", hit, err)
	}
	if string(stored) != want {
		t.Errorf("stored = %q, want upstream bytes", stored)
	}
}

func TestRasterTileCacheWriteFailure(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{}
	p := New(failingCache{cache.NewNullCache()}, f, &fakeTransformer{}, nil, quiet(), Options{})
	key := tile.NewKey("dark", 4, 3, 2)

	for i := 0; i < 2; i++ {
		got, err := p.RasterTile(ctx, key)
		if err != nil {
			t.Fatalf("RasterTile: %v", err)
		}
		if string(got) != "dark:raw:default/4/3/2" {
			t.Errorf("tile = %q", got)
		}
	}
	// Nothing was stored, so the tile is regenerated.
	if f.calls.Load() != 2 {
		t.Errorf("fetches = %d, want 2", f.calls.Load())
	}
}

func TestRasterTileUnknownVibe(t *testing.T) {
	f := &fakeFetcher{}
	p := New(nil, f, &fakeTransformer{}, nil, quiet(), Options{})

	_, err := p.RasterTile(context.Background(), tile.NewKey("nope", 0, 0, 0))
	if !vterrors.Is(err, vterrors.ErrCodeUnknownVibe) {
		t.Fatalf("error = %v, want %s", err, vterrors.ErrCodeUnknownVibe)
	}
	if f.calls.Load() != 0 {
		t.Error("unknown vibe reached the upstream")
	}
}

func TestRasterTileSingleFlight(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		maxWant int32
	}{
		{"collapsed", Options{}, 1},
		{"disabled", Options{DisableSingleFlight: true}, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{delay: 100 * time.Millisecond}
			p := New(newDisk(t), f, &fakeTransformer{}, nil, quiet(), tt.opts)
			key := tile.NewKey("watercolor", 6, 20, 30)

			var wg sync.WaitGroup
			results := make([][]byte, 16)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					b, err := p.RasterTile(context.Background(), key)
					if err != nil {
						t.Errorf("RasterTile: %v", err)
					}
					results[i] = b
				}(i)
			}
			wg.Wait()

			if got := f.calls.Load(); got < 1 || got > tt.maxWant {
				t.Errorf("fetches = %d, want between 1 and %d", got, tt.maxWant)
			}
			for _, b := range results {
				if !bytes.Equal(b, results[0]) {
					t.Fatal("concurrent callers got different bytes")
				}
			}
		})
	}
}

func TestRasterTileSharedFillSurvivesCancel(t *testing.T) {
	c := newDisk(t)
	f := &fakeFetcher{delay: 50 * time.Millisecond}
	p := New(c, f, &fakeTransformer{}, nil, quiet(), Options{})
	key := tile.NewKey("mockva", 2, 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.RasterTile(ctx, key); err != nil {
		t.Fatalf("RasterTile with cancelled context: %v", err)
	}
	if _, hit, _ := c.Get(context.Background(), key.Path()); !hit {
		t.Error("tile was not stored")
	}
}
