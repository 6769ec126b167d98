package prewarm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/tile"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

const mintRegistry = `
[[vibe]]
id   = "default"
name = "Base"
base = true

[[vibe]]
id         = "mint"
name       = "Mint"
background = "#e8fff4"
land       = "#c8f0dc"
water      = "#6fc2b0"
road       = "#ffffff"
label      = "#2d4a40"
`

func TestDerivedVibesSkipsBase(t *testing.T) {
	ids := DerivedVibes(vibe.Builtin())
	if len(ids) != len(vibe.Builtin().IDs())-1 {
		t.Fatalf("DerivedVibes = %v", ids)
	}
	for _, id := range ids {
		if id == vibe.DefaultID {
			t.Error("base vibe should not be warmed")
		}
	}
}

func TestTotal(t *testing.T) {
	opts := Options{Vibes: []vibe.ID{"toner", "noir"}, MaxZoom: 2}
	if got := opts.Total(); got != 2*21 {
		t.Errorf("Total = %d, want 42", got)
	}
}

func TestRun(t *testing.T) {
	var (
		mu    sync.Mutex
		paths = map[string]int{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path]++
		mu.Unlock()
		// One tile of noir fails.
		if r.URL.Path == "/api/tiles/raster/noir/1/1/0.png" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()

	var (
		seen   []tile.Key
		failed []tile.Key
	)
	res, err := Run(context.Background(), Options{
		BaseURL: srv.URL,
		Vibes:   []vibe.ID{"toner", "noir"},
		MaxZoom: 1,
		Workers: 3,
	}, func(key tile.Key, err error) {
		seen = append(seen, key)
		if err != nil {
			failed = append(failed, key)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Total != 10 || res.OK != 9 || res.Failed != 1 {
		t.Errorf("Result = %+v, want 10 total, 9 ok, 1 failed", res)
	}
	if len(seen) != 10 {
		t.Errorf("progress called %d times, want 10", len(seen))
	}
	if len(failed) != 1 || failed[0].String() != "noir/1/1/0" {
		t.Errorf("failed = %v", failed)
	}

	if len(paths) != 10 {
		t.Errorf("requested %d distinct tiles, want 10", len(paths))
	}
	for p, n := range paths {
		if n != 1 {
			t.Errorf("%s requested %d times", p, n)
		}
		if !strings.HasPrefix(p, "/api/tiles/raster/") || !strings.HasSuffix(p, ".png") {
			t.Errorf("unexpected path %s", p)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, Options{BaseURL: srv.URL, Vibes: []vibe.ID{"toner"}, MaxZoom: 3}, nil)
	if err != context.Canceled {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if res.OK != 0 {
		t.Errorf("OK = %d after cancel, want 0", res.OK)
	}
}

func TestRunCustomRegistry(t *testing.T) {
	reg, err := vibe.Load(strings.NewReader(mintRegistry))
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()

	res, err := Run(context.Background(), Options{BaseURL: srv.URL, Registry: reg, MaxZoom: 0}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Total != 1 || res.OK != 1 {
		t.Errorf("Result = %+v, want 1 total, 1 ok", res)
	}
	if len(paths) != 1 || paths[0] != "/api/tiles/raster/mint/0/0/0.png" {
		t.Errorf("requested %v, want only the mint root tile", paths)
	}
}

func TestRunRejectsDeepPyramid(t *testing.T) {
	for _, z := range []uint32{tile.MaxZoom + 1, 32, 40} {
		_, err := Run(context.Background(), Options{
			BaseURL: "http://127.0.0.1:1",
			Vibes:   []vibe.ID{"toner"},
			MaxZoom: z,
		}, func(tile.Key, error) {
			t.Fatal("no tile should be requested")
		})
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Run(max zoom %d) error = %v, want %s", z, err, errors.ErrCodeInvalidInput)
		}
	}

	if err := (Options{MaxZoom: tile.MaxZoom}).Validate(); err != nil {
		t.Errorf("Validate(max zoom %d) = %v", tile.MaxZoom, err)
	}
}
