package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb/maptile"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})

	if c.StyleURL() != DefaultStyleURL {
		t.Errorf("StyleURL() = %q, want %q", c.StyleURL(), DefaultStyleURL)
	}
	if c.TileTemplate() != DefaultTileTemplate {
		t.Errorf("TileTemplate() = %q, want %q", c.TileTemplate(), DefaultTileTemplate)
	}
	if c.styleHTTP.Timeout != 15*time.Second {
		t.Errorf("style timeout = %v, want 15s", c.styleHTTP.Timeout)
	}
	if c.tileHTTP.Timeout != 10*time.Second {
		t.Errorf("tile timeout = %v, want 10s", c.tileHTTP.Timeout)
	}
}

func TestClientStyle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/styles/liberty" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"version": 8, "layers": [{"id": "background", "type": "background"}]}`))
	}))
	defer server.Close()

	c := NewClient(Config{StyleURL: server.URL + "/styles/liberty"})
	doc, err := c.Style(context.Background())
	if err != nil {
		t.Fatalf("Style() error: %v", err)
	}
	if doc["version"] != float64(8) {
		t.Errorf("version = %v, want 8", doc["version"])
	}
	if layers, ok := doc["layers"].([]any); !ok || len(layers) != 1 {
		t.Errorf("layers = %v", doc["layers"])
	}
}

func TestClientStyleInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	c := NewClient(Config{StyleURL: server.URL})
	if _, err := c.Style(context.Background()); !errors.Is(err, ErrNetwork) {
		t.Errorf("Style() error = %v, want ErrNetwork", err)
	}
}

func TestClientTile(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	c := NewClient(Config{TileTemplate: server.URL + "/ne2sr/{z}/{x}/{y}.png"})
	data, err := c.Tile(context.Background(), maptile.New(1, 3, 2))
	if err != nil {
		t.Fatalf("Tile() error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("Tile() = %q", data)
	}
	if gotPath != "/ne2sr/2/1/3.png" {
		t.Errorf("requested %q, want /ne2sr/2/1/3.png", gotPath)
	}
}

func TestClientTileSizeLimit(t *testing.T) {
	defer func(n int64) { maxTileBytes = n }(maxTileBytes)
	maxTileBytes = 8

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"at limit", "12345678", false},
		{"over limit", "123456789", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(Config{TileTemplate: server.URL + "/{z}/{x}/{y}.png"})
			data, err := c.Tile(context.Background(), maptile.New(0, 0, 0))
			if tt.wantErr {
				if !errors.Is(err, ErrNetwork) {
					t.Errorf("Tile() error = %v, want ErrNetwork", err)
				}
				if data != nil {
					t.Errorf("Tile() returned %d truncated bytes", len(data))
				}
				return
			}
			if err != nil || string(data) != tt.body {
				t.Errorf("Tile() = %q, %v", data, err)
			}
		})
	}
}

func TestClientTileTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(Config{TileTemplate: server.URL + "/{z}/{x}/{y}.png", TileTimeout: 50 * time.Millisecond})
	_, err := c.Tile(context.Background(), maptile.New(0, 0, 0))
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Tile() error = %v, want ErrNetwork", err)
	}
}

func TestClientTileStatus(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"404", http.StatusNotFound, ErrNotFound},
		{"500", http.StatusInternalServerError, ErrNetwork},
		{"503", http.StatusServiceUnavailable, ErrNetwork},
		{"403", http.StatusForbidden, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.code)
			}))
			defer server.Close()

			c := NewClient(Config{TileTemplate: server.URL + "/{z}/{x}/{y}.png"})
			_, err := c.Tile(context.Background(), maptile.New(0, 0, 0))
			if !errors.Is(err, tt.want) {
				t.Errorf("Tile() error = %v, want %v", err, tt.want)
			}
			if calls != 1 {
				t.Errorf("upstream called %d times, want exactly 1", calls)
			}
		})
	}
}

func TestCheckStatus(t *testing.T) {
	if err := checkStatus(200); err != nil {
		t.Errorf("checkStatus(200) = %v", err)
	}
	if err := checkStatus(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("checkStatus(404) = %v, want ErrNotFound", err)
	}
	if err := checkStatus(502); !errors.Is(err, ErrNetwork) {
		t.Errorf("checkStatus(502) = %v, want ErrNetwork", err)
	}
}
