// Package upstream fetches the canonical vector style and raw raster tiles
// from the upstream map service.
//
// Every call is a single attempt bounded by its own timeout. Failures are
// reported as [ErrNotFound] (HTTP 404) or [ErrNetwork] (everything else) and
// are never retried here.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb/maptile"

	"github.com/matzehuels/vibetiles/pkg/httputil"
	"github.com/matzehuels/vibetiles/pkg/tile"
)

// Defaults point at OpenFreeMap's Liberty style and its Natural Earth
// shaded-relief raster.
const (
	DefaultStyleURL     = "https://tiles.openfreemap.org/styles/liberty"
	DefaultTileTemplate = "https://tiles.openfreemap.org/natural_earth/ne2sr/{z}/{x}/{y}.png"

	// DefaultRasterID identifies the upstream raster source inside the
	// canonical style's source list.
	DefaultRasterID = "ne2sr"

	DefaultStyleTimeout = 15 * time.Second
	DefaultTileTimeout  = 10 * time.Second
)

// maxTileBytes bounds a raw tile body. Larger bodies are rejected, not
// truncated.
var maxTileBytes int64 = 16 << 20

// Config configures a Client. Zero fields take the defaults above.
type Config struct {
	StyleURL     string
	TileTemplate string
	StyleTimeout time.Duration
	TileTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.StyleURL == "" {
		c.StyleURL = DefaultStyleURL
	}
	if c.TileTemplate == "" {
		c.TileTemplate = DefaultTileTemplate
	}
	if c.StyleTimeout <= 0 {
		c.StyleTimeout = DefaultStyleTimeout
	}
	if c.TileTimeout <= 0 {
		c.TileTimeout = DefaultTileTimeout
	}
	return c
}

// Client talks to the upstream style and tile endpoints.
type Client struct {
	cfg       Config
	styleHTTP *http.Client
	tileHTTP  *http.Client
}

// NewClient creates a Client with one instrumented HTTP client per
// endpoint, each with its own timeout.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:       cfg,
		styleHTTP: httputil.NewClient(cfg.StyleTimeout),
		tileHTTP:  httputil.NewClient(cfg.TileTimeout),
	}
}

// StyleURL returns the canonical style URL.
func (c *Client) StyleURL() string { return c.cfg.StyleURL }

// TileTemplate returns the raw raster XYZ template.
func (c *Client) TileTemplate() string { return c.cfg.TileTemplate }

// Style fetches and decodes the canonical style document.
func (c *Client) Style(ctx context.Context) (map[string]any, error) {
	body, err := c.doRequest(ctx, c.styleHTTP, c.cfg.StyleURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var doc map[string]any
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode style: %v", ErrNetwork, err)
	}
	return doc, nil
}

// Tile fetches the raw bytes of one upstream raster tile.
func (c *Client) Tile(ctx context.Context, t maptile.Tile) ([]byte, error) {
	body, err := c.doRequest(ctx, c.tileHTTP, tile.Expand(c.cfg.TileTemplate, t))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxTileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read tile: %v", ErrNetwork, err)
	}
	if int64(len(data)) > maxTileBytes {
		return nil, fmt.Errorf("%w: tile %v larger than %d bytes", ErrNetwork, t, maxTileBytes)
	}
	return data, nil
}

func (c *Client) doRequest(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
