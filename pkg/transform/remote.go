package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/vibetiles/pkg/httputil"
	"github.com/matzehuels/vibetiles/pkg/tile"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// DefaultRemoteTimeout bounds one call to the remote transform service.
const DefaultRemoteTimeout = 30 * time.Second

// maxRemoteBytes bounds a remote transform response.
const maxRemoteBytes = 32 << 20

var errEmptyResult = errors.New("remote transform returned no image")

// RemoteConfig configures the remote transform service.
type RemoteConfig struct {
	URL     string
	Key     string // sent as a bearer token when set
	Vibes   []vibe.ID
	Timeout time.Duration
}

// Remote is a client for an external image-to-image service that restyles
// tiles for selected vibes.
type Remote struct {
	url   string
	key   string
	vibes map[vibe.ID]bool
	http  *http.Client
}

// NewRemote returns nil when no URL or no vibe is configured.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.URL == "" || len(cfg.Vibes) == 0 {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}
	vibes := make(map[vibe.ID]bool, len(cfg.Vibes))
	for _, id := range cfg.Vibes {
		vibes[id] = true
	}
	return &Remote{
		url:   cfg.URL,
		key:   cfg.Key,
		vibes: vibes,
		http:  httputil.NewClient(cfg.Timeout),
	}
}

// Handles reports whether id is routed to the remote service.
func (r *Remote) Handles(id vibe.ID) bool {
	return r != nil && r.vibes[id]
}

type remoteRequest struct {
	Style    string `json:"style"`
	ImageB64 string `json:"image_b64"`
	TileZ    uint32 `json:"tile_z"`
	TileX    uint32 `json:"tile_x"`
	TileY    uint32 `json:"tile_y"`
}

type remoteResponse struct {
	ImageB64 string `json:"image_b64"`
}

// Transform sends raw to the service. The service answers either with an
// image body or with JSON carrying a base64 image.
func (r *Remote) Transform(ctx context.Context, key tile.Key, raw []byte) ([]byte, error) {
	payload, err := json.Marshal(remoteRequest{
		Style:    string(key.Vibe),
		ImageB64: base64.StdEncoding.EncodeToString(raw),
		TileZ:    key.Z(),
		TileX:    key.X(),
		TileY:    key.Y(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.key != "" {
		req.Header.Set("Authorization", "Bearer "+r.key)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote transform: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes))
	if err != nil {
		return nil, err
	}

	var out []byte
	if strings.Contains(resp.Header.Get("Content-Type"), "image") {
		out = body
	} else {
		var rr remoteResponse
		if err := json.Unmarshal(body, &rr); err != nil {
			return nil, fmt.Errorf("remote transform: decode response: %w", err)
		}
		if out, err = base64.StdEncoding.DecodeString(rr.ImageB64); err != nil {
			return nil, fmt.Errorf("remote transform: decode image: %w", err)
		}
	}
	if len(out) == 0 {
		return nil, errEmptyResult
	}
	return out, nil
}
