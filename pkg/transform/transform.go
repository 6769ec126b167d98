// Package transform restyles raw raster tiles per vibe.
//
// A tile goes through at most two paths: the remote transform service, for
// vibes routed to it, and the local pipeline of pure pixel filters. A
// remote failure falls through to the local path. The local path is
// deterministic: the same input bytes and vibe yield byte-identical PNG
// output.
package transform

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/observability"
	"github.com/matzehuels/vibetiles/pkg/tile"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// Transformer applies the per-vibe transform to raw tile bytes.
type Transformer struct {
	remote *Remote
	logger *log.Logger
}

// NewTransformer creates a Transformer. remote may be nil; a nil logger
// discards output.
func NewTransformer(remote *Remote, logger *log.Logger) *Transformer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Transformer{remote: remote, logger: logger}
}

// Transform returns the restyled PNG for key.
//
// The default vibe always returns raw unchanged, even when routed to the
// remote service. Other vibes without a pipeline do too.
// Decode and encode failures are returned as ErrCodeTransformFailure; the
// caller decides whether to serve raw instead.
func (t *Transformer) Transform(ctx context.Context, key tile.Key, raw []byte) ([]byte, error) {
	hooks := observability.Tiles()
	id := string(key.Vibe)

	if key.Vibe == vibe.DefaultID {
		return raw, nil
	}
	if t.remote.Handles(key.Vibe) {
		start := time.Now()
		out, err := t.remote.Transform(ctx, key, raw)
		hooks.OnTransform(ctx, id, "remote", time.Since(start), err)
		if err == nil {
			return out, nil
		}
		t.logger.Warn("remote transform failed, using local pipeline", "tile", key, "err", err)
		hooks.OnFallback(ctx, id, observability.StageRemote, err)
	}

	p, ok := PipelineFor(key.Vibe)
	if !ok {
		return raw, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransformFailure, err, "transform %s", key)
	}

	start := time.Now()
	out, err := applyLocal(p, raw)
	hooks.OnTransform(ctx, id, "local", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransformFailure, err, "transform %s", key)
	}
	return out, nil
}
