package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/tile"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	id := vibe.ID(chi.URLParam(r, "vibe"))
	doc, err := s.styles.Style(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRaster(w http.ResponseWriter, r *http.Request) {
	key, err := tile.ParseKey(
		chi.URLParam(r, "vibe"),
		chi.URLParam(r, "z"),
		chi.URLParam(r, "x"),
		chi.URLParam(r, "y"),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := s.tiles.RasterTile(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleSprite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "vibe")
	var contentType string
	switch ext := chi.URLParam(r, "ext"); ext {
	case "png":
		contentType = "image/png"
	case "json":
		contentType = "application/json"
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no sprite format %q", ext))
		return
	}
	if err := errors.ValidatePathSegment(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serveAsset(w, r, filepath.Join(s.cfg.StaticDir, "sprites", name+"."+chi.URLParam(r, "ext")), contentType)
}

func (s *Server) handleGlyphs(w http.ResponseWriter, r *http.Request) {
	fontstack := chi.URLParam(r, "fontstack")
	rng := chi.URLParam(r, "range")
	if err := errors.ValidatePathSegment(fontstack); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := errors.ValidateGlyphRange(rng); err != nil {
		s.writeError(w, r, err)
		return
	}

	dir := filepath.Join(s.cfg.StaticDir, "glyphs", fontstack)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no glyphs for font %q", fontstack))
		return
	}
	s.serveAsset(w, r, filepath.Join(dir, rng+".pbf"), "application/x-protobuf")
}

// serveAsset serves a file from the static tree.
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, path, contentType string) {
	if s.cfg.StaticDir == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "static assets are not configured"))
		return
	}
	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "%s not found", filepath.Base(path)))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "%s not found", filepath.Base(path)))
		return
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	msg := errors.UserMessage(err)
	if code == "" {
		code = errors.ErrCodeInternal
		msg = "Internal error"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: string(code), Message: msg})
}
