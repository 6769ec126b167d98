package style

import (
	"strings"

	"github.com/matzehuels/vibetiles/pkg/tile"
	"github.com/matzehuels/vibetiles/pkg/upstream"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// RasterOpacity is the opacity of the raster underlay in derived styles.
const RasterOpacity = 0.85

// Options controls the URLs written into derived styles.
type Options struct {
	// PublicBase prefixes every URL pointing back at this server. Empty
	// yields root-relative URLs.
	PublicBase string

	// RasterID selects the raster source to reroute: the first tile URL of
	// the source must contain it.
	RasterID string
}

func (o Options) withDefaults() Options {
	if o.RasterID == "" {
		o.RasterID = upstream.DefaultRasterID
	}
	o.PublicBase = strings.TrimRight(o.PublicBase, "/")
	return o
}

// GlyphsTemplate returns the glyph URL template of derived styles.
func (o Options) GlyphsTemplate() string {
	return o.PublicBase + "/api/glyphs/{fontstack}/{range}.pbf"
}

// SpriteURL returns the sprite URL of a vibe with its own sprite sheet.
func (o Options) SpriteURL(id vibe.ID) string {
	return o.PublicBase + "/api/sprites/" + string(id)
}

// Derive returns a deep copy of canonical rewritten for profile. canonical
// is not modified.
func Derive(canonical Document, profile *vibe.Profile, opts Options) Document {
	opts = opts.withDefaults()
	doc := deepCopy(canonical).(Document)

	rerouteRaster(doc, profile.ID, opts)
	if profile.HasFont() {
		doc["glyphs"] = opts.GlyphsTemplate()
	}
	if profile.Sprite {
		doc["sprite"] = opts.SpriteURL(profile.ID)
	}

	for _, l := range layers(doc) {
		layer, ok := l.(map[string]any)
		if !ok {
			continue
		}
		restyleLayer(layer, profile)
	}
	return doc
}

// rerouteRaster points raster sources backed by the upstream raster at this
// server's tile endpoint for the vibe.
func rerouteRaster(doc Document, id vibe.ID, opts Options) {
	sources, _ := doc["sources"].(map[string]any)
	for _, s := range sources {
		src, ok := s.(map[string]any)
		if !ok || src["type"] != "raster" {
			continue
		}
		tiles, _ := src["tiles"].([]any)
		if len(tiles) == 0 {
			continue
		}
		if first, _ := tiles[0].(string); strings.Contains(first, opts.RasterID) {
			src["tiles"] = []any{tile.RasterTemplate(opts.PublicBase, id)}
		}
	}
}

func restyleLayer(layer map[string]any, p *vibe.Profile) {
	id, _ := layer["id"].(string)
	typ, _ := layer["type"].(string)

	switch typ {
	case "raster":
		delete(layer, "maxzoom")
		section(layer, "paint")["raster-opacity"] = RasterOpacity

	case "background":
		section(layer, "paint")["background-color"] = p.Background

	case "fill":
		switch vibe.Classify(id) {
		case vibe.ClassWater:
			section(layer, "paint")["fill-color"] = p.Water
		case vibe.ClassLand:
			section(layer, "paint")["fill-color"] = p.Land
		}

	case "line":
		if vibe.IsRoad(id) {
			section(layer, "paint")["line-color"] = p.Road
		}

	case "symbol":
		if !vibe.IsShield(id) {
			paint := section(layer, "paint")
			paint["text-color"] = p.Label
			if p.HasHalo() {
				paint["text-halo-color"] = p.Halo.Color
				paint["text-halo-width"] = p.Halo.Width
			}
		}
		// Shield layers keep their colors but not their font: once glyphs
		// point at this server, any other font stack has no glyphs to load.
		if p.HasFont() {
			overrideFont(layer, p.Font)
		}
	}
}

func overrideFont(layer map[string]any, font string) {
	layout, ok := layer["layout"].(map[string]any)
	if !ok {
		return
	}
	switch fonts := layout["text-font"].(type) {
	case nil:
		return
	case []any:
		if len(fonts) == 0 {
			return
		}
	}
	layout["text-font"] = []any{font}
}

// section returns layer[name] as an object, creating it when missing.
func section(layer map[string]any, name string) map[string]any {
	if m, ok := layer[name].(map[string]any); ok {
		return m
	}
	m := make(map[string]any)
	layer[name] = m
	return m
}

func layers(doc Document) []any {
	l, _ := doc["layers"].([]any)
	return l
}

// deepCopy copies the JSON value tree produced by encoding/json.
func deepCopy(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = deepCopy(val)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, val := range v {
			s[i] = deepCopy(val)
		}
		return s
	default:
		return v
	}
}
