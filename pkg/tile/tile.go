// Package tile identifies raster tiles per vibe and builds their URLs and
// cache paths.
//
// Coordinates are XYZ (slippy map) tiles from orb/maptile. The proxy does not
// require 0 <= x,y < 2^z; such requests are passed to the upstream, which
// decides.
package tile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"

	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// Key identifies one raster tile of one vibe.
type Key struct {
	Vibe vibe.ID
	Tile maptile.Tile
}

// NewKey builds a key from vibe and z/x/y.
func NewKey(id vibe.ID, z, x, y uint32) Key {
	return Key{Vibe: id, Tile: maptile.New(x, y, maptile.Zoom(z))}
}

// ParseKey builds a key from the string components of a request path.
func ParseKey(id, z, x, y string) (Key, error) {
	var coords [3]uint32
	for i, s := range []string{z, x, y} {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return Key{}, errors.New(errors.ErrCodeInvalidInput, "invalid tile coordinate %q", s)
		}
		coords[i] = uint32(n)
	}
	return NewKey(vibe.ID(id), coords[0], coords[1], coords[2]), nil
}

// Z returns the zoom level.
func (k Key) Z() uint32 { return uint32(k.Tile.Z) }

// X returns the tile column.
func (k Key) X() uint32 { return k.Tile.X }

// Y returns the tile row.
func (k Key) Y() uint32 { return k.Tile.Y }

// String returns "vibe/z/x/y".
func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Vibe, k.Tile.Z, k.Tile.X, k.Tile.Y)
}

// Path returns the slash-separated cache path relative to the cache root,
// "raster/{vibe}/{z}/{x}/{y}.png".
func (k Key) Path() string {
	return fmt.Sprintf("raster/%s/%d/%d/%d.png", k.Vibe, k.Tile.Z, k.Tile.X, k.Tile.Y)
}

// Expand substitutes {z}, {x} and {y} in an XYZ URL template.
func Expand(template string, t maptile.Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(t.Z), 10),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
	).Replace(template)
}

// RasterTemplate returns the public XYZ template of a vibe's raster tiles,
// as placed into derived styles.
func RasterTemplate(publicBase string, id vibe.ID) string {
	return strings.TrimRight(publicBase, "/") + "/api/tiles/raster/" + string(id) + "/{z}/{x}/{y}.png"
}

// RasterURL returns the public URL of one raster tile.
func RasterURL(publicBase string, k Key) string {
	return Expand(RasterTemplate(publicBase, k.Vibe), k.Tile)
}

// Pyramid returns every tile of zoom levels 0 through maxZoom, ordered by
// zoom.
func Pyramid(maxZoom uint32) maptile.Tiles {
	return maptile.ChildrenInZoomRange(maptile.New(0, 0, 0), 0, maptile.Zoom(maxZoom))
}

// MaxZoom is the deepest zoom level of common web map tile sets. Pyramids
// deeper than this are rejected before they are built.
const MaxZoom = 22

// PyramidSize returns len(Pyramid(maxZoom)) without building it.
func PyramidSize(maxZoom uint32) int64 {
	var n int64
	for z := uint32(0); z <= maxZoom; z++ {
		n += int64(1) << (2 * z)
	}
	return n
}
