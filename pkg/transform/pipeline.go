package transform

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// Pipeline is an ordered list of filters applied to a decoded tile.
type Pipeline []Filter

// Apply runs every filter in order.
func (p Pipeline) Apply(img *image.NRGBA) *image.NRGBA {
	for _, f := range p {
		img = f(img)
	}
	return img
}

// Pipelines are built once; their LUTs are shared by every request.
var pipelines = map[vibe.ID]Pipeline{
	"vintage": {
		Sepia(),
		Brightness(0.88),
		Contrast(0.82),
	},
	"toner": {
		Grayscale(),
		Contrast(1.8),
		Brightness(1.1),
	},
	"blueprint": {
		Ramp(color.NRGBA{0x0a, 0x1f, 0x5c, 0xff}, color.NRGBA{0xdc, 0xe8, 0xff, 0xff}),
	},
	"dark": {
		Invert(),
		Tint(0.55, 0.60, 0.72),
		Brightness(0.75),
	},
	"watercolor": {
		Saturation(1.35),
		Contrast(0.75),
		Blur(1.2),
		Saturation(1.4),
	},
	"highcontrast": {
		Contrast(2.2),
		Saturation(1.6),
	},
	"noir": {
		Saturation(0.15),
		Tint(0.55, 0.65, 0.72),
		Brightness(0.58),
		Contrast(1.15),
	},
	"mockva": {
		Ramp(color.NRGBA{42, 34, 24, 0xff}, color.NRGBA{240, 232, 216, 0xff}),
		Posterize(3),
	},
}

// PipelineFor returns the local pipeline of a vibe. Vibes without one are
// served untransformed.
func PipelineFor(id vibe.ID) (Pipeline, bool) {
	p, ok := pipelines[id]
	return p, ok
}

// applyLocal decodes raw, runs p and encodes the result as opaque PNG.
func applyLocal(p Pipeline, raw []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	img := p.Apply(opaque(src))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
