package transform

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Filter is one step of a pixel pipeline.
type Filter func(img *image.NRGBA) *image.NRGBA

// LUT maps an 8-bit channel value to another.
type LUT [256]uint8

// newLUT builds a LUT from fn, truncating toward zero and saturating at 0
// and 255.
func newLUT(fn func(v float64) float64) LUT {
	var lut LUT
	for i := range lut {
		lut[i] = clamp(fn(float64(i)))
	}
	return lut
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// luma is the ITU-R 601 luminance used for grayscale conversion.
func luma(c color.NRGBA) uint8 {
	return uint8(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B) + 0.5)
}

// opaque drops the alpha channel: color values are kept and every pixel
// becomes fully opaque.
func opaque(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = 255
		return c
	})
}

// channels applies one LUT per color channel.
func channels(r, g, b LUT) Filter {
	return func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			return color.NRGBA{r[c.R], g[c.G], b[c.B], c.A}
		})
	}
}

// each applies the same LUT to every color channel.
func each(lut LUT) Filter {
	return channels(lut, lut, lut)
}

// grayChannels converts to grayscale and maps the gray value through one
// LUT per output channel.
func grayChannels(r, g, b LUT) Filter {
	return func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			y := luma(c)
			return color.NRGBA{r[y], g[y], b[y], c.A}
		})
	}
}

// Grayscale replaces every pixel by its luminance.
func Grayscale() Filter {
	return func(img *image.NRGBA) *image.NRGBA { return imaging.Grayscale(img) }
}

// Invert inverts every color channel.
func Invert() Filter {
	return func(img *image.NRGBA) *image.NRGBA { return imaging.Invert(img) }
}

// Brightness scales every channel by factor.
func Brightness(factor float64) Filter {
	return each(newLUT(func(v float64) float64 { return v * factor }))
}

// Tint scales each channel by its own factor.
func Tint(rf, gf, bf float64) Filter {
	return channels(
		newLUT(func(v float64) float64 { return v * rf }),
		newLUT(func(v float64) float64 { return v * gf }),
		newLUT(func(v float64) float64 { return v * bf }),
	)
}

// Contrast moves every channel away from (factor > 1) or toward
// (factor < 1) the mean luminance of the image.
func Contrast(factor float64) Filter {
	return func(img *image.NRGBA) *image.NRGBA {
		mean := float64(int(meanLuma(img) + 0.5))
		return each(newLUT(func(v float64) float64 {
			return mean + (v-mean)*factor
		}))(img)
	}
}

func meanLuma(img image.Image) float64 {
	var mean float64
	for i, p := range imaging.Histogram(img) {
		mean += float64(i) * p
	}
	return mean
}

// Saturation moves every pixel away from (factor > 1) or toward
// (factor < 1) its own gray value.
func Saturation(factor float64) Filter {
	return func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			y := float64(luma(c))
			mix := func(v uint8) uint8 { return clamp(y + (float64(v)-y)*factor) }
			return color.NRGBA{mix(c.R), mix(c.G), mix(c.B), c.A}
		})
	}
}

// Blur applies a gaussian blur.
func Blur(sigma float64) Filter {
	return func(img *image.NRGBA) *image.NRGBA {
		return imaging.Blur(img, sigma)
	}
}

// Sepia applies the classic sepia tone matrix.
func Sepia() Filter {
	return func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			r, g, b := float64(c.R), float64(c.G), float64(c.B)
			return color.NRGBA{
				R: clamp(0.393*r + 0.769*g + 0.189*b),
				G: clamp(0.349*r + 0.686*g + 0.168*b),
				B: clamp(0.272*r + 0.534*g + 0.131*b),
				A: c.A,
			}
		})
	}
}

// Posterize keeps the top bits of every channel.
func Posterize(bits uint) Filter {
	mask := uint8(0xFF << (8 - bits))
	return each(newLUT(func(v float64) float64 { return float64(uint8(v) & mask) }))
}

// Ramp maps gray 0..255 linearly onto from..to, per channel.
func Ramp(from, to color.NRGBA) Filter {
	ramp := func(a, b uint8) LUT {
		return newLUT(func(v float64) float64 {
			return float64(a) + float64(int(b)-int(a))*v/255
		})
	}
	return grayChannels(ramp(from.R, to.R), ramp(from.G, to.G), ramp(from.B, to.B))
}
