package maps

import (
	"image"
	"math"
)

// Soften blurs the IDW raster the way the overlay is composited in the
// browser: a wide blur, a narrower blur drawn over it at 0.55, and the sharp
// raster on top at 0.4.
func Soften(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	src := premultiply(img)

	out := GaussianBlur(src, w, h, 10)
	over(out, GaussianBlur(src, w, h, 5), 0.55)
	over(out, src, 0.4)
	return unpremultiply(out, w, h)
}

// GaussianBlur approximates a gaussian of standard deviation sigma pixels
// with three box passes. buf holds premultiplied RGBA in [0, 1], row-major;
// pixels outside the image count as transparent.
func GaussianBlur(buf []float64, w, h int, sigma float64) []float64 {
	r := int(math.Round((math.Sqrt(1+4*sigma*sigma) - 1) / 2))
	out := append([]float64(nil), buf...)
	if r < 1 {
		return out
	}
	tmp := make([]float64, len(buf))
	for range 3 {
		boxPass(out, tmp, w, h, r, 1, w)
		boxPass(tmp, out, h, w, r, w, 1)
	}
	return out
}

// boxPass averages a window of 2r+1 pixels along lines of length n. step is
// the pixel stride along a line and lineStep the stride between lines.
func boxPass(src, dst []float64, n, lines, r, step, lineStep int) {
	norm := 1 / float64(2*r+1)
	for l := range lines {
		base := l * lineStep
		for c := range 4 {
			at := func(i int) float64 { return src[(base+i*step)*4+c] }
			sum := 0.0
			for i := 0; i <= r && i < n; i++ {
				sum += at(i)
			}
			for i := range n {
				dst[(base+i*step)*4+c] = sum * norm
				if j := i + r + 1; j < n {
					sum += at(j)
				}
				if j := i - r; j >= 0 {
					sum -= at(j)
				}
			}
		}
	}
}

// over composites src onto dst (source-over) with a global alpha.
func over(dst, src []float64, alpha float64) {
	for i := 0; i < len(dst); i += 4 {
		a := src[i+3] * alpha
		for c := range 4 {
			dst[i+c] = src[i+c]*alpha + dst[i+c]*(1-a)
		}
	}
}

func premultiply(img *image.NRGBA) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h*4)
	for y := range h {
		for x := range w {
			p := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			a := float64(p.A) / 255
			i := (y*w + x) * 4
			out[i] = float64(p.R) / 255 * a
			out[i+1] = float64(p.G) / 255 * a
			out[i+2] = float64(p.B) / 255 * a
			out[i+3] = a
		}
	}
	return out
}

func unpremultiply(buf []float64, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(buf); i += 4 {
		a := buf[i+3]
		if a <= 0 {
			continue
		}
		px := img.Pix[i : i+4 : i+4]
		px[0] = channel(buf[i] / a)
		px[1] = channel(buf[i+1] / a)
		px[2] = channel(buf[i+2] / a)
		px[3] = channel(a)
	}
	return img
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
