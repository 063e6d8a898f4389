package maps

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Raster bounds of the interpolated overlay, wide enough that its edges sit
// outside the initial viewport.
const (
	SouthLat = -66.0
	NorthLat = -18.0
	WestLon  = -80.0
	EastLon  = -38.0
)

// Point is one station sample for interpolation.
type Point struct {
	Lat, Lon, Value float64
}

const (
	snapDistance = 0.05
	solidRadius  = 1.0
	fadeRadius   = 3.5
	maxAlpha     = 175.0
)

// IDW interpolates the value at (lat, lon) with inverse-distance weighting,
// power 2, on longitude-scaled degrees. It also returns the distance to the
// nearest point. A location within 0.05 degrees of a point takes its value.
func IDW(points []Point, lat, lon float64) (value, nearest float64) {
	nearest = math.Inf(1)
	var sumW, sumV float64
	scale := math.Cos(lat * math.Pi / 180)
	for _, p := range points {
		dlat := lat - p.Lat
		dlon := (lon - p.Lon) * scale
		d2 := dlat*dlat + dlon*dlon
		d := math.Sqrt(d2)
		if d < snapDistance {
			return p.Value, d
		}
		w := 1 / d2
		sumW += w
		sumV += w * p.Value
		if d < nearest {
			nearest = d
		}
	}
	if sumW == 0 {
		return math.NaN(), nearest
	}
	return sumV / sumW, nearest
}

// Alpha fades the overlay with distance from the nearest station: opaque
// within one degree, quadratic falloff to transparent at 3.5 degrees.
func Alpha(nearest float64) uint8 {
	switch {
	case nearest < solidRadius:
		return uint8(maxAlpha)
	case nearest < fadeRadius:
		f := 1 - (nearest-solidRadius)/(fadeRadius-solidRadius)
		return uint8(math.Round(maxAlpha * f * f))
	default:
		return 0
	}
}

// RenderIDW rasterizes the interpolated field into a width x height image
// spanning the overlay bounds. Rows are spaced evenly in Web Mercator so the
// image lines up with slippy-map tiles.
func RenderIDW(points []Point, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	if len(points) == 0 {
		return img
	}
	mercNorth, mercSouth := toMercator(NorthLat), toMercator(SouthLat)
	for y := 0; y < height; y++ {
		t := float64(y) / float64(height)
		lat := fromMercator(mercNorth - t*(mercNorth-mercSouth))
		for x := 0; x < width; x++ {
			lon := WestLon + float64(x)/float64(width)*(EastLon-WestLon)
			v, nearest := IDW(points, lat, lon)
			c := WindColor(v)
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: Alpha(nearest)})
		}
	}
	return img
}

// PNGDataURL encodes img as a base64 PNG data URL.
func PNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func toMercator(lat float64) float64 {
	return math.Log(math.Tan(math.Pi/4 + lat*math.Pi/360))
}

func fromMercator(y float64) float64 {
	return (2*math.Atan(math.Exp(y)) - math.Pi/2) * 180 / math.Pi
}
