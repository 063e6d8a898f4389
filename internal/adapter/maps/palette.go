package maps

import (
	"fmt"
	"image/color"
	"math"
)

// ColorStop anchors the wind palette at a speed in km/h.
type ColorStop struct {
	Speed float64
	Color color.RGBA
}

// ColorStops is the palette shared by every map, from calm blue to
// storm red.
var ColorStops = []ColorStop{
	{Speed: 0, Color: color.RGBA{R: 66, G: 133, B: 244, A: 255}},
	{Speed: 8, Color: color.RGBA{R: 0, G: 188, B: 212, A: 255}},
	{Speed: 13, Color: color.RGBA{R: 76, G: 175, B: 80, A: 255}},
	{Speed: 18, Color: color.RGBA{R: 255, G: 193, B: 7, A: 255}},
	{Speed: 22, Color: color.RGBA{R: 255, G: 87, B: 34, A: 255}},
	{Speed: 28, Color: color.RGBA{R: 211, G: 47, B: 47, A: 255}},
}

// WindColor interpolates linearly between the surrounding stops. Speeds
// outside the palette clamp to the end colors.
func WindColor(speed float64) color.RGBA {
	first, last := ColorStops[0], ColorStops[len(ColorStops)-1]
	if speed <= first.Speed || math.IsNaN(speed) {
		return first.Color
	}
	if speed >= last.Speed {
		return last.Color
	}
	for i := 0; i < len(ColorStops)-1; i++ {
		lo, hi := ColorStops[i], ColorStops[i+1]
		if speed >= lo.Speed && speed <= hi.Speed {
			t := (speed - lo.Speed) / (hi.Speed - lo.Speed)
			return color.RGBA{
				R: lerp(lo.Color.R, hi.Color.R, t),
				G: lerp(lo.Color.G, hi.Color.G, t),
				B: lerp(lo.Color.B, hi.Color.B, t),
				A: 255,
			}
		}
	}
	return first.Color
}

// CSSColor renders a palette color as an rgb() string.
func CSSColor(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// BubbleRadius is the CircleMarker radius in pixels for a mean speed.
func BubbleRadius(speed float64) float64 {
	return math.Max(5, math.Sqrt(math.Max(speed, 0))*2.2)
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + t*(float64(b)-float64(a))))
}
