package maps

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// SaveBubbleChart draws a static lon/lat scatter of valid records, one bubble
// per station sized and colored by mean wind speed, and saves it as PNG.
func SaveBubbleChart(path string, records []domain.StationRecord) error {
	p := plot.New()
	p.Title.Text = "Velocidad media del viento - Estaciones SMN + ICAO"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Longitud"
	p.Y.Label.Text = "Latitud"
	p.X.Min, p.X.Max = WestLon+5, EastLon-5
	p.Y.Min, p.Y.Max = SouthLat+9, NorthLat+3
	p.Add(plotter.NewGrid())

	for _, rec := range domain.ValidRecords(records) {
		bubble, err := plotter.NewScatter(plotter.XYs{{X: *rec.Lon, Y: *rec.Lat}})
		if err != nil {
			return fmt.Errorf("chart point %q: %w", rec.Station, err)
		}
		c := WindColor(*rec.Mean)
		bubble.GlyphStyle.Color = color.NRGBA{R: c.R, G: c.G, B: c.B, A: 210}
		bubble.GlyphStyle.Shape = draw.CircleGlyph{}
		bubble.GlyphStyle.Radius = vg.Points(BubbleRadius(*rec.Mean) * 0.6)
		p.Add(bubble)
	}

	if err := p.Save(8*vg.Inch, 11*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}
