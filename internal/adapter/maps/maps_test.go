package maps

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

func TestWindColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 66, G: 133, B: 244, A: 255}, WindColor(-3))
	assert.Equal(t, color.RGBA{R: 0, G: 188, B: 212, A: 255}, WindColor(8))
	assert.Equal(t, color.RGBA{R: 211, G: 47, B: 47, A: 255}, WindColor(40))
	// Halfway between the 18 and 22 stops.
	assert.Equal(t, color.RGBA{R: 255, G: 140, B: 21, A: 255}, WindColor(20))
	assert.Equal(t, "rgb(0,188,212)", CSSColor(WindColor(8)))
}

func TestBubbleRadius(t *testing.T) {
	assert.Equal(t, 5.0, BubbleRadius(1))
	assert.InDelta(t, math.Sqrt(16)*2.2, BubbleRadius(16), 1e-9)
}

func TestIDW(t *testing.T) {
	pts := []Point{{Lat: -30, Lon: -60, Value: 10}, {Lat: -30, Lon: -58, Value: 20}}

	v, d := IDW(pts, -30.01, -60)
	assert.Equal(t, 10.0, v, "snaps to a nearby station")
	assert.Less(t, d, 0.05)

	v, _ = IDW(pts, -30, -59)
	assert.InDelta(t, 15, v, 1e-9, "midpoint is the plain average")
}

func TestAlpha(t *testing.T) {
	assert.Equal(t, uint8(175), Alpha(0.5))
	assert.Equal(t, uint8(175), Alpha(1))
	assert.Equal(t, uint8(44), Alpha(2.25))
	assert.Equal(t, uint8(0), Alpha(3.5))
	assert.Equal(t, uint8(0), Alpha(10))
}

func TestRenderIDW(t *testing.T) {
	img := RenderIDW([]Point{{Lat: -34.6, Lon: -58.4, Value: 14}}, 40, 50)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	// The top-left corner (-18, -80) is far from Buenos Aires.
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)

	url, err := PNGDataURL(img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestSoften(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 101, 101))
	for y := 48; y <= 52; y++ {
		for x := 48; x <= 52; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 140, B: 21, A: 175})
		}
	}

	out := Soften(img)
	require.Equal(t, img.Bounds(), out.Bounds())

	edge := out.NRGBAAt(56, 50)
	assert.Positive(t, edge.A, "alpha spreads past the sharp edge")
	assert.InDelta(t, 255, int(edge.R), 1)
	assert.InDelta(t, 140, int(edge.G), 1)
	assert.InDelta(t, 21, int(edge.B), 1)

	assert.Less(t, out.NRGBAAt(50, 50).A, uint8(175), "the centre loses some opacity")
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A, "far corner stays transparent")
}

func TestGaussianBlur_Transparent(t *testing.T) {
	buf := make([]float64, 10*10*4)
	for _, v := range GaussianBlur(buf, 10, 10, 5) {
		assert.Zero(t, v)
	}
}

func TestMercatorRoundTrip(t *testing.T) {
	for _, lat := range []float64{-66, -38.5, -18, 0} {
		assert.InDelta(t, lat, fromMercator(toMercator(lat)), 1e-9)
	}
}

func sampleRecords() []domain.StationRecord {
	return []domain.StationRecord{
		{Station: "AEROPARQUE AERO", ICAO: "SABE", Mean: domain.Float(14.7), Lat: domain.Float(-34.55), Lon: domain.Float(-58.42), Province: "Buenos Aires"},
		{Station: "BUENOS AIRES OBS", ICAO: "SABA", Mean: domain.Float(15.3), Lat: domain.Float(-34.58), Lon: domain.Float(-58.48), Province: "Buenos Aires"},
		{Station: "RIO GALLEGOS AERO", ICAO: "SAWG", Mean: domain.Float(27.9), Lat: domain.Float(-51.61), Lon: domain.Float(-69.31), Province: "Santa Cruz"},
		{Station: "SIN COORDENADAS", ICAO: "SAXX", Mean: domain.Float(9)},
	}
}

func TestRenderer_Render(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	dir := t.TempDir()
	r, err := NewRenderer(dir, 0.6, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	written, err := r.Render(sampleRecords())
	require.NoError(t, err)
	assert.Len(t, written, 5)

	bubbles, err := os.ReadFile(filepath.Join(dir, BubbleFile))
	require.NoError(t, err)
	html := string(bubbles)
	assert.Contains(t, html, "leaflet@1.9.4")
	assert.Contains(t, html, `"icao":"SAWG"`)
	assert.Contains(t, html, "2025-03-03 12:00 UTC")
	assert.Contains(t, html, "3 estaciones")
	assert.NotContains(t, html, "SAXX")
	assert.Contains(t, html, `id="filter"`)
	assert.Contains(t, html, `id="summary"`)
	assert.Contains(t, html, `id="mode-heat"`)
	assert.Contains(t, html, "leaflet-heat.js", "the heatmap toggle needs the plugin")

	heat, err := os.ReadFile(filepath.Join(dir, HeatFile))
	require.NoError(t, err)
	assert.Contains(t, string(heat), "leaflet-heat.js")
	assert.NotContains(t, string(heat), `id="filter"`)

	cells, err := os.ReadFile(filepath.Join(dir, CellHeatFile))
	require.NoError(t, err)
	assert.Contains(t, string(cells), `"stations":2`, "both Buenos Aires stations share a cell")

	idw, err := os.ReadFile(filepath.Join(dir, IDWFile))
	require.NoError(t, err)
	assert.Contains(t, string(idw), "data:image/png;base64,")

	info, err := os.Stat(filepath.Join(dir, ChartFile))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRenderer_EscapesStationText(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(dir, 0.6, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = r.Render([]domain.StationRecord{{
		Station:  `<img src=x onerror=alert(1)>`,
		ICAO:     "SA<b>",
		Province: "Salta & Jujuy",
		Mean:     domain.Float(12),
		Lat:      domain.Float(-24.85),
		Lon:      domain.Float(-65.48),
	}, sampleRecords()[2]})
	require.NoError(t, err)

	for _, name := range []string{BubbleFile, IDWFile} {
		page, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		html := string(page)
		assert.NotContains(t, html, "<img src=x", name)
		assert.NotContains(t, html, "SA<b>", name)
		assert.Contains(t, html, "esc(m.icao)", name)
	}
	bubbles, err := os.ReadFile(filepath.Join(dir, BubbleFile))
	require.NoError(t, err)
	assert.Contains(t, string(bubbles), "esc(m.station)")
	assert.Contains(t, string(bubbles), "esc(m.province)")
}

func TestRenderer_NoStations(t *testing.T) {
	r, err := NewRenderer(t.TempDir(), 0.6, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = r.Render([]domain.StationRecord{{Station: "X", Mean: domain.Float(3)}})
	assert.ErrorIs(t, err, ErrNoStations)
}
