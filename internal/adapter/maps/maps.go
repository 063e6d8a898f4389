// Package maps renders the geocoded stations as standalone Leaflet pages and a
// static PNG chart.
package maps

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/sprig"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// Output file names.
const (
	BubbleFile   = "mapa_burbujas.html"
	HeatFile     = "mapa_calor.html"
	CellHeatFile = "mapa_calor_celdas.html"
	IDWFile      = "mapa_idw.html"
	ChartFile    = "mapa_burbujas.png"
)

// ErrNoStations is returned when no record has coordinates and a mean.
var ErrNoStations = errors.New("no stations with coordinates and mean wind speed")

//go:embed templates/*.gohtml
var templateFS embed.FS

const (
	centerLat  = -38.0
	centerLon  = -65.0
	zoom       = 5
	idwWidth   = 400
	idwHeight  = 500
	heatRadius = 40
	cellRadius = 50
)

// Renderer writes map artifacts into a directory.
type Renderer struct {
	dir     string
	cellDeg float64
	logger  *slog.Logger
	pages   map[string]*template.Template
}

// NewRenderer parses the page templates. cellDeg is the bin size of the
// smoothed heatmap.
func NewRenderer(dir string, cellDeg float64, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for name, body := range map[string]string{
		BubbleFile:   "templates/bubbles.gohtml",
		HeatFile:     "templates/heat.gohtml",
		CellHeatFile: "templates/heat.gohtml",
		IDWFile:      "templates/idw.gohtml",
	} {
		t, err := template.New(name).
			Funcs(sprig.HtmlFuncMap()).
			ParseFS(templateFS, "templates/layout.gohtml", body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{dir: dir, cellDeg: cellDeg, logger: logger, pages: pages}, nil
}

// Render writes every map for records and returns the written paths. Records
// without coordinates or a mean are skipped.
func (r *Renderer) Render(records []domain.StationRecord) ([]string, error) {
	valid := domain.ValidRecords(records)
	if len(valid) == 0 {
		return nil, ErrNoStations
	}
	if dropped := len(records) - len(valid); dropped > 0 {
		r.logger.Info("stations without position or mean skipped", "count", dropped)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	now := domain.Now()
	markers := Markers(valid)
	var written []string
	write := func(name string, data pageData) error {
		path := filepath.Join(r.dir, name)
		if err := r.writePage(path, name, data); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	heat, heatMax := HeatPoints(valid)
	if err := write(BubbleFile, r.base("Velocidad media del viento", len(valid), now, pageData{
		Markers: markers, HeatMax: heatMax, Radius: heatRadius, Blur: 25, Gradient: heatGradient(0, heatMax),
	})); err != nil {
		return written, err
	}

	if err := write(HeatFile, r.base("Intensidad del viento por estación", len(valid), now, pageData{
		HeatPoints: heat, HeatMax: heatMax, Radius: heatRadius, Blur: 25, Gradient: heatGradient(0, heatMax),
	})); err != nil {
		return written, err
	}

	cells := domain.BinCells(valid, r.cellDeg)
	lo, hi := domain.CellRange(cells)
	if err := write(CellHeatFile, r.base("Viento promedio suavizado por celda", len(valid), now, pageData{
		HeatPoints: cellPoints(cells, lo, hi), HeatMax: 1, Radius: cellRadius, Blur: 35,
		Gradient: heatGradient(lo, hi), Cells: cells,
	})); err != nil {
		return written, err
	}

	overlay, err := PNGDataURL(Soften(RenderIDW(points(valid), idwWidth, idwHeight)))
	if err != nil {
		return written, fmt.Errorf("encode idw overlay: %w", err)
	}
	if err := write(IDWFile, r.base("Viento interpolado (IDW)", len(valid), now, pageData{
		Markers: markers, OverlayURL: overlay,
		South: SouthLat, North: NorthLat, West: WestLon, East: EastLon,
	})); err != nil {
		return written, err
	}

	chart := filepath.Join(r.dir, ChartFile)
	if err := SaveBubbleChart(chart, valid); err != nil {
		return written, err
	}
	written = append(written, chart)

	r.logger.Info("maps rendered", "dir", r.dir, "stations", len(valid), "cells", len(cells))
	return written, nil
}

// Marker is one station on the bubble and IDW maps.
type Marker struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Radius   float64 `json:"radius"`
	Color    string  `json:"color"`
	ICAO     string  `json:"icao"`
	Station  string  `json:"station"`
	Mean     float64 `json:"mean"`
	Province string  `json:"province"`
}

type pageData struct {
	Title      string
	Stations   int
	Generated  time.Time
	CenterLat  float64
	CenterLon  float64
	Zoom       int
	LegendHTML string

	Markers    []Marker
	HeatPoints [][3]float64
	HeatMax    float64
	Radius     int
	Blur       int
	Gradient   map[string]string
	Cells      []domain.Cell
	OverlayURL string
	South      float64
	North      float64
	West       float64
	East       float64
}

func (r *Renderer) base(title string, stations int, now time.Time, d pageData) pageData {
	d.Title = title
	d.Stations = stations
	d.Generated = now
	d.CenterLat, d.CenterLon, d.Zoom = centerLat, centerLon, zoom
	d.LegendHTML = legendHTML()
	return d
}

func (r *Renderer) writePage(path, name string, data pageData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.pages[name].ExecuteTemplate(f, "layout", data); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", name, err)
	}
	return f.Close()
}

// Markers builds bubble markers for valid records.
func Markers(records []domain.StationRecord) []Marker {
	out := make([]Marker, 0, len(records))
	for _, rec := range records {
		mean := *rec.Mean
		out = append(out, Marker{
			Lat:      *rec.Lat,
			Lon:      *rec.Lon,
			Radius:   BubbleRadius(mean),
			Color:    CSSColor(WindColor(mean)),
			ICAO:     rec.ICAO,
			Station:  rec.Station,
			Mean:     mean,
			Province: rec.Province,
		})
	}
	return out
}

// HeatPoints returns [lat, lon, intensity] triples and the largest intensity.
func HeatPoints(records []domain.StationRecord) ([][3]float64, float64) {
	out := make([][3]float64, 0, len(records))
	maxV := 0.0
	for _, rec := range records {
		out = append(out, [3]float64{*rec.Lat, *rec.Lon, *rec.Mean})
		maxV = math.Max(maxV, *rec.Mean)
	}
	if maxV == 0 {
		maxV = 1
	}
	return out, maxV
}

// cellPoints scales each cell mean into [0.05, 1] over the cell range so every
// cell carries the same weight regardless of how many stations it holds.
func cellPoints(cells []domain.Cell, lo, hi float64) [][3]float64 {
	out := make([][3]float64, 0, len(cells))
	for _, c := range cells {
		v := 1.0
		if hi > lo {
			v = 0.05 + 0.95*(c.Mean-lo)/(hi-lo)
		}
		out = append(out, [3]float64{c.Lat, c.Lon, v})
	}
	return out
}

func points(records []domain.StationRecord) []Point {
	out := make([]Point, 0, len(records))
	for _, rec := range records {
		out = append(out, Point{Lat: *rec.Lat, Lon: *rec.Lon, Value: *rec.Mean})
	}
	return out
}

// heatGradient maps the palette onto Leaflet.heat's [0, 1] gradient keys for
// speeds between lo and hi.
func heatGradient(lo, hi float64) map[string]string {
	g := make(map[string]string, len(ColorStops))
	span := hi - lo
	for i := 0; i <= 4; i++ {
		t := float64(i) / 4
		speed := hi
		if span > 0 {
			speed = lo + t*span
		}
		g[fmt.Sprintf("%.2f", t)] = CSSColor(WindColor(speed))
	}
	return g
}

func legendHTML() string {
	var b strings.Builder
	b.WriteString("<strong>Viento (km/h)</strong><br>")
	for i, s := range ColorStops {
		label := fmt.Sprintf("%g", s.Speed)
		if i == len(ColorStops)-1 {
			label += "+"
		}
		fmt.Fprintf(&b, `<i style="background:%s"></i>%s<br>`, CSSColor(s.Color), label)
	}
	return b.String()
}
