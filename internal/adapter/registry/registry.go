// Package registry scrapes the public station registry page into an
// in-memory lookup by ICAO code and normalized name.
package registry

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// Registry implements domain.StationRegistry.
type Registry struct {
	byICAO map[string]domain.Coordinates
	byName map[string]domain.Coordinates
	rows   int
}

// Fetcher downloads a document.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Load downloads and parses the registry page at location.
func Load(ctx context.Context, f Fetcher, location string) (*Registry, error) {
	b, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("fetch registry: %w", err)
	}
	return Parse(strings.NewReader(string(b)))
}

// Parse reads the first HTML table with OACI, Localidad, Lat and Lon
// columns. Rows whose coordinates cannot be parsed are skipped; later rows
// overwrite earlier ones with the same key.
func Parse(r io.Reader) (*Registry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse registry html: %w", err)
	}

	reg := &Registry{
		byICAO: make(map[string]domain.Coordinates),
		byName: make(map[string]domain.Coordinates),
	}

	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}
		cols, ok := headerColumns(cellTexts(rows.First()))
		if !ok {
			return true
		}
		found = true
		rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
			reg.addRow(cellTexts(tr), cols)
		})
		return false
	})
	if !found {
		return nil, fmt.Errorf("registry html: no table with OACI/Localidad/Lat/Lon columns")
	}
	return reg, nil
}

// ByICAO looks a station up by its ICAO code.
func (r *Registry) ByICAO(icao string) (domain.Coordinates, bool) {
	c, ok := r.byICAO[strings.ToUpper(strings.TrimSpace(icao))]
	return c, ok
}

// ByName looks a station up by its normalized name.
func (r *Registry) ByName(normalized string) (domain.Coordinates, bool) {
	c, ok := r.byName[normalized]
	return c, ok
}

// Len returns the number of rows with usable coordinates.
func (r *Registry) Len() int {
	return r.rows
}

type columns struct {
	icao, name, lat, lon int
}

func headerColumns(header []string) (columns, bool) {
	cols := columns{icao: -1, name: -1, lat: -1, lon: -1}
	for i, h := range header {
		h = strings.ToLower(h)
		switch {
		case strings.HasPrefix(h, "oaci"):
			cols.icao = i
		case strings.HasPrefix(h, "localidad"):
			cols.name = i
		case strings.HasPrefix(h, "lat"):
			cols.lat = i
		case strings.HasPrefix(h, "lon"):
			cols.lon = i
		}
	}
	ok := cols.lat >= 0 && cols.lon >= 0 && (cols.icao >= 0 || cols.name >= 0)
	return cols, ok
}

func (r *Registry) addRow(cells []string, cols columns) {
	get := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	lat, ok := domain.ParseCoordinate(get(cols.lat))
	if !ok {
		return
	}
	lon, ok := domain.ParseCoordinate(get(cols.lon))
	if !ok {
		return
	}
	coords := domain.Coordinates{Lat: lat, Lon: lon}
	r.rows++

	if icao := strings.ToUpper(strings.TrimSpace(get(cols.icao))); icao != "" {
		r.byICAO[icao] = coords
	}
	name := domain.NormalizeName(get(cols.name))
	if name == "" {
		return
	}
	r.byName[name] = coords
	if strings.Contains(name, "quiaca") {
		r.byName["la quiaca"] = coords
	}
	if strings.Contains(name, "villa maria") {
		r.byName["villa maria del rio seco"] = coords
	}
}

func cellTexts(tr *goquery.Selection) []string {
	var out []string
	tr.Find("th, td").Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}
