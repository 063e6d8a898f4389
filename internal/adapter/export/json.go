// Package export writes the map-ready artifacts derived from the geocoded
// station CSV.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// Station is one data.json entry.
type Station struct {
	ICAO     string   `json:"ICAO"`
	Station  string   `json:"Estación"`
	Mean     float64  `json:"viento_promedio"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Altitude *float64 `json:"Altura_m"`
	Province string   `json:"Provincia"`
	Months   *Months  `json:"meses,omitempty"`
}

// Months holds the monthly means keyed by SMN month name.
type Months struct {
	Ene *float64 `json:"Ene"`
	Feb *float64 `json:"Feb"`
	Mar *float64 `json:"Mar"`
	Abr *float64 `json:"Abr"`
	May *float64 `json:"May"`
	Jun *float64 `json:"Jun"`
	Jul *float64 `json:"Jul"`
	Ago *float64 `json:"Ago"`
	Sep *float64 `json:"Sep"`
	Oct *float64 `json:"Oct"`
	Nov *float64 `json:"Nov"`
	Dic *float64 `json:"Dic"`
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Stations converts geocoded records into data.json entries. Records without
// coordinates, a mean or an ICAO code are skipped, and so are repeats of an
// (ICAO, lat, lon) triple already seen.
func Stations(records []domain.StationRecord, includeMonths bool) []Station {
	type key struct {
		icao     string
		lat, lon float64
	}
	seen := make(map[key]bool)
	out := make([]Station, 0, len(records))
	for _, r := range records {
		if !r.Valid() || !r.HasICAO() {
			continue
		}
		s := Station{
			ICAO:     strings.TrimSpace(r.ICAO),
			Station:  r.Station,
			Mean:     Round2(*r.Mean),
			Lat:      Round2(*r.Lat),
			Lon:      Round2(*r.Lon),
			Altitude: roundPtr(r.Altitude),
			Province: r.Province,
		}
		k := key{s.ICAO, s.Lat, s.Lon}
		if seen[k] {
			continue
		}
		seen[k] = true
		if includeMonths {
			s.Months = monthsOf(r.Months)
		}
		out = append(out, s)
	}
	return out
}

// WriteJSON encodes stations to w, indented and without HTML escaping.
func WriteJSON(w io.Writer, stations []Station) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(stations)
}

// WriteJSONFile writes stations to path.
func WriteJSONFile(path string, stations []Station) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, stations); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// ReadJSONFile loads a data.json artifact.
func ReadJSONFile(path string) ([]Station, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out []Station
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func monthsOf(m [12]*float64) *Months {
	r := func(i int) *float64 { return roundPtr(m[i]) }
	return &Months{
		Ene: r(0), Feb: r(1), Mar: r(2), Abr: r(3), May: r(4), Jun: r(5),
		Jul: r(6), Ago: r(7), Sep: r(8), Oct: r(9), Nov: r(10), Dic: r(11),
	}
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return domain.Float(Round2(*v))
}
