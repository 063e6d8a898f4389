// Command validate checks the artifacts in an output directory for internal
// consistency: the valid CSV, data.json and the joined CSV.
//
// Usage:
//
//	go run ./cmd/validate -dir out -smn SMN.CSV
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/wind-stations-etl/internal/adapter/export"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/source"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/stationfile"
	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// requiredFields must be present on every data.json entry.
var requiredFields = []string{"ICAO", "Estación", "viento_promedio", "lat", "lon", "Altura_m", "Provincia"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", ".", "output directory holding the artifacts")
	smn := flag.String("smn", "", "SMN readings URL or path; enables the joined row-count check")
	flag.Parse()

	os.Exit(run(os.Stdout, *dir, *smn))
}

func run(out io.Writer, dir, smn string) int {
	fmt.Fprintln(out, "=== Wind Station Artifact Validation ===")

	valid, err := stationfile.Read(filepath.Join(dir, stationfile.ValidFile))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load valid CSV: %v\n", err)
		return 1
	}
	geocoded, err := stationfile.Read(filepath.Join(dir, stationfile.GeocodedFile))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load geocoded CSV: %v\n", err)
		return 1
	}
	joined, err := stationfile.Read(filepath.Join(dir, stationfile.JoinedFile))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load joined CSV: %v\n", err)
		return 1
	}
	jsonPath := filepath.Join(dir, stationfile.JSONFile)
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load data.json: %v\n", err)
		return 1
	}
	stations, err := export.ReadJSONFile(jsonPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: decode data.json: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCoordinates(valid),
		validateJSONFields(raw),
		validateJSONValues(stations, geocoded),
	}
	if smn != "" {
		p, err := validateJoinedCount(joined, smn)
		if err != nil {
			fmt.Fprintf(out, "FATAL: load SMN readings: %v\n", err)
			return 1
		}
		phases = append(phases, p)
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-36s %s\n", p.name, status)
	}
	fmt.Fprintf(out, "\nRecords: %d joined, %d geocoded, %d valid\n", len(joined), len(geocoded), len(valid))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validateCoordinates checks that every row of the valid CSV can be mapped.
func validateCoordinates(records []domain.StationRecord) *phase {
	p := &phase{name: "Valid CSV coordinates"}
	for i, r := range records {
		if !r.HasCoordinates() {
			p.errorf("row %d (%s): missing lat/lon", i+2, r.Station)
		}
		if r.Mean == nil {
			p.errorf("row %d (%s): missing %s", i+2, r.Station, stationfile.ColMean)
		}
	}
	return p
}

// validateJSONFields checks field presence and (ICAO, lat, lon) uniqueness.
func validateJSONFields(raw []byte) *phase {
	p := &phase{name: "data.json fields and duplicates"}

	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		p.errorf("decode: %v", err)
		return p
	}
	seen := make(map[string]int)
	for i, e := range entries {
		for _, f := range requiredFields {
			if _, ok := e[f]; !ok {
				p.errorf("entry %d: missing field %q", i, f)
			}
		}
		if icao, _ := e["ICAO"].(string); strings.TrimSpace(icao) == "" {
			p.errorf("entry %d: blank ICAO", i)
		}
		key := fmt.Sprintf("%v|%v|%v", e["ICAO"], e["lat"], e["lon"])
		if first, dup := seen[key]; dup {
			p.errorf("entry %d duplicates entry %d on (ICAO, lat, lon) = %s", i, first, key)
			continue
		}
		seen[key] = i
	}
	return p
}

// validateJSONValues checks that each data.json entry carries the CSV values
// rounded to two decimals.
func validateJSONValues(stations []export.Station, geocoded []domain.StationRecord) *phase {
	p := &phase{name: "data.json matches CSV values"}

	byKey := make(map[string]domain.StationRecord)
	for _, r := range domain.ValidRecords(geocoded) {
		k := strings.TrimSpace(r.ICAO) + "|" + r.Station
		if _, ok := byKey[k]; !ok {
			byKey[k] = r
		}
	}
	for _, s := range stations {
		r, ok := byKey[s.ICAO+"|"+s.Station]
		if !ok {
			p.errorf("%s (%s): not in the geocoded CSV", s.ICAO, s.Station)
			continue
		}
		check := func(field string, got, want float64) {
			if got != export.Round2(want) {
				p.errorf("%s %s: data.json %v, CSV %v rounds to %v", s.ICAO, field, got, want, export.Round2(want))
			}
		}
		check(stationfile.ColMean, s.Mean, *r.Mean)
		check(stationfile.ColLat, s.Lat, *r.Lat)
		check(stationfile.ColLon, s.Lon, *r.Lon)
	}
	return p
}

// validateJoinedCount checks that the join never fans out: the joined CSV has
// at most one row per wind-speed row of the SMN table.
func validateJoinedCount(joined []domain.StationRecord, smn string) (*phase, error) {
	p := &phase{name: "Joined CSV cardinality"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := source.NewLoader(source.NewFetcher(time.Minute), logger)
	rows, err := loader.LoadReadings(context.Background(), smn)
	if err != nil {
		return nil, err
	}
	wind := 0
	for _, r := range rows {
		if domain.IsWindVariable(r.Variable) {
			wind++
		}
	}
	if len(joined) > wind {
		p.errorf("joined CSV has %d rows, SMN has %d wind rows", len(joined), wind)
	}
	return p, nil
}
