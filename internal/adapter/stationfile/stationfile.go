// Package stationfile reads and writes the station CSV artifacts that the CLI
// steps exchange.
package stationfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// Artifact file names.
const (
	JoinedFile   = "estaciones_viento_con_icao_coords.csv"
	GeocodedFile = "estaciones_con_coordenadas.csv"
	ValidFile    = "estaciones_con_coordenadas_validas.csv"
	JSONFile     = "data.json"
	WorkbookFile = "estaciones.xlsx"
)

// Column names of the station CSV.
const (
	ColStation   = "Estación"
	ColMean      = "viento_promedio"
	ColICAO      = "ICAO"
	ColLat       = "lat"
	ColLon       = "lon"
	ColAltitude  = "Altura_m"
	ColProvince  = "Provincia"
	ColGeoSource = "geo_source"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Header returns the CSV header shared by every station artifact.
func Header() []string {
	h := []string{ColStation, ColMean, ColICAO, ColLat, ColLon, ColAltitude, ColProvince, ColGeoSource}
	return append(h, domain.Months[:]...)
}

// Write stores records at path as a UTF-8 CSV with a byte-order mark,
// creating the parent directory if needed.
func Write(path string, records []domain.StationRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Encode writes records as CSV to w.
func Encode(w io.Writer, records []domain.StationRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(bw)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Station,
			formatFloat(r.Mean),
			r.ICAO,
			formatFloat(r.Lat),
			formatFloat(r.Lon),
			formatFloat(r.Altitude),
			r.Province,
			r.GeoSource,
		}
		for _, m := range r.Months {
			row = append(row, formatFloat(m))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// Read loads the station CSV at path. Columns are matched by name, so files
// written without the month columns or geo_source are accepted.
func Read(path string) ([]domain.StationRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	records, err := Decode(bytes.NewReader(bytes.TrimPrefix(b, bom)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// Decode parses station CSV rows from r.
func Decode(r io.Reader) ([]domain.StationRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header")
	}
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	if _, ok := idx[ColStation]; !ok {
		return nil, fmt.Errorf("missing %q column", ColStation)
	}

	var out []domain.StationRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		rec := domain.StationRecord{
			Station:   get(ColStation),
			Mean:      domain.ParseOptionalFloat(get(ColMean)),
			ICAO:      get(ColICAO),
			Lat:       domain.ParseOptionalFloat(get(ColLat)),
			Lon:       domain.ParseOptionalFloat(get(ColLon)),
			Altitude:  domain.ParseOptionalFloat(get(ColAltitude)),
			Province:  get(ColProvince),
			GeoSource: get(ColGeoSource),
		}
		for i, m := range domain.Months {
			rec.Months[i] = domain.ParseOptionalFloat(get(m))
		}
		out = append(out, rec)
	}
	return out, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
