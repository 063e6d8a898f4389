package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// Column names of the SMN readings table.
const (
	ColStation  = "Estación"
	ColVariable = "Valor Medio de"
)

// smnHeader replaces an SMN header row that does not name the station column.
var smnHeader = append([]string{ColStation, ColVariable}, domain.Months[:]...)

// Loader reads the two input tables into domain rows.
type Loader struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(fetcher *Fetcher, logger *slog.Logger) *Loader {
	return &Loader{fetcher: fetcher, logger: logger}
}

// LoadReadings reads the tab-separated SMN table. Month columns absent from
// the header are treated as empty cells.
func (l *Loader) LoadReadings(ctx context.Context, location string) ([]domain.ReadingRow, error) {
	t, err := l.load(ctx, location, TableSpec{
		Separator:      '\t',
		Required:       ColStation,
		FallbackHeader: smnHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}
	if t.HeaderForced {
		l.logger.Warn("unrecognized readings header, using fixed SMN layout", "source", location)
	}

	stations := t.Column(ColStation)
	variables := t.Column(ColVariable)
	var months [12][]string
	for i, m := range domain.Months {
		months[i] = t.Column(m)
	}

	rows := make([]domain.ReadingRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := domain.ReadingRow{Station: strings.TrimSpace(stations[i])}
		if variables != nil {
			row.Variable = variables[i]
		}
		for m := range months {
			if months[m] != nil {
				row.Months[m] = months[m][i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadMetadata reads the semicolon-separated ICAO station table.
func (l *Loader) LoadMetadata(ctx context.Context, location string) ([]domain.StationMeta, error) {
	t, err := l.load(ctx, location, TableSpec{Separator: ';', Required: ColStation})
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	stations := t.Column(ColStation)
	icao := t.Column("ICAO", "OACI")
	lat := t.Column("lat", "latitud")
	lon := t.Column("lon", "longitud")
	alt := t.Column("Altura", "Altura_m")
	prov := t.Column("Provincia")

	out := make([]domain.StationMeta, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		m := domain.StationMeta{
			Station:        strings.TrimSpace(stations[i]),
			ICAO:           strings.ToUpper(strings.TrimSpace(cell(icao, i))),
			Province:       strings.TrimSpace(cell(prov, i)),
			Altitude:       domain.ParseOptionalFloat(cell(alt, i)),
			NormalizedName: domain.NormalizeName(stations[i]),
		}
		if v, ok := domain.ParseCoordinate(cell(lat, i)); ok {
			m.Lat = domain.Float(v)
		}
		if v, ok := domain.ParseCoordinate(cell(lon, i)); ok {
			m.Lon = domain.Float(v)
		}
		out = append(out, m)
	}
	return out, nil
}

func (l *Loader) load(ctx context.Context, location string, spec TableSpec) (*Table, error) {
	b, err := l.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	text, enc, err := Decode(b)
	if err != nil {
		return nil, err
	}
	l.logger.Info("source decoded", "source", location, "encoding", enc, "bytes", len(b))
	return ParseTable(text, spec)
}

func cell(col []string, i int) string {
	if col == nil {
		return ""
	}
	return col[i]
}
