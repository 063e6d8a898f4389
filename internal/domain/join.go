package domain

import (
	"log/slog"
	"strings"
)

// JoinStations left-joins wind readings with station metadata on normalized
// name. The result has exactly one record per reading, in reading order.
// When several metadata rows share a normalized name the first one wins.
func JoinStations(readings []WindReading, meta []StationMeta, logger *slog.Logger) []StationRecord {
	index := make(map[string]StationMeta, len(meta))
	for _, m := range meta {
		key := m.NormalizedName
		if key == "" {
			key = NormalizeName(m.Station)
		}
		if key == "" {
			continue
		}
		if prev, ok := index[key]; ok {
			logger.Warn("duplicate station in metadata, keeping first",
				"key", key,
				"kept_icao", prev.ICAO,
				"dropped_icao", m.ICAO,
			)
			continue
		}
		index[key] = m
	}

	out := make([]StationRecord, 0, len(readings))
	for _, r := range readings {
		rec := StationRecord{
			Station: r.Station,
			Mean:    r.Mean,
			Months:  r.Months,
		}
		key := r.NormalizedName
		if key == "" {
			key = NormalizeName(r.Station)
		}
		if m, ok := index[key]; ok {
			rec.ICAO = strings.ToUpper(strings.TrimSpace(m.ICAO))
			rec.Lat = m.Lat
			rec.Lon = m.Lon
			rec.Altitude = m.Altitude
			rec.Province = strings.TrimSpace(m.Province)
			if rec.HasCoordinates() {
				rec.GeoSource = GeoSourceMetadata
			}
		}
		out = append(out, rec)
	}
	return out
}
