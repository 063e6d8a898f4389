package export

import (
	"math"
	"strings"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// Summary describes the mean wind speeds of a set of stations.
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
}

// Filter keeps the stations whose ICAO code, name or province contains q,
// ignoring case and accents. A blank q keeps every station.
func Filter(stations []Station, q string) []Station {
	term := domain.Fold(strings.TrimSpace(q))
	if term == "" {
		return stations
	}
	out := make([]Station, 0, len(stations))
	for _, s := range stations {
		if strings.Contains(domain.Fold(s.ICAO), term) ||
			strings.Contains(domain.Fold(s.Station), term) ||
			strings.Contains(domain.Fold(s.Province), term) {
			out = append(out, s)
		}
	}
	return out
}

// Summarize returns the count and the min, average and max mean wind speed,
// rounded to one decimal. An empty set yields zeros.
func Summarize(stations []Station) Summary {
	if len(stations) == 0 {
		return Summary{}
	}
	lo, hi, sum := stations[0].Mean, stations[0].Mean, 0.0
	for _, s := range stations {
		lo = min(lo, s.Mean)
		hi = max(hi, s.Mean)
		sum += s.Mean
	}
	return Summary{
		Count: len(stations),
		Min:   round1(lo),
		Avg:   round1(sum / float64(len(stations))),
		Max:   round1(hi),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
