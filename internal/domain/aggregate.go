package domain

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// WindVariable is the "Valor Medio de" label that selects wind-speed rows.
const WindVariable = "velocidad del viento"

// MissingSentinel is the SMN marker for a month without data.
const MissingSentinel = "S/D"

// IsWindVariable reports whether a variable label names the wind-speed series.
func IsWindVariable(variable string) bool {
	return strings.Contains(strings.ToLower(variable), WindVariable)
}

// ParseMonthValue coerces a monthly cell to a number. The S/D sentinel, blank
// cells, non-numeric text and non-finite values are reported as missing.
// A decimal comma is accepted.
func ParseMonthValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, MissingSentinel) {
		return 0, false
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseMonths coerces all twelve monthly cells.
func ParseMonths(cells [12]string) [12]*float64 {
	var months [12]*float64
	for i, c := range cells {
		if v, ok := ParseMonthValue(c); ok {
			months[i] = Float(v)
		}
	}
	return months
}

// MonthlyMean is the arithmetic mean of the months that are present.
// It returns nil only when every month is missing.
func MonthlyMean(months [12]*float64) *float64 {
	var sum float64
	var n int
	for _, m := range months {
		if m == nil {
			continue
		}
		sum += *m
		n++
	}
	if n == 0 {
		return nil
	}
	return Float(sum / float64(n))
}

// AggregateWind keeps the wind-speed rows of the SMN table, coerces their
// months and computes the annual mean. Rows without a single usable month are
// dropped.
func AggregateWind(rows []ReadingRow, logger *slog.Logger) []WindReading {
	out := make([]WindReading, 0, len(rows))
	for _, row := range rows {
		if !IsWindVariable(row.Variable) {
			continue
		}
		months := ParseMonths(row.Months)
		mean := MonthlyMean(months)
		if mean == nil {
			logger.Warn("dropping wind row without monthly data", "station", row.Station)
			continue
		}
		out = append(out, WindReading{
			Station:        strings.TrimSpace(row.Station),
			NormalizedName: NormalizeName(row.Station),
			Months:         months,
			Mean:           mean,
		})
	}
	return out
}
