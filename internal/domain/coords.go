package domain

import (
	"math"
	"strconv"
	"strings"
)

// ParseCoordinate reads a latitude or longitude written either in decimal
// degrees ("-34.82", "-34,82") or as whole degrees and minutes ("-34 49").
func ParseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, ok := parseDecimal(s); ok {
		return v, true
	}

	parts := strings.Fields(s)
	if len(parts) != 2 {
		return 0, false
	}
	deg, ok := parseDecimal(parts[0])
	if !ok {
		return 0, false
	}
	minutes, ok := parseDecimal(parts[1])
	if !ok || minutes < 0 || minutes >= 60 {
		return 0, false
	}
	v := math.Abs(deg) + minutes/60
	if strings.HasPrefix(parts[0], "-") {
		v = -v
	}
	return v, true
}

// ParseOptionalFloat parses a plain decimal, returning nil when the cell is
// blank or not a finite number.
func ParseOptionalFloat(s string) *float64 {
	v, ok := parseDecimal(strings.TrimSpace(s))
	if !ok {
		return nil
	}
	return Float(v)
}

func parseDecimal(s string) (float64, bool) {
	if s == "" {
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
