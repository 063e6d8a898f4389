package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// suffixTokens are trailing qualifiers that differ between the SMN and ICAO
// spellings of the same station. Multi-word qualifiers are matched as a whole.
var suffixTokens = [][]string{
	{"del", "rio", "seco"},
	{"u", "n"},
	{"aero"},
	{"obs"},
	{"obs."},
	{"observatorio"},
	{"b.a."},
	{"base"},
	{"(mza)"},
	{"internacional"},
}

// NormalizeName reduces a station name to its join key: lower-cased,
// accent-free, single-spaced, with trailing qualifier tokens removed.
// At least one token is always kept, so "BASE" stays "base".
// NormalizeName is idempotent.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = stripAccents(name)
	name = strings.ReplaceAll(name, "*", " ")

	tokens := strings.Fields(name)
	for {
		trimmed := trimSuffix(tokens)
		if len(trimmed) == len(tokens) {
			break
		}
		tokens = trimmed
	}
	return strings.Join(tokens, " ")
}

func trimSuffix(tokens []string) []string {
	for _, suffix := range suffixTokens {
		if len(tokens) <= len(suffix) {
			continue
		}
		tail := tokens[len(tokens)-len(suffix):]
		if equalTokens(tail, suffix) {
			return tokens[:len(tokens)-len(suffix)]
		}
	}
	return tokens
}

func equalTokens(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stripAccents removes combining marks after canonical decomposition, so
// "río" becomes "rio" and "ñ" becomes "n".
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases s and strips its accents for case- and accent-insensitive
// substring matching.
func Fold(s string) string {
	return stripAccents(strings.ToLower(s))
}
