package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyTable is returned when a source has a header but no data rows.
var ErrEmptyTable = errors.New("table has no data rows")

// Table is a parsed delimited source with every column held as text.
type Table struct {
	df dataframe.DataFrame

	// HeaderForced is true when the source header was unrecognized and the
	// fallback header was used instead.
	HeaderForced bool
}

// TableSpec describes how to parse one source.
type TableSpec struct {
	Separator rune

	// Required is the column that identifies a recognized header.
	Required string

	// FallbackHeader replaces an unrecognized header row. When empty, an
	// unrecognized header is an error.
	FallbackHeader []string
}

// ParseTable splits text into rows with spec.Separator. A line that yields
// fewer than three fields falls back to whitespace splitting. Rows are padded
// or truncated to the header width.
func ParseTable(text string, spec TableSpec) (*Table, error) {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := splitLine(line, spec.Separator)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fields)
	}
	if len(rows) == 0 {
		return nil, errors.New("table is empty")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	forced := false
	if spec.Required != "" && columnIndex(header, spec.Required) < 0 {
		if len(spec.FallbackHeader) == 0 {
			return nil, fmt.Errorf("column %q not found in header %v", spec.Required, header)
		}
		header = append([]string(nil), spec.FallbackHeader...)
		forced = true
	}

	body := rows[1:]
	if len(body) == 0 {
		return nil, ErrEmptyTable
	}

	keep := firstOccurrences(header)
	records := make([][]string, 0, len(body)+1)
	records = append(records, pick(header, keep))
	for _, r := range body {
		records = append(records, pick(fitWidth(r, len(header)), keep))
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("load records: %w", df.Err)
	}
	return &Table{df: df, HeaderForced: forced}, nil
}

// Names returns the column names.
func (t *Table) Names() []string {
	return t.df.Names()
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return t.df.Nrow()
}

// Column returns the cells of the column whose folded name matches name
// (case- and accent-insensitive), trying each alias in turn. A missing column
// yields nil.
func (t *Table) Column(name string, aliases ...string) []string {
	names := t.df.Names()
	for _, candidate := range append([]string{name}, aliases...) {
		if i := columnIndex(names, candidate); i >= 0 {
			return t.df.Col(names[i]).Records()
		}
	}
	return nil
}

func splitLine(line string, sep rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("parse line %q: %w", line, err)
	}
	if len(fields) < 3 {
		if ws := strings.Fields(line); len(ws) > len(fields) {
			return ws, nil
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

func fitWidth(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// firstOccurrences returns the indexes of header columns whose folded name
// has not appeared earlier. Later duplicates are dropped.
func firstOccurrences(header []string) []int {
	seen := make(map[string]bool, len(header))
	keep := make([]int, 0, len(header))
	for i, h := range header {
		k := foldHeader(h)
		if seen[k] {
			continue
		}
		seen[k] = true
		keep = append(keep, i)
	}
	return keep
}

func pick(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = row[j]
	}
	return out
}

func columnIndex(names []string, want string) int {
	w := foldHeader(want)
	for i, n := range names {
		if foldHeader(n) == w {
			return i
		}
	}
	return -1
}

// foldHeader compares headers case- and accent-insensitively, so "Estación",
// "ESTACION" and "estacion" are the same column.
func foldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
