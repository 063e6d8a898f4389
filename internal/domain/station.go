package domain

import "strings"

// Months lists the SMN month column headers in calendar order.
var Months = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// Geo sources recorded on a StationRecord.
const (
	GeoSourceMetadata     = "metadata"
	GeoSourceAPI          = "api"
	GeoSourceRegistryICAO = "registry_icao"
	GeoSourceRegistryName = "registry_name"
	GeoSourceNone         = "none"
)

// Coordinates is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ReadingRow is one unparsed row of the SMN readings table.
type ReadingRow struct {
	Station  string
	Variable string
	Months   [12]string
}

// WindReading is an SMN wind-speed row after numeric coercion.
type WindReading struct {
	Station        string
	NormalizedName string
	Months         [12]*float64
	Mean           *float64
}

// StationMeta is one row of the ICAO metadata table.
type StationMeta struct {
	Station        string
	NormalizedName string
	ICAO           string
	Lat            *float64
	Lon            *float64
	Altitude       *float64
	Province       string
}

// StationRecord is a wind reading joined with its station metadata. It is the
// row shape of every CSV artifact.
type StationRecord struct {
	Station   string
	Mean      *float64
	ICAO      string
	Lat       *float64
	Lon       *float64
	Altitude  *float64
	Province  string
	GeoSource string
	Months    [12]*float64
}

// HasCoordinates reports whether both latitude and longitude are known.
func (r StationRecord) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// Valid reports whether the record can be placed on a map: it needs
// coordinates and a mean wind speed.
func (r StationRecord) Valid() bool {
	return r.HasCoordinates() && r.Mean != nil
}

// HasICAO reports whether the record carries a non-blank ICAO code.
func (r StationRecord) HasICAO() bool {
	return strings.TrimSpace(r.ICAO) != ""
}

// SetCoordinates stores a resolved position on the record.
func (r *StationRecord) SetCoordinates(c Coordinates) {
	lat, lon := c.Lat, c.Lon
	r.Lat = &lat
	r.Lon = &lon
}

// ValidRecords returns the records that pass Valid, preserving order.
func ValidRecords(records []StationRecord) []StationRecord {
	out := make([]StationRecord, 0, len(records))
	for _, r := range records {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Float returns a pointer to v. Handy for building records in tests and parsers.
func Float(v float64) *float64 {
	return &v
}
