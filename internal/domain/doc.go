// Package domain models Argentine weather-station wind readings and the
// station metadata used to place them on a map.
//
// # Data Sources
//
// Readings come from the Servicio Meteorológico Nacional (SMN) climate
// normals table, published as a tab-separated file with one row per
// (station, variable) pair:
//
//	Estación <TAB> Valor Medio de <TAB> Ene <TAB> Feb ... <TAB> Dic
//	"EZEIZA AERO"  "Velocidad del Viento (km/h)"  16.2  15.1 ... S/D
//
// Station metadata comes from a semicolon-separated ICAO table
// (Estación; ICAO; lat; lon; Altura; Provincia) and, as a fallback, from the
// public station registry HTML page (OACI, Localidad, Lat, Lon).
//
// # SMN Conventions
//
// Missing values:
//
//	"S/D" (sin dato) is the SMN sentinel for a month without data.
//	Empty cells and non-numeric text are treated the same way.
//
// Station names:
//
//	The two tables spell stations differently: "VILLA MARIA DEL RIO SECO",
//	"Villa María", "LA QUIACA OBS.", "EZEIZA AERO". [NormalizeName] reduces
//	them to a shared join key by lower-casing, removing accents and stripping
//	trailing qualifier tokens such as "aero", "obs." or "base".
//
// # Coordinate Resolution
//
// A station without coordinates in the ICAO table is resolved, in order,
// through the ICAO geocoding API, the registry by ICAO code, and the registry
// by normalized name. The winning step is recorded in GeoSource so exports can
// tell measured positions from looked-up ones. See [ChainResolver].
package domain
