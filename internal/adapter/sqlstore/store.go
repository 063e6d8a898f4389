// Package sqlstore loads the valid stations into a relational table.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// TableName is the table rewritten on every load.
const TableName = "estaciones"

// Store writes station records through database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	driver      string
	placeholder func(n int) string
	realType    string
}

var (
	sqliteDialect = dialect{
		driver:      "sqlite",
		placeholder: func(int) string { return "?" },
		realType:    "REAL",
	}
	postgresDialect = dialect{
		driver:      "postgres",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		realType:    "DOUBLE PRECISION",
	}
)

// Open connects to databaseURL. postgres:// and postgresql:// URLs use
// lib/pq; sqlite://path or a bare path uses modernc.org/sqlite.
func Open(databaseURL string) (*Store, error) {
	d, dsn, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	return &Store{db: db, dialect: d}, nil
}

func parseURL(databaseURL string) (dialect, string, error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return dialect{}, "", fmt.Errorf("empty DATABASE_URL")
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return postgresDialect, u, nil
	case strings.HasPrefix(u, "sqlite://"):
		return sqliteDialect, strings.TrimPrefix(u, "sqlite://"), nil
	case strings.Contains(u, "://"):
		return dialect{}, "", fmt.Errorf("unsupported DATABASE_URL scheme in %q", u)
	default:
		return sqliteDialect, u, nil
	}
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.dialect.driver
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceStations drops and recreates the stations table and inserts records,
// all inside one transaction.
func (s *Store) ReplaceStations(ctx context.Context, records []domain.StationRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+TableName); err != nil {
		return fmt.Errorf("drop %s: %w", TableName, err)
	}
	if _, err = tx.ExecContext(ctx, s.createStatement()); err != nil {
		return fmt.Errorf("create %s: %w", TableName, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.insertStatement())
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	loadedAt := domain.Now().Format(time.RFC3339)
	for _, r := range records {
		if _, err = stmt.ExecContext(ctx,
			nullString(r.ICAO),
			r.Station,
			nullFloat(r.Mean),
			nullFloat(r.Lat),
			nullFloat(r.Lon),
			nullFloat(r.Altitude),
			nullString(r.Province),
			r.GeoSource,
			loadedAt,
		); err != nil {
			return fmt.Errorf("insert %q: %w", r.Station, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of rows in the stations table.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", TableName, err)
	}
	return n, nil
}

func (s *Store) createStatement() string {
	num := s.dialect.realType
	return fmt.Sprintf(`CREATE TABLE %s (
	icao TEXT,
	estacion TEXT NOT NULL,
	viento_promedio %[2]s,
	lat %[2]s,
	lon %[2]s,
	altura_m %[2]s,
	provincia TEXT,
	geo_source TEXT NOT NULL,
	cargado_en TEXT NOT NULL
)`, TableName, num)
}

func (s *Store) insertStatement() string {
	ph := make([]string, 9)
	for i := range ph {
		ph[i] = s.dialect.placeholder(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (icao, estacion, viento_promedio, lat, lon, altura_m, provincia, geo_source, cargado_en) VALUES (%s)",
		TableName, strings.Join(ph, ", "))
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
