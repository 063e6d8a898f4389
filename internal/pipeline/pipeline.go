// Package pipeline implements the CLI steps. Steps never call each other
// directly; each reads the artifact written by the previous one from the
// output directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/wind-stations-etl/internal/adapter/cache"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/export"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/iatageo"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/kafka"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/maps"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/registry"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/source"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/stationfile"
	"github.com/couchcryptid/wind-stations-etl/internal/config"
	"github.com/couchcryptid/wind-stations-etl/internal/domain"
	"github.com/couchcryptid/wind-stations-etl/internal/observability"
)

// Step names, used for metrics labels and missing-input hints.
const (
	StepClean   = "clean"
	StepGeocode = "geocode"
	StepExport  = "export"
	StepStore   = "store"
	StepRender  = "render"
)

// sourceTimeout bounds downloads of the SMN, ICAO and registry documents.
const sourceTimeout = 60 * time.Second

var (
	// ErrMissingInput is returned when a step's upstream artifact is absent.
	ErrMissingInput = errors.New("missing input")

	// ErrNoStations is returned when no station has coordinates and a mean.
	ErrNoStations = maps.ErrNoStations

	// ErrNoExportable is returned by Export when valid stations exist but
	// none of them carries an ICAO code.
	ErrNoExportable = errors.New("no valid station with an ICAO code")
)

// Steps runs the CLI steps against one output directory.
type Steps struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	fetcher *source.Fetcher
}

// New creates the step runner.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Steps {
	return &Steps{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		fetcher: source.NewFetcher(sourceTimeout),
	}
}

// Run executes clean, geocode, export, store and render in order. Store
// failures and an empty data.json export are logged and do not stop the run.
func (s *Steps) Run(ctx context.Context) error {
	if err := s.Clean(ctx); err != nil {
		return err
	}
	if err := s.Geocode(ctx); err != nil {
		return err
	}
	err := s.Export(ctx)
	switch {
	case errors.Is(err, ErrNoExportable):
		s.logger.Warn("nothing to export, continuing", "error", err)
	case err != nil:
		return err
	}
	if err := s.Store(ctx); err != nil {
		s.logger.Error("store step failed, continuing", "error", err)
	}
	return s.Render(ctx)
}

// Clean loads the SMN readings and ICAO metadata, keeps the wind-speed rows,
// and writes them joined with their metadata.
func (s *Steps) Clean(ctx context.Context) error {
	defer s.observe(StepClean, time.Now())

	loader := source.NewLoader(s.fetcher, s.logger)
	rows, err := loader.LoadReadings(ctx, s.cfg.SMNURL)
	if err != nil {
		return fmt.Errorf("load readings: %w", err)
	}
	s.metrics.StationsLoaded.WithLabelValues("smn").Add(float64(len(rows)))

	meta, err := loader.LoadMetadata(ctx, s.cfg.ICAOURL)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	s.metrics.StationsLoaded.WithLabelValues("icao").Add(float64(len(meta)))

	readings := domain.AggregateWind(rows, s.logger)
	records := domain.JoinStations(readings, meta, s.logger)
	s.metrics.StationsJoined.Add(float64(len(records)))

	if err := s.write(stationfile.JoinedFile, records); err != nil {
		return err
	}
	s.logger.Info("clean step done",
		"rows", len(rows),
		"wind_rows", len(readings),
		"metadata_rows", len(meta),
		"file", stationfile.JoinedFile,
	)
	return nil
}

// Geocode resolves the coordinates missing from the joined file and writes
// the full and valid-only geocoded files.
func (s *Steps) Geocode(ctx context.Context) error {
	defer s.observe(StepGeocode, time.Now())

	records, err := s.read(stationfile.JoinedFile, StepClean)
	if err != nil {
		return err
	}

	resolver := cache.NewCachedResolver(
		domain.NewChainResolver(s.locator(), s.registry(ctx), s.logger),
		s.cfg.GeocoderCacheSize,
		s.metrics,
	)

	out := make([]domain.StationRecord, len(records))
	for i, rec := range records {
		out[i] = domain.EnrichWithCoordinates(ctx, rec, resolver)
		s.metrics.GeocodeResolved.WithLabelValues(out[i].GeoSource).Inc()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("geocode: %w", err)
	}

	valid := domain.ValidRecords(out)
	s.metrics.StationsValid.Set(float64(len(valid)))

	if err := s.write(stationfile.GeocodedFile, out); err != nil {
		return err
	}
	if err := s.write(stationfile.ValidFile, valid); err != nil {
		return err
	}
	s.logger.Info("geocode step done",
		"stations", len(out),
		"valid", len(valid),
		"without_coordinates", len(out)-len(valid),
		"cached", resolver.Len(),
	)
	return nil
}

// locator returns the ICAO geocoding client, or nil when it is disabled.
func (s *Steps) locator() domain.ICAOLocator {
	if !s.cfg.GeocoderEnabled {
		s.logger.Info("icao geocoding disabled")
		return nil
	}
	return iatageo.NewClient(iatageo.Options{
		BaseURL:    s.cfg.GeocoderURL,
		Timeout:    s.cfg.GeocoderTimeout,
		Attempts:   s.cfg.GeocoderAttempts,
		RetryDelay: s.cfg.GeocoderRetryDelay,
	}, s.metrics, s.logger)
}

// registry loads the station registry. A failed download is logged and the
// chain continues without it.
func (s *Steps) registry(ctx context.Context) domain.StationRegistry {
	if s.cfg.RegistryURL == "" {
		return nil
	}
	reg, err := registry.Load(ctx, s.fetcher, s.cfg.RegistryURL)
	if err != nil {
		s.logger.Warn("station registry unavailable, continuing without it",
			"url", s.cfg.RegistryURL, "error", err)
		return nil
	}
	s.metrics.StationsLoaded.WithLabelValues("registry").Add(float64(reg.Len()))
	s.logger.Info("station registry loaded", "stations", reg.Len())
	return reg
}

// Export writes data.json, the optional workbook, and publishes to the
// station topic when brokers are configured. A topic failure is logged.
func (s *Steps) Export(ctx context.Context) error {
	defer s.observe(StepExport, time.Now())

	records, err := s.read(stationfile.GeocodedFile, StepGeocode)
	if err != nil {
		return err
	}
	stations := export.Stations(records, s.cfg.IncludeMonths)
	if len(stations) == 0 {
		if len(domain.ValidRecords(records)) > 0 {
			return fmt.Errorf("export: %w", ErrNoExportable)
		}
		return fmt.Errorf("export: %w", ErrNoStations)
	}

	if err := export.WriteJSONFile(s.path(stationfile.JSONFile), stations); err != nil {
		return err
	}
	s.metrics.RowsExported.WithLabelValues(stationfile.JSONFile).Add(float64(len(stations)))

	if s.cfg.XLSXEnabled {
		if err := export.WriteWorkbook(s.path(stationfile.WorkbookFile), stations); err != nil {
			return err
		}
		s.metrics.RowsExported.WithLabelValues(stationfile.WorkbookFile).Add(float64(len(stations)))
	}

	if len(s.cfg.KafkaBrokers) > 0 {
		s.publish(ctx, domain.ValidRecords(records))
	}

	s.logger.Info("export step done", "stations", len(stations), "xlsx", s.cfg.XLSXEnabled)
	return nil
}

func (s *Steps) publish(ctx context.Context, records []domain.StationRecord) {
	w := kafka.NewWriter(s.cfg, s.logger)
	defer func() {
		if err := w.Close(); err != nil {
			s.logger.Warn("kafka writer close error", "error", err)
		}
	}()
	if err := w.PublishStations(ctx, records); err != nil {
		s.logger.Error("publishing stations failed, check KAFKA_BROKERS and KAFKA_TOPIC",
			"topic", s.cfg.KafkaTopic, "error", err)
		return
	}
	s.metrics.RowsExported.WithLabelValues("topic").Add(float64(len(records)))
}

// Store replaces the estaciones table with the valid geocoded stations. It is
// a no-op when DATABASE_URL is unset.
func (s *Steps) Store(ctx context.Context) error {
	if s.cfg.DatabaseURL == "" {
		s.logger.Info("DATABASE_URL not set, skipping store step")
		return nil
	}
	defer s.observe(StepStore, time.Now())

	records, err := s.read(stationfile.GeocodedFile, StepGeocode)
	if err != nil {
		return err
	}
	valid := domain.ValidRecords(records)

	store, err := sqlstore.Open(s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database (check DATABASE_URL): %w", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("connect %s database (is it running and reachable?): %w", store.Driver(), err)
	}
	if err := store.ReplaceStations(ctx, valid); err != nil {
		return err
	}
	s.metrics.RowsExported.WithLabelValues("estaciones").Add(float64(len(valid)))
	s.logger.Info("store step done", "driver", store.Driver(), "rows", len(valid))
	return nil
}

// Render writes the HTML maps and the static chart.
func (s *Steps) Render(_ context.Context) error {
	defer s.observe(StepRender, time.Now())

	records, err := s.read(stationfile.GeocodedFile, StepGeocode)
	if err != nil {
		return err
	}
	renderer, err := maps.NewRenderer(s.cfg.OutputDir, s.cfg.HeatmapCellDeg, s.logger)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	written, err := renderer.Render(records)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	for _, path := range written {
		s.metrics.RowsExported.WithLabelValues(filepath.Base(path)).Inc()
	}
	return nil
}

func (s *Steps) path(name string) string {
	return filepath.Join(s.cfg.OutputDir, name)
}

// read loads an upstream artifact, mapping its absence to ErrMissingInput.
func (s *Steps) read(name, producer string) ([]domain.StationRecord, error) {
	records, err := stationfile.Read(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found in %s, run %q first", ErrMissingInput, name, s.cfg.OutputDir, producer)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Steps) write(name string, records []domain.StationRecord) error {
	if err := stationfile.Write(s.path(name), records); err != nil {
		return err
	}
	s.metrics.RowsExported.WithLabelValues(name).Add(float64(len(records)))
	return nil
}

func (s *Steps) observe(step string, start time.Time) {
	s.metrics.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
