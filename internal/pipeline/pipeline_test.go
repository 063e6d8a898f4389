package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wind-stations-etl/internal/adapter/export"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/maps"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/stationfile"
	"github.com/couchcryptid/wind-stations-etl/internal/config"
	"github.com/couchcryptid/wind-stations-etl/internal/domain"
	"github.com/couchcryptid/wind-stations-etl/internal/observability"
	"github.com/couchcryptid/wind-stations-etl/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SMNURL:         filepath.Join("testdata", "smn.tsv"),
		ICAOURL:        filepath.Join("testdata", "icao.csv"),
		RegistryURL:    filepath.Join("testdata", "registry.html"),
		OutputDir:      t.TempDir(),
		HeatmapCellDeg: 0.6,
	}
}

func geoSources(t *testing.T, path string) map[string]string {
	t.Helper()
	records, err := stationfile.Read(path)
	require.NoError(t, err)
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.Station] = r.GeoSource
	}
	return out
}

func TestClean(t *testing.T) {
	cfg := testConfig(t)
	metrics := observability.NewMetrics()
	steps := pipeline.New(cfg, discardLogger(), metrics)

	require.NoError(t, steps.Clean(context.Background()))

	records, err := stationfile.Read(filepath.Join(cfg.OutputDir, stationfile.JoinedFile))
	require.NoError(t, err)
	require.Len(t, records, 5, "temperature and all-missing rows are dropped")

	assert.Equal(t, "AEROPARQUE AERO", records[0].Station)
	assert.Equal(t, "SABE", records[0].ICAO)
	assert.InDelta(t, 14.7583, *records[0].Mean, 1e-3)
	assert.Equal(t, domain.GeoSourceMetadata, records[0].GeoSource)

	assert.Equal(t, "SASA", records[2].ICAO, "joined by normalized name")
	assert.False(t, records[2].HasCoordinates())
	assert.Empty(t, records[3].ICAO, "no metadata row for La Quiaca")

	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.StationsLoaded.WithLabelValues("smn")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.StationsLoaded.WithLabelValues("icao")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.StationsJoined))
}

func TestClean_MissingSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.SMNURL = filepath.Join("testdata", "nope.tsv")

	err := pipeline.New(cfg, discardLogger(), observability.NewMetrics()).Clean(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load readings")
}

func TestGeocode_RegistryFallback(t *testing.T) {
	cfg := testConfig(t)
	metrics := observability.NewMetrics()
	steps := pipeline.New(cfg, discardLogger(), metrics)
	ctx := context.Background()

	require.NoError(t, steps.Clean(ctx))
	require.NoError(t, steps.Geocode(ctx))

	got := geoSources(t, filepath.Join(cfg.OutputDir, stationfile.GeocodedFile))
	want := map[string]string{
		"AEROPARQUE AERO": domain.GeoSourceMetadata,
		"MENDOZA AERO":    domain.GeoSourceMetadata,
		"SALTA AERO":      domain.GeoSourceRegistryICAO,
		"LA QUIACA OBS.":  domain.GeoSourceRegistryName,
		"USHUAIA AERO":    domain.GeoSourceNone,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("geo sources mismatch (-want +got):\n%s", diff)
	}

	valid, err := stationfile.Read(filepath.Join(cfg.OutputDir, stationfile.ValidFile))
	require.NoError(t, err)
	require.Len(t, valid, 4)
	for _, r := range valid {
		assert.True(t, r.Valid(), r.Station)
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.StationsValid))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeResolved.WithLabelValues(domain.GeoSourceNone)))
}

func TestGeocode_UsesAPIFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getICAOLatLng/SAWH") {
			_, _ = w.Write([]byte(`{"latitude": "-54.84", "longitude": -68.3}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.GeocoderEnabled = true
	cfg.GeocoderURL = srv.URL
	cfg.GeocoderAttempts = 1
	cfg.GeocoderTimeout = 5 * time.Second
	metrics := observability.NewMetrics()
	steps := pipeline.New(cfg, discardLogger(), metrics)
	ctx := context.Background()

	require.NoError(t, steps.Clean(ctx))
	require.NoError(t, steps.Geocode(ctx))

	got := geoSources(t, filepath.Join(cfg.OutputDir, stationfile.GeocodedFile))
	assert.Equal(t, domain.GeoSourceAPI, got["USHUAIA AERO"])
	assert.Equal(t, domain.GeoSourceRegistryICAO, got["SALTA AERO"], "API error falls through to the registry")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("error")))
}

func TestGeocode_RegistryUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RegistryURL = filepath.Join("testdata", "missing.html")
	steps := pipeline.New(cfg, discardLogger(), observability.NewMetrics())
	ctx := context.Background()

	require.NoError(t, steps.Clean(ctx))
	require.NoError(t, steps.Geocode(ctx))

	got := geoSources(t, filepath.Join(cfg.OutputDir, stationfile.GeocodedFile))
	assert.Equal(t, domain.GeoSourceNone, got["SALTA AERO"])
	assert.Equal(t, domain.GeoSourceNone, got["LA QUIACA OBS."])
}

func TestMissingInput(t *testing.T) {
	steps := pipeline.New(testConfig(t), discardLogger(), observability.NewMetrics())
	ctx := context.Background()

	tests := []struct {
		name string
		run  func(context.Context) error
		hint string
	}{
		{"geocode", steps.Geocode, `run "clean" first`},
		{"export", steps.Export, `run "geocode" first`},
		{"render", steps.Render, `run "geocode" first`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(ctx)
			require.ErrorIs(t, err, pipeline.ErrMissingInput)
			assert.Contains(t, err.Error(), tt.hint)
		})
	}
}

func TestExport_NoStations(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, stationfile.Write(filepath.Join(cfg.OutputDir, stationfile.GeocodedFile), []domain.StationRecord{
		{Station: "ORCADAS", Mean: domain.Float(30)},
	}))

	err := pipeline.New(cfg, discardLogger(), observability.NewMetrics()).Export(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrNoStations)
}

func TestStore_SkippedWithoutDatabase(t *testing.T) {
	steps := pipeline.New(testConfig(t), discardLogger(), observability.NewMetrics())
	assert.NoError(t, steps.Store(context.Background()), "no DATABASE_URL and no input is still fine")
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.XLSXEnabled = true
	cfg.IncludeMonths = true
	cfg.DatabaseURL = filepath.Join(cfg.OutputDir, "wind.db")
	metrics := observability.NewMetrics()
	ctx := context.Background()

	require.NoError(t, pipeline.New(cfg, discardLogger(), metrics).Run(ctx))

	stations, err := export.ReadJSONFile(filepath.Join(cfg.OutputDir, stationfile.JSONFile))
	require.NoError(t, err)
	icaos := make([]string, 0, len(stations))
	for _, s := range stations {
		icaos = append(icaos, s.ICAO)
	}
	assert.Equal(t, []string{"SABE", "SAME", "SASA"}, icaos, "La Quiaca has no ICAO code")
	assert.Equal(t, 14.76, stations[0].Mean)
	assert.Equal(t, 9.07, stations[1].Mean)
	require.NotNil(t, stations[0].Months)
	assert.Equal(t, 16.5, *stations[0].Months.Ene)

	for _, name := range []string{stationfile.WorkbookFile, maps.BubbleFile, maps.HeatFile, maps.CellHeatFile, maps.IDWFile, maps.ChartFile} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
		assert.NoError(t, err, name)
	}

	store, err := sqlstore.Open(cfg.DatabaseURL)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.RowsExported.WithLabelValues("estaciones")))
}

func TestRun_StoreFailureDoesNotAbort(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "mysql://localhost/wind"

	require.NoError(t, pipeline.New(cfg, discardLogger(), observability.NewMetrics()).Run(context.Background()))

	_, err := os.Stat(filepath.Join(cfg.OutputDir, maps.BubbleFile))
	assert.NoError(t, err, "render still runs after the store step fails")
}

func TestRun_NothingExportableStillRenders(t *testing.T) {
	cfg := testConfig(t)
	cfg.ICAOURL = filepath.Join(t.TempDir(), "icao.csv")
	require.NoError(t, os.WriteFile(cfg.ICAOURL, []byte(
		"Estación;ICAO;lat;lon;Altura;Provincia\nRawson;SAVT;-43.2;-65.3;43;Chubut\n"), 0o600))
	ctx := context.Background()

	require.NoError(t, pipeline.New(cfg, discardLogger(), observability.NewMetrics()).Run(ctx))

	got := geoSources(t, filepath.Join(cfg.OutputDir, stationfile.GeocodedFile))
	assert.Equal(t, domain.GeoSourceRegistryName, got["SALTA AERO"])
	assert.Equal(t, domain.GeoSourceRegistryName, got["LA QUIACA OBS."])

	valid, err := stationfile.Read(filepath.Join(cfg.OutputDir, stationfile.ValidFile))
	require.NoError(t, err)
	assert.Len(t, valid, 2)

	_, err = os.Stat(filepath.Join(cfg.OutputDir, maps.BubbleFile))
	assert.NoError(t, err, "render runs without data.json")
	_, err = os.Stat(filepath.Join(cfg.OutputDir, stationfile.JSONFile))
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = pipeline.New(cfg, discardLogger(), observability.NewMetrics()).Export(ctx)
	assert.ErrorIs(t, err, pipeline.ErrNoExportable)
	assert.NotErrorIs(t, err, pipeline.ErrNoStations)
}
