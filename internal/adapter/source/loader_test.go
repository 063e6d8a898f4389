package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func newTestLoader() *Loader {
	return NewLoader(NewFetcher(5*time.Second), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoadReadings_LocalFile(t *testing.T) {
	rows, err := newTestLoader().LoadReadings(context.Background(), filepath.Join("testdata", "smn.tsv"))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "AEROPARQUE AERO", rows[0].Station)
	assert.Equal(t, "Velocidad del Viento (km/h)", rows[0].Variable)
	assert.Equal(t, "16,5", rows[0].Months[0])
	assert.Equal(t, "17.0", rows[0].Months[11])
	assert.Equal(t, "S/D", rows[2].Months[0])
}

func TestLoadReadings_ForcesHeaderWhenStationColumnMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smn.tsv")
	content := "col1\tcol2\tx\n" +
		"JUJUY AERO\tVelocidad del Viento (km/h)\t5\t6\t7\t8\t9\t10\t11\t12\t13\t14\t15\t16\t99\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rows, err := newTestLoader().LoadReadings(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "JUJUY AERO", rows[0].Station)
	assert.Equal(t, "5", rows[0].Months[0])
	assert.Equal(t, "16", rows[0].Months[11], "extra cells are truncated")
}

func TestLoadReadings_MissingMonthColumnsAreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smn.tsv")
	content := "Estación\tValor Medio de\tEne\tFeb\n" +
		"SALTA AERO\tVelocidad del Viento (km/h)\t7.1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rows, err := newTestLoader().LoadReadings(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7.1", rows[0].Months[0])
	assert.Equal(t, "", rows[0].Months[1], "short rows are padded")
	assert.Equal(t, "", rows[0].Months[5])
}

func TestLoadReadings_Latin1(t *testing.T) {
	utf := "Estación\tValor Medio de\tEne\tFeb\tMar\n" +
		"TUCUMÁN AERO\tVelocidad del Viento (km/h)\t9.1\t9.2\t9.3\n"
	latin, err := charmap.ISO8859_1.NewEncoder().String(utf)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "smn.tsv")
	require.NoError(t, os.WriteFile(path, []byte(latin), 0o600))

	rows, err := newTestLoader().LoadReadings(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TUCUMÁN AERO", rows[0].Station)
}

func TestLoadReadings_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smn.tsv")
	require.NoError(t, os.WriteFile(path, []byte("Estación\tValor Medio de\tEne\n"), 0o600))

	_, err := newTestLoader().LoadReadings(context.Background(), path)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestLoadReadings_MissingFile(t *testing.T) {
	_, err := newTestLoader().LoadReadings(context.Background(), filepath.Join(t.TempDir(), "nope.tsv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMetadata_LocalFile(t *testing.T) {
	meta, err := newTestLoader().LoadMetadata(context.Background(), filepath.Join("testdata", "icao.csv"))
	require.NoError(t, err)
	require.Len(t, meta, 3)

	assert.Equal(t, "Aeroparque", meta[0].Station)
	assert.Equal(t, "aeroparque", meta[0].NormalizedName)
	assert.Equal(t, "SABE", meta[0].ICAO)
	require.NotNil(t, meta[0].Lat)
	assert.InDelta(t, -34.55, *meta[0].Lat, 1e-9)
	require.NotNil(t, meta[0].Altitude)
	assert.Equal(t, 6.0, *meta[0].Altitude)

	assert.Equal(t, "mendoza", meta[1].NormalizedName)
	assert.Equal(t, "Mendoza", meta[1].Province)
	require.NotNil(t, meta[1].Lon)
	assert.InDelta(t, -(68 + 47.0/60), *meta[1].Lon, 1e-9)

	assert.Nil(t, meta[2].Lat)
	assert.Nil(t, meta[2].Lon)
}

func TestLoadMetadata_Remote(t *testing.T) {
	body, err := os.ReadFile(filepath.Join("testdata", "icao.csv"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	meta, err := newTestLoader().LoadMetadata(context.Background(), srv.URL+"/ICAO.CSV")
	require.NoError(t, err)
	assert.Len(t, meta, 3)
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/a.csv"))
	assert.True(t, IsRemote("http://example.com/a.csv"))
	assert.False(t, IsRemote("data/a.csv"))
}
