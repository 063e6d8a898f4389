package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/wind-stations-etl/internal/adapter/export"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/maps"
	"github.com/couchcryptid/wind-stations-etl/internal/adapter/stationfile"
)

// Server serves the generated maps and data.json from an output directory,
// plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dir        string
	logger     *slog.Logger
}

// NewServer creates the preview server. Readiness requires data.json in dir.
func NewServer(addr, dir string, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dir:    dir,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /maps/{file}", s.handleMap)
	mux.HandleFunc("GET /data.json", s.handleData)
	mux.HandleFunc("GET /stations", s.handleStations)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(artifactReadiness{dir: dir}))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("preview server starting", "addr", s.httpServer.Addr, "dir", s.dir)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// servable lists the artifacts reachable under /maps/.
var servable = map[string]bool{
	maps.BubbleFile:   true,
	maps.HeatFile:     true,
	maps.CellHeatFile: true,
	maps.IDWFile:      true,
	maps.ChartFile:    true,
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, maps.BubbleFile)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if !servable[name] {
		http.NotFound(w, r)
		return
	}
	s.serveArtifact(w, r, name)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, stationfile.JSONFile)
}

// stationsResponse is the body of GET /stations.
type stationsResponse struct {
	Query    string           `json:"query"`
	Summary  export.Summary   `json:"summary"`
	Stations []export.Station `json:"stations"`
}

// handleStations returns the data.json entries matching ?q= together with
// their wind summary.
func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := export.ReadJSONFile(filepath.Join(s.dir, stationfile.JSONFile))
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, fmt.Sprintf("%s not generated yet", stationfile.JSONFile), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("read stations", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query().Get("q")
	matched := export.Filter(stations, q)
	sharedobs.WriteJSON(w, http.StatusOK, stationsResponse{
		Query:    q,
		Summary:  export.Summarize(matched),
		Stations: matched,
	})
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, name string) {
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, fmt.Sprintf("%s not generated yet", name), http.StatusNotFound)
			return
		}
		s.logger.Error("stat artifact", "file", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if strings.HasSuffix(name, ".json") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	http.ServeFile(w, r, path)
}

// artifactReadiness is ready once the export step has written data.json.
type artifactReadiness struct {
	dir string
}

func (a artifactReadiness) CheckReadiness(_ context.Context) error {
	if _, err := os.Stat(filepath.Join(a.dir, stationfile.JSONFile)); err != nil {
		return fmt.Errorf("%s not available: %w", stationfile.JSONFile, err)
	}
	return nil
}
