// Command etl prepares the Argentine wind-station dataset and its maps. Each
// subcommand is one step; steps exchange files through the output directory.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/wind-stations-etl/internal/adapter/http"
	"github.com/couchcryptid/wind-stations-etl/internal/config"
	"github.com/couchcryptid/wind-stations-etl/internal/observability"
	"github.com/couchcryptid/wind-stations-etl/internal/pipeline"
)

const pushJob = "wind_stations_etl"

// app carries the state shared by every subcommand once config is loaded.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	outDir  string
	smnURL  string
	icaoURL string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "etl",
		Short:         "Build the wind-station dataset and maps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.outDir, "out", "", "output directory (overrides OUTPUT_DIR)")
	root.PersistentFlags().StringVar(&a.smnURL, "smn", "", "SMN readings URL or path (overrides SMN_URL)")
	root.PersistentFlags().StringVar(&a.icaoURL, "icao", "", "ICAO metadata URL or path (overrides ICAO_URL)")

	root.AddCommand(
		a.stepCommand(pipeline.StepClean, "Load SMN and ICAO tables and write the joined CSV", (*pipeline.Steps).Clean),
		a.stepCommand(pipeline.StepGeocode, "Resolve missing coordinates and write the geocoded CSVs", (*pipeline.Steps).Geocode),
		a.stepCommand(pipeline.StepExport, "Write data.json, the optional workbook and topic messages", (*pipeline.Steps).Export),
		a.stepCommand(pipeline.StepStore, "Replace the estaciones table in DATABASE_URL", (*pipeline.Steps).Store),
		a.stepCommand(pipeline.StepRender, "Write the HTML maps and the static chart", (*pipeline.Steps).Render),
		a.stepCommand("run", "Run every step in order", (*pipeline.Steps).Run),
		a.previewCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = a.outDir
	}
	if cmd.Flags().Changed("smn") {
		cfg.SMNURL = a.smnURL
	}
	if cmd.Flags().Changed("icao") {
		cfg.ICAOURL = a.icaoURL
	}

	a.cfg = cfg
	a.logger = sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	a.metrics = observability.NewMetrics()
	return nil
}

func (a *app) stepCommand(name, short string, step func(*pipeline.Steps, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			steps := pipeline.New(a.cfg, a.logger, a.metrics)
			err := step(steps, ctx)
			a.pushMetrics()
			if err != nil {
				a.logger.Error("step failed", "step", name, "error", err)
				return err
			}
			a.logger.Info("step complete", "step", name, "out", a.cfg.OutputDir)
			return nil
		},
	}
}

func (a *app) previewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Serve the output directory until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.cfg.OutputDir, a.metrics.Registry(), a.logger)
			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err, ok := <-errCh:
				if ok {
					a.logger.Error("http server error", "error", err)
					return err
				}
				return nil
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("http server shutdown error", "error", err)
				return err
			}
			a.logger.Info("shutdown complete")
			return nil
		},
	}
}

func (a *app) pushMetrics() {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.metrics.Push(ctx, a.cfg.PushgatewayURL, pushJob); err != nil {
		a.logger.Warn("metrics push failed", "url", a.cfg.PushgatewayURL, "error", err)
	}
}
