// Command etl runs the vehicle-telemetry service: an HTTP API that triggers
// CSV loads into Postgres and serves read queries over the persisted samples.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/adapter/csvfile"
	httpadapter "github.com/fleetsight/vehicle-telemetry-etl/internal/adapter/http"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/adapter/nominatim"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/adapter/postgres"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/config"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/domain"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/observability"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := postgres.NewStore(db, logger)

	// Reverse geocoding is feature-flagged via GEOCODER_ENABLED.
	var geocoder domain.Geocoder
	if cfg.GeocoderEnabled {
		client := nominatim.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, metrics, logger)
		geocoder = nominatim.NewCachedGeocoder(client, cfg.GeocoderCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("reverse geocoding enabled",
			"base_url", cfg.GeocoderBaseURL,
			"cache_size", cfg.GeocoderCacheSize,
			"concurrency", cfg.GeocoderConcurrency,
		)
	} else {
		logger.Info("reverse geocoding disabled")
	}

	transformer := pipeline.NewTransformer(geocoder, cfg.GeocoderConcurrency, logger)
	p := pipeline.New(csvfile.NewReader(logger), transformer, store, logger, metrics)

	srv := httpadapter.NewServer(httpadapter.Config{
		Addr:     cfg.HTTPAddr,
		CSVPath:  cfg.CSVPath,
		APIToken: cfg.APIToken,
	}, p, store, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
