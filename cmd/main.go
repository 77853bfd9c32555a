package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/dealer-geocoder/internal/config"
	"github.com/UnknownOlympus/dealer-geocoder/internal/geocoding"
	"github.com/UnknownOlympus/dealer-geocoder/internal/metrics"
	"github.com/UnknownOlympus/dealer-geocoder/internal/repository"
	"github.com/UnknownOlympus/dealer-geocoder/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dealer-geocoder",
		Short:         "Enrich dealer records with coordinates resolved from their postal codes",
		Long:          "Resolves every distinct postal code of a dealer collection through a geocoding provider, caching results between runs, and writes the annotated collection.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.Flags())
		},
	}

	cmd.Flags().String("config", "", "path to a YAML configuration file")
	cmd.Flags().String("input", "", "dealer collection to enrich (overrides input.path)")
	cmd.Flags().String("env", "", "logging environment: local, development, production")

	return cmd
}

// main is the entry point of the application.
func main() {
	// Interrupting the run still checkpoints the cache, so the next run resumes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "dealer-geocoder: %v\n", err)
		fmt.Fprintln(os.Stderr, "Re-running resumes from the last persisted geocode cache.")
		os.Exit(1)
	}
}

// run wires the configuration, provider, storage and metrics together and
// performs a single enrichment pass.
func run(ctx context.Context, flags *pflag.FlagSet) error {
	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Provider.Type),
		APIKey:    cfg.Provider.APIKey,
		BaseURL:   cfg.Provider.BaseURL,
		Country:   cfg.Provider.Country,
		UserAgent: cfg.Provider.UserAgent,
		Timeout:   cfg.Provider.Timeout,
		RateLimit: cfg.Provider.RateLimit,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create geocoding provider: %w", err)
	}
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Provider.Type)

	repo := repository.NewRepository(afero.NewOsFs(), repository.Paths{
		Input:             cfg.Input.Path,
		Cache:             cfg.Storage.CacheFile,
		Progress:          cfg.Storage.ProgressFile,
		DealersOutput:     cfg.Output.DealersFile,
		CoordinatesOutput: cfg.Output.CoordinatesFile,
	}, logger)

	geoService := service.NewGeocodingService(
		logger,
		repo,
		geoProvider,
		cfg.Provider.Type, // Provider name for metrics
		appMetrics,
		service.Options{
			RequestDelay:    cfg.Geocoder.RequestDelay(),
			SaveInterval:    cfg.Geocoder.SaveInterval,
			PostalCodeField: cfg.Input.PostalCodeField,
		},
	)

	if cfg.Monitoring.Port > 0 {
		monitorCtx, stopMonitor := context.WithCancel(ctx)
		defer stopMonitor()
		go startMonitoringServer(monitorCtx, logger, reg, cfg.Monitoring.Port)
	}

	_, runErr := geoService.Run(ctx)

	if cfg.Metrics.Textfile != "" {
		if err = prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
			logger.ErrorContext(ctx, "Failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	if runErr != nil {
		logger.ErrorContext(ctx, "Geocoding run failed", "error", runErr)
		return runErr
	}

	return nil
}

// newMonitoringHandler serves the health check and the metrics of reg.
func newMonitoringHandler(ctx context.Context, log *slog.Logger, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		writer.WriteHeader(http.StatusOK)
		if _, err := writer.Write([]byte("OK")); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It listens on the specified port until ctx is done.
//
// Parameters:
// - ctx: A context.Context whose cancellation shuts the server down.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - port: The port number on which the server will listen.
func startMonitoringServer(ctx context.Context, log *slog.Logger, reg *prometheus.Registry, port int) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newMonitoringHandler(ctx, log, reg),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(shutdownCtx, "Monitoring server shutdown failed", "error", err)
		}
	}()

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
