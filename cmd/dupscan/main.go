package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/okian/dupscan/internal/adapters/http/api"
	"github.com/okian/dupscan/internal/adapters/http/swagger"
	"github.com/okian/dupscan/internal/adapters/repository"
	app "github.com/okian/dupscan/internal/app"
	"github.com/okian/dupscan/internal/config"
	"github.com/okian/dupscan/pkg/logger"
	"github.com/okian/dupscan/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// A missing .env is fine; real deployments use the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to read .env:", err)
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	configureMetrics(cfg)

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "dupscan exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	src, err := openSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s donor source: %w", cfg.StoreDriver, err)
	}

	svc := newService(cfg, src, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, svc, log),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// openSource builds the donor source selected by store_driver.
func openSource(ctx context.Context, cfg *config.Config) (repository.Source, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemorySource(), nil
	case config.DriverSQLite:
		return repository.OpenSQLite(cfg.SQLitePath)
	case config.DriverPostgres:
		pool, err := repository.OpenPostgres(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns), int32(cfg.DBMinConns)) //nolint:gosec // bounded by Config.Validate
		if err != nil {
			return nil, err
		}
		return &pgSource{PostgresSource: repository.NewPostgresSource(pool), close: pool.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// pgSource closes the pool together with the service.
type pgSource struct {
	*repository.PostgresSource
	close func()
}

func (s *pgSource) Close() error {
	s.close()
	return nil
}

func newService(cfg *config.Config, src repository.Source, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithSource(src),
		app.WithWorkerCount(cfg.ScanWorkerCount),
		app.WithQueueSize(cfg.ScanQueueSize),
		app.WithJobRetention(cfg.ScanJobRetention),
		app.WithWeights(cfg.Weights),
		app.WithDefaultMinScore(cfg.DefaultMinScore),
		app.WithLimits(cfg.TargetLimit, cfg.ScanLimit, cfg.BatchLimit),
		app.WithMaxBatchSize(cfg.MaxBatchSize),
	)
}

func newRouter(cfg *config.Config, svc *app.Service, log logger.Logger) *chi.Mux {
	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log),
		api.WithRequestTimeout(time.Duration(cfg.RequestTimeoutS)*time.Second),
	)
	r := apiServer.Router()
	swagger.Register(r)
	return r
}

// configureMetrics rebuilds the metrics registry with the configured names and buckets.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBucketsMs),
	)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
