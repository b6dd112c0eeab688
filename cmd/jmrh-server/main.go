// Package main is the entry point for the JMRH portal server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/cache/memory"
	"github.com/prn-tf/jmrh-portal/internal/config"
	"github.com/prn-tf/jmrh-portal/internal/events"
	"github.com/prn-tf/jmrh-portal/internal/handler"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
	"github.com/prn-tf/jmrh-portal/internal/metrics"
	"github.com/prn-tf/jmrh-portal/internal/pkg/crypto"
	"github.com/prn-tf/jmrh-portal/internal/repository/factory"
	"github.com/prn-tf/jmrh-portal/internal/service"
	"github.com/prn-tf/jmrh-portal/internal/storage"
	"github.com/prn-tf/jmrh-portal/internal/store"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// loadRetryDelay is the pause between failed snapshot loads.
const loadRetryDelay = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting JMRH portal")

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Snapshot backend
	backend, err := factory.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close database")
		}
	}()

	mode := lifecycle.Permissive
	if cfg.Lifecycle.Strict {
		mode = lifecycle.Strict
	}
	st := store.New(backend.Snapshots, backend.Locker, logger, store.Config{
		Name: cfg.Database.Snapshot,
		Mode: mode,
	}, m)

	// Events
	bus, err := events.NewBus(cfg.Events, logger, m)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close event bus")
		}
	}()
	st.SetNotifier(events.NewStoreNotifier(bus, logger))

	notifications, err := events.NewNotifications(bus, st, logger)
	if err != nil {
		return fmt.Errorf("failed to create notification consumer: %w", err)
	}
	go func() {
		if err := notifications.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("notification consumer stopped")
		}
	}()
	defer notifications.Close()

	// Manuscript storage
	var files service.FileResolver
	if cfg.Storage.S3.Enabled() {
		presigner, err := storage.NewS3Presigner(ctx, cfg.Storage.S3)
		if err != nil {
			return fmt.Errorf("failed to create S3 presigner: %w", err)
		}
		urlCache := memory.NewCache()
		defer urlCache.Stop()

		files = storage.NewFileAccess(presigner, urlCache, logger, storage.FileAccessConfig{
			Bucket:           cfg.Storage.S3.Bucket,
			URLExpiration:    cfg.Storage.URLExpiration,
			UploadExpiration: cfg.Storage.UploadExpiration,
		}, m)
	} else {
		logger.Warn().Msg("storage.s3.bucket is not set; manuscript uploads are disabled")
	}

	// Services
	accounts := service.NewAccountService(st, logger, cfg.Auth.BcryptCost)
	submissions := service.NewSubmissionService(st, files, logger)
	reviews := service.NewReviewService(st, logger)
	export := service.NewExportService(st, logger)

	go loadStore(ctx, st, accounts, cfg.Auth.Admin, logger)

	if cfg.Store.RefreshInterval > 0 {
		refresher := service.NewRefresher(st, backend.Locker, logger, service.RefresherConfig{
			Interval: cfg.Store.RefreshInterval,
			Snapshot: cfg.Database.Snapshot,
		})
		refresher.Start()
		defer refresher.Stop()
	}

	// Sessions
	secret := cfg.Auth.SessionSecret
	if secret == "" {
		secret, err = crypto.GenerateSessionSecret()
		if err != nil {
			return err
		}
		logger.Warn().Msg("auth.session_secret is not set; sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenManager([]byte(secret), cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}

	// HTTP
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = reg
	}
	h, err := handler.New(handler.Config{
		Accounts:     accounts,
		Submissions:  submissions,
		Reviews:      reviews,
		Export:       export,
		Tokens:       tokens,
		State:        st,
		Health:       backend.Database,
		Metrics:      m,
		Gatherer:     gatherer,
		MetricsPath:  cfg.Metrics.Path,
		CookieSecure: cfg.Auth.CookieSecure,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      http.MaxBytesHandler(h.Routes(), cfg.Server.MaxBodySize),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// loadStore reads the snapshot, retrying until it succeeds or ctx ends,
// then seeds the configured admin. The portal serves the loading page
// until this finishes.
func loadStore(ctx context.Context, st *store.Store, accounts *service.AccountService, admin config.AdminSeedConfig, logger zerolog.Logger) {
	for attempt := 1; ; attempt++ {
		err := st.Load(ctx)
		if err == nil {
			break
		}
		logger.Error().Err(err).Int("attempt", attempt).Msg("failed to load snapshot")

		select {
		case <-ctx.Done():
			return
		case <-time.After(loadRetryDelay):
		}
	}

	if admin.Email == "" {
		return
	}
	user, created, err := accounts.EnsureAdmin(ctx, admin.Name, admin.Email, admin.Password)
	if err != nil {
		logger.Error().Err(err).Str("email", admin.Email).Msg("failed to seed admin")
		return
	}
	logger.Info().Str("user_id", user.ID).Bool("created", created).Msg("admin account ready")
}

// newLogger builds the process logger from the logging settings.
func newLogger(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	var (
		out     io.Writer = os.Stdout
		closeFn           = func() {}
	)
	switch cfg.Output {
	case "", "stdout":
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}
