package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/auth"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/catalog"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/config"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/db"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/events"
	httpapi "github.com/Ivan-Edokov/kitchen-assistant/internal/http"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/logging"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/metrics"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/middleware"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/recipe"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/render"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/sequence"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/user"
)

type eventSink interface {
	recipe.PublishNotifier
	shopping.ExportNotifier
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, "kitchen-assistant")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(cfg.Database.DSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}
	pool, err := db.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	m := metrics.New(prometheus.NewRegistry())

	// RabbitMQ
	sink, err := newEventSink(cfg, pool, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init events")
	}
	defer sink.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("init tokens")
	}

	renderer, err := render.NewPDFRenderer(cfg.RenderConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("init renderer")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve timezone")
	}

	userRepo := user.NewPostgresRepository(pool)
	recipeRepo := recipe.NewPostgresRepository(pool)

	exporter := shopping.NewExporter(recipeRepo, renderer, shopping.ExporterOptions{
		Caption:  cfg.Render.Caption,
		Location: loc,
		Notifier: sink,
		Recorder: m,
		Logger:   logger,
	})

	h := httpapi.NewHandler(
		user.NewService(userRepo),
		catalog.NewPostgresRepository(pool),
		recipe.NewService(recipeRepo, sink, logger),
		exporter,
		tokens,
	)

	// HTTP
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(h, httpapi.RouterOptions{
			Logger:         logger,
			Metrics:        m,
			Verifier:       tokens,
			CORSOrigins:    cfg.CORS.Origins,
			LoginRateLimit: cfg.Auth.LoginRateLimit,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("kitchen-assistant listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	cancel()
}

// newEventSink connects the publisher when events are enabled and falls back
// to a no-op sink otherwise.
func newEventSink(cfg *config.Config, store sequence.Store, m *metrics.Metrics, logger zerolog.Logger) (eventSink, error) {
	if !cfg.Events.Enabled {
		logger.Info().Msg("events disabled")
		return events.Nop{}, nil
	}

	conn, err := events.Dial(cfg.Events.RabbitMQURL)
	if err != nil {
		return nil, err
	}
	pub, err := events.NewPublisher(conn, sequence.NewRepository(store), events.PublisherOptions{
		Producer:    cfg.Events.Producer,
		Correlation: middleware.GetCorrelationID,
		Recorder:    m,
		Logger:      logger,
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return connSink{Publisher: pub, closeConn: conn.Close}, nil
}

type connSink struct {
	*events.Publisher
	closeConn func() error
}

func (s connSink) Close() error {
	return errors.Join(s.Publisher.Close(), s.closeConn())
}
