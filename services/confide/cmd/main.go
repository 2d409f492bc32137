package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/config"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/provider"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/repository"
	"github.com/vasapolrittideah/confide-mongo/shared/mailer"
	"github.com/vasapolrittideah/confide-mongo/shared/middleware"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	envFile := flag.String("c", ".env", "Path to environment file")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "confide").Logger()

	if err := godotenv.Load(*envFile); err != nil {
		logger.Debug().Err(err).Str("path", *envFile).Msg("environment file not loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	if err := run(context.Background(), cfg, &logger); err != nil {
		logger.Fatal().Err(err).Msg("confide stopped with error")
	}
}

func run(ctx context.Context, cfg *config.ConfideConfig, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from MongoDB")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	var opts []provider.Option

	smtpCfg, err := mailer.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to parse SMTP configuration: %w", err)
	}
	if smtpCfg.Host != "" {
		opts = append(opts, provider.WithMailSender(mailer.NewMailer(logger, smtpCfg)))
	}

	container, err := provider.New(ctx, cfg, logger, client.Database(cfg.Mongo.Database), opts...)
	if err != nil {
		return err
	}

	if cfg.Auth.ReminderTTL > 0 {
		go sweepReminders(ctx, logger, container.Reminders, cfg.Auth.ReminderTTL)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging(logger))
	r.Mount("/", container.Handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received, stopping HTTP server")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("HTTP server stopped gracefully")
	return nil
}

// sweepReminders removes expired reminders between runs of the store's own TTL monitor.
func sweepReminders(
	ctx context.Context,
	logger *zerolog.Logger,
	reminders repository.PasswordReminderRepository,
	ttl time.Duration,
) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := reminders.DeleteExpired(ctx, ttl)
			if err != nil {
				logger.Error().Err(err).Msg("failed to delete expired password reminders")
				continue
			}
			if deleted > 0 {
				logger.Debug().Int64("deleted", deleted).Msg("expired password reminders deleted")
			}
		}
	}
}
