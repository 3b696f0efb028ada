package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"metro-ticketing/internal/config"
	"metro-ticketing/internal/db"
	"metro-ticketing/internal/events"
	"metro-ticketing/internal/logger"
	"metro-ticketing/internal/router"
	"metro-ticketing/internal/services"
	"metro-ticketing/internal/store/memstore"
	"metro-ticketing/internal/store/mysqlstore"
)

const shutdownTimeout = 5 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the ticketing HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logger.InitLogger(cfg.LogLevel, cfg.LogFormat)
		return runServer(cmd.Context(), cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	log.Info().Str("driver", cfg.DBDriver).Msg("Starting metro API")

	repos, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher := openPublisher(cfg, log)
	defer publisher.Close()

	svcs := services.New(repos, services.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTTTL,
		TripTTL:   cfg.TripTTL,
	}, publisher, log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(cfg, svcs, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (services.Repositories, func(), error) {
	switch cfg.DBDriver {
	case "memory":
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return memstore.New().Repositories(), func() {}, nil
	case "mysql":
		if cfg.MigrateOnStart {
			if err := db.Migrate(cfg.DBUrl, db.Up); err != nil {
				return services.Repositories{}, nil, err
			}
			log.Info().Msg("Migrations applied")
		}
		conn, err := db.Open(ctx, db.Options{
			DSN:          cfg.DBUrl,
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})
		if err != nil {
			return services.Repositories{}, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info().Msg("Database connection established")
		return mysqlstore.Repositories(conn), func() { _ = conn.Close() }, nil
	default:
		return services.Repositories{}, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// openPublisher falls back to a no-op publisher when the broker is not
// configured or cannot be reached.
func openPublisher(cfg config.Config, log zerolog.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.Noop{}
	}
	p, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		log.Error().Err(err).Msg("RabbitMQ unavailable, events disabled")
		return events.Noop{}
	}
	log.Info().Str("exchange", cfg.RabbitMQExchange).Msg("Publishing events to RabbitMQ")
	return p
}
