// Package archiveservice wires the archive data service together and runs
// its HTTP server.
package archiveservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sms487/archive/internal/api"
	"github.com/sms487/archive/internal/config"
	"github.com/sms487/archive/internal/conn"
	"github.com/sms487/archive/internal/logger"
	"github.com/sms487/archive/internal/queue"
	"github.com/sms487/archive/internal/secrets"
	"github.com/sms487/archive/internal/services"
	mongostore "github.com/sms487/archive/internal/store/mongo"
)

// Run starts the archive service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("sms487-data-api")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("deploy_type", string(cfg.DeployType)).
		Int("http_port", cfg.HTTPPort).
		Msg("Archive service starting")

	ctx, stop := newServerContext()
	defer stop()

	provider, err := secrets.NewProvider(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Credential provider unavailable")
		return err
	}

	manager := conn.NewManager(provider, log)
	defer func() {
		ctxClose, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := manager.Close(ctxClose); err != nil {
			log.Warn().Err(err).Msg("Error closing store client")
		}
	}()

	st := mongostore.NewStore(manager, cfg.RetentionSeconds)
	ensureIndexes(ctx, st, log)

	publisher := queue.NewSQSPublisher(manager)
	messageSvc := services.NewMessageService(st, publisher, cfg.TZOffsetHours, log)
	filterSvc := services.NewFilterService(st)

	router := api.NewRouter(messageSvc, filterSvc, log)
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// ensureIndexes creates the message TTL index and the lookup indexes.
// Index creation is idempotent; a transient failure here does not prevent
// serving, it is retried implicitly on the next restart.
func ensureIndexes(ctx context.Context, st *mongostore.Store, log zerolog.Logger) {
	ctxIdx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := st.Messages().EnsureIndexes(ctxIdx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure message indexes")
	}
	if err := st.Filters().EnsureIndexes(ctxIdx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure filter indexes")
	}
}

func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	return errCh
}
