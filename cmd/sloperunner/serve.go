package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sloperunner/engine/internal/api"
	"github.com/sloperunner/engine/internal/config"
	"github.com/sloperunner/engine/internal/dispatcher"
	"github.com/sloperunner/engine/internal/leaderboard"
	"github.com/sloperunner/engine/internal/logging"
)

const (
	retryInterval   = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func serveCommand(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(config.GetStorageConfig(), a.ZLog)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := leaderboard.NewService(store, a.Logger)
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.ZLog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	defer d.Close()

	serverCfg := config.GetServerConfig()
	server := api.NewServer(svc, d, api.ServerConfig{
		AllowedOrigin: serverCfg.AllowedOrigin,
		QueueSize:     serverCfg.QueueSize,
		Logger:        a.Logger,
	})

	httpServer := &http.Server{
		Addr:              serverCfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Leaderboard API listening", "addr", serverCfg.Listen, "origin", serverCfg.AllowedOrigin)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go retryPending(ctx, a, server)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("leaderboard API stopped: %w", err)
		}
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down leaderboard API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// retryPending persists a list left over by a failed write once the store
// recovers. Retries go through the dispatcher like submissions do.
func retryPending(ctx context.Context, a *app, server *api.Server) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := server.Retry(ctx); err != nil && !errors.Is(err, leaderboard.ErrNothingPending) {
				a.Logger.Warn("Pending leaderboard still not saved", "error", err)
			}
		}
	}
}
