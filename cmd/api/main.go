package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portpulse/internal/api"
	"portpulse/internal/buildinfo"
	"portpulse/internal/config"
	"portpulse/internal/logging"
)

func main() {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	srvDeps, err := api.NewServer(initCtx, cfg, log)
	cancel()
	if err != nil {
		return err
	}
	defer srvDeps.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srvDeps.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API listening", "addr", cfg.HTTP.Addr, "version", buildinfo.Version, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
