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

	"github.com/Simplici0/albion-craft/internal/app"
	"github.com/Simplici0/albion-craft/internal/config"
	"github.com/Simplici0/albion-craft/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CRAFT_CONFIG_FILE"))
	if err != nil {
		logging.Fatal("failed to load configuration", "error", err)
	}
	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to start application", "error", err)
	}
	defer a.Close()

	srv := newServer(a.Catalog, a.Market, a.Crafting, a.Store, a.Metrics, cfg.Server.AdminToken)
	if cfg.Server.AdminToken == "" {
		slog.Warn("admin token is not set, admin endpoints are disabled")
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("listening", "addr", httpServer.Addr, "env", cfg.Env)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("server stopped", "error", err)
	}
	slog.Info("server stopped")
}
