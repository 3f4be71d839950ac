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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ymkit/discobridge/internal/config"
	"github.com/ymkit/discobridge/internal/discord"
	"github.com/ymkit/discobridge/internal/logging"
	"github.com/ymkit/discobridge/internal/otel"
	"github.com/ymkit/discobridge/internal/server"
)

func main() {
	// 0) Load configuration; no logger exists yet, so plain stderr
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	// 1) Structured logging (console + rolling files)
	if err := logging.Init(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2) OpenTelemetry tracing
	tp, err := otel.InitTracer(ctx)
	if err != nil {
		zap.S().Fatalw("failed to init OTEL", "error", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// 3) Discord gateway supervisor, concurrent with the HTTP server
	client, err := discord.New(cfg.BotToken, cfg.DefaultChannelID, logging.Bot())
	if err != nil {
		zap.S().Fatalw("failed to create discord client", "error", err)
	}

	gatewayErr := make(chan error, 1)
	go func() { gatewayErr <- client.Run(ctx) }()

	// 4) HTTP surface (instrumented with otelhttp)
	handler := server.NewHandler(client, cfg.DefaultChannelID, logging.HTTP())
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: otelhttp.NewHandler(server.NewRouter(handler), "discobridge"),
	}

	httpErr := make(chan error, 1)
	go func() {
		logging.HTTP().Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	select {
	case err := <-gatewayErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			zap.S().Fatalw("discord connection failed", "error", err)
		}
	case err := <-httpErr:
		zap.S().Fatalw("HTTP server failed", "error", err)
	case <-ctx.Done():
		zap.S().Infow("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("HTTP shutdown error", "error", err)
	}
	zap.S().Infow("shutdown complete")
}
