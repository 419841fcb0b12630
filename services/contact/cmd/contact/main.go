package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fiapcontacts/internal/ratelimit"
	"fiapcontacts/internal/telemetry"
	"fiapcontacts/internal/util"
	"fiapcontacts/services/contact/internal/app"
	"fiapcontacts/services/contact/internal/config"
	"fiapcontacts/services/contact/internal/server"
)

var version = "dev"

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.FileConfig, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.InitTracing(ctx, logger, telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Version:     version,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	appCore, err := app.New(app.Config{DatabaseURL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer appCore.Close()

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	var writeLimiter *ratelimit.FixedWindowLimiter
	if cfg.WriteRateLimitPerMinute > 0 {
		writeLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "fiapcontacts:contacts:write", cfg.WriteRateLimitPerMinute, time.Minute)
		if err != nil {
			return fmt.Errorf("init write limiter: %w", err)
		}
		defer writeLimiter.Close()
	}

	httpServer, err := server.New(server.Config{
		App:                appCore,
		Version:            version,
		WriteLimiter:       writeLimiter,
		TrustedProxies:     trusted,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("contacts server listening", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down contacts server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), shutdownTracing(shutdownCtx))
	})
	return g.Wait()
}
