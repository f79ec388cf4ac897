// Package main API 服务入口
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"notegen-api/internal/config"
	einoobs "notegen-api/internal/observability/eino"
	"notegen-api/internal/wire"
	"notegen-api/pkg/logger"
	"notegen-api/pkg/tracer"
)

// 构建时通过 -ldflags 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Version == "" {
		cfg.App.Version = Version
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal(context.Background(), "api-gateway exited", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger.Info(ctx, "starting api-gateway",
		"version", cfg.App.Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
		"async", cfg.Generation.Async,
	)

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn(ctx, "tracer shutdown", "error", err.Error())
		}
	}()

	einoobs.Init()

	app, cleanup, err := wire.InitializeApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.HTTP.Host, strconv.Itoa(cfg.Server.HTTP.Port)),
		Handler:      app.Router.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		// 默认为 0：SSE 连接持续到生成结束
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server listening", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	// 先停止接收请求，再等待进程内生成的收尾写入
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "http server forced to close", "error", err.Error())
	}
	if err := app.Orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "generations still running at exit", "error", err.Error())
	}
	logger.Info(ctx, "server exited")
	return nil
}
