// Package main 异步生成执行器入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"notegen-api/internal/config"
	"notegen-api/internal/infrastructure/messaging"
	einoobs "notegen-api/internal/observability/eino"
	"notegen-api/internal/wire"
	"notegen-api/pkg/logger"
	"notegen-api/pkg/tracer"
)

// dlqAlertThreshold 死信队列长度告警阈值
const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	if worker.RedisClient == nil {
		logger.Fatal(ctx, "job-worker requires redis", fmt.Errorf("cache.redis.enabled is false"))
	}

	stream := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(worker.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamGenerationRun,
		Group:        messaging.GroupWithPrefix(stream.ConsumerGroupPrefix, messaging.ConsumerGroupRunWorker),
		ConsumerName: hostnameConsumerName(),
		BlockTimeout: stream.BlockTimeout,
		RetryLimit:   stream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    stream.RetryBackoff.Initial,
			Max:        stream.RetryBackoff.Max,
			Multiplier: stream.RetryBackoff.Multiplier,
		},
	})
	consumer.RegisterHandler(messaging.MessageTypeGenerationRun, messaging.NewGenerationRunHandler(worker.Orchestrator.Run))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	if err := consumer.Start(runCtx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(runCtx, dlqAlertThreshold)

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "stream", string(messaging.StreamGenerationRun))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	consumer.Stop()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := worker.Orchestrator.Shutdown(shutdownCtx); err != nil {
		log.Warn("pending generation resets dropped", "error", err)
	}
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
