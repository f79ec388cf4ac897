//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"notegen-api/internal/application/notegen"
	"notegen-api/internal/config"
	"notegen-api/internal/domain/repository"
	"notegen-api/internal/infrastructure/imagegen"
	"notegen-api/internal/infrastructure/llm"
	"notegen-api/internal/infrastructure/persistence/postgres"
	"notegen-api/internal/interfaces/http/handler"
	"notegen-api/internal/interfaces/http/middleware"
	"notegen-api/internal/interfaces/http/router"
	"notegen-api/internal/workflow/chain"
	workflowport "notegen-api/internal/workflow/port"
	workflowprompt "notegen-api/internal/workflow/prompt"
	"notegen-api/pkg/utils"
)

// InitializeApp 初始化 API 服务（路由器与编排器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		MessagingSet,
		GenerationSet,
		ProvideRunDispatcher,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化 job-worker：编排器在本进程执行运行，不再投递
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		GenerationSet,
		ProvideLocalDispatcher,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewHistoryRepository,
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
)

// RedisSet Redis 提供者集合；未启用 Redis 时各提供者退化为进程内实现或 nil
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideGenerationStore,
	ProvideProgressBus,
	ProvideHistoryRepository,
	ProvideRateLimiter,
	ProvideRateLimitKey,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// GenerationSet 改写、配图与编排
var GenerationSet = wire.NewSet(
	llm.NewEinoFactory,
	workflowprompt.NewRegistry,
	chain.NewRewriteChain,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	ProvideRewriter,
	ProvideImageClient,
	wire.Bind(new(notegen.ImageProvider), new(*imagegen.Client)),
	notegen.NewIllustrator,
	ProvideOrchestrator,
)

// RouterSet HTTP 层提供者集合
var RouterSet = wire.NewSet(
	ProvideJWTManager,
	wire.Bind(new(middleware.TokenParser), new(*utils.JWTManager)),
	ProvideHistoryService,
	ProvideAuthHandler,
	handler.NewUserHandler,
	handler.NewHistoryHandler,
	handler.NewCatalogHandler,
	handler.NewGenerationHandler,
	ProvideDownloadHandler,
	ProvideHealthHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
