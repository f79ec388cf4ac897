// Package wire 提供依赖注入配置
package wire

import (
	"time"

	"notegen-api/internal/application/history"
	"notegen-api/internal/application/notegen"
	"notegen-api/internal/config"
	"notegen-api/internal/domain/repository"
	"notegen-api/internal/domain/service"
	"notegen-api/internal/infrastructure/imagegen"
	"notegen-api/internal/infrastructure/llm"
	"notegen-api/internal/infrastructure/messaging"
	"notegen-api/internal/infrastructure/persistence/memory"
	"notegen-api/internal/infrastructure/persistence/postgres"
	"notegen-api/internal/infrastructure/persistence/redis"
	"notegen-api/internal/interfaces/http/handler"
	"notegen-api/internal/interfaces/http/middleware"
	"notegen-api/internal/interfaces/http/router"
	"notegen-api/internal/workflow/chain"
	"notegen-api/pkg/utils"
)

// historyCacheTTL 历史列表缓存时长，写入时主动失效
const historyCacheTTL = 5 * time.Minute

// App API 服务依赖容器
type App struct {
	Router       *router.Router
	Orchestrator *notegen.Orchestrator
}

// Worker job-worker 依赖容器；Redis 为 nil 时无法消费
type Worker struct {
	Orchestrator *notegen.Orchestrator
	RedisClient  *redis.Client
}

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient  *postgres.Client
	TxManager *postgres.TxManager
	UserRepo  *postgres.UserRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端；未启用时返回 nil
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideGenerationStore 运行状态存储：有 Redis 时跨实例共享，否则保存在进程内
func ProvideGenerationStore(cfg *config.Config, rc *redis.Client) repository.GenerationRepository {
	if rc == nil {
		return memory.NewGenerationStore(cfg.Generation.RunTTL)
	}
	return redis.NewGenerationStore(rc, cfg.Generation.RunTTL)
}

// ProvideProgressBus 进度事件总线
func ProvideProgressBus(rc *redis.Client) service.ProgressBus {
	if rc == nil {
		return memory.NewProgressHub()
	}
	return redis.NewProgressBus(rc)
}

// ProvideHistoryRepository 历史仓储，启用 Redis 时加一层列表缓存
func ProvideHistoryRepository(repo *postgres.HistoryRepository, rc *redis.Client) repository.HistoryRepository {
	if rc == nil {
		return repo
	}
	return redis.NewCachedHistoryRepository(repo, redis.NewCache(rc), historyCacheTTL)
}

// ProvideRateLimiter 限流器；未启用 Redis 时返回 nil，限流中间件放行
func ProvideRateLimiter(rc *redis.Client) middleware.RateLimiter {
	if rc == nil {
		return nil
	}
	return redis.NewRateLimiter(rc)
}

// ProvideRateLimitKey 限流键生成函数
func ProvideRateLimitKey() middleware.KeyFunc {
	return redis.BuildRateLimitKey
}

// ProvideMessagingProducer 提供消息生产者；未启用 Redis 时返回 nil
func ProvideMessagingProducer(rc *redis.Client, cfg *config.Config) *messaging.Producer {
	if rc == nil {
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(rc.Redis(), int64(maxLen))
}

// ProvideRunDispatcher 开启异步且有生产者时把运行投递给 job-worker
func ProvideRunDispatcher(cfg *config.Config, producer *messaging.Producer) notegen.RunDispatcher {
	if !cfg.Generation.Async || producer == nil {
		return nil
	}
	return producer
}

// ProvideLocalDispatcher job-worker 自身执行运行，不再投递
func ProvideLocalDispatcher() notegen.RunDispatcher {
	return nil
}

// ProvideRewriter 使用配置中的默认改写服务
func ProvideRewriter(rewriteChain *chain.RewriteChain, factory *llm.EinoFactory) *notegen.Rewriter {
	return notegen.NewRewriter(rewriteChain, factory.DefaultProvider())
}

// ProvideImageClient 文生图客户端
func ProvideImageClient(cfg *config.Config) *imagegen.Client {
	return imagegen.NewClient(cfg.Providers.Image)
}

// ProvideOrchestrator 生成编排器
func ProvideOrchestrator(
	cfg *config.Config,
	rewriter *notegen.Rewriter,
	illustrator *notegen.Illustrator,
	runs repository.GenerationRepository,
	histories repository.HistoryRepository,
	bus service.ProgressBus,
	dispatcher notegen.RunDispatcher,
) *notegen.Orchestrator {
	return notegen.NewOrchestrator(rewriter, illustrator, runs, histories, bus, notegen.Options{
		DoneDisplay:  cfg.Generation.DoneDisplay,
		ErrorDisplay: cfg.Generation.ErrorDisplay,
		Dispatcher:   dispatcher,
	})
}

// ProvideHistoryService 历史服务
func ProvideHistoryService(cfg *config.Config, repo repository.HistoryRepository) *history.Service {
	return history.NewService(repo, cfg.Generation.HistoryLimit)
}

// ProvideJWTManager 提供 JWT 管理器
func ProvideJWTManager(cfg *config.Config) *utils.JWTManager {
	return utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.Issuer,
		cfg.Security.JWT.Expiration,
		cfg.Security.JWT.RefreshExpiration,
	)
}

// ProvideAuthHandler 生产环境下刷新 Cookie 只经 HTTPS 发送
func ProvideAuthHandler(cfg *config.Config, jwtManager *utils.JWTManager, userRepo repository.UserRepository) *handler.AuthHandler {
	return handler.NewAuthHandler(jwtManager, userRepo, cfg.App.Env == "production")
}

// ProvideDownloadHandler 图片下载代理
func ProvideDownloadHandler(cfg *config.Config) *handler.DownloadHandler {
	return handler.NewDownloadHandler(cfg.Generation.DownloadTimeout)
}

// ProvideHealthHandler 健康检查；Redis 未启用时不参与就绪判定
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	var redisChecker handler.HealthChecker
	if rc != nil {
		redisChecker = rc
	}
	return handler.NewHealthHandler(cfg.App.Version, pg, redisChecker)
}
