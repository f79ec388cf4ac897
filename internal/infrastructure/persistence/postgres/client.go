// Package postgres 基于 GORM 的账号与历史记录存储
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"notegen-api/internal/config"
	"notegen-api/pkg/logger"
)

var tracer = otel.Tracer("postgres")

// Client 持有 GORM 连接
type Client struct {
	db *gorm.DB
}

// NewClient 连接 PostgreSQL、设置连接池并探活
func NewClient(cfg *config.PostgresConfig) (*Client, error) {
	client, err := NewClientWithDialector(postgres.Open(dsn(cfg)))
	if err != nil {
		return nil, err
	}

	sqlDB, err := client.db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return client, nil
}

// NewClientWithDialector 使用任意 GORM 方言创建客户端（测试中使用 SQLite）
func NewClientWithDialector(dialector gorm.Dialector) (*Client, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(slogWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		// 唯一约束冲突翻译为 gorm.ErrDuplicatedKey，注册时据此判断邮箱已占用
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Client{db: db}, nil
}

// dsn 值中的空格与单引号按 libpq 规则转义
func dsn(cfg *config.PostgresConfig) string {
	quote := func(v string) string {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quote(cfg.Host), cfg.Port, quote(cfg.User), quote(cfg.Password), quote(cfg.Database), sslMode)
}

// slogWriter 把 GORM 的慢查询与错误日志写入应用日志
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...any) {
	logger.Default().Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}

// AutoMigrate 同步 users 与 histories 表结构
func (c *Client) AutoMigrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.AutoMigrate")
	defer span.End()

	if err := c.db.WithContext(ctx).AutoMigrate(&userModel{}, &historyModel{}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close 关闭连接池
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck 就绪探针，执行 SELECT 1
func (c *Client) HealthCheck(ctx context.Context) error {
	var one int
	if err := c.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return fmt.Errorf("postgres health check: %w", err)
	}
	return nil
}
