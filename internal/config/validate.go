package config

import (
	"errors"
	"fmt"
)

// placeholderJWTSecret configs/config.yaml 中的占位密钥
const placeholderJWTSecret = "change-me-in-production"

// Validate 检查相互依赖的配置项，启动时尽早失败
func (c *Config) Validate() error {
	var errs []error

	if c.Generation.Async && !c.Cache.Redis.Enabled {
		errs = append(errs, errors.New("generation.async requires cache.redis.enabled"))
	}
	if c.Generation.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("generation.history_limit must be positive, got %d", c.Generation.HistoryLimit))
	}
	if c.Generation.DoneDisplay < 0 || c.Generation.ErrorDisplay < 0 {
		errs = append(errs, errors.New("generation display windows must not be negative"))
	}
	if r := c.Observability.Tracing.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing.sample_rate must be within [0,1], got %v", r))
	}
	if c.App.Env == "production" {
		if s := c.Security.JWT.Secret; s == "" || s == placeholderJWTSecret {
			errs = append(errs, errors.New("security.jwt.secret must be set in production"))
		}
	}
	return errors.Join(errs...)
}
