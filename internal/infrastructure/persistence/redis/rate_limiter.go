package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow 在一次往返中完成清理、计数与记录：
// KEYS[1] 限流键；ARGV 依次为当前毫秒、窗口毫秒、上限、成员 ID。返回 1 放行，0 拒绝。
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, now - window)
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window * 2)
return 1
`)

// RateLimiter 基于有序集合的滑动窗口限流器
type RateLimiter struct {
	client *Client
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow 判断 key 在 window 内是否还未达到 limit 次
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	res, err := slidingWindow.Run(ctx, l.client.rdb, []string{key},
		time.Now().UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return res == 1, nil
}

// Reset 清空计数
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	return l.client.rdb.Del(ctx, key).Err()
}

// BuildRateLimitKey 构建限流键，subject 为用户 ID 或 ip:客户端地址
func BuildRateLimitKey(subject, endpoint string) string {
	return "ratelimit:" + subject + ":" + endpoint
}
