package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter Redis 기반 분산 Rate Limiter (Token Bucket 알고리즘).
// 여러 인스턴스가 같은 키 공간을 공유하므로 인스턴스 수와 무관하게
// 전체 한도가 유지된다.
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRateLimiter 기존 Redis 클라이언트를 공유하는 Rate Limiter 생성
func NewRedisRateLimiter(client *redis.Client, keyPrefix string) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = "toilet-smash:ratelimit:"
	}
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// tokenBucketScript 토큰 조회, 경과 시간 리필, 소비를 하나의 원자적 연산으로 수행
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local tokens_key = key .. ":tokens"
	local timestamp_key = key .. ":timestamp"

	local tokens = tonumber(redis.call('GET', tokens_key))
	local last_update = tonumber(redis.call('GET', timestamp_key))

	if tokens == nil then
		tokens = limit
		last_update = now
	end

	local elapsed = now - last_update
	local refill_rate = limit / window
	local new_tokens = math.min(limit, tokens + (elapsed * refill_rate))

	local allowed = 0
	if new_tokens >= 1 then
		new_tokens = new_tokens - 1
		allowed = 1
	end

	redis.call('SET', tokens_key, new_tokens, 'EX', window * 2)
	redis.call('SET', timestamp_key, now, 'EX', window * 2)

	return allowed
`)

// Allow 요청 허용 여부 확인
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := r.keyPrefix + key
	now := time.Now().Unix()

	allowed, err := tokenBucketScript.Run(
		ctx, r.client,
		[]string{redisKey},
		limit, int(window.Seconds()), now,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis script execution failed: %w", err)
	}

	return allowed == 1, nil
}

// Reset 특정 키의 Rate Limit 초기화
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	redisKey := r.keyPrefix + key

	pipe := r.client.Pipeline()
	pipe.Del(ctx, redisKey+":tokens")
	pipe.Del(ctx, redisKey+":timestamp")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}

	return nil
}
