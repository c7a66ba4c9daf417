package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	t "github.com/evanhutnik/aegis-service/internal/types"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "aegis:severity:"

// Redis shares severity predictions between service instances. Redis errors
// are logged and reported as misses.
type Redis struct {
	rc     *redis.Client
	ttl    time.Duration
	Logger *zap.SugaredLogger
}

func NewRedis(rc *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Redis{rc: rc, ttl: ttl, Logger: logger}
}

func redisKey(key t.SeverityKey) string {
	return keyPrefix + key.String()
}

func (r *Redis) Get(ctx context.Context, key t.SeverityKey) (float64, bool) {
	v, err := r.rc.Get(ctx, redisKey(key)).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, false
	} else if err != nil {
		r.Logger.Errorw(fmt.Sprintf("Redis error when fetching severity: %v", err.Error()),
			"key", key.String(), "action", "Get")
		return 0, false
	}
	return v, true
}

// GetTTL reads the value and its remaining lifetime in one round trip.
func (r *Redis) GetTTL(ctx context.Context, key t.SeverityKey) (float64, time.Duration, bool) {
	pipe := r.rc.Pipeline()
	getCmd := pipe.Get(ctx, redisKey(key))
	ttlCmd := pipe.PTTL(ctx, redisKey(key))
	if _, err := pipe.Exec(ctx); errors.Is(err, redis.Nil) {
		return 0, 0, false
	} else if err != nil {
		r.Logger.Errorw(fmt.Sprintf("Redis error when fetching severity: %v", err.Error()),
			"key", key.String(), "action", "GetTTL")
		return 0, 0, false
	}

	v, err := getCmd.Float64()
	if err != nil {
		r.Logger.Errorw(fmt.Sprintf("Malformed severity in redis: %v", err.Error()),
			"key", key.String(), "action", "GetTTL")
		return 0, 0, false
	}
	// PTTL reports -1 for keys without expiry and -2 for missing keys.
	remaining := ttlCmd.Val()
	if remaining <= 0 {
		return 0, 0, false
	}
	return v, remaining, true
}

func (r *Redis) Put(ctx context.Context, key t.SeverityKey, severity float64) {
	value := strconv.FormatFloat(severity, 'f', -1, 64)
	if err := r.rc.Set(ctx, redisKey(key), value, r.ttl).Err(); err != nil {
		r.Logger.Errorw(fmt.Sprintf("Redis error when storing severity: %v", err.Error()),
			"key", key.String(), "action", "Put")
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rc.Ping(ctx).Err()
}
