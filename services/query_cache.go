package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/types"
)

const nearbyCachePrefix = "nearby:"

// RedisNearbyCache implements NearbyCache on Redis. Entries expire purely by
// TTL; a position update does not purge entries that would have included
// that professional. Cache faults degrade to a store read, never an error.
type RedisNearbyCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.SugaredLogger
}

func NewRedisNearbyCache(rdb *redis.Client, ttl time.Duration) *RedisNearbyCache {
	return &RedisNearbyCache{
		rdb: rdb,
		ttl: ttl,
		log: logger.GetLogger().Named("nearby-cache"),
	}
}

func (c *RedisNearbyCache) Get(ctx context.Context, key string) ([]types.NearbyProfessional, bool) {
	data, err := c.rdb.Get(ctx, nearbyCachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warnw("Nearby cache read failed", "key", key, "error", err)
		return nil, false
	}

	var results []types.NearbyProfessional
	if err := json.Unmarshal(data, &results); err != nil {
		c.log.Warnw("Nearby cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return results, true
}

func (c *RedisNearbyCache) Set(ctx context.Context, key string, results []types.NearbyProfessional) {
	data, err := json.Marshal(results)
	if err != nil {
		c.log.Warnw("Failed to marshal nearby results", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, nearbyCachePrefix+key, data, c.ttl).Err(); err != nil {
		c.log.Warnw("Nearby cache write failed", "key", key, "error", err)
	}
}
