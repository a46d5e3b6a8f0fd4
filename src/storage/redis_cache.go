package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"candle-stream/src/logger"
	"candle-stream/src/models"

	"github.com/redis/go-redis/v9"
)

// RedisReconnectInterval is how often an unavailable Redis is probed again.
const RedisReconnectInterval = 10 * time.Second

// -----------------------------------------------------------------------------

// RedisCache memoises historical feed responses for a short TTL. While Redis
// is down every lookup is a miss and writes are skipped.
type RedisCache struct {
	client          *redis.Client
	ttl             time.Duration
	logger          *logger.Logger
	available       bool
	mutex           sync.RWMutex
	reconnectCancel context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewRedisCache(cfg *models.MConfig, log *logger.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})

	ctx, cancel := context.WithCancel(context.Background())
	c := &RedisCache{
		client:          client,
		ttl:             time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		logger:          log,
		reconnectCancel: cancel,
	}

	c.checkConnection(ctx)
	log.Info("Redis cache initialized at %s (available: %v)", cfg.Cache.Addr, c.isAvailable())

	go c.monitorConnection(ctx)
	return c
}

// -----------------------------------------------------------------------------

func (c *RedisCache) monitorConnection(ctx context.Context) {
	ticker := time.NewTicker(RedisReconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkConnection(ctx)
		}
	}
}

// -----------------------------------------------------------------------------

func (c *RedisCache) checkConnection(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := c.client.Ping(pingCtx).Err()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err != nil {
		if c.available {
			c.logger.Error("Redis became unavailable: %v", err)
		}
		c.available = false
		return
	}
	if !c.available {
		c.logger.Info("Redis connection available")
	}
	c.available = true
}

// -----------------------------------------------------------------------------

func (c *RedisCache) isAvailable() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.available
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.isAvailable() {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if !c.isAvailable() {
		return nil
	}
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Close() error {
	c.reconnectCancel()
	return c.client.Close()
}
