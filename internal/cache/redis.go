// Package cache keeps built packets in Redis so a page whose PDF, prompts,
// rules and voice are unchanged is not generated and synthesized twice.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jackzampolin/lectern/internal/packet"
)

// DefaultPrefix namespaces packet keys.
const DefaultPrefix = "lectern:packet:"

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // 0 keeps packets until evicted
	Prefix   string
}

// RedisCache implements packet.Cache on Redis. Packets are stored as JSON.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var _ packet.Cache = (*RedisCache)(nil)

// NewRedisCache connects and pings Redis.
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{
		rdb:    rdb,
		ttl:    cfg.TTL,
		prefix: cfg.Prefix,
		logger: logger.With("component", "packet_cache"),
	}, nil
}

// Get returns the packet stored under key. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) (*packet.Packet, bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var p packet.Packet
	if err := json.Unmarshal(raw, &p); err != nil {
		// Unreadable entries are dropped so the next build replaces them.
		c.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		_ = c.rdb.Del(ctx, c.prefix+key).Err()
		return nil, false, nil
	}
	return &p, true, nil
}

// Put stores p under key with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, key string, p *packet.Packet) error {
	stored := *p
	stored.Cached = false
	raw, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("marshal packet: %w", err)
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Stats reports how many packets are cached.
type Stats struct {
	Addr    string `json:"addr"`
	Packets int64  `json:"packets"`
}

// Stats counts cached packets by scanning the key prefix.
func (c *RedisCache) Stats(ctx context.Context) (Stats, error) {
	var n int64
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("redis scan: %w", err)
	}
	return Stats{Addr: c.rdb.Options().Addr, Packets: n}, nil
}

// Clear removes every cached packet and returns how many were deleted.
func (c *RedisCache) Clear(ctx context.Context) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		n, err := c.rdb.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis del: %w", err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan: %w", err)
	}
	return deleted, nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
