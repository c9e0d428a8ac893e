package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/propdeal/propdeal-server-go/internal/config"
	"go.uber.org/zap"
)

// ErrMiss is returned when no snapshot is cached for a game.
var ErrMiss = errors.New("snapshot not cached")

const keyPrefix = "deal:snapshot:"

// ConnSource hands out redis connections. *redis.Pool satisfies it.
type ConnSource interface {
	Get() redis.Conn
}

// NewPool builds a redis pool from configuration.
func NewPool(cfg config.RedisConfig) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: cfg.IdleTimeout,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", cfg.Address) },
	}
}

// SnapshotCache keeps the latest checksummed snapshot of each game so a reconnecting
// peer can resynchronise without replaying moves.
type SnapshotCache struct {
	pool   ConnSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotCache creates a cache whose entries expire after ttl.
func NewSnapshotCache(pool ConnSource, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{pool: pool, ttl: ttl, logger: logger}
}

func key(gameID string) string {
	return keyPrefix + gameID
}

// Put stores a snapshot envelope for a game, replacing any older one.
func (c *SnapshotCache) Put(ctx context.Context, gameID string, snapshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn := c.pool.Get()
	defer conn.Close()

	args := []interface{}{key(gameID), snapshot}
	if seconds := int64(c.ttl / time.Second); seconds > 0 {
		args = append(args, "EX", seconds)
	}
	if _, err := conn.Do("SET", args...); err != nil {
		return fmt.Errorf("failed to cache snapshot for %s: %w", gameID, err)
	}

	if c.logger != nil {
		c.logger.Debug("cached snapshot",
			zap.String("game_id", gameID),
			zap.Int("bytes", len(snapshot)),
		)
	}
	return nil
}

// Get returns the cached snapshot envelope for a game.
func (c *SnapshotCache) Get(ctx context.Context, gameID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn := c.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", key(gameID)))
	if errors.Is(err, redis.ErrNil) {
		return nil, fmt.Errorf("%w: %s", ErrMiss, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", gameID, err)
	}
	return data, nil
}

// Delete drops a game's snapshot.
func (c *SnapshotCache) Delete(ctx context.Context, gameID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn := c.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", key(gameID)); err != nil {
		return fmt.Errorf("failed to delete snapshot for %s: %w", gameID, err)
	}
	return nil
}

// Ping checks that the cache is reachable.
func (c *SnapshotCache) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn := c.pool.Get()
	defer conn.Close()

	if _, err := redis.String(conn.Do("PING")); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
