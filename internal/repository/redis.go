package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// snapshotTTL keeps stale snapshots from outliving an outage by too much.
const snapshotTTL = 24 * time.Hour

// RedisSnapshotCache stores lot snapshots as JSON values in Redis.
type RedisSnapshotCache struct {
	client *redis.Client
}

// NewRedisSnapshotCache connects to Redis and verifies the connection with
// a short ping. It returns an error when Redis is unreachable; the caller
// decides whether to run without the fallback cache.
func NewRedisSnapshotCache(addr, password string, db int) (*RedisSnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisSnapshotCache{client: client}, nil
}

func snapshotKey(lotID string) string {
	return fmt.Sprintf("lot:snapshot:%s", lotID)
}

// GetLotSnapshot returns the last saved snapshot for a lot.
func (c *RedisSnapshotCache) GetLotSnapshot(ctx context.Context, lotID string) (LotSnapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(lotID)).Bytes()
	if err != nil {
		return LotSnapshot{}, fmt.Errorf("get snapshot for lot %s: %w", lotID, err)
	}
	var snap LotSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return LotSnapshot{}, fmt.Errorf("decode snapshot for lot %s: %w", lotID, err)
	}
	return snap, nil
}

// SetLotSnapshot saves a snapshot with a TTL.
func (c *RedisSnapshotCache) SetLotSnapshot(ctx context.Context, lotID string, snap LotSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot for lot %s: %w", lotID, err)
	}
	if err := c.client.Set(ctx, snapshotKey(lotID), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("set snapshot for lot %s: %w", lotID, err)
	}
	return nil
}
