package cache

import (
	"context"
	"fmt"
	"time"

	"Musio/model"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
)

const (
	queueKey        = "queue:%s" // String: QueueSnapshot JSON
	defaultQueueTTL = 24 * time.Hour
)

// QueueCache 播放队列快照缓存
type QueueCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQueueCache 创建队列缓存. ttl <= 0 uses 24h.
func NewQueueCache(client *redis.Client, ttl time.Duration) *QueueCache {
	if ttl <= 0 {
		ttl = defaultQueueTTL
	}
	return &QueueCache{client: client, ttl: ttl}
}

// GetQueueKey 根据会话ID生成队列的Redis键
func GetQueueKey(sessionID string) string {
	return fmt.Sprintf(queueKey, sessionID)
}

// SaveQueue 保存队列快照并刷新过期时间
func (c *QueueCache) SaveQueue(ctx context.Context, snap model.QueueSnapshot) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal queue snapshot: %w", err)
	}
	if err := c.client.Set(ctx, GetQueueKey(snap.SessionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save queue snapshot: %w", err)
	}
	return nil
}

// LoadQueue 获取队列快照, 不存在时返回 nil, nil
func (c *QueueCache) LoadQueue(ctx context.Context, sessionID string) (*model.QueueSnapshot, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}
	data, err := c.client.Get(ctx, GetQueueKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load queue snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

// DeleteQueue 删除队列快照
func (c *QueueCache) DeleteQueue(ctx context.Context, sessionID string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return c.client.Del(ctx, GetQueueKey(sessionID)).Err()
}

func decodeSnapshot(data []byte) (*model.QueueSnapshot, error) {
	var snap model.QueueSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue snapshot: %w", err)
	}
	if snap.Cursor >= len(snap.TrackIDs) {
		snap.Cursor = len(snap.TrackIDs) - 1
	}
	return &snap, nil
}
