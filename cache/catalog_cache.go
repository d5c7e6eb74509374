package cache

import (
	"context"
	"fmt"
	"time"

	"Musio/logger"
	"Musio/model"
	"Musio/repository"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
)

const (
	catalogKey        = "catalog:all" // String: []Track JSON
	defaultCatalogTTL = 30 * time.Second
)

// CachedTracks 给曲库全量查询加一层 Redis 缓存.
// Writes go straight to the repository and drop the cached snapshot.
// Redis errors never fail a request, they only bypass the cache.
type CachedTracks struct {
	repository.TrackRepository
	client *redis.Client
	ttl    time.Duration
}

// NewCachedTracks wraps repo. ttl <= 0 uses 30s.
func NewCachedTracks(repo repository.TrackRepository, client *redis.Client, ttl time.Duration) *CachedTracks {
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &CachedTracks{TrackRepository: repo, client: client, ttl: ttl}
}

// ListAll 优先从缓存读取曲库快照
func (c *CachedTracks) ListAll(ctx context.Context) ([]model.Track, error) {
	if c.client != nil {
		data, err := c.client.Get(ctx, catalogKey).Bytes()
		switch {
		case err == nil:
			if tracks, err := decodeCatalog(data); err == nil {
				return tracks, nil
			}
			logger.Warn("corrupt catalog snapshot, reloading")
		case err != redis.Nil:
			logger.Warn("catalog cache read failed", logger.ErrorField(err))
		}
	}

	tracks, err := c.TrackRepository.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, tracks)
	return tracks, nil
}

func (c *CachedTracks) Create(ctx context.Context, track *model.Track) error {
	if err := c.TrackRepository.Create(ctx, track); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *CachedTracks) Delete(ctx context.Context, id string) error {
	if err := c.TrackRepository.Delete(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *CachedTracks) IncrementPlayCount(ctx context.Context, id string) error {
	if err := c.TrackRepository.IncrementPlayCount(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *CachedTracks) IncrementLikes(ctx context.Context, id string) error {
	if err := c.TrackRepository.IncrementLikes(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// Invalidate 删除缓存的曲库快照
func (c *CachedTracks) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		logger.Warn("catalog cache invalidation failed", logger.ErrorField(err))
	}
}

func (c *CachedTracks) store(ctx context.Context, tracks []model.Track) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(tracks)
	if err != nil {
		logger.Warn("failed to marshal catalog snapshot", logger.ErrorField(err))
		return
	}
	if err := c.client.Set(ctx, catalogKey, data, c.ttl).Err(); err != nil {
		logger.Warn("catalog cache write failed", logger.ErrorField(err))
	}
}

func decodeCatalog(data []byte) ([]model.Track, error) {
	var tracks []model.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog snapshot: %w", err)
	}
	if tracks == nil {
		tracks = []model.Track{}
	}
	return tracks, nil
}
