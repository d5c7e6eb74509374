package repository

import (
	"context"

	"Musio/model"

	"gorm.io/gorm"
)

// PlaylistRepository 歌单数据访问接口
type PlaylistRepository interface {
	ListWithTracks(ctx context.Context) ([]model.Playlist, error)
	GetWithTracks(ctx context.Context, id string) (*model.Playlist, error)
	FindByName(ctx context.Context, name string) (*model.Playlist, error)
	Create(ctx context.Context, playlist *model.Playlist) error
	AddTrack(ctx context.Context, playlistID, trackID string) error
	RemoveTrackEverywhere(ctx context.Context, trackID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// gormPlaylistRepository GORM 实现
type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository 创建 GORM 歌单仓库
func NewGormPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

// ListWithTracks 获取所有歌单及其歌曲
func (r *gormPlaylistRepository) ListWithTracks(ctx context.Context) ([]model.Playlist, error) {
	var playlists []model.Playlist
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&playlists).Error; err != nil {
		return nil, translate(err)
	}
	for i := range playlists {
		tracks, err := r.tracksOf(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].Tracks = tracks
	}
	return playlists, nil
}

// GetWithTracks 获取单个歌单及其歌曲
func (r *gormPlaylistRepository) GetWithTracks(ctx context.Context, id string) (*model.Playlist, error) {
	var playlist model.Playlist
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&playlist).Error; err != nil {
		return nil, translate(err)
	}
	tracks, err := r.tracksOf(ctx, id)
	if err != nil {
		return nil, err
	}
	playlist.Tracks = tracks
	return &playlist, nil
}

// FindByName 按名称查找歌单
func (r *gormPlaylistRepository) FindByName(ctx context.Context, name string) (*model.Playlist, error) {
	var playlist model.Playlist
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&playlist).Error; err != nil {
		return nil, translate(err)
	}
	return &playlist, nil
}

// Create 创建歌单
func (r *gormPlaylistRepository) Create(ctx context.Context, playlist *model.Playlist) error {
	return translate(r.db.WithContext(ctx).Create(playlist).Error)
}

// AddTrack appends a track at the end of the playlist. Adding a track twice returns ErrDuplicate.
func (r *gormPlaylistRepository) AddTrack(ctx context.Context, playlistID, trackID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&model.Playlist{}).Where("id = ?", playlistID).Count(&exists).Error; err != nil {
			return translate(err)
		}
		if exists == 0 {
			return ErrNotFound
		}

		var next int
		err := tx.Model(&model.PlaylistTrack{}).
			Where("playlist_id = ?", playlistID).
			Select("COALESCE(MAX(position) + 1, 0)").
			Scan(&next).Error
		if err != nil {
			return translate(err)
		}

		entry := &model.PlaylistTrack{PlaylistID: playlistID, TrackID: trackID, Position: next}
		if err := tx.Create(entry).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Model(&model.Playlist{}).Where("id = ?", playlistID).
			Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error)
	})
}

// RemoveTrackEverywhere 从所有歌单中移除歌曲，返回受影响的歌单数
func (r *gormPlaylistRepository) RemoveTrackEverywhere(ctx context.Context, trackID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("track_id = ?", trackID).Delete(&model.PlaylistTrack{})
	return res.RowsAffected, translate(res.Error)
}

// Count 统计歌单数量
func (r *gormPlaylistRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Playlist{}).Count(&n).Error
	return n, translate(err)
}

func (r *gormPlaylistRepository) tracksOf(ctx context.Context, playlistID string) ([]model.Track, error) {
	tracks := make([]model.Track, 0)
	err := r.db.WithContext(ctx).
		Table("tracks").
		Select("tracks.*").
		Joins("JOIN playlist_tracks ON playlist_tracks.track_id = tracks.id").
		Where("playlist_tracks.playlist_id = ?", playlistID).
		Order("playlist_tracks.position ASC").
		Find(&tracks).Error
	return tracks, translate(err)
}
