package repository

import (
	"context"
	"strings"

	"Musio/model"

	"gorm.io/gorm"
)

// TrackRepository 歌曲数据访问接口
type TrackRepository interface {
	ListRecent(ctx context.Context, limit int) ([]model.Track, error)
	ListAll(ctx context.Context) ([]model.Track, error)
	GetByID(ctx context.Context, id string) (*model.Track, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Track, error)
	Search(ctx context.Context, query string, limit int) ([]model.Track, error)
	FindByTitle(ctx context.Context, title string) (*model.Track, error)
	Create(ctx context.Context, track *model.Track) error
	Delete(ctx context.Context, id string) error
	IncrementPlayCount(ctx context.Context, id string) error
	IncrementLikes(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// gormTrackRepository GORM 实现
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository 创建 GORM 歌曲仓库
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// ListRecent 按创建时间倒序返回最多 limit 首歌曲
func (r *gormTrackRepository) ListRecent(ctx context.Context, limit int) ([]model.Track, error) {
	var tracks []model.Track
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&tracks).Error
	return tracks, translate(err)
}

// ListAll returns the whole catalog, newest first.
func (r *gormTrackRepository) ListAll(ctx context.Context) ([]model.Track, error) {
	return r.ListRecent(ctx, 0)
}

// GetByID 根据ID获取歌曲
func (r *gormTrackRepository) GetByID(ctx context.Context, id string) (*model.Track, error) {
	var track model.Track
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&track).Error; err != nil {
		return nil, translate(err)
	}
	return &track, nil
}

// GetByIDs returns the tracks in the order of ids. Unknown ids are skipped.
func (r *gormTrackRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []model.Track
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, translate(err)
	}
	byID := make(map[string]model.Track, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	ordered := make([]model.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

// Search 按标题或歌手模糊搜索
func (r *gormTrackRepository) Search(ctx context.Context, query string, limit int) ([]model.Track, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	var tracks []model.Track
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(artist) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&tracks).Error
	return tracks, translate(err)
}

// FindByTitle 精确匹配标题
func (r *gormTrackRepository) FindByTitle(ctx context.Context, title string) (*model.Track, error) {
	var track model.Track
	if err := r.db.WithContext(ctx).Where("title = ?", title).First(&track).Error; err != nil {
		return nil, translate(err)
	}
	return &track, nil
}

// Create 创建歌曲
func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	return translate(r.db.WithContext(ctx).Create(track).Error)
}

// Delete 删除歌曲
func (r *gormTrackRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Track{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementPlayCount 播放次数加一
func (r *gormTrackRepository) IncrementPlayCount(ctx context.Context, id string) error {
	return r.increment(ctx, id, "play_count")
}

// IncrementLikes 点赞数加一
func (r *gormTrackRepository) IncrementLikes(ctx context.Context, id string) error {
	return r.increment(ctx, id, "likes")
}

func (r *gormTrackRepository) increment(ctx context.Context, id, column string) error {
	res := r.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count 统计歌曲数量
func (r *gormTrackRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Track{}).Count(&n).Error
	return n, translate(err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
