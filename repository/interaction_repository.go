package repository

import (
	"context"

	"Musio/model"

	"gorm.io/gorm"
)

// InteractionRepository 推荐交互记录接口
type InteractionRepository interface {
	Create(ctx context.Context, interaction *model.Interaction) error
	ListByTrack(ctx context.Context, trackID string, limit int) ([]model.Interaction, error)
}

type gormInteractionRepository struct {
	db *gorm.DB
}

// NewGormInteractionRepository 创建 GORM 交互仓库
func NewGormInteractionRepository(db *gorm.DB) InteractionRepository {
	return &gormInteractionRepository{db: db}
}

func (r *gormInteractionRepository) Create(ctx context.Context, interaction *model.Interaction) error {
	if interaction.UserID == "" {
		interaction.UserID = model.AnonymousUser
	}
	return translate(r.db.WithContext(ctx).Create(interaction).Error)
}

func (r *gormInteractionRepository) ListByTrack(ctx context.Context, trackID string, limit int) ([]model.Interaction, error) {
	var out []model.Interaction
	err := r.db.WithContext(ctx).
		Where("track_id = ?", trackID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, translate(err)
}
