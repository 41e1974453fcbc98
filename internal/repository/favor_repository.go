package repository

import (
	"context"

	"github.com/favorly/backend/internal/model"
	"gorm.io/gorm"
)

type FavorRepository interface {
	FindByID(ctx context.Context, id uint64) (*model.Favor, error)
	SetHelper(ctx context.Context, id uint64, helperUID string) error
	SetStatus(ctx context.Context, id uint64, status model.FavorStatus) error
}

type favorRepository struct {
	db *gorm.DB
}

func NewFavorRepository(db *gorm.DB) FavorRepository {
	return &favorRepository{db: db}
}

func (r *favorRepository) FindByID(ctx context.Context, id uint64) (*model.Favor, error) {
	var favor model.Favor
	if err := r.db.WithContext(ctx).First(&favor, id).Error; err != nil {
		return nil, err
	}
	return &favor, nil
}

// SetHelper records the accepted helper; only an open favor with no helper
// can gain one.
func (r *favorRepository) SetHelper(ctx context.Context, id uint64, helperUID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Favor{}).
		Where("id = ? AND (helper_uid = '' OR helper_uid IS NULL)", id).
		Updates(map[string]interface{}{
			"helper_uid": helperUID,
			"status":     model.FavorStatusAccepted,
		}).Error
}

func (r *favorRepository) SetStatus(ctx context.Context, id uint64, status model.FavorStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Favor{}).
		Where("id = ?", id).
		Update("status", status).Error
}
