package repository

import (
	"context"

	"github.com/favorly/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *model.PushSubscription) error
	FindByUser(ctx context.Context, userID string) (*model.PushSubscription, error)
	Delete(ctx context.Context, userID string) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert keeps at most one current subscription per user; a re-subscribe
// overwrites the previous platform and payload. The legacy endpoint mirror
// is refreshed alongside when an endpoint is known.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"platform", "data", "endpoint", "updated_at"}),
		}).
		Create(sub).Error
	if err != nil {
		return err
	}
	if sub.Endpoint == nil || *sub.Endpoint == "" {
		return nil
	}
	mirror := model.PushEndpoint{
		Endpoint: *sub.Endpoint,
		UserID:   sub.UserID,
		Data:     sub.Data,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "data"}),
		}).
		Create(&mirror).Error
}

func (r *subscriptionRepository) FindByUser(ctx context.Context, userID string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.PushSubscription{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.PushEndpoint{}).Error
}

func (r *subscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if err := r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&model.PushSubscription{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&model.PushEndpoint{}).Error
}
