package repositories

import (
	"context"

	"gorm.io/gorm"

	"sparkshare-api/models"
)

type GormSharedItemRepository struct {
	db *gorm.DB
}

func NewSharedItemRepository(db *gorm.DB) *GormSharedItemRepository {
	return &GormSharedItemRepository{db: db}
}

func (r *GormSharedItemRepository) Create(ctx context.Context, envelope *models.SharedItemEnvelope) error {
	return translate(r.db.WithContext(ctx).Create(envelope).Error)
}

func (r *GormSharedItemRepository) FindByID(ctx context.Context, id string) (*models.SharedItemEnvelope, error) {
	var envelope models.SharedItemEnvelope
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&envelope).Error; err != nil {
		return nil, translate(err)
	}
	return &envelope, nil
}

func (r *GormSharedItemRepository) ListForRecipient(ctx context.Context, userID, sparkID string, status models.SharedItemStatus) ([]models.SharedItemEnvelope, error) {
	var envelopes []models.SharedItemEnvelope
	err := r.db.WithContext(ctx).
		Where("shared_with_user_id = ? AND spark_id = ? AND status = ?", userID, sparkID, status).
		Find(&envelopes).Error
	return envelopes, translate(err)
}

func (r *GormSharedItemRepository) ListBySender(ctx context.Context, userID, sparkID string) ([]models.SharedItemEnvelope, error) {
	var envelopes []models.SharedItemEnvelope
	err := r.db.WithContext(ctx).
		Where("shared_by_user_id = ? AND spark_id = ?", userID, sparkID).
		Find(&envelopes).Error
	return envelopes, translate(err)
}

func (r *GormSharedItemRepository) UpdateStatus(ctx context.Context, id string, from, to models.SharedItemStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SharedItemEnvelope{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *GormSharedItemRepository) CountByStatus(ctx context.Context, status models.SharedItemStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SharedItemEnvelope{}).Where("status = ?", status).Count(&count).Error
	return count, translate(err)
}
