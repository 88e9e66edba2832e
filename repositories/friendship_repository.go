package repositories

import (
	"context"

	"gorm.io/gorm"

	"sparkshare-api/models"
)

type GormFriendshipRepository struct {
	db *gorm.DB
}

func NewFriendshipRepository(db *gorm.DB) *GormFriendshipRepository {
	return &GormFriendshipRepository{db: db}
}

// Create relies on the primary key (derived from the pair) and the unique
// pair index to reject a second friendship for the same users.
func (r *GormFriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	return translate(r.db.WithContext(ctx).Create(friendship).Error)
}

func (r *GormFriendshipRepository) FindByPair(ctx context.Context, userID1, userID2 string) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).
		Where("user_id1 = ? AND user_id2 = ?", userID1, userID2).
		First(&friendship).Error
	if err != nil {
		return nil, translate(err)
	}
	return &friendship, nil
}

func (r *GormFriendshipRepository) ListByUserID1(ctx context.Context, userID string) ([]models.Friendship, error) {
	var friendships []models.Friendship
	err := r.db.WithContext(ctx).Where("user_id1 = ?", userID).Find(&friendships).Error
	return friendships, translate(err)
}

func (r *GormFriendshipRepository) ListByUserID2(ctx context.Context, userID string) ([]models.Friendship, error) {
	var friendships []models.Friendship
	err := r.db.WithContext(ctx).Where("user_id2 = ?", userID).Find(&friendships).Error
	return friendships, translate(err)
}

func (r *GormFriendshipRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Friendship{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
