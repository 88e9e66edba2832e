package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"sparkshare-api/models"
)

type GormInvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *GormInvitationRepository {
	return &GormInvitationRepository{db: db}
}

func (r *GormInvitationRepository) Create(ctx context.Context, invitation *models.FriendInvitation) error {
	return translate(r.db.WithContext(ctx).Create(invitation).Error)
}

func (r *GormInvitationRepository) FindByID(ctx context.Context, id string) (*models.FriendInvitation, error) {
	var invitation models.FriendInvitation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invitation).Error; err != nil {
		return nil, translate(err)
	}
	return &invitation, nil
}

func (r *GormInvitationRepository) FindPending(ctx context.Context, fromUserID, toEmail string) (*models.FriendInvitation, error) {
	var invitation models.FriendInvitation
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND to_email = ? AND status = ?", fromUserID, toEmail, models.InvitationStatusPending).
		First(&invitation).Error
	if err != nil {
		return nil, translate(err)
	}
	return &invitation, nil
}

func (r *GormInvitationRepository) ListByRecipient(ctx context.Context, toEmail string, status models.InvitationStatus) ([]models.FriendInvitation, error) {
	var invitations []models.FriendInvitation
	err := r.db.WithContext(ctx).
		Where("to_email = ? AND status = ?", toEmail, status).
		Find(&invitations).Error
	return invitations, translate(err)
}

func (r *GormInvitationRepository) ListBySender(ctx context.Context, fromUserID string, status models.InvitationStatus) ([]models.FriendInvitation, error) {
	var invitations []models.FriendInvitation
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND status = ?", fromUserID, status).
		Find(&invitations).Error
	return invitations, translate(err)
}

func (r *GormInvitationRepository) Resolve(ctx context.Context, id string, status models.InvitationStatus, toUserID string, respondedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FriendInvitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"to_user_id":   toUserID,
			"responded_at": respondedAt,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Accept runs the status change and the friendship insert in one transaction,
// so a failed insert leaves the invitation pending.
func (r *GormInvitationRepository) Accept(ctx context.Context, id, toUserID string, respondedAt time.Time, friendship *models.Friendship) (*models.Friendship, bool, error) {
	var stored models.Friendship
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.FriendInvitation{}).
			Where("id = ? AND status = ?", id, models.InvitationStatusPending).
			Updates(map[string]interface{}{
				"status":       models.InvitationStatusAccepted,
				"to_user_id":   toUserID,
				"responded_at": respondedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return ErrConflict
		}

		err := tx.Where("user_id1 = ? AND user_id2 = ?", friendship.UserID1, friendship.UserID2).First(&stored).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(friendship).Error; err != nil {
			return err
		}
		stored = *friendship
		created = true
		return nil
	})
	if err != nil {
		return nil, false, translate(err)
	}
	return &stored, created, nil
}

func (r *GormInvitationRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FriendInvitation{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormInvitationRepository) CountByStatus(ctx context.Context, status models.InvitationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FriendInvitation{}).Where("status = ?", status).Count(&count).Error
	return count, translate(err)
}
