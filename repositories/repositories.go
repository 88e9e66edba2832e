package repositories

import (
	"context"
	"errors"
	"time"

	"sparkshare-api/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict reports that a conditional write found the record in
	// another state.
	ErrConflict = errors.New("record is no longer in the expected state")
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}

type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.FriendInvitation) error
	FindByID(ctx context.Context, id string) (*models.FriendInvitation, error)
	FindPending(ctx context.Context, fromUserID, toEmail string) (*models.FriendInvitation, error)
	ListByRecipient(ctx context.Context, toEmail string, status models.InvitationStatus) ([]models.FriendInvitation, error)
	ListBySender(ctx context.Context, fromUserID string, status models.InvitationStatus) ([]models.FriendInvitation, error)
	// Resolve moves a pending invitation to status. It reports false when the
	// invitation was no longer pending.
	Resolve(ctx context.Context, id string, status models.InvitationStatus, toUserID string, respondedAt time.Time) (bool, error)
	// Accept moves a pending invitation to accepted and stores friendship in
	// one atomic step. When the pair already has a friendship that one is
	// returned and created is false. ErrConflict means the invitation was no
	// longer pending; nothing is written in that case.
	Accept(ctx context.Context, id, toUserID string, respondedAt time.Time, friendship *models.Friendship) (stored *models.Friendship, created bool, err error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status models.InvitationStatus) (int64, error)
}

type FriendshipRepository interface {
	// Create fails with ErrDuplicate when the pair already has a friendship.
	Create(ctx context.Context, friendship *models.Friendship) error
	FindByPair(ctx context.Context, userID1, userID2 string) (*models.Friendship, error)
	ListByUserID1(ctx context.Context, userID string) ([]models.Friendship, error)
	ListByUserID2(ctx context.Context, userID string) ([]models.Friendship, error)
	Delete(ctx context.Context, id string) error
}

type SharedItemRepository interface {
	Create(ctx context.Context, envelope *models.SharedItemEnvelope) error
	FindByID(ctx context.Context, id string) (*models.SharedItemEnvelope, error)
	ListForRecipient(ctx context.Context, userID, sparkID string, status models.SharedItemStatus) ([]models.SharedItemEnvelope, error)
	ListBySender(ctx context.Context, userID, sparkID string) ([]models.SharedItemEnvelope, error)
	// UpdateStatus is a conditional write from one status to another. It
	// reports false when the envelope was not in status from.
	UpdateStatus(ctx context.Context, id string, from, to models.SharedItemStatus) (bool, error)
	CountByStatus(ctx context.Context, status models.SharedItemStatus) (int64, error)
}

// Store groups the collections the services work against.
type Store struct {
	Users       UserRepository
	Invitations InvitationRepository
	Friendships FriendshipRepository
	SharedItems SharedItemRepository
}
