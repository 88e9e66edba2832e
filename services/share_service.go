package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sparkshare-api/metrics"
	"sparkshare-api/models"
	"sparkshare-api/repositories"
	"sparkshare-api/utils"
)

// FriendChecker answers whether the caller is friends with another user.
type FriendChecker interface {
	IsFriend(ctx context.Context, otherID string) (bool, error)
}

type ShareServiceOptions struct {
	// RequireFriendship rejects shares to users who are not friends of the
	// sender. With it off any user with a profile can receive items.
	RequireFriendship bool
}

// ShareService is the per-recipient, per-spark mailbox of shared items.
type ShareService struct {
	sharedItems repositories.SharedItemRepository
	users       repositories.UserRepository
	friends     FriendChecker
	identity    IdentityProvider
	opts        ShareServiceOptions
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewShareService(store repositories.Store, friends FriendChecker, identity IdentityProvider, opts ShareServiceOptions, log logrus.FieldLogger) *ShareService {
	return &ShareService{
		sharedItems: store.SharedItems,
		users:       store.Users,
		friends:     friends,
		identity:    identity,
		opts:        opts,
		log:         log,
		now:         time.Now,
	}
}

// ShareItemCopy writes a pending envelope holding a deep copy of data.
// Changing the sender's item afterwards does not touch the envelope.
func (s *ShareService) ShareItemCopy(ctx context.Context, sparkID, itemID, friendID string, data models.JSONData) (*models.SharedItemEnvelope, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	sparkID = strings.TrimSpace(sparkID)
	switch {
	case !utils.IsValidSparkID(sparkID):
		return nil, fmt.Errorf("%w: invalid spark id", ErrInvalidSharedItem)
	case strings.TrimSpace(itemID) == "":
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidSharedItem)
	case strings.TrimSpace(friendID) == "":
		return nil, fmt.Errorf("%w: friend id is required", ErrInvalidSharedItem)
	case friendID == me.UID:
		return nil, ErrSelfShare
	}

	if _, err := s.users.FindByID(ctx, friendID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	if s.opts.RequireFriendship {
		ok, err := s.friends.IsFriend(ctx, friendID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotFriends
		}
	}

	itemData, err := data.Clone()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSharedItem, err)
	}
	if itemData == nil {
		itemData = models.JSONData{}
	}

	envelope := &models.SharedItemEnvelope{
		ID:               uuid.New().String(),
		OriginalID:       itemID,
		SparkID:          sparkID,
		SharedByUserID:   me.UID,
		SharedByUserName: me.DisplayName,
		SharedAt:         s.now(),
		SharedWithUserID: friendID,
		Status:           models.SharedItemStatusPending,
		ItemData:         itemData,
	}
	if err := s.sharedItems.Create(ctx, envelope); err != nil {
		return nil, fmt.Errorf("share item: %w", err)
	}
	metrics.RecordEnvelope(sparkID, "shared")

	s.log.WithFields(logrus.Fields{
		"user_id":     me.UID,
		"spark_id":    sparkID,
		"envelope_id": envelope.ID,
		"friend_id":   friendID,
	}).Info("item shared")
	return envelope, nil
}

// GetPendingSharedItems lists envelopes for the caller that have not been
// answered yet. Store failures yield an empty list.
func (s *ShareService) GetPendingSharedItems(ctx context.Context, sparkID string) ([]models.SharedItemEnvelope, error) {
	return s.listForRecipient(ctx, sparkID, models.SharedItemStatusPending)
}

// GetAcceptedSharedItems lists envelopes the caller has accepted. Store
// failures yield an empty list.
func (s *ShareService) GetAcceptedSharedItems(ctx context.Context, sparkID string) ([]models.SharedItemEnvelope, error) {
	return s.listForRecipient(ctx, sparkID, models.SharedItemStatusAccepted)
}

// GetSentSharedItems lists what the caller has shared in a spark.
func (s *ShareService) GetSentSharedItems(ctx context.Context, sparkID string) ([]models.SharedItemEnvelope, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	envelopes, err := s.sharedItems.ListBySender(ctx, me.UID, sparkID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": me.UID, "spark_id": sparkID}).Warn("list sent shared items failed")
		return []models.SharedItemEnvelope{}, nil
	}
	sortEnvelopes(envelopes)
	return envelopes, nil
}

// GetSharedItem returns one envelope to its sender or recipient.
func (s *ShareService) GetSharedItem(ctx context.Context, id string) (*models.SharedItemEnvelope, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	envelope, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if envelope.SharedWithUserID != me.UID && envelope.SharedByUserID != me.UID {
		return nil, ErrSharedItemNotFound
	}
	return envelope, nil
}

// AcceptSharedItem marks an envelope accepted. Accepting an already accepted
// envelope is a no-op, so repeated loads on several devices can all run the
// auto-accept pass safely.
func (s *ShareService) AcceptSharedItem(ctx context.Context, id string) (*models.SharedItemEnvelope, error) {
	return s.transition(ctx, id, models.SharedItemStatusAccepted)
}

// RejectSharedItem marks a pending envelope rejected. Rejected is terminal.
func (s *ShareService) RejectSharedItem(ctx context.Context, id string) (*models.SharedItemEnvelope, error) {
	return s.transition(ctx, id, models.SharedItemStatusRejected)
}

func (s *ShareService) transition(ctx context.Context, id string, to models.SharedItemStatus) (*models.SharedItemEnvelope, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	envelope, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if envelope.SharedWithUserID != me.UID {
		return nil, ErrNotSharedItemRecipient
	}

	if envelope.Status == models.SharedItemStatusPending {
		ok, err := s.sharedItems.UpdateStatus(ctx, id, models.SharedItemStatusPending, to)
		if err != nil {
			return nil, fmt.Errorf("update shared item: %w", err)
		}
		if ok {
			envelope.Status = to
			metrics.RecordEnvelope(envelope.SparkID, string(to))
			s.log.WithFields(logrus.Fields{
				"user_id":     me.UID,
				"spark_id":    envelope.SparkID,
				"envelope_id": id,
				"status":      to,
			}).Info("shared item answered")
			return envelope, nil
		}
		// Someone else answered between the read and the write.
		if envelope, err = s.load(ctx, id); err != nil {
			return nil, err
		}
	}

	if envelope.Status == models.SharedItemStatusAccepted && to == models.SharedItemStatusAccepted {
		return envelope, nil
	}
	return nil, ErrSharedItemResolved
}

func (s *ShareService) listForRecipient(ctx context.Context, sparkID string, status models.SharedItemStatus) ([]models.SharedItemEnvelope, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	envelopes, err := s.sharedItems.ListForRecipient(ctx, me.UID, sparkID, status)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":  me.UID,
			"spark_id": sparkID,
			"status":   status,
		}).Warn("list shared items failed")
		return []models.SharedItemEnvelope{}, nil
	}
	sortEnvelopes(envelopes)
	return envelopes, nil
}

func (s *ShareService) load(ctx context.Context, id string) (*models.SharedItemEnvelope, error) {
	envelope, err := s.sharedItems.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSharedItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load shared item: %w", err)
	}
	return envelope, nil
}

func sortEnvelopes(envelopes []models.SharedItemEnvelope) {
	sort.SliceStable(envelopes, func(i, j int) bool {
		return envelopes[i].SharedAt.After(envelopes[j].SharedAt)
	})
}
