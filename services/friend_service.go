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

// FriendService owns the invitation lifecycle and the friendship relation.
type FriendService struct {
	users       repositories.UserRepository
	invitations repositories.InvitationRepository
	friendships repositories.FriendshipRepository
	identity    IdentityProvider
	notifier    InvitationNotifier
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewFriendService(store repositories.Store, identity IdentityProvider, notifier InvitationNotifier, log logrus.FieldLogger) *FriendService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &FriendService{
		users:       store.Users,
		invitations: store.Invitations,
		friendships: store.Friendships,
		identity:    identity,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

func (s *FriendService) CreateInvitation(ctx context.Context, toEmail string) (*models.FriendInvitation, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	email := utils.NormalizeEmail(toEmail)
	if !utils.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if email == utils.NormalizeEmail(me.Email) {
		return nil, ErrSelfInvitation
	}

	_, err = s.invitations.FindPending(ctx, me.UID, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateInvitation
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("check pending invitation: %w", err)
	}

	friends, err := s.isFriendByEmail(ctx, me.UID, email)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	invitation := &models.FriendInvitation{
		ID:            uuid.New().String(),
		FromUserID:    me.UID,
		FromUserEmail: utils.NormalizeEmail(me.Email),
		FromUserName:  me.DisplayName,
		ToEmail:       email,
		Status:        models.InvitationStatusPending,
		CreatedAt:     s.now(),
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	metrics.RecordInvitation("created")

	logger := s.log.WithFields(logrus.Fields{"user_id": me.UID, "invitation_id": invitation.ID})
	logger.Info("friend invitation created")
	if err := s.notifier.NotifyInvitation(ctx, invitation); err != nil {
		logger.WithError(err).Warn("invitation notification failed")
	}

	return invitation, nil
}

// GetPendingInvitations lists invitations addressed to the caller, newest
// first. Store failures yield an empty list.
func (s *FriendService) GetPendingInvitations(ctx context.Context) ([]models.FriendInvitation, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	invitations, err := s.invitations.ListByRecipient(ctx, utils.NormalizeEmail(me.Email), models.InvitationStatusPending)
	if err != nil {
		s.log.WithError(err).WithField("user_id", me.UID).Warn("list pending invitations failed")
		return []models.FriendInvitation{}, nil
	}
	sortInvitations(invitations)
	return invitations, nil
}

// GetSentInvitations lists the caller's own invitations that are still pending.
func (s *FriendService) GetSentInvitations(ctx context.Context) ([]models.FriendInvitation, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	invitations, err := s.invitations.ListBySender(ctx, me.UID, models.InvitationStatusPending)
	if err != nil {
		s.log.WithError(err).WithField("user_id", me.UID).Warn("list sent invitations failed")
		return []models.FriendInvitation{}, nil
	}
	sortInvitations(invitations)
	return invitations, nil
}

// AcceptInvitation answers a pending invitation and makes the two users
// friends. The status change and the friendship insert commit together, and
// the status change is conditional, so only one of several concurrent accepts
// succeeds. The friendship id is derived from the pair, so a second insert
// for the same users can never produce another document.
func (s *FriendService) AcceptInvitation(ctx context.Context, id string) (*models.Friendship, error) {
	me, invitation, err := s.loadForResponse(ctx, id)
	if err != nil {
		return nil, err
	}

	pending := s.newFriendship(ctx, invitation, me)
	friendship, created, err := s.invitations.Accept(ctx, id, me.UID, s.now(), pending)
	if errors.Is(err, repositories.ErrDuplicate) {
		// An accept for another invitation of the same pair committed first;
		// the retry links this one to that friendship.
		friendship, created, err = s.invitations.Accept(ctx, id, me.UID, s.now(), pending)
	}
	if errors.Is(err, repositories.ErrConflict) {
		return nil, ErrInvitationResolved
	}
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	metrics.RecordInvitation("accepted")
	if created {
		metrics.RecordFriendship("created")
	}

	s.log.WithFields(logrus.Fields{
		"user_id":       me.UID,
		"invitation_id": id,
		"friendship_id": friendship.ID,
	}).Info("friend invitation accepted")
	return friendship, nil
}

func (s *FriendService) RejectInvitation(ctx context.Context, id string) error {
	me, _, err := s.loadForResponse(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.invitations.Resolve(ctx, id, models.InvitationStatusRejected, me.UID, s.now())
	if err != nil {
		return fmt.Errorf("reject invitation: %w", err)
	}
	if !ok {
		return ErrInvitationResolved
	}
	metrics.RecordInvitation("rejected")

	s.log.WithFields(logrus.Fields{"user_id": me.UID, "invitation_id": id}).Info("friend invitation rejected")
	return nil
}

// DeleteInvitation withdraws an invitation. Accepted invitations are kept as
// the record of the friendship they produced.
func (s *FriendService) DeleteInvitation(ctx context.Context, id string) error {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return err
	}

	invitation, err := s.invitations.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrInvitationNotFound
	}
	if err != nil {
		return fmt.Errorf("load invitation: %w", err)
	}
	if invitation.FromUserID != me.UID {
		return ErrNotInvitationSender
	}
	if invitation.Status == models.InvitationStatusAccepted {
		return ErrInvitationAccepted
	}

	if err := s.invitations.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("delete invitation: %w", err)
	}
	metrics.RecordInvitation("deleted")
	return nil
}

// GetFriends returns the other party of every friendship of the caller,
// sorted by display name. Store failures yield an empty list.
func (s *FriendService) GetFriends(ctx context.Context) ([]models.Friend, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	logger := s.log.WithField("user_id", me.UID)

	asFirst, err := s.friendships.ListByUserID1(ctx, me.UID)
	if err != nil {
		logger.WithError(err).Warn("list friendships failed")
		return []models.Friend{}, nil
	}
	asSecond, err := s.friendships.ListByUserID2(ctx, me.UID)
	if err != nil {
		logger.WithError(err).Warn("list friendships failed")
		return []models.Friend{}, nil
	}

	seen := make(map[string]bool)
	friends := make([]models.Friend, 0, len(asFirst)+len(asSecond))
	for _, f := range append(asFirst, asSecond...) {
		id, email, name := f.Other(me.UID)
		if seen[id] {
			continue
		}
		seen[id] = true

		friend := models.Friend{
			UserID:       id,
			Email:        email,
			DisplayName:  name,
			FriendshipID: f.ID,
		}
		profile, err := s.users.FindByID(ctx, id)
		if err == nil {
			friend.PhotoURL = profile.PhotoURL
		} else if !errors.Is(err, repositories.ErrNotFound) {
			logger.WithError(err).WithField("friend_id", id).Debug("friend profile lookup failed")
		}
		friends = append(friends, friend)
	}

	sort.SliceStable(friends, func(i, j int) bool {
		a, b := strings.ToLower(friends[i].DisplayName), strings.ToLower(friends[j].DisplayName)
		if a != b {
			return a < b
		}
		return friends[i].UserID < friends[j].UserID
	})
	return friends, nil
}

func (s *FriendService) RemoveFriend(ctx context.Context, friendID string) error {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return err
	}
	if friendID == "" || friendID == me.UID {
		return ErrFriendshipNotFound
	}

	id1, id2 := models.NormalizeUserIDs(me.UID, friendID)
	friendship, err := s.friendships.FindByPair(ctx, id1, id2)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrFriendshipNotFound
	}
	if err != nil {
		return fmt.Errorf("load friendship: %w", err)
	}

	if err := s.friendships.Delete(ctx, friendship.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrFriendshipNotFound
		}
		return fmt.Errorf("remove friend: %w", err)
	}
	metrics.RecordFriendship("removed")

	s.log.WithFields(logrus.Fields{"user_id": me.UID, "friend_id": friendID}).Info("friend removed")
	return nil
}

// IsFriend reports whether the caller and otherID have a friendship.
func (s *FriendService) IsFriend(ctx context.Context, otherID string) (bool, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return false, err
	}
	return s.isFriend(ctx, me.UID, otherID)
}

// IsFriendByEmail resolves email to a profile first. No profile means the two
// cannot be friends yet.
func (s *FriendService) IsFriendByEmail(ctx context.Context, email string) (bool, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return false, err
	}
	return s.isFriendByEmail(ctx, me.UID, utils.NormalizeEmail(email))
}

func (s *FriendService) GetFriendshipStatus(ctx context.Context, otherID string) (*models.FriendshipStatus, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	status := &models.FriendshipStatus{}
	if otherID == me.UID {
		return status, nil
	}

	if status.IsFriend, err = s.isFriend(ctx, me.UID, otherID); err != nil {
		return nil, err
	}

	other, err := s.users.FindByID(ctx, otherID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return status, nil
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if sent, err := s.invitations.FindPending(ctx, me.UID, other.Email); err == nil {
		status.HasPendingSent = true
		status.SentInvitationID = sent.ID
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("check sent invitation: %w", err)
	}

	if received, err := s.invitations.FindPending(ctx, otherID, utils.NormalizeEmail(me.Email)); err == nil {
		status.HasPendingReceived = true
		status.ReceivedInvitationID = received.ID
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("check received invitation: %w", err)
	}

	return status, nil
}

func (s *FriendService) isFriend(ctx context.Context, userID, otherID string) (bool, error) {
	if otherID == "" || otherID == userID {
		return false, nil
	}
	id1, id2 := models.NormalizeUserIDs(userID, otherID)
	_, err := s.friendships.FindByPair(ctx, id1, id2)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repositories.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check friendship: %w", err)
	}
}

func (s *FriendService) isFriendByEmail(ctx context.Context, userID, email string) (bool, error) {
	other, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve email: %w", err)
	}
	return s.isFriend(ctx, userID, other.ID)
}

// loadForResponse applies the checks shared by accept and reject.
func (s *FriendService) loadForResponse(ctx context.Context, id string) (*models.Identity, *models.FriendInvitation, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, nil, err
	}

	invitation, err := s.invitations.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load invitation: %w", err)
	}

	if invitation.ToEmail != utils.NormalizeEmail(me.Email) {
		return nil, nil, ErrNotInvitationRecipient
	}
	if invitation.FromUserID == me.UID {
		return nil, nil, ErrSelfInvitation
	}
	if invitation.Status != models.InvitationStatusPending {
		return nil, nil, ErrInvitationResolved
	}
	return me, invitation, nil
}

// newFriendship builds the friendship document for the invitation's pair
// from the current profiles of both users.
func (s *FriendService) newFriendship(ctx context.Context, invitation *models.FriendInvitation, me *models.Identity) *models.Friendship {
	id1, id2 := models.NormalizeUserIDs(invitation.FromUserID, me.UID)

	sender := s.snapshot(ctx, invitation.FromUserID, invitation.FromUserEmail, invitation.FromUserName)
	recipient := s.snapshot(ctx, me.UID, utils.NormalizeEmail(me.Email), me.DisplayName)
	first, second := sender, recipient
	if first.ID != id1 {
		first, second = recipient, sender
	}

	return &models.Friendship{
		ID:         models.FriendshipID(id1, id2),
		UserID1:    id1,
		UserID2:    id2,
		User1Email: first.Email,
		User2Email: second.Email,
		User1Name:  first.DisplayName,
		User2Name:  second.DisplayName,
		CreatedAt:  s.now(),
	}
}

// snapshot resolves a profile, falling back to the given values when the
// directory has no entry for the user.
func (s *FriendService) snapshot(ctx context.Context, id, email, name string) models.User {
	profile, err := s.users.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.log.WithError(err).WithField("user_id", id).Warn("profile lookup failed, using invitation snapshot")
		}
		return models.User{ID: id, Email: email, DisplayName: name}
	}
	return *profile
}

func sortInvitations(invitations []models.FriendInvitation) {
	sort.SliceStable(invitations, func(i, j int) bool {
		return invitations[i].CreatedAt.After(invitations[j].CreatedAt)
	})
}
