package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"sparkshare-api/models"
	"sparkshare-api/repositories"
	"sparkshare-api/utils"
)

type UserService struct {
	users    repositories.UserRepository
	identity IdentityProvider
	log      logrus.FieldLogger
}

func NewUserService(users repositories.UserRepository, identity IdentityProvider, log logrus.FieldLogger) *UserService {
	return &UserService{
		users:    users,
		identity: identity,
		log:      log,
	}
}

// SyncProfile writes the caller's identity into the profile directory so
// other users can find them by email.
func (s *UserService) SyncProfile(ctx context.Context) (*models.User, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	user := profileFromIdentity(me)
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("sync profile: %w", err)
	}
	s.log.WithField("user_id", me.UID).Debug("profile synced")
	return user, nil
}

// EnsureProfile is SyncProfile without the write when the stored profile
// already matches the identity.
func (s *UserService) EnsureProfile(ctx context.Context) error {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return err
	}

	existing, err := s.users.FindByID(ctx, me.UID)
	switch {
	case err == nil:
		want := profileFromIdentity(me)
		if existing.Email == want.Email && existing.DisplayName == want.DisplayName && existing.PhotoURL == want.PhotoURL {
			return nil
		}
	case !errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("load profile: %w", err)
	}

	_, err = s.SyncProfile(ctx)
	return err
}

func (s *UserService) GetProfile(ctx context.Context) (*models.User, error) {
	me, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, me.UID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return user, err
}

func profileFromIdentity(me *models.Identity) *models.User {
	name := me.DisplayName
	email := utils.NormalizeEmail(me.Email)
	if name == "" {
		name = email
	}
	return &models.User{
		ID:          me.UID,
		Email:       email,
		DisplayName: name,
		PhotoURL:    me.PhotoURL,
	}
}
