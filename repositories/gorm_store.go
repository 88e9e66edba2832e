package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// NewGormStore backs every collection with the given database. The database
// should be opened with TranslateError so duplicate keys surface as
// gorm.ErrDuplicatedKey.
func NewGormStore(db *gorm.DB) Store {
	return Store{
		Users:       NewUserRepository(db),
		Invitations: NewInvitationRepository(db),
		Friendships: NewFriendshipRepository(db),
		SharedItems: NewSharedItemRepository(db),
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
