package services

import "errors"

var (
	ErrUnauthenticated = errors.New("authentication required")

	ErrInvalidEmail           = errors.New("invalid email address")
	ErrSelfInvitation         = errors.New("cannot invite yourself")
	ErrDuplicateInvitation    = errors.New("invitation already pending for this email")
	ErrAlreadyFriends         = errors.New("already friends with this user")
	ErrInvitationNotFound     = errors.New("invitation not found")
	ErrNotInvitationRecipient = errors.New("invitation is addressed to another user")
	ErrInvitationResolved     = errors.New("invitation has already been answered")
	ErrNotInvitationSender    = errors.New("only the sender can delete an invitation")
	ErrInvitationAccepted     = errors.New("accepted invitations cannot be deleted")
	ErrFriendshipNotFound     = errors.New("friendship not found")
	ErrProfileNotFound        = errors.New("user profile not found")

	ErrInvalidSharedItem      = errors.New("invalid shared item")
	ErrSelfShare              = errors.New("cannot share an item with yourself")
	ErrNotFriends             = errors.New("items can only be shared with friends")
	ErrSharedItemNotFound     = errors.New("shared item not found")
	ErrNotSharedItemRecipient = errors.New("shared item is addressed to another user")
	ErrSharedItemResolved     = errors.New("shared item has already been answered")
	ErrSparkNotRegistered     = errors.New("spark is not registered for sharing")
	ErrItemNotFound           = errors.New("shareable item not found")
)
