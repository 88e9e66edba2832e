package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRejected InvitationStatus = "rejected"
)

// FriendInvitation is addressed to an email, so the recipient may not have a
// profile yet. ToUserID is filled in when the recipient responds.
type FriendInvitation struct {
	ID            string           `json:"id" gorm:"primaryKey;size:191"`
	FromUserID    string           `json:"from_user_id" gorm:"not null;size:191;index:idx_invitations_sender_status"`
	FromUserEmail string           `json:"from_user_email" gorm:"not null;size:255"`
	FromUserName  string           `json:"from_user_name" gorm:"size:255"`
	ToEmail       string           `json:"to_email" gorm:"not null;size:255;index:idx_invitations_recipient_status"`
	ToUserID      *string          `json:"to_user_id,omitempty" gorm:"size:191"`
	Status        InvitationStatus `json:"status" gorm:"not null;default:'pending';size:20;index:idx_invitations_sender_status;index:idx_invitations_recipient_status"`
	CreatedAt     time.Time        `json:"created_at"`
	RespondedAt   *time.Time       `json:"responded_at,omitempty"`
}

// Friendship stores the pair in canonical order (UserID1 < UserID2). Its ID
// is derived from the pair and the pair index is unique, so at most one row
// exists per unordered pair.
// Names and emails are a snapshot taken at acceptance time.
type Friendship struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	UserID1    string    `json:"user_id1" gorm:"column:user_id1;not null;size:191;uniqueIndex:idx_friendships_pair"`
	UserID2    string    `json:"user_id2" gorm:"column:user_id2;not null;size:191;uniqueIndex:idx_friendships_pair;index"`
	User1Email string    `json:"user1_email" gorm:"column:user1_email;size:255"`
	User2Email string    `json:"user2_email" gorm:"column:user2_email;size:255"`
	User1Name  string    `json:"user1_name" gorm:"column:user1_name;size:255"`
	User2Name  string    `json:"user2_name" gorm:"column:user2_name;size:255"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizeUserIDs returns the pair in canonical (min, max) order.
func NormalizeUserIDs(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

var friendshipNamespace = uuid.MustParse("6f1d3c52-8a4e-4b7f-9c2d-0e5a7b9f1c38")

// FriendshipID is the deterministic document id for an unordered pair: a
// name-based UUID over the length-prefixed ids, so no two pairs share an id
// whatever characters the user ids contain.
func FriendshipID(a, b string) string {
	id1, id2 := NormalizeUserIDs(a, b)
	name := strconv.Itoa(len(id1)) + ":" + id1 + strconv.Itoa(len(id2)) + ":" + id2
	return uuid.NewSHA1(friendshipNamespace, []byte(name)).String()
}

// Other returns the party of the friendship that is not userID.
func (f *Friendship) Other(userID string) (id, email, name string) {
	if f.UserID1 == userID {
		return f.UserID2, f.User2Email, f.User2Name
	}
	return f.UserID1, f.User1Email, f.User1Name
}

// Friend is a friendship seen from one side.
type Friend struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	PhotoURL     string `json:"photo_url,omitempty"`
	FriendshipID string `json:"friendship_id"`
}

type FriendshipStatus struct {
	IsFriend             bool   `json:"is_friend"`
	HasPendingSent       bool   `json:"has_pending_sent"`
	HasPendingReceived   bool   `json:"has_pending_received"`
	SentInvitationID     string `json:"sent_invitation_id,omitempty"`
	ReceivedInvitationID string `json:"received_invitation_id,omitempty"`
}
