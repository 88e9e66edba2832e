package models

import "time"

type SharedItemStatus string

const (
	SharedItemStatusPending  SharedItemStatus = "pending"
	SharedItemStatusAccepted SharedItemStatus = "accepted"
	SharedItemStatusRejected SharedItemStatus = "rejected"
)

// SharedItemEnvelope is one mailbox record. ItemData is a value copy taken
// when the share was written and is never updated afterwards.
type SharedItemEnvelope struct {
	ID               string           `json:"id" gorm:"primaryKey;size:191"`
	OriginalID       string           `json:"original_id" gorm:"not null;size:191"`
	SparkID          string           `json:"spark_id" gorm:"not null;size:64;index:idx_shared_items_recipient"`
	SharedByUserID   string           `json:"shared_by_user_id" gorm:"not null;size:191;index:idx_shared_items_sender"`
	SharedByUserName string           `json:"shared_by_user_name" gorm:"size:255"`
	SharedAt         time.Time        `json:"shared_at" gorm:"not null"`
	SharedWithUserID string           `json:"shared_with_user_id" gorm:"not null;size:191;index:idx_shared_items_recipient"`
	Status           SharedItemStatus `json:"status" gorm:"not null;default:'pending';size:20;index:idx_shared_items_recipient"`
	ItemData         JSONData         `json:"item_data" gorm:"type:json"`
}

func (SharedItemEnvelope) TableName() string {
	return "shared_items"
}

// ShareItemRequest is the body of a raw copy share.
type ShareItemRequest struct {
	SparkID  string   `json:"spark_id" binding:"required"`
	ItemID   string   `json:"item_id" binding:"required"`
	FriendID string   `json:"friend_id" binding:"required"`
	Data     JSONData `json:"data" binding:"required"`
}
