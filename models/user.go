package models

import "time"

// User is the profile directory entry other users are resolved against.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;size:191"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	DisplayName string    `json:"display_name" gorm:"not null;size:255"`
	PhotoURL    string    `json:"photo_url" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Identity is the authenticated caller as supplied by the identity provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
}
