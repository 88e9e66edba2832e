package models

import "time"

type SharingModel string

const (
	SharingModelCopy      SharingModel = "copy"
	SharingModelReference SharingModel = "reference"
)

// AcceptPolicy decides what a spark does with pending envelopes on load.
type AcceptPolicy string

const (
	AcceptPolicyAuto                AcceptPolicy = "auto_accept"
	AcceptPolicyRequireConfirmation AcceptPolicy = "require_confirmation"
)

type ShareableItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Preview     string   `json:"preview,omitempty"`
	SparkID     string   `json:"spark_id"`
	Data        JSONData `json:"data"`
}

// SparkInfo describes a registration without exposing the spark itself.
type SparkInfo struct {
	SparkID      string       `json:"spark_id"`
	SharingModel SharingModel `json:"sharing_model"`
	AcceptPolicy AcceptPolicy `json:"accept_policy"`
}

// ReceivedItem is an accepted envelope ready to be merged into a spark's
// local collection.
type ReceivedItem struct {
	EnvelopeID   string    `json:"envelope_id"`
	OriginalID   string    `json:"original_id"`
	SparkID      string    `json:"spark_id"`
	SharedBy     string    `json:"shared_by"`
	SharedByName string    `json:"shared_by_name"`
	SharedAt     time.Time `json:"shared_at"`
	Data         JSONData  `json:"data"`
}

type ShareSparkItemRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	FriendID string `json:"friend_id" binding:"required"`
}
