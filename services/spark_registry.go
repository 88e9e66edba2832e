package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sparkshare-api/models"
)

// ShareableSpark is implemented by every feature module that can share items.
type ShareableSpark interface {
	SparkID() string
	SharingModel() models.SharingModel
	AcceptPolicy() models.AcceptPolicy
	// ShareableItems lists what the caller can share from this spark.
	ShareableItems(ctx context.Context) ([]models.ShareableItem, error)
	// OnShareItem performs the share of one of the caller's items. An item
	// id the caller does not own yields an error wrapping ErrItemNotFound.
	OnShareItem(ctx context.Context, itemID, friendID string) error
}

// Mailbox is the part of ShareService the registry and sparks rely on.
type Mailbox interface {
	ShareItemCopy(ctx context.Context, sparkID, itemID, friendID string, data models.JSONData) (*models.SharedItemEnvelope, error)
	GetPendingSharedItems(ctx context.Context, sparkID string) ([]models.SharedItemEnvelope, error)
	AcceptSharedItem(ctx context.Context, id string) (*models.SharedItemEnvelope, error)
	GetAcceptedSharedItems(ctx context.Context, sparkID string) ([]models.SharedItemEnvelope, error)
}

// SparkRegistry is the catalogue sparks register into. It is built once at
// startup and handed to every spark; it is the only sharing component sparks
// talk to directly.
type SparkRegistry struct {
	mu      sync.RWMutex
	sparks  map[string]ShareableSpark
	mailbox Mailbox
	log     logrus.FieldLogger
}

func NewSparkRegistry(mailbox Mailbox, log logrus.FieldLogger) *SparkRegistry {
	return &SparkRegistry{
		sparks:  make(map[string]ShareableSpark),
		mailbox: mailbox,
		log:     log,
	}
}

// RegisterSpark upserts the registration for spark.SparkID(). The last
// registration wins; sparks re-register whenever their shareable set
// changes, so the registry always holds the latest one.
func (r *SparkRegistry) RegisterSpark(spark ShareableSpark) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sparks[spark.SparkID()] = spark
}

func (r *SparkRegistry) Spark(sparkID string) (ShareableSpark, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spark, ok := r.sparks[sparkID]
	return spark, ok
}

// Sparks describes every registration, ordered by spark id.
func (r *SparkRegistry) Sparks() []models.SparkInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.SparkInfo, 0, len(r.sparks))
	for _, spark := range r.sparks {
		infos = append(infos, models.SparkInfo{
			SparkID:      spark.SparkID(),
			SharingModel: spark.SharingModel(),
			AcceptPolicy: spark.AcceptPolicy(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].SparkID < infos[j].SparkID })
	return infos
}

func (r *SparkRegistry) ShareableItems(ctx context.Context, sparkID string) ([]models.ShareableItem, error) {
	spark, err := r.lookup(sparkID)
	if err != nil {
		return nil, err
	}
	return spark.ShareableItems(ctx)
}

// ShareItem hands the share to the spark's own callback.
func (r *SparkRegistry) ShareItem(ctx context.Context, sparkID, itemID, friendID string) error {
	spark, err := r.lookup(sparkID)
	if err != nil {
		return err
	}
	return spark.OnShareItem(ctx, itemID, friendID)
}

// ShareItemCopy passes through to the mailbox so sparks never depend on it.
func (r *SparkRegistry) ShareItemCopy(ctx context.Context, sparkID, itemID, friendID string, data models.JSONData) (*models.SharedItemEnvelope, error) {
	return r.mailbox.ShareItemCopy(ctx, sparkID, itemID, friendID, data)
}

// SyncInbox is what a spark runs on load. With AutoAccept every pending
// envelope is accepted without asking; failures are left for the next load.
// It returns the accepted items, newest share first.
func (r *SparkRegistry) SyncInbox(ctx context.Context, sparkID string) ([]models.ReceivedItem, error) {
	spark, err := r.lookup(sparkID)
	if err != nil {
		return nil, err
	}

	if spark.AcceptPolicy() == models.AcceptPolicyAuto {
		pending, err := r.mailbox.GetPendingSharedItems(ctx, sparkID)
		if err != nil {
			return nil, err
		}
		for _, envelope := range pending {
			if _, err := r.mailbox.AcceptSharedItem(ctx, envelope.ID); err != nil {
				r.log.WithError(err).WithFields(logrus.Fields{
					"spark_id":    sparkID,
					"envelope_id": envelope.ID,
				}).Warn("auto-accept failed, retrying on next load")
			}
		}
	}

	accepted, err := r.mailbox.GetAcceptedSharedItems(ctx, sparkID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(accepted))
	items := make([]models.ReceivedItem, 0, len(accepted))
	for _, envelope := range accepted {
		if seen[envelope.ID] {
			continue
		}
		seen[envelope.ID] = true
		items = append(items, models.ReceivedItem{
			EnvelopeID:   envelope.ID,
			OriginalID:   envelope.OriginalID,
			SparkID:      envelope.SparkID,
			SharedBy:     envelope.SharedByUserID,
			SharedByName: envelope.SharedByUserName,
			SharedAt:     envelope.SharedAt,
			Data:         envelope.ItemData,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].SharedAt.After(items[j].SharedAt) })
	return items, nil
}

// PendingInbox lists envelopes waiting for the caller's confirmation.
func (r *SparkRegistry) PendingInbox(ctx context.Context, sparkID string) ([]models.SharedItemEnvelope, error) {
	if _, err := r.lookup(sparkID); err != nil {
		return nil, err
	}
	return r.mailbox.GetPendingSharedItems(ctx, sparkID)
}

func (r *SparkRegistry) lookup(sparkID string) (ShareableSpark, error) {
	spark, ok := r.Spark(sparkID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSparkNotRegistered, sparkID)
	}
	return spark, nil
}

// MergeReceived merges received items into a spark's local collection. Items
// whose key is already present are skipped, and the result is ordered newest
// first by timestamp. The merged slice is for local use only; sparks do not
// write it back to the store as their own data.
func MergeReceived[T any](local []T, received []models.ReceivedItem, convert func(models.ReceivedItem) (T, bool), key func(T) string, timestamp func(T) time.Time) []T {
	merged := make([]T, 0, len(local)+len(received))
	seen := make(map[string]bool, len(local)+len(received))
	for _, item := range local {
		seen[key(item)] = true
		merged = append(merged, item)
	}
	for _, r := range received {
		item, ok := convert(r)
		if !ok {
			continue
		}
		k := key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, item)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return timestamp(merged[i]).After(timestamp(merged[j]))
	})
	return merged
}
