// Package shortsaver is the short saver spark: a per-user list of saved video
// clips that can be shared with friends as value copies. Clips live in process
// memory; received clips are merged into the list on read and are never
// written back as the recipient's own.
package shortsaver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sparkshare-api/models"
	"sparkshare-api/services"
)

const SparkID = "short-saver"

var (
	ErrInvalidClip = errors.New("invalid clip")
	// ErrClipNotFound matches services.ErrItemNotFound so the registry's
	// share path reports a missing clip the same way.
	ErrClipNotFound = fmt.Errorf("clip: %w", services.ErrItemNotFound)
)

// Registry is the slice of services.SparkRegistry the spark depends on.
type Registry interface {
	RegisterSpark(spark services.ShareableSpark)
	ShareItemCopy(ctx context.Context, sparkID, itemID, friendID string, data models.JSONData) (*models.SharedItemEnvelope, error)
	SyncInbox(ctx context.Context, sparkID string) ([]models.ReceivedItem, error)
}

type Clip struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Note         string    `json:"note,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
	SharedBy     string    `json:"shared_by,omitempty"`
	SharedByName string    `json:"shared_by_name,omitempty"`
}

// Received reports whether the clip came from a friend.
func (c Clip) Received() bool {
	return c.SharedBy != ""
}

type SaveClipRequest struct {
	URL   string `json:"url" binding:"required"`
	Title string `json:"title"`
	Note  string `json:"note"`
}

type Spark struct {
	mu       sync.RWMutex
	clips    map[string][]Clip
	registry Registry
	identity services.IdentityProvider
	log      logrus.FieldLogger
	now      func() time.Time
}

// New builds the spark and registers it.
func New(registry Registry, identity services.IdentityProvider, log logrus.FieldLogger) *Spark {
	s := &Spark{
		clips:    make(map[string][]Clip),
		registry: registry,
		identity: identity,
		log:      log.WithField("spark_id", SparkID),
		now:      time.Now,
	}
	registry.RegisterSpark(s)
	return s
}

func (s *Spark) SparkID() string                   { return SparkID }
func (s *Spark) SharingModel() models.SharingModel { return models.SharingModelCopy }
func (s *Spark) AcceptPolicy() models.AcceptPolicy { return models.AcceptPolicyAuto }

func (s *Spark) ShareableItems(ctx context.Context) ([]models.ShareableItem, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	own := s.clips[userID]
	items := make([]models.ShareableItem, 0, len(own))
	for _, clip := range own {
		items = append(items, models.ShareableItem{
			ID:          clip.ID,
			Title:       clip.Title,
			Description: clip.Note,
			Preview:     clip.URL,
			SparkID:     SparkID,
			Data:        clip.data(),
		})
	}
	return items, nil
}

func (s *Spark) OnShareItem(ctx context.Context, itemID, friendID string) error {
	_, err := s.ShareClip(ctx, itemID, friendID)
	return err
}

// SaveClip stores a clip for the caller, newest first.
func (s *Spark) SaveClip(ctx context.Context, req SaveClipRequest) (*Clip, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	link := strings.TrimSpace(req.URL)
	parsed, err := url.ParseRequestURI(link)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: url must be an absolute http(s) link", ErrInvalidClip)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = link
	}

	clip := Clip{
		ID:      uuid.NewString(),
		URL:     link,
		Title:   title,
		Note:    strings.TrimSpace(req.Note),
		SavedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.clips[userID] = append([]Clip{clip}, s.clips[userID]...)
	s.mu.Unlock()

	// The shareable set changed.
	s.registry.RegisterSpark(s)
	return &clip, nil
}

// Clips returns the caller's own clips merged with clips friends shared.
// Inbox failures only drop the received part.
func (s *Spark) Clips(ctx context.Context) ([]Clip, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	own := append([]Clip(nil), s.clips[userID]...)
	s.mu.RUnlock()

	received, err := s.registry.SyncInbox(ctx, SparkID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("inbox sync failed")
		return own, nil
	}

	return services.MergeReceived(own, received, clipFromReceived,
		func(c Clip) string { return c.ID },
		func(c Clip) time.Time { return c.SavedAt },
	), nil
}

// ShareClip sends a value copy of one of the caller's own clips.
func (s *Spark) ShareClip(ctx context.Context, clipID, friendID string) (*models.SharedItemEnvelope, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	clip, ok := s.find(userID, clipID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
	}

	envelope, err := s.registry.ShareItemCopy(ctx, SparkID, clip.ID, friendID, clip.data())
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"envelope_id": envelope.ID,
	}).Info("clip shared")
	return envelope, nil
}

func (s *Spark) find(userID, clipID string) (Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, clip := range s.clips[userID] {
		if clip.ID == clipID {
			return clip, true
		}
	}
	return Clip{}, false
}

func (s *Spark) caller(ctx context.Context) (string, error) {
	me := s.identity.CurrentUser(ctx)
	if me == nil {
		return "", services.ErrUnauthenticated
	}
	return me.UID, nil
}

func (c Clip) data() models.JSONData {
	return models.JSONData{
		"url":      c.URL,
		"title":    c.Title,
		"note":     c.Note,
		"saved_at": c.SavedAt.Format(time.RFC3339Nano),
	}
}

// clipFromReceived rebuilds a clip from an envelope payload. The original
// id is kept so the same clip shared twice shows up once. Received clips
// sort by when they were shared.
func clipFromReceived(item models.ReceivedItem) (Clip, bool) {
	link, _ := item.Data["url"].(string)
	if link == "" {
		return Clip{}, false
	}
	title, _ := item.Data["title"].(string)
	note, _ := item.Data["note"].(string)

	return Clip{
		ID:           item.OriginalID,
		URL:          link,
		Title:        title,
		Note:         note,
		SavedAt:      item.SharedAt,
		SharedBy:     item.SharedBy,
		SharedByName: item.SharedByName,
	}, true
}
