package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkshare-api/models"
)

type stubSpark struct {
	id       string
	policy   models.AcceptPolicy
	items    []models.ShareableItem
	registry *SparkRegistry
	shared   []string
}

func (s *stubSpark) SparkID() string                   { return s.id }
func (s *stubSpark) SharingModel() models.SharingModel { return models.SharingModelCopy }
func (s *stubSpark) AcceptPolicy() models.AcceptPolicy { return s.policy }

func (s *stubSpark) ShareableItems(context.Context) ([]models.ShareableItem, error) {
	return s.items, nil
}

func (s *stubSpark) OnShareItem(ctx context.Context, itemID, friendID string) error {
	for _, item := range s.items {
		if item.ID == itemID {
			s.shared = append(s.shared, itemID)
			_, err := s.registry.ShareItemCopy(ctx, s.id, itemID, friendID, item.Data)
			return err
		}
	}
	return ErrItemNotFound
}

func TestRegisterSparkLastWriterWins(t *testing.T) {
	f := newFixture(t, ShareServiceOptions{})

	f.registry.RegisterSpark(&stubSpark{id: "short-saver", policy: models.AcceptPolicyAuto})
	f.registry.RegisterSpark(&stubSpark{id: "bingo", policy: models.AcceptPolicyRequireConfirmation})
	f.registry.RegisterSpark(&stubSpark{id: "short-saver", policy: models.AcceptPolicyRequireConfirmation})

	sparks := f.registry.Sparks()
	require.Len(t, sparks, 2)
	assert.Equal(t, "bingo", sparks[0].SparkID)
	assert.Equal(t, "short-saver", sparks[1].SparkID)
	assert.Equal(t, models.AcceptPolicyRequireConfirmation, sparks[1].AcceptPolicy)
}

func TestRegistryShareItemDispatchesToSpark(t *testing.T) {
	f := newFixture(t, ShareServiceOptions{})
	f.signUp(t, alice, bob)

	spark := &stubSpark{
		id:       "short-saver",
		policy:   models.AcceptPolicyAuto,
		registry: f.registry,
		items:    []models.ShareableItem{{ID: "v1", Title: "Clip", SparkID: "short-saver", Data: models.JSONData{"title": "Clip"}}},
	}
	f.registry.RegisterSpark(spark)

	items, err := f.registry.ShareableItems(alice, "short-saver")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, f.registry.ShareItem(alice, "short-saver", "v1", "u2"))
	assert.Equal(t, []string{"v1"}, spark.shared)
	assert.ErrorIs(t, f.registry.ShareItem(alice, "short-saver", "v9", "u2"), ErrItemNotFound)
	assert.ErrorIs(t, f.registry.ShareItem(alice, "unknown", "v1", "u2"), ErrSparkNotRegistered)

	pending, err := f.shares.GetPendingSharedItems(bob, "short-saver")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSyncInboxAutoAccepts(t *testing.T) {
	f := newFixture(t, ShareServiceOptions{})
	f.signUp(t, alice, bob, carol)
	f.registry.RegisterSpark(&stubSpark{id: "short-saver", policy: models.AcceptPolicyAuto})

	first, err := f.registry.ShareItemCopy(alice, "short-saver", "v1", "u2", models.JSONData{"title": "One"})
	require.NoError(t, err)
	second, err := f.registry.ShareItemCopy(carol, "short-saver", "v7", "u2", models.JSONData{"title": "Two"})
	require.NoError(t, err)

	items, err := f.registry.SyncInbox(bob, "short-saver")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].EnvelopeID)
	assert.Equal(t, "Carol", items[0].SharedByName)
	assert.Equal(t, first.ID, items[1].EnvelopeID)
	assert.Equal(t, "u1", items[1].SharedBy)
	assert.Equal(t, models.JSONData{"title": "One"}, items[1].Data)

	// A second load sees the same items once each.
	again, err := f.registry.SyncInbox(bob, "short-saver")
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

func TestSyncInboxRequireConfirmation(t *testing.T) {
	f := newFixture(t, ShareServiceOptions{})
	f.signUp(t, alice, bob)
	f.registry.RegisterSpark(&stubSpark{id: "bingo", policy: models.AcceptPolicyRequireConfirmation})

	envelope, err := f.registry.ShareItemCopy(alice, "bingo", "card-1", "u2", models.JSONData{"cells": []interface{}{"a"}})
	require.NoError(t, err)

	items, err := f.registry.SyncInbox(bob, "bingo")
	require.NoError(t, err)
	assert.Empty(t, items)

	pending, err := f.registry.PendingInbox(bob, "bingo")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.shares.AcceptSharedItem(bob, envelope.ID)
	require.NoError(t, err)

	items, err = f.registry.SyncInbox(bob, "bingo")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSyncInboxUnknownSpark(t *testing.T) {
	f := newFixture(t, ShareServiceOptions{})
	_, err := f.registry.SyncInbox(bob, "nope")
	assert.ErrorIs(t, err, ErrSparkNotRegistered)
}

type note struct {
	id string
	at time.Time
}

func TestMergeReceived(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	local := []note{{id: "own-1", at: base.Add(time.Hour)}, {id: "own-2", at: base.Add(3 * time.Hour)}}
	received := []models.ReceivedItem{
		{EnvelopeID: "env-1", SharedAt: base.Add(2 * time.Hour)},
		{EnvelopeID: "env-1", SharedAt: base.Add(2 * time.Hour)},
		{EnvelopeID: "env-2", SharedAt: base.Add(4 * time.Hour)},
		{EnvelopeID: "skip", SharedAt: base},
	}

	merged := MergeReceived(local, received,
		func(r models.ReceivedItem) (note, bool) {
			return note{id: r.EnvelopeID, at: r.SharedAt}, r.EnvelopeID != "skip"
		},
		func(n note) string { return n.id },
		func(n note) time.Time { return n.at },
	)

	ids := make([]string, 0, len(merged))
	for _, n := range merged {
		ids = append(ids, n.id)
	}
	assert.Equal(t, []string{"env-2", "own-2", "env-1", "own-1"}, ids)
}
