package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkshare-api/models"
	"sparkshare-api/repositories"
)

func TestFriendshipCreateRejectsSecondPair(t *testing.T) {
	ctx := context.Background()
	repo := NewFriendshipRepository()

	first := &models.Friendship{ID: models.FriendshipID("u1", "u2"), UserID1: "u1", UserID2: "u2"}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.Friendship{ID: "other-id", UserID1: "u1", UserID2: "u2"}
	assert.ErrorIs(t, repo.Create(ctx, second), repositories.ErrDuplicate)
	assert.Equal(t, 1, repo.Count())
}

func TestFriendshipConcurrentCreateKeepsOne(t *testing.T) {
	ctx := context.Background()
	repo := NewFriendshipRepository()

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Create(ctx, &models.Friendship{ID: models.FriendshipID("u2", "u1"), UserID1: "u1", UserID2: "u2"})
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, repositories.ErrDuplicate)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.Count())
}

func TestInvitationResolveOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepository(NewFriendshipRepository())
	require.NoError(t, repo.Create(ctx, &models.FriendInvitation{ID: "i1", Status: models.InvitationStatusPending}))

	ok, err := repo.Resolve(ctx, "i1", models.InvitationStatusAccepted, "u2", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Resolve(ctx, "i1", models.InvitationStatusRejected, "u2", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	inv, err := repo.FindByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, inv.Status)
	require.NotNil(t, inv.ToUserID)
	assert.Equal(t, "u2", *inv.ToUserID)
}

func TestInvitationAcceptWritesFriendship(t *testing.T) {
	ctx := context.Background()
	friendships := NewFriendshipRepository()
	repo := NewInvitationRepository(friendships)
	require.NoError(t, repo.Create(ctx, &models.FriendInvitation{ID: "i1", Status: models.InvitationStatusPending}))
	require.NoError(t, repo.Create(ctx, &models.FriendInvitation{ID: "i2", Status: models.InvitationStatusPending}))

	pair := func() *models.Friendship {
		return &models.Friendship{ID: models.FriendshipID("u1", "u2"), UserID1: "u1", UserID2: "u2"}
	}

	stored, created, err := repo.Accept(ctx, "i1", "u2", time.Now(), pair())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "u1", stored.UserID1)

	// A second invitation for the same pair links to the existing friendship.
	again, created, err := repo.Accept(ctx, "i2", "u1", time.Now(), pair())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)
	assert.Equal(t, 1, friendships.Count())

	_, _, err = repo.Accept(ctx, "i1", "u2", time.Now(), pair())
	assert.ErrorIs(t, err, repositories.ErrConflict)
	_, _, err = repo.Accept(ctx, "missing", "u2", time.Now(), pair())
	assert.ErrorIs(t, err, repositories.ErrConflict)
}

func TestInvitationAcceptLeavesPendingOnFailure(t *testing.T) {
	ctx := context.Background()
	friendships := NewFriendshipRepository()
	repo := NewInvitationRepository(friendships)
	require.NoError(t, repo.Create(ctx, &models.FriendInvitation{ID: "i1", Status: models.InvitationStatusPending}))

	// Another pair already owns the id.
	require.NoError(t, friendships.Create(ctx, &models.Friendship{ID: "taken", UserID1: "u3", UserID2: "u4"}))

	_, _, err := repo.Accept(ctx, "i1", "u2", time.Now(), &models.Friendship{ID: "taken", UserID1: "u1", UserID2: "u2"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	inv, err := repo.FindByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, inv.Status)
	assert.Nil(t, inv.RespondedAt)
	assert.Equal(t, 1, friendships.Count())
}

func TestSharedItemStoreCopiesItemData(t *testing.T) {
	ctx := context.Background()
	repo := NewSharedItemRepository()

	data := models.JSONData{"title": "Clip"}
	require.NoError(t, repo.Create(ctx, &models.SharedItemEnvelope{ID: "e1", ItemData: data, Status: models.SharedItemStatusPending}))
	data["title"] = "Changed"

	got, err := repo.FindByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Clip", got.ItemData["title"])

	got.ItemData["title"] = "Mutated by reader"
	again, err := repo.FindByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Clip", again.ItemData["title"])
}

func TestUserUpsertKeepsEmailUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	require.NoError(t, repo.Upsert(ctx, &models.User{ID: "u1", Email: "a@x.com"}))
	require.NoError(t, repo.Upsert(ctx, &models.User{ID: "u1", Email: "a@x.com", DisplayName: "A"}))
	assert.ErrorIs(t, repo.Upsert(ctx, &models.User{ID: "u2", Email: "a@x.com"}), repositories.ErrDuplicate)

	u, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "A", u.DisplayName)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewUserRepository().FindByID(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}
