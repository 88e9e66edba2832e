package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkshare-api/models"
	"sparkshare-api/repositories/memory"
	"sparkshare-api/utils"
)

type fakeRecorder struct {
	mu          sync.Mutex
	invitations int64
	envelopes   int64
	calls       int
}

func (r *fakeRecorder) SetPendingInvitations(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invitations = n
	r.calls++
}

func (r *fakeRecorder) SetPendingEnvelopes(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = n
}

func TestMailboxStatsJobCollect(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for i, status := range []models.InvitationStatus{
		models.InvitationStatusPending,
		models.InvitationStatusPending,
		models.InvitationStatusAccepted,
	} {
		require.NoError(t, store.Invitations.Create(ctx, &models.FriendInvitation{
			ID:         string(rune('a' + i)),
			FromUserID: "u1",
			ToEmail:    "b@x.com",
			Status:     status,
		}))
	}
	for i, status := range []models.SharedItemStatus{
		models.SharedItemStatusPending,
		models.SharedItemStatusRejected,
	} {
		require.NoError(t, store.SharedItems.Create(ctx, &models.SharedItemEnvelope{
			ID:               string(rune('a' + i)),
			SparkID:          "short-saver",
			SharedByUserID:   "u1",
			SharedWithUserID: "u2",
			Status:           status,
		}))
	}

	recorder := &fakeRecorder{}
	job, err := NewMailboxStatsJob(store, "@every 1h", time.Second, recorder, utils.DiscardLogger())
	require.NoError(t, err)

	require.NoError(t, job.Collect(ctx))
	assert.Equal(t, int64(2), recorder.invitations)
	assert.Equal(t, int64(1), recorder.envelopes)
}

func TestMailboxStatsJobStartCollectsImmediately(t *testing.T) {
	recorder := &fakeRecorder{}
	job, err := NewMailboxStatsJob(memory.NewStore(), "@every 1h", time.Second, recorder, utils.DiscardLogger())
	require.NoError(t, err)

	job.Start()
	job.Stop()

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, 1, recorder.calls)
}

func TestMailboxStatsJobRejectsBadSchedule(t *testing.T) {
	_, err := NewMailboxStatsJob(memory.NewStore(), "every now and then", time.Second, nil, utils.DiscardLogger())
	assert.Error(t, err)
}
