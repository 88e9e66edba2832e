package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sparkshare-api/models"
	"sparkshare-api/repositories"
	"sparkshare-api/repositories/memory"
	"sparkshare-api/utils"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) NotifyInvitation(_ context.Context, inv *models.FriendInvitation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, inv.ToEmail)
	return n.err
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	store       repositories.Store
	friendships *memory.FriendshipRepository
	notifier    *recordingNotifier
	friends     *FriendService
	shares      *ShareService
	users       *UserService
	registry    *SparkRegistry
}

func newFixture(t *testing.T, opts ShareServiceOptions) *fixture {
	t.Helper()

	friendships := memory.NewFriendshipRepository()
	store := repositories.Store{
		Users:       memory.NewUserRepository(),
		Invitations: memory.NewInvitationRepository(friendships),
		Friendships: friendships,
		SharedItems: memory.NewSharedItemRepository(),
	}
	log := utils.DiscardLogger()
	notifier := &recordingNotifier{}
	clk := newClock()

	friends := NewFriendService(store, ContextIdentity{}, notifier, log)
	friends.now = clk.Now
	shares := NewShareService(store, friends, ContextIdentity{}, opts, log)
	shares.now = clk.Now

	return &fixture{
		store:       store,
		friendships: friendships,
		notifier:    notifier,
		friends:     friends,
		shares:      shares,
		users:       NewUserService(store.Users, ContextIdentity{}, log),
		registry:    NewSparkRegistry(shares, log),
	}
}

func as(uid, email, name string) context.Context {
	return WithIdentity(context.Background(), &models.Identity{UID: uid, Email: email, DisplayName: name})
}

var (
	alice = as("u1", "a@x.com", "Alice")
	bob   = as("u2", "b@x.com", "Bob")
	carol = as("u3", "c@x.com", "Carol")
)

// signUp writes the profiles of the given callers.
func (f *fixture) signUp(t *testing.T, ctxs ...context.Context) {
	t.Helper()
	for _, ctx := range ctxs {
		_, err := f.users.SyncProfile(ctx)
		require.NoError(t, err)
	}
}

// befriend runs the invitation handshake between two callers.
func (f *fixture) befriend(t *testing.T, from, to context.Context) *models.Friendship {
	t.Helper()
	toEmail := ContextIdentity{}.CurrentUser(to).Email

	inv, err := f.friends.CreateInvitation(from, toEmail)
	require.NoError(t, err)
	friendship, err := f.friends.AcceptInvitation(to, inv.ID)
	require.NoError(t, err)
	return friendship
}

var errStoreDown = errors.New("store unavailable")

type failingInvitations struct {
	repositories.InvitationRepository
}

func (failingInvitations) ListByRecipient(context.Context, string, models.InvitationStatus) ([]models.FriendInvitation, error) {
	return nil, errStoreDown
}

// flakyAccepts fails the next failures accepts with err before delegating.
type flakyAccepts struct {
	repositories.InvitationRepository
	failures int
	err      error
}

func (r *flakyAccepts) Accept(ctx context.Context, id, toUserID string, respondedAt time.Time, friendship *models.Friendship) (*models.Friendship, bool, error) {
	if r.failures > 0 {
		r.failures--
		return nil, false, r.err
	}
	return r.InvitationRepository.Accept(ctx, id, toUserID, respondedAt, friendship)
}

type failingFriendships struct {
	repositories.FriendshipRepository
}

func (failingFriendships) ListByUserID1(context.Context, string) ([]models.Friendship, error) {
	return nil, errStoreDown
}

type failingSharedItems struct {
	repositories.SharedItemRepository
}

func (failingSharedItems) ListForRecipient(context.Context, string, string, models.SharedItemStatus) ([]models.SharedItemEnvelope, error) {
	return nil, errStoreDown
}

func (failingSharedItems) Create(context.Context, *models.SharedItemEnvelope) error {
	return errStoreDown
}
