// Package memory keeps every collection in process memory. It backs the
// development server (STORE_DRIVER=memory) and the service tests, and it
// enforces the same uniqueness and conditional-write rules as the SQL store.
package memory

import (
	"context"
	"sync"
	"time"

	"sparkshare-api/models"
	"sparkshare-api/repositories"
)

// NewStore returns an empty in-memory store.
func NewStore() repositories.Store {
	friendships := NewFriendshipRepository()
	return repositories.Store{
		Users:       NewUserRepository(),
		Invitations: NewInvitationRepository(friendships),
		Friendships: friendships,
		SharedItems: NewSharedItemRepository(),
	}
}

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.User)}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.users {
		if id != user.ID && existing.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}

	now := time.Now()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

// InvitationRepository writes friendships through the given repository when
// an invitation is accepted.
type InvitationRepository struct {
	mu          sync.RWMutex
	invitations map[string]models.FriendInvitation
	friendships *FriendshipRepository
}

func NewInvitationRepository(friendships *FriendshipRepository) *InvitationRepository {
	return &InvitationRepository{
		invitations: make(map[string]models.FriendInvitation),
		friendships: friendships,
	}
}

func (r *InvitationRepository) Create(ctx context.Context, invitation *models.FriendInvitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invitations[invitation.ID]; ok {
		return repositories.ErrDuplicate
	}
	r.invitations[invitation.ID] = *invitation
	return nil
}

func (r *InvitationRepository) FindByID(ctx context.Context, id string) (*models.FriendInvitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	invitation, ok := r.invitations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &invitation, nil
}

func (r *InvitationRepository) FindPending(ctx context.Context, fromUserID, toEmail string) (*models.FriendInvitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, invitation := range r.invitations {
		if invitation.FromUserID == fromUserID && invitation.ToEmail == toEmail &&
			invitation.Status == models.InvitationStatusPending {
			inv := invitation
			return &inv, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *InvitationRepository) ListByRecipient(ctx context.Context, toEmail string, status models.InvitationStatus) ([]models.FriendInvitation, error) {
	return r.list(ctx, func(inv models.FriendInvitation) bool {
		return inv.ToEmail == toEmail && inv.Status == status
	})
}

func (r *InvitationRepository) ListBySender(ctx context.Context, fromUserID string, status models.InvitationStatus) ([]models.FriendInvitation, error) {
	return r.list(ctx, func(inv models.FriendInvitation) bool {
		return inv.FromUserID == fromUserID && inv.Status == status
	})
}

func (r *InvitationRepository) list(ctx context.Context, match func(models.FriendInvitation) bool) ([]models.FriendInvitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.FriendInvitation
	for _, invitation := range r.invitations {
		if match(invitation) {
			out = append(out, invitation)
		}
	}
	return out, nil
}

func (r *InvitationRepository) Resolve(ctx context.Context, id string, status models.InvitationStatus, toUserID string, respondedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	invitation, ok := r.invitations[id]
	if !ok || invitation.Status != models.InvitationStatusPending {
		return false, nil
	}
	invitation.Status = status
	invitation.ToUserID = &toUserID
	invitation.RespondedAt = &respondedAt
	r.invitations[id] = invitation
	return true, nil
}

// Accept holds the invitation lock across the friendship write, so the
// status change and the insert are seen together or not at all.
func (r *InvitationRepository) Accept(ctx context.Context, id, toUserID string, respondedAt time.Time, friendship *models.Friendship) (*models.Friendship, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	invitation, ok := r.invitations[id]
	if !ok || invitation.Status != models.InvitationStatusPending {
		return nil, false, repositories.ErrConflict
	}

	stored, created, err := r.friendships.findOrCreate(friendship)
	if err != nil {
		return nil, false, err
	}

	invitation.Status = models.InvitationStatusAccepted
	invitation.ToUserID = &toUserID
	invitation.RespondedAt = &respondedAt
	r.invitations[id] = invitation
	return stored, created, nil
}

func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invitations[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.invitations, id)
	return nil
}

func (r *InvitationRepository) CountByStatus(ctx context.Context, status models.InvitationStatus) (int64, error) {
	list, err := r.list(ctx, func(inv models.FriendInvitation) bool { return inv.Status == status })
	return int64(len(list)), err
}

type FriendshipRepository struct {
	mu          sync.RWMutex
	friendships map[string]models.Friendship
}

func NewFriendshipRepository() *FriendshipRepository {
	return &FriendshipRepository{friendships: make(map[string]models.Friendship)}
}

func (r *FriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.friendships[friendship.ID]; ok {
		return repositories.ErrDuplicate
	}
	for _, existing := range r.friendships {
		if existing.UserID1 == friendship.UserID1 && existing.UserID2 == friendship.UserID2 {
			return repositories.ErrDuplicate
		}
	}
	r.friendships[friendship.ID] = *friendship
	return nil
}

func (r *FriendshipRepository) findOrCreate(friendship *models.Friendship) (*models.Friendship, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.friendships {
		if existing.UserID1 == friendship.UserID1 && existing.UserID2 == friendship.UserID2 {
			f := existing
			return &f, false, nil
		}
	}
	if _, ok := r.friendships[friendship.ID]; ok {
		return nil, false, repositories.ErrDuplicate
	}
	r.friendships[friendship.ID] = *friendship
	stored := *friendship
	return &stored, true, nil
}

func (r *FriendshipRepository) FindByPair(ctx context.Context, userID1, userID2 string) (*models.Friendship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, friendship := range r.friendships {
		if friendship.UserID1 == userID1 && friendship.UserID2 == userID2 {
			f := friendship
			return &f, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *FriendshipRepository) ListByUserID1(ctx context.Context, userID string) ([]models.Friendship, error) {
	return r.list(ctx, func(f models.Friendship) bool { return f.UserID1 == userID })
}

func (r *FriendshipRepository) ListByUserID2(ctx context.Context, userID string) ([]models.Friendship, error) {
	return r.list(ctx, func(f models.Friendship) bool { return f.UserID2 == userID })
}

func (r *FriendshipRepository) list(ctx context.Context, match func(models.Friendship) bool) ([]models.Friendship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Friendship
	for _, friendship := range r.friendships {
		if match(friendship) {
			out = append(out, friendship)
		}
	}
	return out, nil
}

func (r *FriendshipRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.friendships[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.friendships, id)
	return nil
}

// Count returns the number of stored friendships.
func (r *FriendshipRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.friendships)
}

type SharedItemRepository struct {
	mu        sync.RWMutex
	envelopes map[string]models.SharedItemEnvelope
}

func NewSharedItemRepository() *SharedItemRepository {
	return &SharedItemRepository{envelopes: make(map[string]models.SharedItemEnvelope)}
}

func (r *SharedItemRepository) Create(ctx context.Context, envelope *models.SharedItemEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, err := copyEnvelope(*envelope)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.envelopes[envelope.ID]; ok {
		return repositories.ErrDuplicate
	}
	r.envelopes[envelope.ID] = stored
	return nil
}

func (r *SharedItemRepository) FindByID(ctx context.Context, id string) (*models.SharedItemEnvelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	envelope, ok := r.envelopes[id]
	r.mu.RUnlock()

	if !ok {
		return nil, repositories.ErrNotFound
	}
	out, err := copyEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SharedItemRepository) ListForRecipient(ctx context.Context, userID, sparkID string, status models.SharedItemStatus) ([]models.SharedItemEnvelope, error) {
	return r.list(ctx, func(e models.SharedItemEnvelope) bool {
		return e.SharedWithUserID == userID && e.SparkID == sparkID && e.Status == status
	})
}

func (r *SharedItemRepository) ListBySender(ctx context.Context, userID, sparkID string) ([]models.SharedItemEnvelope, error) {
	return r.list(ctx, func(e models.SharedItemEnvelope) bool {
		return e.SharedByUserID == userID && e.SparkID == sparkID
	})
}

func (r *SharedItemRepository) list(ctx context.Context, match func(models.SharedItemEnvelope) bool) ([]models.SharedItemEnvelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.SharedItemEnvelope
	for _, envelope := range r.envelopes {
		if !match(envelope) {
			continue
		}
		e, err := copyEnvelope(envelope)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SharedItemRepository) UpdateStatus(ctx context.Context, id string, from, to models.SharedItemStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	envelope, ok := r.envelopes[id]
	if !ok || envelope.Status != from {
		return false, nil
	}
	envelope.Status = to
	r.envelopes[id] = envelope
	return true, nil
}

func (r *SharedItemRepository) CountByStatus(ctx context.Context, status models.SharedItemStatus) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, envelope := range r.envelopes {
		if envelope.Status == status {
			count++
		}
	}
	return count, nil
}

// copyEnvelope detaches ItemData so callers never share maps with the store.
func copyEnvelope(e models.SharedItemEnvelope) (models.SharedItemEnvelope, error) {
	data, err := e.ItemData.Clone()
	if err != nil {
		return models.SharedItemEnvelope{}, err
	}
	e.ItemData = data
	return e, nil
}
