package services

import (
	"context"

	"sparkshare-api/models"
)

// IdentityProvider supplies the authenticated caller. It returns nil when
// nobody is signed in.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) *models.Identity
}

type identityKey struct{}

// WithIdentity stores the caller on the context. The auth middleware calls it
// once per request.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// ContextIdentity reads the identity placed on the context by WithIdentity.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityKey{}).(*models.Identity)
	if identity == nil || identity.UID == "" {
		return nil
	}
	return identity
}

func currentUser(ctx context.Context, provider IdentityProvider) (*models.Identity, error) {
	me := provider.CurrentUser(ctx)
	if me == nil {
		return nil, ErrUnauthenticated
	}
	return me, nil
}
