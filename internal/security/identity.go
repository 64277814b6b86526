package security

import (
	"context"
	"time"
)

// Identity is the verified caller attached to a request by the auth gateway.
type Identity struct {
	UserID    string
	Email     string
	IsAdmin   bool
	TokenID   string
	ExpiresAt time.Time
}

// CanActOn reports whether the caller may manage resources owned by ownerID.
func (i Identity) CanActOn(ownerID string) bool {
	return i.IsAdmin || (i.UserID != "" && i.UserID == ownerID)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
