package domain

import "context"

// Identity is the caller decoded from a verified token. A nil *Identity
// means the request is anonymous.
type Identity struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == RoleAdmin
}

type identityKey struct{}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the request identity, or nil when the request
// is anonymous.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// RequireAdmin allows only authenticated ADMIN identities.
func RequireAdmin(id *Identity) error {
	if id == nil {
		return ErrNotAuthenticated
	}
	if !id.IsAdmin() {
		return ErrNotAuthorized
	}
	return nil
}

// AuthorizeOwner allows ADMIN identities and the owner of the resource.
// An ownerID of zero never matches a caller.
func AuthorizeOwner(id *Identity, ownerID int64) error {
	if id == nil {
		return ErrNotAuthenticated
	}
	if id.IsAdmin() {
		return nil
	}
	if ownerID != 0 && id.UserID == ownerID {
		return nil
	}
	return ErrNotAuthorized
}
