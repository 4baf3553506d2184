package httpx

import (
	"context"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
)

// userKey is an unexported context key type to avoid collisions across packages.
type userKey struct{}

// SetUserInContext returns a child context that carries the authorized admin.
// If user is nil, the original ctx is returned unchanged.
func SetUserInContext(ctx context.Context, user *domainauth.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the admin the server-side guard authorized for this request.
func UserFromContext(ctx context.Context) (*domainauth.User, bool) {
	if u, ok := ctx.Value(userKey{}).(*domainauth.User); ok && u != nil {
		return u, true
	}
	return nil, false
}
