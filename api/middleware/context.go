package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/abex/clubes-abex/pkg/enums"
)

// Principal is the authenticated caller as established by Auth.
type Principal struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	Email    string
	AccessID string
}

type principalKey struct{}

type requestIDKey struct{}

// WithPrincipal stores p on ctx, replacing any previous caller.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller; false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func principal(ctx context.Context) Principal {
	p, _ := PrincipalFromContext(ctx)
	return p
}

// UserIDFromContext returns the caller id as a string, empty when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if id := principal(ctx).UserID; id != uuid.Nil {
		return id.String()
	}
	return ""
}

// UserUUIDFromContext returns the caller id; false when anonymous.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id := principal(ctx).UserID
	return id, id != uuid.Nil
}

func RoleFromContext(ctx context.Context) string {
	return string(principal(ctx).Role)
}

func EmailFromContext(ctx context.Context) string {
	return principal(ctx).Email
}

// WithUserID sets the caller id, keeping any role already present. A
// malformed id leaves the request anonymous.
func WithUserID(ctx context.Context, userID string) context.Context {
	p := principal(ctx)
	p.UserID, _ = uuid.Parse(userID)
	return WithPrincipal(ctx, p)
}

// WithRole sets the caller role, keeping any id already present.
func WithRole(ctx context.Context, role string) context.Context {
	p := principal(ctx)
	p.Role = enums.UserRole(role)
	return WithPrincipal(ctx, p)
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
