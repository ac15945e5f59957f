package auth

import (
	"context"

	"github.com/google/uuid"
)

// AuthType records how a request was authenticated
type AuthType string

const (
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeJWT    AuthType = "jwt"
)

// SystemUserID identifies calls made with the system API key
var SystemUserID = uuid.Nil

// UserContext holds authenticated caller information
type UserContext struct {
	UserID   uuid.UUID
	Email    string
	AuthType AuthType
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// IsSystem reports whether the caller used the system API key
func (u *UserContext) IsSystem() bool {
	return u.AuthType == AuthTypeAPIKey
}

// CanAccessUser reports whether the caller may act on data owned by userID
func (u *UserContext) CanAccessUser(userID uuid.UUID) bool {
	return u.IsSystem() || u.UserID == userID
}
