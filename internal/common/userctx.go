package common

import (
	"context"
	"strings"
)

// UserContext holds per-request identity and preferences resolved from a
// bearer token or X-Folio-* headers.
type UserContext struct {
	UserID          string
	DisplayCurrency string
}

type contextKey int

const userContextKey contextKey = iota

// DefaultUserID scopes storage when a request carries no identity.
const DefaultUserID = "default"

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or DefaultUserID when no user context is present.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.UserID != "" {
		return uc.UserID
	}
	return DefaultUserID
}

// ResolveDisplayCurrency returns the user-context display currency when it
// looks like an ISO code, otherwise fallback.
func ResolveDisplayCurrency(ctx context.Context, fallback string) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.DisplayCurrency != "" {
		dc := strings.ToUpper(strings.TrimSpace(uc.DisplayCurrency))
		if len(dc) == 3 {
			return dc
		}
	}
	return fallback
}
