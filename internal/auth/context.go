package auth

import "context"

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// UserContext is the authenticated caller, taken from the bearer token.
type UserContext struct {
	UserID   string
	Username string
	Role     string
}

type ctxKey struct{}

func WithUser(ctx context.Context, u *UserContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) (*UserContext, bool) {
	u, ok := ctx.Value(ctxKey{}).(*UserContext)
	return u, ok && u != nil
}

// GetUserID returns the acting user id, or "" for unauthenticated contexts.
func GetUserID(ctx context.Context) string {
	if u, ok := FromContext(ctx); ok {
		return u.UserID
	}
	return ""
}

func (u *UserContext) HasRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
