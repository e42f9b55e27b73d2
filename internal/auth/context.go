package auth

import (
	"context"
	"time"

	"github.com/devfolio/apiserver/types"
)

type contextKey struct{}

// Principal is the authenticated identity attached to a request after the
// guard accepts it. It never carries the password hash.
type Principal struct {
	ID        int        `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username,omitempty"`
	FullName  string     `json:"fullName,omitempty"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	Role      types.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// PrincipalFromUser builds the sanitized principal for a stored user.
func PrincipalFromUser(user types.User) Principal {
	return Principal{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

func UserID(ctx context.Context) int {
	p, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return p.ID
}

func IsAdmin(ctx context.Context) bool {
	p, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return p.Role == types.RoleAdmin
}
