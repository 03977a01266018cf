// Package auth holds the authenticated caller of a request. The principal is
// passed through context.Context and handed to services explicitly.
package auth

import (
	"context"
	"slices"

	"github.com/Baaaki/gameshelf/internal/models"
)

type Principal struct {
	UserID     uint
	Email      string
	PublicName string
	Roles      []string
}

func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool {
	return p.HasRole(models.RoleAdmin)
}

// CanActFor reports whether the principal is the given user or an admin.
func (p *Principal) CanActFor(userID uint) bool {
	return p != nil && (p.UserID == userID || p.IsAdmin())
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal or nil for anonymous requests.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}

// FromUser builds a principal from a user with roles preloaded.
func FromUser(u *models.User) *Principal {
	return &Principal{
		UserID:     u.ID,
		Email:      u.Email,
		PublicName: u.PublicName,
		Roles:      u.RoleNames(),
	}
}
