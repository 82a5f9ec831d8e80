package auth

import (
	"context"

	"dms-server/core/access"
	"dms-server/core/store"
)

type contextKey string

const SessionContextKey contextKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	User *store.User
}

func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}

func (p *Principal) RoleName() string {
	if p == nil {
		return ""
	}
	return p.User.RoleName()
}

func (p *Principal) Roles() []string {
	if name := p.RoleName(); name != "" {
		return []string{name}
	}
	return nil
}

func (p *Principal) IsAdmin() bool {
	return p.RoleName() == access.AdminRole
}

func (p *Principal) Subject() access.Subject {
	if p == nil {
		return access.Subject{}
	}
	return access.SubjectOf(p.User)
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, SessionContextKey, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(SessionContextKey).(*Principal)
	return p, ok && p != nil && p.User != nil
}
