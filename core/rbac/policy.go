package rbac

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission string

const (
	PermDocumentsView     Permission = "documents.view"
	PermDocumentsManage   Permission = "documents.manage"
	PermVersionsManage    Permission = "documents.versions"
	PermPermissionsManage Permission = "documents.permissions"
	PermCheckoutsManage   Permission = "documents.checkout"
	PermCatalogView       Permission = "catalog.view"
	PermCatalogManage     Permission = "catalog.manage"
	PermUsersView         Permission = "users.view"
	PermUsersManage       Permission = "users.manage"
	PermAuditView         Permission = "audit.view"
	PermAuthRegisterAdmin Permission = "auth.register_admin"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj)
`

// DefaultRoles maps role names to permission patterns. Document level
// checks happen per row in core/access; these only gate routes.
func DefaultRoles() map[string][]string {
	member := []string{"documents.*", string(PermCatalogView), string(PermUsersView)}
	return map[string][]string{
		RoleAdmin:   {"*"},
		RoleManager: member,
		RoleUser:    member,
	}
}

type Policy struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

func NewPolicy(roles map[string][]string) (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	for role, perms := range roles {
		for _, p := range perms {
			if _, err := e.AddPolicy(role, p); err != nil {
				return nil, fmt.Errorf("rbac policy %s/%s: %w", role, p, err)
			}
		}
	}
	return &Policy{enforcer: e}, nil
}

// Allowed reports whether any of roles grants perm.
func (p *Policy) Allowed(roles []string, perm Permission) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, role := range roles {
		ok, err := p.enforcer.Enforce(role, string(perm))
		if err == nil && ok {
			return true
		}
	}
	return false
}
