package access

import "dms-server/core/store"

type ScopeKind int

const (
	UserScope ScopeKind = iota
	RoleScope
	DepartmentScope
)

func (k ScopeKind) String() string {
	switch k {
	case RoleScope:
		return "role"
	case DepartmentScope:
		return "department"
	default:
		return "user"
	}
}

// Scope is one grantee of a permission row.
type Scope struct {
	Kind ScopeKind
	ID   string
}

func (s Scope) Matches(sub Subject) bool {
	switch s.Kind {
	case UserScope:
		return s.ID == sub.UserID
	case RoleScope:
		return s.ID == sub.RoleID
	case DepartmentScope:
		return sub.DepartmentID != nil && s.ID == *sub.DepartmentID
	}
	return false
}

// ScopesOf lists the grantees a stored row names. Rows may name several.
func ScopesOf(p store.Permission) []Scope {
	out := make([]Scope, 0, 3)
	if p.UserID != nil && *p.UserID != "" {
		out = append(out, Scope{Kind: UserScope, ID: *p.UserID})
	}
	if p.RoleID != nil && *p.RoleID != "" {
		out = append(out, Scope{Kind: RoleScope, ID: *p.RoleID})
	}
	if p.DepartmentID != nil && *p.DepartmentID != "" {
		out = append(out, Scope{Kind: DepartmentScope, ID: *p.DepartmentID})
	}
	return out
}
