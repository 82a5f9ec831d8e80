// Package access resolves effective document rights from scoped
// permission rows.
package access

import (
	"context"

	"dms-server/core/apperr"
	"dms-server/core/store"
)

const AdminRole = "admin"

// Subject is the acting user with its role and department resolved.
type Subject struct {
	UserID       string
	RoleID       string
	RoleName     string
	DepartmentID *string
}

func SubjectOf(u *store.User) Subject {
	if u == nil {
		return Subject{}
	}
	return Subject{UserID: u.ID, RoleID: u.RoleID, RoleName: u.RoleName(), DepartmentID: u.DepartmentID}
}

func (s Subject) IsAdmin() bool {
	return s.RoleName == AdminRole
}

// ReadableFilter narrows listings to documents the subject may read.
// Admins get nil, meaning no narrowing.
func (s Subject) ReadableFilter() *store.Subject {
	if s.IsAdmin() {
		return nil
	}
	return &store.Subject{UserID: s.UserID, RoleID: s.RoleID, DepartmentID: s.DepartmentID}
}

type Rights struct {
	Read   bool `json:"canRead"`
	Write  bool `json:"canWrite"`
	Delete bool `json:"canDelete"`
}

var AllRights = Rights{Read: true, Write: true, Delete: true}

type Right int

const (
	Read Right = iota
	Write
	Delete
)

func (r Right) String() string {
	switch r {
	case Write:
		return "write"
	case Delete:
		return "delete"
	default:
		return "read"
	}
}

func (r Rights) Has(right Right) bool {
	switch right {
	case Read:
		return r.Read
	case Write:
		return r.Write
	case Delete:
		return r.Delete
	}
	return false
}

// Combine ORs every row that applies to the subject. No row means no rights.
func Combine(sub Subject, rows []store.Permission) Rights {
	if sub.IsAdmin() {
		return AllRights
	}
	var out Rights
	for _, row := range rows {
		if !appliesTo(sub, row) {
			continue
		}
		out.Read = out.Read || row.CanRead
		out.Write = out.Write || row.CanWrite
		out.Delete = out.Delete || row.CanDelete
	}
	return out
}

func appliesTo(sub Subject, row store.Permission) bool {
	for _, scope := range ScopesOf(row) {
		if scope.Matches(sub) {
			return true
		}
	}
	return false
}

type PermissionSource interface {
	Matching(ctx context.Context, docID string, sub store.Subject) ([]store.Permission, error)
}

type Resolver struct {
	perms PermissionSource
}

func NewResolver(perms PermissionSource) *Resolver {
	return &Resolver{perms: perms}
}

func (r *Resolver) Resolve(ctx context.Context, sub Subject, docID string) (Rights, error) {
	if sub.IsAdmin() {
		return AllRights, nil
	}
	rows, err := r.perms.Matching(ctx, docID, store.Subject{UserID: sub.UserID, RoleID: sub.RoleID, DepartmentID: sub.DepartmentID})
	if err != nil {
		return Rights{}, err
	}
	return Combine(sub, rows), nil
}

// Require fails with Forbidden when the subject lacks right on docID.
func (r *Resolver) Require(ctx context.Context, sub Subject, docID string, right Right) error {
	rights, err := r.Resolve(ctx, sub, docID)
	if err != nil {
		return err
	}
	if !rights.Has(right) {
		return apperr.Forbidden("You do not have " + right.String() + " access to this document")
	}
	return nil
}
