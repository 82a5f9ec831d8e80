package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dms-server/core/apperr"
	"dms-server/core/audit"
	"dms-server/core/store"
)

type UpdateUserInput struct {
	Email        string                 `json:"email"`
	Username     string                 `json:"username"`
	FullName     string                 `json:"fullName"`
	RoleID       string                 `json:"roleId"`
	DepartmentID store.Optional[string] `json:"departmentId"`
	Password     string                 `json:"password"`
}

func (s *Service) ListUsers(ctx context.Context, filter store.UserFilter) ([]store.User, int, error) {
	return s.users.List(ctx, filter)
}

func (s *Service) GetUser(ctx context.Context, id string) (*store.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

// UpdateUser applies the non-empty fields. departmentId may be null to
// detach the user from its department.
func (s *Service) UpdateUser(ctx context.Context, actor *Principal, id string, in UpdateUserInput) (*store.User, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return nil, err
	}
	var patch store.UserPatch
	if v := strings.TrimSpace(in.Email); v != "" {
		patch.Email = &v
	}
	if v := strings.TrimSpace(in.Username); v != "" {
		patch.Username = &v
	}
	if v := strings.TrimSpace(in.FullName); v != "" {
		patch.FullName = &v
	}
	if v := strings.TrimSpace(in.RoleID); v != "" {
		role, err := s.roles.GetByID(ctx, v)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, apperr.Validation("Invalid role")
		}
		patch.RoleID = &v
	}
	if in.DepartmentID.Set {
		if dept := emptyToNil(in.DepartmentID.Ptr()); dept != nil {
			patch.DepartmentID = dept
		} else {
			patch.ClearDepartment = true
		}
	}
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return nil, apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}
	if err := s.users.Update(ctx, id, patch); err != nil {
		return nil, userWriteError(err)
	}
	s.audit.Record(ctx, audit.Entry{UserID: actor.UserID(), Action: audit.ActionUserUpdate, Details: "Updated user " + id})
	return s.GetUser(ctx, id)
}

// DeleteUser fails with Conflict while the user still owns documents.
func (s *Service) DeleteUser(ctx context.Context, actor *Principal, id string) error {
	if actor.UserID() == id {
		return apperr.Validation("You cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrInvalidRef) {
			return apperr.Conflict("User still owns documents")
		}
		return userWriteError(err)
	}
	s.audit.Record(ctx, audit.Entry{UserID: actor.UserID(), Action: audit.ActionUserDelete, Details: "Deleted user " + id})
	return nil
}
