package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"dms-server/core/apperr"
	"dms-server/core/audit"
	"dms-server/core/store"
	"dms-server/core/utils"
)

const (
	defaultRole       = "user"
	minPasswordLength = 6
)

type RegisterInput struct {
	Email        string  `json:"email"`
	Username     string  `json:"username"`
	Password     string  `json:"password"`
	FullName     string  `json:"fullName"`
	RoleID       string  `json:"roleId"`
	DepartmentID *string `json:"departmentId"`
}

type LoginResult struct {
	User      *store.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type Service struct {
	users  store.UsersStore
	roles  store.RolesStore
	hasher Hasher
	tokens *TokenIssuer
	audit  *audit.Recorder
	logger *utils.Logger
}

func NewService(users store.UsersStore, roles store.RolesStore, hasher Hasher, tokens *TokenIssuer, rec *audit.Recorder, logger *utils.Logger) *Service {
	return &Service{users: users, roles: roles, hasher: hasher, tokens: tokens, audit: rec, logger: logger}
}

// Register creates an account. Without a role the user role is used; the
// admin role may only be assigned by an admin caller.
func (s *Service) Register(ctx context.Context, in RegisterInput, byAdmin bool) (*store.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, apperr.Validation("Email, username and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperr.Validation("Email is not valid")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	role, err := s.resolveRole(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	if role.Name == "admin" && !byAdmin {
		return nil, apperr.Forbidden("Only admins can create admin accounts")
	}
	exists, err := s.users.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("Email or username already exists")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &store.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		RoleID:       role.ID,
		DepartmentID: emptyToNil(in.DepartmentID),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, userWriteError(err)
	}
	s.audit.Record(ctx, audit.Entry{UserID: u.ID, Action: audit.ActionUserRegistered, Details: fmt.Sprintf("User %s registered", u.Username)})
	return s.users.GetByID(ctx, u.ID)
}

func (s *Service) resolveRole(ctx context.Context, roleID string) (*store.Role, error) {
	if strings.TrimSpace(roleID) == "" {
		role, err := s.roles.GetByName(ctx, defaultRole)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, apperr.Validation("Default role is missing; contact an administrator")
		}
		return role, nil
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apperr.Validation("Invalid role")
	}
	return role, nil
}

// Login accepts an email or a username.
func (s *Service) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	if strings.TrimSpace(login) == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}
	u, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if u == nil || !s.hasher.Compare(u.PasswordHash, password) {
		return nil, apperr.Unauthenticated("Invalid email or password")
	}
	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{UserID: u.ID, Action: audit.ActionUserLogin, Details: fmt.Sprintf("User %s logged in", u.Username)})
	return &LoginResult{User: u, Token: token, ExpiresAt: expires}, nil
}

// Authenticate turns a bearer token into a principal with a fresh user row.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, apperr.Unauthenticated("Invalid or expired token")
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthenticated("User no longer exists")
	}
	return &Principal{User: u}, nil
}

func (s *Service) Me(ctx context.Context, p *Principal) (*store.User, error) {
	if p == nil || p.User == nil {
		return nil, apperr.Unauthenticated("Authentication required")
	}
	return s.GetUser(ctx, p.User.ID)
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func userWriteError(err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("Email or username already exists")
	case errors.Is(err, store.ErrInvalidRef):
		return apperr.Validation("Referenced role or department does not exist")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("User not found")
	}
	return err
}
