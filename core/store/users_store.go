package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"dms-server/core/utils"
)

type UserFilter struct {
	DepartmentID string
	RoleID       string
	Search       string
	Limit        int
	Offset       int
}

// UserPatch carries only the fields that should change.
type UserPatch struct {
	Email           *string
	Username        *string
	FullName        *string
	RoleID          *string
	DepartmentID    *string
	ClearDepartment bool
	PasswordHash    *string
}

type UsersStore interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	FindByLogin(ctx context.Context, login string) (*User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]User, int, error)
	Update(ctx context.Context, id string, patch UserPatch) error
	Delete(ctx context.Context, id string) error
}

type usersStore struct {
	db *DB
}

func NewUsersStore(db *DB) UsersStore {
	return &usersStore{db: db}
}

const userSelect = `
	SELECT u.id, u.email, u.username, u.password_hash, u.full_name, u.role_id, u.department_id, u.created_at, u.updated_at,
		r.id, r.name, r.description, r.created_at, r.updated_at,
		d.id, d.name, d.description
	FROM users u
	JOIN roles r ON r.id=u.role_id
	LEFT JOIN departments d ON d.id=u.department_id`

func (s *usersStore) Create(ctx context.Context, u *User) error {
	now := utils.NowUTC()
	if u.ID == "" {
		u.ID = NewID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users(id, email, username, password_hash, full_name, role_id, department_id, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		u.ID, strings.TrimSpace(u.Email), strings.TrimSpace(u.Username), u.PasswordHash, u.FullName, u.RoleID, nullableString(u.DepartmentID), now, now)
	if err != nil {
		return classify(err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (s *usersStore) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE u.id=?`, id))
	if err != nil || u == nil {
		return u, err
	}
	var docs int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE owner_id=?`, id).Scan(&docs); err != nil {
		return nil, err
	}
	u.DocumentCount = &docs
	return u, nil
}

func (s *usersStore) FindByLogin(ctx context.Context, login string) (*User, error) {
	login = strings.TrimSpace(login)
	return scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE u.email=? OR u.username=?`, login, login))
}

func (s *usersStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email=? OR username=?`, strings.TrimSpace(email), strings.TrimSpace(username)).Scan(&n)
	return n > 0, err
}

func (s *usersStore) List(ctx context.Context, filter UserFilter) ([]User, int, error) {
	clauses := []string{}
	args := []any{}
	if filter.DepartmentID != "" {
		clauses = append(clauses, "u.department_id=?")
		args = append(args, filter.DepartmentID)
	}
	if filter.RoleID != "" {
		clauses = append(clauses, "u.role_id=?")
		args = append(args, filter.RoleID)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		clauses = append(clauses, "(LOWER(u.username) LIKE ? OR LOWER(u.email) LIKE ? OR LOWER(u.full_name) LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, userSelect+where+` ORDER BY u.created_at DESC`+pageClause(filter.Limit, filter.Offset), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	res := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, *u)
	}
	return res, total, rows.Err()
}

func (s *usersStore) Update(ctx context.Context, id string, patch UserPatch) error {
	sets := []string{}
	args := []any{}
	if patch.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.TrimSpace(*patch.Email))
	}
	if patch.Username != nil {
		sets = append(sets, "username=?")
		args = append(args, strings.TrimSpace(*patch.Username))
	}
	if patch.FullName != nil {
		sets = append(sets, "full_name=?")
		args = append(args, *patch.FullName)
	}
	if patch.RoleID != nil {
		sets = append(sets, "role_id=?")
		args = append(args, *patch.RoleID)
	}
	if patch.ClearDepartment {
		sets = append(sets, "department_id=NULL")
	} else if patch.DepartmentID != nil {
		sets = append(sets, "department_id=?")
		args = append(args, *patch.DepartmentID)
	}
	if patch.PasswordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *patch.PasswordHash)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, utils.NowUTC(), id)
	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *usersStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var role Role
	var deptID, deptName, deptDesc, userDept, roleDesc sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName, &u.RoleID, &userDept, &u.CreatedAt, &u.UpdatedAt,
		&role.ID, &role.Name, &roleDesc, &role.CreatedAt, &role.UpdatedAt,
		&deptID, &deptName, &deptDesc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.DepartmentID = stringPtr(userDept)
	role.Description = stringPtr(roleDesc)
	u.Role = &role
	if deptID.Valid {
		u.Department = &Department{ID: deptID.String, Name: deptName.String, Description: stringPtr(deptDesc)}
	}
	return &u, nil
}

func summaryOf(id, username, fullName, email sql.NullString) *UserSummary {
	if !id.Valid {
		return nil
	}
	return &UserSummary{ID: id.String, Username: username.String, FullName: fullName.String, Email: email.String}
}
