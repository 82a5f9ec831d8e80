package store

import (
	"context"
	"database/sql"
	"strings"

	"dms-server/core/utils"
)

type PermissionPatch struct {
	CanRead   *bool
	CanWrite  *bool
	CanDelete *bool
}

type PermissionsStore interface {
	ListForDocument(ctx context.Context, docID string) ([]Permission, error)
	// Matching returns the rows of docID that name the subject by user,
	// role or department.
	Matching(ctx context.Context, docID string, sub Subject) ([]Permission, error)
	Get(ctx context.Context, id string) (*Permission, error)
	Create(ctx context.Context, p *Permission) error
	Update(ctx context.Context, id string, patch PermissionPatch) (*Permission, error)
	Delete(ctx context.Context, id string) error
}

type permissionsStore struct {
	db *DB
}

func NewPermissionsStore(db *DB) PermissionsStore {
	return &permissionsStore{db: db}
}

const permissionSelect = `
	SELECT p.id, p.document_id, p.user_id, p.role_id, p.department_id, p.can_read, p.can_write, p.can_delete, p.created_at, p.updated_at,
		u.id, u.username, u.full_name, u.email,
		r.id, r.name, r.description,
		dp.id, dp.name, dp.description
	FROM permissions p
	LEFT JOIN users u ON u.id=p.user_id
	LEFT JOIN roles r ON r.id=p.role_id
	LEFT JOIN departments dp ON dp.id=p.department_id`

func (s *permissionsStore) ListForDocument(ctx context.Context, docID string) ([]Permission, error) {
	return listPermissions(ctx, s.db, `p.document_id=?`, []any{docID})
}

func (s *permissionsStore) Matching(ctx context.Context, docID string, sub Subject) ([]Permission, error) {
	return listPermissions(ctx, s.db, `p.document_id=? AND (p.user_id=? OR p.role_id=? OR p.department_id=?)`,
		[]any{docID, sub.UserID, sub.RoleID, nullableString(sub.DepartmentID)})
}

func (s *permissionsStore) Get(ctx context.Context, id string) (*Permission, error) {
	res, err := listPermissions(ctx, s.db, `p.id=?`, []any{id})
	if err != nil || len(res) == 0 {
		return nil, err
	}
	return &res[0], nil
}

func (s *permissionsStore) Create(ctx context.Context, p *Permission) error {
	now := utils.NowUTC()
	if p.ID == "" {
		p.ID = NewID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permissions(id, document_id, user_id, role_id, department_id, can_read, can_write, can_delete, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.DocumentID, nullableString(p.UserID), nullableString(p.RoleID), nullableString(p.DepartmentID),
		p.CanRead, p.CanWrite, p.CanDelete, now, now)
	if err != nil {
		return classify(err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *permissionsStore) Update(ctx context.Context, id string, patch PermissionPatch) (*Permission, error) {
	sets := []string{}
	args := []any{}
	if patch.CanRead != nil {
		sets = append(sets, "can_read=?")
		args = append(args, *patch.CanRead)
	}
	if patch.CanWrite != nil {
		sets = append(sets, "can_write=?")
		args = append(args, *patch.CanWrite)
	}
	if patch.CanDelete != nil {
		sets = append(sets, "can_delete=?")
		args = append(args, *patch.CanDelete)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, utils.NowUTC(), id)
	res, err := s.db.ExecContext(ctx, `UPDATE permissions SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *permissionsStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM permissions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func listPermissions(ctx context.Context, q querier, where string, args []any) ([]Permission, error) {
	rows, err := q.QueryContext(ctx, permissionSelect+` WHERE `+where+` ORDER BY p.created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Permission{}
	for rows.Next() {
		var p Permission
		var userID, roleID, deptID sql.NullString
		var uID, uName, uFull, uEmail sql.NullString
		var rID, rName, rDesc sql.NullString
		var dID, dName, dDesc sql.NullString
		if err := rows.Scan(&p.ID, &p.DocumentID, &userID, &roleID, &deptID, &p.CanRead, &p.CanWrite, &p.CanDelete, &p.CreatedAt, &p.UpdatedAt,
			&uID, &uName, &uFull, &uEmail, &rID, &rName, &rDesc, &dID, &dName, &dDesc); err != nil {
			return nil, err
		}
		p.UserID = stringPtr(userID)
		p.RoleID = stringPtr(roleID)
		p.DepartmentID = stringPtr(deptID)
		p.User = summaryOf(uID, uName, uFull, uEmail)
		if rID.Valid {
			p.Role = &Role{ID: rID.String, Name: rName.String, Description: stringPtr(rDesc)}
		}
		if dID.Valid {
			p.Department = &Department{ID: dID.String, Name: dName.String, Description: stringPtr(dDesc)}
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
