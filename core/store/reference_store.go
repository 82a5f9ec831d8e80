package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"dms-server/core/utils"
)

type RolesStore interface {
	List(ctx context.Context) ([]Role, error)
	GetByID(ctx context.Context, id string) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	Upsert(ctx context.Context, name string, description *string) (*Role, error)
}

// CatalogStore serves departments and categories, which share a shape.
type CatalogStore interface {
	List(ctx context.Context) ([]NamedEntity, error)
	Get(ctx context.Context, id string) (*NamedEntity, error)
	GetDetail(ctx context.Context, id string) (*NamedEntity, error)
	Create(ctx context.Context, name string, description *string) (*NamedEntity, error)
	Update(ctx context.Context, id string, name Optional[string], description Optional[string]) (*NamedEntity, error)
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, name string, description *string) (*NamedEntity, error)
}

type TagsStore interface {
	List(ctx context.Context) ([]Tag, error)
	GetDetail(ctx context.Context, id string) (*Tag, error)
	Create(ctx context.Context, name string) (*Tag, error)
	Delete(ctx context.Context, id string) error
}

type rolesStore struct {
	db *DB
}

func NewRolesStore(db *DB) RolesStore {
	return &rolesStore{db: db}
}

func (s *rolesStore) List(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
			(SELECT COUNT(*) FROM users u WHERE u.role_id=r.id)
		FROM roles r ORDER BY r.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Role{}
	for rows.Next() {
		var r Role
		var desc sql.NullString
		var users int
		if err := rows.Scan(&r.ID, &r.Name, &desc, &r.CreatedAt, &r.UpdatedAt, &users); err != nil {
			return nil, err
		}
		r.Description = stringPtr(desc)
		r.UserCount = &users
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *rolesStore) GetByID(ctx context.Context, id string) (*Role, error) {
	r, err := scanRole(s.db.QueryRowContext(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id=?`, id))
	if err != nil || r == nil {
		return r, err
	}
	users, err := listUserSummaries(ctx, s.db, `u.role_id=?`, id)
	if err != nil {
		return nil, err
	}
	r.Users = users
	return r, nil
}

func (s *rolesStore) GetByName(ctx context.Context, name string) (*Role, error) {
	return scanRole(s.db.QueryRowContext(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE name=?`, name))
}

func (s *rolesStore) Upsert(ctx context.Context, name string, description *string) (*Role, error) {
	now := utils.NowUTC()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO roles(id, name, description, created_at, updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(name) DO NOTHING`, NewID(), name, nullableString(description), now, now); err != nil {
		return nil, classify(err)
	}
	return s.GetByName(ctx, name)
}

func scanRole(row rowScanner) (*Role, error) {
	var r Role
	var desc sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &desc, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.Description = stringPtr(desc)
	return &r, nil
}

type catalogStore struct {
	db    *DB
	table string
	// withUsers is set for departments, which users belong to.
	withUsers bool
	docColumn string
	userCol   string
}

func NewDepartmentsStore(db *DB) CatalogStore {
	return &catalogStore{db: db, table: "departments", withUsers: true, docColumn: "department_id", userCol: "department_id"}
}

func NewCategoriesStore(db *DB) CatalogStore {
	return &catalogStore{db: db, table: "categories", docColumn: "category_id"}
}

func (s *catalogStore) List(ctx context.Context) ([]NamedEntity, error) {
	users := "0"
	if s.withUsers {
		users = `(SELECT COUNT(*) FROM users u WHERE u.` + s.userCol + `=t.id)`
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.created_at, t.updated_at,
			(SELECT COUNT(*) FROM documents d WHERE d.`+s.docColumn+`=t.id), `+users+`
		FROM `+s.table+` t ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []NamedEntity{}
	for rows.Next() {
		var e NamedEntity
		var desc sql.NullString
		var docs, members int
		if err := rows.Scan(&e.ID, &e.Name, &desc, &e.CreatedAt, &e.UpdatedAt, &docs, &members); err != nil {
			return nil, err
		}
		e.Description = stringPtr(desc)
		e.DocumentCount = &docs
		if s.withUsers {
			e.UserCount = &members
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s *catalogStore) Get(ctx context.Context, id string) (*NamedEntity, error) {
	return getNamed(ctx, s.db, s.table, id)
}

// GetDetail includes the active documents and, for departments, members.
func (s *catalogStore) GetDetail(ctx context.Context, id string) (*NamedEntity, error) {
	e, err := getNamed(ctx, s.db, s.table, id)
	if err != nil || e == nil {
		return e, err
	}
	docs, err := queryDocuments(ctx, s.db, ` WHERE d.`+s.docColumn+`=? AND d.is_active=? ORDER BY d.created_at DESC`, []any{id, true})
	if err != nil {
		return nil, err
	}
	e.Documents = docs
	if s.withUsers {
		users, err := listUserSummaries(ctx, s.db, `u.`+s.userCol+`=?`, id)
		if err != nil {
			return nil, err
		}
		e.Users = users
	}
	return e, nil
}

func (s *catalogStore) Create(ctx context.Context, name string, description *string) (*NamedEntity, error) {
	now := utils.NowUTC()
	e := &NamedEntity{ID: NewID(), Name: strings.TrimSpace(name), Description: description, CreatedAt: now, UpdatedAt: now}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO `+s.table+`(id, name, description, created_at, updated_at) VALUES(?,?,?,?,?)`,
		e.ID, e.Name, nullableString(description), now, now); err != nil {
		return nil, classify(err)
	}
	return e, nil
}

func (s *catalogStore) Update(ctx context.Context, id string, name Optional[string], description Optional[string]) (*NamedEntity, error) {
	sets := []string{}
	args := []any{}
	if name.Set {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(name.Value))
	}
	if description.Set {
		sets = append(sets, "description=?")
		args = append(args, nullableString(description.Ptr()))
	}
	sets = append(sets, "updated_at=?")
	args = append(args, utils.NowUTC(), id)
	res, err := s.db.ExecContext(ctx, `UPDATE `+s.table+` SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return nil, classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return getNamed(ctx, s.db, s.table, id)
}

func (s *catalogStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE id=?`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *catalogStore) Upsert(ctx context.Context, name string, description *string) (*NamedEntity, error) {
	now := utils.NowUTC()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO `+s.table+`(id, name, description, created_at, updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(name) DO NOTHING`, NewID(), name, nullableString(description), now, now); err != nil {
		return nil, classify(err)
	}
	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM `+s.table+` WHERE name=?`, name).Scan(&id); err != nil {
		return nil, err
	}
	return getNamed(ctx, s.db, s.table, id)
}

func getNamed(ctx context.Context, q querier, table, id string) (*NamedEntity, error) {
	var e NamedEntity
	var desc sql.NullString
	err := q.QueryRowContext(ctx, `SELECT id, name, description, created_at, updated_at FROM `+table+` WHERE id=?`, id).
		Scan(&e.ID, &e.Name, &desc, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.Description = stringPtr(desc)
	return &e, nil
}

func listUserSummaries(ctx context.Context, q querier, where string, args ...any) ([]UserSummary, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT u.id, u.username, u.full_name, u.email, r.id, r.name, r.description, r.created_at, r.updated_at
		FROM users u JOIN roles r ON r.id=u.role_id WHERE `+where+` ORDER BY u.username`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []UserSummary{}
	for rows.Next() {
		var u UserSummary
		var r Role
		var desc sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &r.ID, &r.Name, &desc, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Description = stringPtr(desc)
		u.Role = &r
		res = append(res, u)
	}
	return res, rows.Err()
}

type tagsStore struct {
	db *DB
}

func NewTagsStore(db *DB) TagsStore {
	return &tagsStore{db: db}
}

func (s *tagsStore) List(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, (SELECT COUNT(*) FROM document_tags dt WHERE dt.tag_id=t.id)
		FROM tags t ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Tag{}
	for rows.Next() {
		var t Tag
		var docs int
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &docs); err != nil {
			return nil, err
		}
		t.DocumentCount = &docs
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *tagsStore) GetDetail(ctx context.Context, id string) (*Tag, error) {
	var t Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE id=?`, id).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	docs, err := queryDocuments(ctx, s.db, `
		WHERE d.is_active=? AND EXISTS (SELECT 1 FROM document_tags dt WHERE dt.document_id=d.id AND dt.tag_id=?)
		ORDER BY d.created_at DESC`, []any{true, id})
	if err != nil {
		return nil, err
	}
	t.Documents = docs
	return &t, nil
}

func (s *tagsStore) Create(ctx context.Context, name string) (*Tag, error) {
	t := &Tag{ID: NewID(), Name: strings.TrimSpace(name), CreatedAt: utils.NowUTC()}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO tags(id, name, created_at) VALUES(?,?,?)`, t.ID, t.Name, t.CreatedAt); err != nil {
		return nil, classify(err)
	}
	return t, nil
}

func (s *tagsStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// resolveTags finds or creates each named tag. Names are trimmed and
// deduplicated; blanks are skipped.
func resolveTags(ctx context.Context, q querier, names []string) ([]Tag, error) {
	seen := map[string]bool{}
	res := []Tag{}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, err := q.ExecContext(ctx, `INSERT INTO tags(id, name, created_at) VALUES(?,?,?) ON CONFLICT(name) DO NOTHING`,
			NewID(), name, utils.NowUTC()); err != nil {
			return nil, classify(err)
		}
		var t Tag
		if err := q.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name=?`, name).Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func linkTags(ctx context.Context, q querier, docID string, tags []Tag) error {
	for _, t := range tags {
		if _, err := q.ExecContext(ctx, `INSERT INTO document_tags(document_id, tag_id) VALUES(?,?) ON CONFLICT DO NOTHING`, docID, t.ID); err != nil {
			return classify(err)
		}
	}
	return nil
}

func attachTags(ctx context.Context, q querier, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	idx := make(map[string]int, len(docs))
	args := make([]any, 0, len(docs))
	for i := range docs {
		idx[docs[i].ID] = i
		docs[i].Tags = []Tag{}
		args = append(args, docs[i].ID)
	}
	rows, err := q.QueryContext(ctx, `
		SELECT dt.document_id, t.id, t.name, t.created_at
		FROM document_tags dt JOIN tags t ON t.id=dt.tag_id
		WHERE dt.document_id IN (`+placeholders(len(args))+`) ORDER BY t.name`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var docID string
		var t Tag
		if err := rows.Scan(&docID, &t.ID, &t.Name, &t.CreatedAt); err != nil {
			return err
		}
		if i, ok := idx[docID]; ok {
			docs[i].Tags = append(docs[i].Tags, t)
		}
	}
	return rows.Err()
}
