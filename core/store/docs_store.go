package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dms-server/core/utils"
)

// Subject identifies who is asking when a listing must be narrowed to
// readable documents.
type Subject struct {
	UserID       string
	RoleID       string
	DepartmentID *string
}

type DocumentFilter struct {
	CategoryID   string
	DepartmentID string
	TagID        string
	Search       string
	// ReadableBy narrows to active documents the subject may read. Nil
	// lists everything active.
	ReadableBy *Subject
	Limit      int
	Offset     int
}

type NewDocument struct {
	Title        string
	Description  *string
	File         FileRef
	CategoryID   *string
	DepartmentID *string
	OwnerID      string
	Tags         []string
	ChangeNote   string
	// OwnerGrant adds an all-rights permission row for the owner.
	OwnerGrant bool
}

type DocumentPatch struct {
	Title        Optional[string]
	Description  Optional[string]
	CategoryID   Optional[string]
	DepartmentID Optional[string]
	// Tags replaces the full tag set when Set. Null clears.
	Tags Optional[[]string]
}

func (p DocumentPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.CategoryID.Set && !p.DepartmentID.Set && !p.Tags.Set
}

type NewVersion struct {
	DocumentID string
	File       FileRef
	// ChangeNote defaults to "Version N".
	ChangeNote *string
	CreatedBy  string
}

type DocsStore interface {
	CreateDocument(ctx context.Context, in NewDocument) (*Document, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	LoadDetail(ctx context.Context, doc *Document, versionLimit int) error
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, int, error)
	UpdateDocument(ctx context.Context, id string, patch DocumentPatch) error
	SoftDeleteDocument(ctx context.Context, id string) error

	AddVersion(ctx context.Context, in NewVersion) (*Version, error)
	GetVersion(ctx context.Context, id string) (*Version, error)
	ListVersions(ctx context.Context, docID string, limit int) ([]Version, error)
	ApplyVersionFile(ctx context.Context, docID string, file FileRef) error
}

type docsStore struct {
	db *DB
}

func NewDocsStore(db *DB) DocsStore {
	return &docsStore{db: db}
}

const documentColumns = `d.id, d.title, d.description, d.file_name, d.file_url, d.file_size, d.mime_type, d.version,
	d.category_id, d.department_id, d.owner_id, d.is_active, d.created_at, d.updated_at`

const documentListSelect = `
	SELECT ` + documentColumns + `,
		c.id, c.name, c.description, dp.id, dp.name, dp.description,
		o.id, o.username, o.full_name, o.email,
		(SELECT COUNT(*) FROM versions v WHERE v.document_id=d.id),
		(SELECT COUNT(*) FROM permissions p WHERE p.document_id=d.id)
	FROM documents d
	LEFT JOIN categories c ON c.id=d.category_id
	LEFT JOIN departments dp ON dp.id=d.department_id
	LEFT JOIN users o ON o.id=d.owner_id`

func (s *docsStore) CreateDocument(ctx context.Context, in NewDocument) (*Document, error) {
	now := utils.NowUTC()
	doc := &Document{
		ID:           NewID(),
		Title:        in.Title,
		Description:  in.Description,
		FileName:     in.File.FileName,
		FileURL:      in.File.FileURL,
		FileSize:     in.File.FileSize,
		MimeType:     in.File.MimeType,
		Version:      1,
		CategoryID:   in.CategoryID,
		DepartmentID: in.DepartmentID,
		OwnerID:      in.OwnerID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.db.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents(id, title, description, file_name, file_url, file_size, mime_type, version, category_id, department_id, owner_id, is_active, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			doc.ID, doc.Title, nullableString(doc.Description), doc.FileName, doc.FileURL, doc.FileSize, doc.MimeType, doc.Version,
			nullableString(doc.CategoryID), nullableString(doc.DepartmentID), doc.OwnerID, true, now, now); err != nil {
			return classify(err)
		}
		tags, err := resolveTags(ctx, tx, in.Tags)
		if err != nil {
			return err
		}
		if err := linkTags(ctx, tx, doc.ID, tags); err != nil {
			return err
		}
		doc.Tags = tags
		note := in.ChangeNote
		if note == "" {
			note = "Initial version"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO versions(id, document_id, version, file_name, file_url, file_size, mime_type, change_note, created_by, created_at)
			VALUES(?,?,?,?,?,?,?,?,?,?)`,
			NewID(), doc.ID, 1, doc.FileName, doc.FileURL, doc.FileSize, doc.MimeType, note, in.OwnerID, now); err != nil {
			return classify(err)
		}
		if in.OwnerGrant {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO permissions(id, document_id, user_id, can_read, can_write, can_delete, created_at, updated_at)
				VALUES(?,?,?,?,?,?,?,?)`,
				NewID(), doc.ID, in.OwnerID, true, true, true, now, now); err != nil {
				return classify(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *docsStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.id=?`, id)
	return scanDocument(row)
}

// LoadDetail attaches category, department, owner, tags, the newest
// versions and the permission rows.
func (s *docsStore) LoadDetail(ctx context.Context, doc *Document, versionLimit int) error {
	if doc.CategoryID != nil {
		c, err := getNamed(ctx, s.db, "categories", *doc.CategoryID)
		if err != nil {
			return err
		}
		doc.Category = c
	}
	if doc.DepartmentID != nil {
		d, err := getNamed(ctx, s.db, "departments", *doc.DepartmentID)
		if err != nil {
			return err
		}
		doc.Department = d
	}
	var id, username, fullName, email sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, username, full_name, email FROM users WHERE id=?`, doc.OwnerID).
		Scan(&id, &username, &fullName, &email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	doc.Owner = summaryOf(id, username, fullName, email)

	docs := []Document{*doc}
	if err := attachTags(ctx, s.db, docs); err != nil {
		return err
	}
	doc.Tags = docs[0].Tags

	versions, err := s.ListVersions(ctx, doc.ID, versionLimit)
	if err != nil {
		return err
	}
	doc.Versions = versions
	perms, err := listPermissions(ctx, s.db, `p.document_id=?`, []any{doc.ID})
	if err != nil {
		return err
	}
	doc.Permissions = perms
	return nil
}

func (s *docsStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, int, error) {
	clauses := []string{"d.is_active=?"}
	args := []any{true}
	if filter.CategoryID != "" {
		clauses = append(clauses, "d.category_id=?")
		args = append(args, filter.CategoryID)
	}
	if filter.DepartmentID != "" {
		clauses = append(clauses, "d.department_id=?")
		args = append(args, filter.DepartmentID)
	}
	if filter.TagID != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM document_tags dt WHERE dt.document_id=d.id AND dt.tag_id=?)")
		args = append(args, filter.TagID)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		like := "%" + q + "%"
		clauses = append(clauses, "(LOWER(d.title) LIKE ? OR LOWER(COALESCE(d.description, '')) LIKE ?)")
		args = append(args, like, like)
	}
	if sub := filter.ReadableBy; sub != nil {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM permissions rp WHERE rp.document_id=d.id AND rp.can_read=?
			AND (rp.user_id=? OR rp.role_id=? OR rp.department_id=?))`)
		args = append(args, true, sub.UserID, sub.RoleID, nullableString(sub.DepartmentID))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents d`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	docs, err := queryDocuments(ctx, s.db, where+` ORDER BY d.created_at DESC`+pageClause(filter.Limit, filter.Offset), args)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (s *docsStore) UpdateDocument(ctx context.Context, id string, patch DocumentPatch) error {
	sets := []string{}
	args := []any{}
	if patch.Title.Set {
		sets = append(sets, "title=?")
		args = append(args, patch.Title.Value)
	}
	if patch.Description.Set {
		sets = append(sets, "description=?")
		args = append(args, nullableString(patch.Description.Ptr()))
	}
	if patch.CategoryID.Set {
		sets = append(sets, "category_id=?")
		args = append(args, nullableString(patch.CategoryID.Ptr()))
	}
	if patch.DepartmentID.Set {
		sets = append(sets, "department_id=?")
		args = append(args, nullableString(patch.DepartmentID.Ptr()))
	}
	sets = append(sets, "updated_at=?")
	args = append(args, utils.NowUTC(), id)
	return s.db.InTx(ctx, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE documents SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
		if err != nil {
			return classify(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if !patch.Tags.Set {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id=?`, id); err != nil {
			return err
		}
		tags, err := resolveTags(ctx, tx, patch.Tags.Value)
		if err != nil {
			return err
		}
		return linkTags(ctx, tx, id, tags)
	})
}

func (s *docsStore) SoftDeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET is_active=?, updated_at=? WHERE id=?`, false, utils.NowUTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddVersion bumps the document counter and records the new row in one
// transaction so concurrent writers never share a number.
func (s *docsStore) AddVersion(ctx context.Context, in NewVersion) (*Version, error) {
	now := utils.NowUTC()
	v := &Version{
		ID:         NewID(),
		DocumentID: in.DocumentID,
		FileName:   in.File.FileName,
		FileURL:    in.File.FileURL,
		FileSize:   in.File.FileSize,
		MimeType:   in.File.MimeType,
		ChangeNote: in.ChangeNote,
		CreatedBy:  in.CreatedBy,
		CreatedAt:  now,
	}
	err := s.db.InTx(ctx, func(tx *Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE documents SET version=version+1, file_name=?, file_url=?, file_size=?, mime_type=?, updated_at=?
			WHERE id=? RETURNING version`,
			v.FileName, v.FileURL, v.FileSize, v.MimeType, now, in.DocumentID).Scan(&v.Version)
		if err != nil {
			return classify(err)
		}
		if v.ChangeNote == nil {
			note := fmt.Sprintf("Version %d", v.Version)
			v.ChangeNote = &note
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO versions(id, document_id, version, file_name, file_url, file_size, mime_type, change_note, created_by, created_at)
			VALUES(?,?,?,?,?,?,?,?,?,?)`,
			v.ID, v.DocumentID, v.Version, v.FileName, v.FileURL, v.FileSize, v.MimeType, nullableString(v.ChangeNote), v.CreatedBy, now); err != nil {
			return classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

const versionSelect = `
	SELECT v.id, v.document_id, v.version, v.file_name, v.file_url, v.file_size, v.mime_type, v.change_note, v.created_by, v.created_at, d.title
	FROM versions v JOIN documents d ON d.id=v.document_id`

func (s *docsStore) GetVersion(ctx context.Context, id string) (*Version, error) {
	return scanVersion(s.db.QueryRowContext(ctx, versionSelect+` WHERE v.id=?`, id))
}

// ListVersions returns newest first. A limit of zero returns every row.
func (s *docsStore) ListVersions(ctx context.Context, docID string, limit int) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, versionSelect+` WHERE v.document_id=? ORDER BY v.version DESC`+pageClause(limit, 0), docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *v)
	}
	return res, rows.Err()
}

// ApplyVersionFile points the document at another file without touching
// the version counter.
func (s *docsStore) ApplyVersionFile(ctx context.Context, docID string, file FileRef) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET file_name=?, file_url=?, file_size=?, mime_type=?, updated_at=? WHERE id=?`,
		file.FileName, file.FileURL, file.FileSize, file.MimeType, utils.NowUTC(), docID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var desc, cat, dept sql.NullString
	if err := row.Scan(&d.ID, &d.Title, &desc, &d.FileName, &d.FileURL, &d.FileSize, &d.MimeType, &d.Version,
		&cat, &dept, &d.OwnerID, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.Description = stringPtr(desc)
	d.CategoryID = stringPtr(cat)
	d.DepartmentID = stringPtr(dept)
	return &d, nil
}

func scanVersion(row rowScanner) (*Version, error) {
	var v Version
	var note sql.NullString
	var title string
	if err := row.Scan(&v.ID, &v.DocumentID, &v.Version, &v.FileName, &v.FileURL, &v.FileSize, &v.MimeType, &note, &v.CreatedBy, &v.CreatedAt, &title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	v.ChangeNote = stringPtr(note)
	v.Document = &DocumentRef{ID: v.DocumentID, Title: title}
	return &v, nil
}

// queryDocuments runs documentListSelect with the given tail and attaches tags.
func queryDocuments(ctx context.Context, q querier, tail string, args []any) ([]Document, error) {
	rows, err := q.QueryContext(ctx, documentListSelect+tail, args...)
	if err != nil {
		return nil, err
	}
	res := []Document{}
	for rows.Next() {
		var d Document
		var desc, cat, dept sql.NullString
		var cID, cName, cDesc, dID, dName, dDesc sql.NullString
		var oID, oUser, oName, oEmail sql.NullString
		var versions, perms int
		if err := rows.Scan(&d.ID, &d.Title, &desc, &d.FileName, &d.FileURL, &d.FileSize, &d.MimeType, &d.Version,
			&cat, &dept, &d.OwnerID, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
			&cID, &cName, &cDesc, &dID, &dName, &dDesc,
			&oID, &oUser, &oName, &oEmail, &versions, &perms); err != nil {
			rows.Close()
			return nil, err
		}
		d.Description = stringPtr(desc)
		d.CategoryID = stringPtr(cat)
		d.DepartmentID = stringPtr(dept)
		if cID.Valid {
			d.Category = &Category{ID: cID.String, Name: cName.String, Description: stringPtr(cDesc)}
		}
		if dID.Valid {
			d.Department = &Department{ID: dID.String, Name: dName.String, Description: stringPtr(dDesc)}
		}
		d.Owner = summaryOf(oID, oUser, oName, oEmail)
		d.VersionCount = &versions
		d.PermissionCount = &perms
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := attachTags(ctx, q, res); err != nil {
		return nil, err
	}
	return res, nil
}
