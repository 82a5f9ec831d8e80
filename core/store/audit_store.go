package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"dms-server/core/utils"
)

type AuditFilter struct {
	UserID     string
	DocumentID string
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type AuditStore interface {
	Insert(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]AuditLog, int, error)
	Get(ctx context.Context, id string) (*AuditLog, error)
}

type auditStore struct {
	db *DB
}

func NewAuditStore(db *DB) AuditStore {
	return &auditStore{db: db}
}

const auditSelect = `
	SELECT a.id, a.user_id, a.action, a.document_id, a.details, a.ip_address, a.user_agent, a.created_at,
		u.id, u.username, u.full_name, u.email, d.title
	FROM audit_logs a
	LEFT JOIN users u ON u.id=a.user_id
	LEFT JOIN documents d ON d.id=a.document_id`

func (s *auditStore) Insert(ctx context.Context, e *AuditLog) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utils.NowUTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs(id, user_id, action, document_id, details, ip_address, user_agent, created_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		e.ID, nullableString(e.UserID), e.Action, nullableString(e.DocumentID), nullableString(e.Details),
		nullableString(e.IPAddress), nullableString(e.UserAgent), e.CreatedAt.UTC())
	return err
}

func (s *auditStore) List(ctx context.Context, filter AuditFilter) ([]AuditLog, int, error) {
	clauses := []string{}
	args := []any{}
	if filter.UserID != "" {
		clauses = append(clauses, "a.user_id=?")
		args = append(args, filter.UserID)
	}
	if filter.DocumentID != "" {
		clauses = append(clauses, "a.document_id=?")
		args = append(args, filter.DocumentID)
	}
	if filter.Action != "" {
		clauses = append(clauses, "a.action=?")
		args = append(args, filter.Action)
	}
	if filter.From != nil {
		clauses = append(clauses, "a.created_at>=?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		clauses = append(clauses, "a.created_at<=?")
		args = append(args, filter.To.UTC())
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, auditSelect+where+` ORDER BY a.created_at DESC`+pageClause(filter.Limit, filter.Offset), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	res := []AuditLog{}
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, *e)
	}
	return res, total, rows.Err()
}

func (s *auditStore) Get(ctx context.Context, id string) (*AuditLog, error) {
	return scanAudit(s.db.QueryRowContext(ctx, auditSelect+` WHERE a.id=?`, id))
}

func scanAudit(row rowScanner) (*AuditLog, error) {
	var e AuditLog
	var userID, docID, details, ip, ua sql.NullString
	var uID, uName, uFull, uEmail, title sql.NullString
	if err := row.Scan(&e.ID, &userID, &e.Action, &docID, &details, &ip, &ua, &e.CreatedAt,
		&uID, &uName, &uFull, &uEmail, &title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.UserID = stringPtr(userID)
	e.DocumentID = stringPtr(docID)
	e.Details = stringPtr(details)
	e.IPAddress = stringPtr(ip)
	e.UserAgent = stringPtr(ua)
	e.User = summaryOf(uID, uName, uFull, uEmail)
	if title.Valid && e.DocumentID != nil {
		e.Document = &DocumentRef{ID: *e.DocumentID, Title: title.String}
	}
	return &e, nil
}
