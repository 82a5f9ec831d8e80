package store

import (
	"context"
	"database/sql"
	"errors"

	"dms-server/core/utils"
)

type CheckoutsStore interface {
	Get(ctx context.Context, docID string) (*Checkout, error)
	// Create fails with ErrConflict when the document already has a row.
	Create(ctx context.Context, c *Checkout) error
	// Delete removes the row only while checkoutID still holds docID and
	// reports whether it did. A missing or replaced row is not an error.
	Delete(ctx context.Context, docID, checkoutID string) (bool, error)
}

type checkoutsStore struct {
	db *DB
}

func NewCheckoutsStore(db *DB) CheckoutsStore {
	return &checkoutsStore{db: db}
}

func (s *checkoutsStore) Get(ctx context.Context, docID string) (*Checkout, error) {
	var c Checkout
	var expires sql.NullTime
	var uID, uName, uFull, uEmail sql.NullString
	var title sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.document_id, c.user_id, c.expires_at, c.created_at,
			u.id, u.username, u.full_name, u.email, d.title
		FROM checkouts c
		LEFT JOIN users u ON u.id=c.user_id
		LEFT JOIN documents d ON d.id=c.document_id
		WHERE c.document_id=?`, docID).
		Scan(&c.ID, &c.DocumentID, &c.UserID, &expires, &c.CreatedAt, &uID, &uName, &uFull, &uEmail, &title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.ExpiresAt = timePtr(expires)
	c.User = summaryOf(uID, uName, uFull, uEmail)
	if title.Valid {
		c.Document = &DocumentRef{ID: c.DocumentID, Title: title.String}
	}
	return &c, nil
}

func (s *checkoutsStore) Create(ctx context.Context, c *Checkout) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.NowUTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO checkouts(id, document_id, user_id, expires_at, created_at) VALUES(?,?,?,?,?)`,
		c.ID, c.DocumentID, c.UserID, nullableTime(c.ExpiresAt), c.CreatedAt.UTC())
	return classify(err)
}

func (s *checkoutsStore) Delete(ctx context.Context, docID, checkoutID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkouts WHERE document_id=? AND id=?`, docID, checkoutID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
