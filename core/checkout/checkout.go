package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"dms-server/core/access"
	"dms-server/core/apperr"
	"dms-server/core/audit"
	"dms-server/core/store"
	"dms-server/core/utils"
)

const DefaultHours = 24

// MaxHours keeps expiry well inside time.Duration range.
const MaxHours = 100 * 365 * 24

// LockInfo is returned to callers blocked by someone else's checkout.
type LockInfo struct {
	IsLocked  bool               `json:"isLocked"`
	LockedBy  *store.UserSummary `json:"lockedBy"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty"`
}

type DocumentLookup interface {
	GetDocument(ctx context.Context, id string) (*store.Document, error)
}

// ReapIfExpired returns c unless its expiry is at or before now.
func ReapIfExpired(c *store.Checkout, now time.Time) *store.Checkout {
	if c == nil {
		return nil
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return nil
	}
	return c
}

type Manager struct {
	store        store.CheckoutsStore
	docs         DocumentLookup
	audit        *audit.Recorder
	defaultHours float64
	now          func() time.Time
}

func NewManager(s store.CheckoutsStore, docs DocumentLookup, rec *audit.Recorder, defaultHours float64) *Manager {
	if defaultHours <= 0 {
		defaultHours = DefaultHours
	}
	if defaultHours > MaxHours {
		defaultHours = MaxHours
	}
	return &Manager{store: s, docs: docs, audit: rec, defaultHours: defaultHours, now: utils.NowUTC}
}

// Checkout locks docID for the admin caller. hours nil means the default.
func (m *Manager) Checkout(ctx context.Context, actor access.Subject, docID string, hours *float64) (*store.Checkout, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("Only admins can checkout documents")
	}
	h := m.defaultHours
	if hours != nil {
		h = *hours
	}
	if h < 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return nil, apperr.Validation("expiresInHours must be a non-negative number")
	}
	if h > MaxHours {
		return nil, apperr.Validation(fmt.Sprintf("expiresInHours must not exceed %d", MaxHours))
	}
	doc, err := m.docs.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound("Document not found")
	}
	if _, err := m.live(ctx, docID); err != nil {
		return nil, err
	}
	now := m.now()
	expires := now.Add(time.Duration(h * float64(time.Hour)))
	c := &store.Checkout{DocumentID: docID, UserID: actor.UserID, ExpiresAt: &expires, CreatedAt: now}
	if err := m.store.Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.AlreadyLocked("Document is already checked out")
		}
		return nil, err
	}
	m.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionDocumentCheckout,
		DocumentID: docID,
		Details:    fmt.Sprintf("Checked out %q until %s", doc.Title, expires.Format(time.RFC3339)),
	})
	created, err := m.store.Get(ctx, docID)
	if err != nil || created == nil {
		return c, nil
	}
	return created, nil
}

// live reaps an expired row and fails with AlreadyLocked when one remains.
func (m *Manager) live(ctx context.Context, docID string) (*store.Checkout, error) {
	c, err := m.Status(ctx, docID)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, apperr.AlreadyLocked("Document is already checked out")
	}
	return nil, nil
}

func (m *Manager) Checkin(ctx context.Context, actor access.Subject, docID string) error {
	c, err := m.Status(ctx, docID)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.NotLocked("Document is not checked out")
	}
	if c.UserID != actor.UserID && !actor.IsAdmin() {
		return apperr.Forbidden("Only the lock holder or an admin can check in this document")
	}
	removed, err := m.store.Delete(ctx, docID, c.ID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotLocked("Document is not checked out")
	}
	m.audit.Record(ctx, audit.Entry{UserID: actor.UserID, Action: audit.ActionDocumentCheckin, DocumentID: docID, Details: "Checked in document"})
	return nil
}

// Status returns the live checkout or nil. Expired rows are removed on the
// way by id, so a lock taken after the read survives.
func (m *Manager) Status(ctx context.Context, docID string) (*store.Checkout, error) {
	c, err := m.store.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	if ReapIfExpired(c, m.now()) != nil {
		return c, nil
	}
	if _, err := m.store.Delete(ctx, docID, c.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

// Gate fails with Locked when someone other than actor holds docID.
// Admins always pass.
func (m *Manager) Gate(ctx context.Context, actor access.Subject, docID string) error {
	if actor.IsAdmin() {
		return nil
	}
	c, err := m.Status(ctx, docID)
	if err != nil {
		return err
	}
	if c == nil || c.UserID == actor.UserID {
		return nil
	}
	holder := c.User
	if holder == nil {
		holder = &store.UserSummary{ID: c.UserID}
	}
	return apperr.Locked("Document is currently checked out by another user", LockInfo{IsLocked: true, LockedBy: holder, ExpiresAt: c.ExpiresAt})
}
