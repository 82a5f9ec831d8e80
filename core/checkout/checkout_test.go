package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dms-server/core/access"
	"dms-server/core/apperr"
	"dms-server/core/audit"
	"dms-server/core/store"
	"dms-server/core/utils"
)

type memCheckouts struct {
	rows    map[string]*store.Checkout
	deletes int
	seq     int
	// afterGet runs once the next Get has read its row.
	afterGet func(c *store.Checkout)
}

func newMemCheckouts() *memCheckouts {
	return &memCheckouts{rows: map[string]*store.Checkout{}}
}

func (m *memCheckouts) Get(ctx context.Context, docID string) (*store.Checkout, error) {
	c, ok := m.rows[docID]
	if !ok {
		return nil, nil
	}
	cp := *c
	if hook := m.afterGet; hook != nil {
		m.afterGet = nil
		hook(&cp)
	}
	return &cp, nil
}

func (m *memCheckouts) Create(ctx context.Context, c *store.Checkout) error {
	if _, ok := m.rows[c.DocumentID]; ok {
		return store.ErrConflict
	}
	if c.ID == "" {
		m.seq++
		c.ID = fmt.Sprintf("co-%d", m.seq)
	}
	cp := *c
	cp.User = &store.UserSummary{ID: c.UserID, Username: "holder-" + c.UserID}
	m.rows[c.DocumentID] = &cp
	return nil
}

func (m *memCheckouts) Delete(ctx context.Context, docID, checkoutID string) (bool, error) {
	m.deletes++
	c, ok := m.rows[docID]
	if !ok || c.ID != checkoutID {
		return false, nil
	}
	delete(m.rows, docID)
	return true, nil
}

type memDocs map[string]*store.Document

func (m memDocs) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	return m[id], nil
}

type memAudit struct{ actions []string }

func (m *memAudit) Insert(ctx context.Context, e *store.AuditLog) error {
	m.actions = append(m.actions, e.Action)
	return nil
}
func (m *memAudit) List(ctx context.Context, f store.AuditFilter) ([]store.AuditLog, int, error) {
	return nil, 0, nil
}
func (m *memAudit) Get(ctx context.Context, id string) (*store.AuditLog, error) { return nil, nil }

var (
	admin = access.Subject{UserID: "admin-1", RoleID: "r-admin", RoleName: "admin"}
	other = access.Subject{UserID: "user-1", RoleID: "r-user", RoleName: "user"}
)

func setup(t *testing.T) (*Manager, *memCheckouts, *memAudit, *time.Time) {
	t.Helper()
	outs := newMemCheckouts()
	docs := memDocs{"doc-1": {ID: "doc-1", Title: "Plan"}}
	aud := &memAudit{}
	m := NewManager(outs, docs, audit.NewRecorder(aud, utils.NewNopLogger()), 0)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, outs, aud, &clock
}

func hours(h float64) *float64 { return &h }

func TestReapIfExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	if ReapIfExpired(&store.Checkout{ExpiresAt: &past}, now) != nil {
		t.Fatalf("expired checkout must be reaped")
	}
	if ReapIfExpired(&store.Checkout{ExpiresAt: &future}, now) == nil {
		t.Fatalf("live checkout must survive")
	}
	if ReapIfExpired(&store.Checkout{}, now) == nil {
		t.Fatalf("checkout without expiry never expires")
	}
	if ReapIfExpired(nil, now) != nil {
		t.Fatalf("nil stays nil")
	}
}

func TestCheckoutRequiresAdmin(t *testing.T) {
	m, _, _, _ := setup(t)
	_, err := m.Checkout(context.Background(), other, "doc-1", nil)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCheckoutDefaultsAndAlreadyLocked(t *testing.T) {
	m, _, aud, clock := setup(t)
	c, err := m.Checkout(context.Background(), admin, "doc-1", nil)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if c.ExpiresAt == nil || !c.ExpiresAt.Equal(clock.Add(24*time.Hour)) {
		t.Fatalf("expected 24h default expiry, got %v", c.ExpiresAt)
	}
	if _, err := m.Checkout(context.Background(), admin, "doc-1", hours(1)); !apperr.Is(err, apperr.KindAlreadyLocked) {
		t.Fatalf("expected already locked, got %v", err)
	}
	if len(aud.actions) != 1 || aud.actions[0] != audit.ActionDocumentCheckout {
		t.Fatalf("unexpected audit trail %v", aud.actions)
	}
}

func TestCheckoutFractionalHoursAndValidation(t *testing.T) {
	m, _, _, clock := setup(t)
	c, err := m.Checkout(context.Background(), admin, "doc-1", hours(1.5))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !c.ExpiresAt.Equal(clock.Add(90 * time.Minute)) {
		t.Fatalf("expected 90 minutes, got %v", c.ExpiresAt)
	}
	if _, err := m.Checkout(context.Background(), admin, "doc-2", hours(-1)); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := m.Checkout(context.Background(), admin, "missing", nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, h := range []float64{1e7, 1e300, MaxHours + 1} {
		if _, err := m.Checkout(context.Background(), admin, "doc-2", hours(h)); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for %v hours, got %v", h, err)
		}
	}
}

func TestCheckoutAtMaxHoursExpiresInFuture(t *testing.T) {
	m, _, _, clock := setup(t)
	c, err := m.Checkout(context.Background(), admin, "doc-1", hours(MaxHours))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !c.ExpiresAt.After(*clock) {
		t.Fatalf("expiry %v must be after %v", c.ExpiresAt, *clock)
	}
	if got, _ := m.Status(context.Background(), "doc-1"); got == nil {
		t.Fatalf("long checkout must stay live")
	}
}

func TestReapKeepsLockTakenAfterRead(t *testing.T) {
	m, outs, _, clock := setup(t)
	if _, err := m.Checkout(context.Background(), admin, "doc-1", hours(1)); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	*clock = clock.Add(2 * time.Hour)
	second := access.Subject{UserID: "admin-2", RoleName: "admin"}
	outs.afterGet = func(stale *store.Checkout) {
		if removed, _ := outs.Delete(context.Background(), "doc-1", stale.ID); !removed {
			t.Fatalf("concurrent reap failed")
		}
		exp := clock.Add(time.Hour)
		if err := outs.Create(context.Background(), &store.Checkout{DocumentID: "doc-1", UserID: second.UserID, ExpiresAt: &exp}); err != nil {
			t.Fatalf("concurrent checkout: %v", err)
		}
	}
	c, err := m.Status(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if c != nil {
		t.Fatalf("stale read reports unlocked, got %+v", c)
	}
	fresh, ok := outs.rows["doc-1"]
	if !ok || fresh.UserID != second.UserID {
		t.Fatalf("fresh lock must survive the stale reap, got %+v", fresh)
	}
	if err := m.Gate(context.Background(), other, "doc-1"); !apperr.Is(err, apperr.KindLocked) {
		t.Fatalf("expected locked by the new holder, got %v", err)
	}
}

func TestCheckinOfReplacedLockIsNotLocked(t *testing.T) {
	m, outs, aud, _ := setup(t)
	if _, err := m.Checkout(context.Background(), admin, "doc-1", nil); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	outs.afterGet = func(seen *store.Checkout) {
		outs.Delete(context.Background(), "doc-1", seen.ID)
		outs.Create(context.Background(), &store.Checkout{DocumentID: "doc-1", UserID: "admin-2"})
	}
	if err := m.Checkin(context.Background(), admin, "doc-1"); !apperr.Is(err, apperr.KindNotLocked) {
		t.Fatalf("expected not locked, got %v", err)
	}
	if fresh := outs.rows["doc-1"]; fresh == nil || fresh.UserID != "admin-2" {
		t.Fatalf("replacement lock must survive, got %+v", fresh)
	}
	if len(aud.actions) != 1 {
		t.Fatalf("failed check-in must not be audited: %v", aud.actions)
	}
}

func TestExpiredLockIsReplaced(t *testing.T) {
	m, outs, _, clock := setup(t)
	if _, err := m.Checkout(context.Background(), admin, "doc-1", hours(1)); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	*clock = clock.Add(2 * time.Hour)
	second := access.Subject{UserID: "admin-2", RoleName: "admin"}
	c, err := m.Checkout(context.Background(), second, "doc-1", nil)
	if err != nil {
		t.Fatalf("expected expired lock to be replaced: %v", err)
	}
	if c.UserID != "admin-2" || outs.rows["doc-1"].UserID != "admin-2" {
		t.Fatalf("new holder not stored")
	}
}

func TestZeroHourCheckoutIsReapedByStatus(t *testing.T) {
	m, outs, _, _ := setup(t)
	if _, err := m.Checkout(context.Background(), admin, "doc-1", hours(0)); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	c, err := m.Status(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if c != nil {
		t.Fatalf("expected unlocked status")
	}
	if _, ok := outs.rows["doc-1"]; ok {
		t.Fatalf("stale row must be deleted by status")
	}
}

func TestCheckinRules(t *testing.T) {
	m, _, _, _ := setup(t)
	if err := m.Checkin(context.Background(), admin, "doc-1"); !apperr.Is(err, apperr.KindNotLocked) {
		t.Fatalf("expected not locked, got %v", err)
	}
	if _, err := m.Checkout(context.Background(), admin, "doc-1", nil); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := m.Checkin(context.Background(), other, "doc-1"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	anotherAdmin := access.Subject{UserID: "admin-9", RoleName: "admin"}
	if err := m.Checkin(context.Background(), anotherAdmin, "doc-1"); err != nil {
		t.Fatalf("admin check-in must succeed regardless of holder: %v", err)
	}
	if c, _ := m.Status(context.Background(), "doc-1"); c != nil {
		t.Fatalf("expected unlocked after check-in")
	}
}

func TestGateReturnsHolder(t *testing.T) {
	m, _, _, _ := setup(t)
	if err := m.Gate(context.Background(), other, "doc-1"); err != nil {
		t.Fatalf("unlocked document must pass: %v", err)
	}
	if _, err := m.Checkout(context.Background(), admin, "doc-1", nil); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	err := m.Gate(context.Background(), other, "doc-1")
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindLocked {
		t.Fatalf("expected locked, got %v", err)
	}
	info, ok := e.Data.(LockInfo)
	if !ok || !info.IsLocked || info.LockedBy == nil || info.LockedBy.ID != admin.UserID {
		t.Fatalf("expected holder identity, got %+v", e.Data)
	}
	if err := m.Gate(context.Background(), admin, "doc-1"); err != nil {
		t.Fatalf("admin must pass the gate: %v", err)
	}
}
