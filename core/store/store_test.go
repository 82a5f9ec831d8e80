package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dms-server/config"
	"dms-server/core/utils"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.AppConfig{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "test.db")}
	logger := utils.NewNopLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db    *DB
	users UsersStore
	docs  DocsStore
	roles RolesStore
	depts CatalogStore
	cats  CatalogStore
	tags  TagsStore
	perms PermissionsStore
	outs  CheckoutsStore
	audit AuditStore
	admin *Role
	user  *Role
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	f := &fixture{
		db:    db,
		users: NewUsersStore(db),
		docs:  NewDocsStore(db),
		roles: NewRolesStore(db),
		depts: NewDepartmentsStore(db),
		cats:  NewCategoriesStore(db),
		tags:  NewTagsStore(db),
		perms: NewPermissionsStore(db),
		outs:  NewCheckoutsStore(db),
		audit: NewAuditStore(db),
	}
	ctx := context.Background()
	var err error
	if f.admin, err = f.roles.Upsert(ctx, "admin", nil); err != nil {
		t.Fatalf("role: %v", err)
	}
	if f.user, err = f.roles.Upsert(ctx, "user", nil); err != nil {
		t.Fatalf("role: %v", err)
	}
	return f
}

func (f *fixture) createUser(t *testing.T, name string, role *Role, dept *string) *User {
	t.Helper()
	u := &User{Email: name + "@example.test", Username: name, PasswordHash: "hash", FullName: name, RoleID: role.ID, DepartmentID: dept}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) createDoc(t *testing.T, owner *User, title string, tags ...string) *Document {
	t.Helper()
	doc, err := f.docs.CreateDocument(context.Background(), NewDocument{
		Title:      title,
		File:       FileRef{FileName: title + ".pdf", FileURL: "/files/" + title + ".pdf", FileSize: 10, MimeType: "application/pdf"},
		OwnerID:    owner.ID,
		Tags:       tags,
		OwnerGrant: true,
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func TestRebindPostgres(t *testing.T) {
	got := rebind(DialectPostgres, `SELECT * FROM t WHERE a=? AND b='?' AND c=?`)
	want := `SELECT * FROM t WHERE a=$1 AND b='?' AND c=$2`
	if got != want {
		t.Fatalf("rebind: got %q want %q", got, want)
	}
	if rebind(DialectSQLite, "a=?") != "a=?" {
		t.Fatalf("sqlite query must be untouched")
	}
}

func TestUsersUniqueAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "alice", f.user, nil)
	dup := &User{Email: "alice@example.test", Username: "other", PasswordHash: "x", RoleID: f.user.ID}
	if err := f.users.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	byEmail, err := f.users.FindByLogin(ctx, "alice@example.test")
	if err != nil || byEmail == nil || byEmail.ID != u.ID {
		t.Fatalf("find by email: %v %+v", err, byEmail)
	}
	if byEmail.RoleName() != "user" {
		t.Fatalf("expected role name user, got %q", byEmail.RoleName())
	}
	missing, err := f.users.FindByLogin(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected nil user, got %v %v", missing, err)
	}
	exists, err := f.users.ExistsByEmailOrUsername(ctx, "x@y", "alice")
	if err != nil || !exists {
		t.Fatalf("expected username to exist")
	}
}

func TestUserDeleteWithDocumentsIsInvalidRef(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner", f.user, nil)
	f.createDoc(t, owner, "plan")
	err := f.users.Delete(context.Background(), owner.ID)
	if !errors.Is(err, ErrInvalidRef) {
		t.Fatalf("expected invalid ref, got %v", err)
	}
}

func TestCreateDocumentWritesInitialVersionTagsAndGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.createUser(t, "owner", f.user, nil)
	doc := f.createDoc(t, owner, "roadmap", "alpha", " beta ", "alpha", "")
	if doc.Version != 1 || len(doc.Tags) != 2 {
		t.Fatalf("unexpected doc %+v", doc)
	}
	got, err := f.docs.GetDocument(ctx, doc.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if err := f.docs.LoadDetail(ctx, got, 10); err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(got.Versions) != 1 || got.Versions[0].Version != 1 {
		t.Fatalf("expected one version, got %+v", got.Versions)
	}
	if got.Versions[0].ChangeNote == nil || *got.Versions[0].ChangeNote != "Initial version" {
		t.Fatalf("unexpected change note")
	}
	if len(got.Permissions) != 1 || !got.Permissions[0].CanDelete || got.Permissions[0].User == nil {
		t.Fatalf("expected owner grant, got %+v", got.Permissions)
	}
	if got.Owner == nil || got.Owner.Username != "owner" {
		t.Fatalf("expected owner summary")
	}
	// reusing a tag name must not create a second tag
	f.createDoc(t, owner, "other", "alpha")
	tags, err := f.tags.List(ctx)
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	for _, tg := range tags {
		if tg.Name == "alpha" && *tg.DocumentCount != 2 {
			t.Fatalf("expected alpha on two docs, got %d", *tg.DocumentCount)
		}
	}
}

func TestListDocumentsReadableBy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dept, err := f.depts.Create(ctx, "Legal", nil)
	if err != nil {
		t.Fatalf("dept: %v", err)
	}
	owner := f.createUser(t, "owner", f.user, nil)
	reader := f.createUser(t, "reader", f.user, &dept.ID)
	d1 := f.createDoc(t, owner, "one")
	d2 := f.createDoc(t, owner, "two")
	f.createDoc(t, owner, "three")
	if err := f.perms.Create(ctx, &Permission{DocumentID: d1.ID, DepartmentID: &dept.ID, CanRead: true}); err != nil {
		t.Fatalf("perm: %v", err)
	}
	if err := f.perms.Create(ctx, &Permission{DocumentID: d2.ID, UserID: &reader.ID, CanWrite: true}); err != nil {
		t.Fatalf("perm: %v", err)
	}
	docs, total, err := f.docs.ListDocuments(ctx, DocumentFilter{ReadableBy: &Subject{UserID: reader.ID, RoleID: f.user.ID, DepartmentID: &dept.ID}, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(docs) != 1 || docs[0].ID != d1.ID {
		t.Fatalf("expected only dept-readable doc, got %d %+v", total, docs)
	}
	all, total, err := f.docs.ListDocuments(ctx, DocumentFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 3 || len(all) != 2 {
		t.Fatalf("expected page of 2 out of 3, got %d/%d", len(all), total)
	}
	if err := f.docs.SoftDeleteDocument(ctx, d1.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	_, total, _ = f.docs.ListDocuments(ctx, DocumentFilter{})
	if total != 2 {
		t.Fatalf("soft-deleted doc must be hidden, total=%d", total)
	}
}

func TestUpdateDocumentPresenceSemantics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.createUser(t, "owner", f.user, nil)
	cat, _ := f.cats.Create(ctx, "Policies", nil)
	doc := f.createDoc(t, owner, "orig", "keep")
	desc := "described"
	err := f.docs.UpdateDocument(ctx, doc.ID, DocumentPatch{
		Description: Some(desc),
		CategoryID:  Some(cat.ID),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := f.docs.GetDocument(ctx, doc.ID)
	if got.Title != "orig" || got.Description == nil || *got.Description != desc || got.CategoryID == nil {
		t.Fatalf("partial update failed: %+v", got)
	}
	if err := f.docs.UpdateDocument(ctx, doc.ID, DocumentPatch{CategoryID: Null[string](), Tags: Some([]string{"new"})}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = f.docs.GetDocument(ctx, doc.ID)
	_ = f.docs.LoadDetail(ctx, got, 0)
	if got.CategoryID != nil {
		t.Fatalf("category should be cleared")
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "new" {
		t.Fatalf("tags should be replaced, got %+v", got.Tags)
	}
	if err := f.docs.UpdateDocument(ctx, "missing", DocumentPatch{Title: Some("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddVersionIncrementsAndApplyKeepsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.createUser(t, "owner", f.user, nil)
	doc := f.createDoc(t, owner, "report")
	v2, err := f.docs.AddVersion(ctx, NewVersion{DocumentID: doc.ID, File: FileRef{FileName: "r2.pdf", FileURL: "/files/r2.pdf", FileSize: 20, MimeType: "application/pdf"}, CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("add version: %v", err)
	}
	if v2.Version != 2 {
		t.Fatalf("expected version 2, got %d", v2.Version)
	}
	if _, err := f.docs.AddVersion(ctx, NewVersion{DocumentID: "missing", CreatedBy: owner.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	versions, err := f.docs.ListVersions(ctx, doc.ID, 0)
	if err != nil || len(versions) != 2 || versions[0].Version != 2 {
		t.Fatalf("expected newest first, got %+v %v", versions, err)
	}
	v1 := versions[1]
	if err := f.docs.ApplyVersionFile(ctx, doc.ID, v1.File()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ := f.docs.GetDocument(ctx, doc.ID)
	if got.Version != 2 || got.FileName != v1.FileName {
		t.Fatalf("restore must copy file without bump: %+v", got)
	}
	again, _ := f.docs.ListVersions(ctx, doc.ID, 0)
	if len(again) != 2 {
		t.Fatalf("restore must not add rows")
	}
}

func TestCheckoutsUniquePerDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.createUser(t, "owner", f.admin, nil)
	doc := f.createDoc(t, owner, "locked")
	if err := f.outs.Create(ctx, &Checkout{DocumentID: doc.ID, UserID: owner.ID}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := f.outs.Create(ctx, &Checkout{DocumentID: doc.ID, UserID: owner.ID}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	co, err := f.outs.Get(ctx, doc.ID)
	if err != nil || co == nil || co.User == nil || co.ExpiresAt != nil {
		t.Fatalf("unexpected checkout %+v %v", co, err)
	}
	removed, err := f.outs.Delete(ctx, doc.ID, "someone-else")
	if err != nil || removed {
		t.Fatalf("delete with a stale id must keep the row: %v %v", removed, err)
	}
	removed, err = f.outs.Delete(ctx, doc.ID, co.ID)
	if err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	removed, err = f.outs.Delete(ctx, doc.ID, co.ID)
	if err != nil || removed {
		t.Fatalf("second delete must be a no-op")
	}
}

func TestAuditListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "actor", f.user, nil)
	for _, action := range []string{"login", "document_view", "document_view"} {
		if err := f.audit.Insert(ctx, &AuditLog{UserID: &u.ID, Action: action}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	logs, total, err := f.audit.List(ctx, AuditFilter{Action: "document_view", Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(logs) != 1 || logs[0].User == nil {
		t.Fatalf("unexpected audit page %d %+v", total, logs)
	}
	got, err := f.audit.Get(ctx, logs[0].ID)
	if err != nil || got == nil || got.Action != "document_view" {
		t.Fatalf("get: %+v %v", got, err)
	}
}

func TestCatalogDeleteNullsDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.createUser(t, "owner", f.user, nil)
	cat, _ := f.cats.Create(ctx, "Contracts", nil)
	doc := f.createDoc(t, owner, "c1")
	_ = f.docs.UpdateDocument(ctx, doc.ID, DocumentPatch{CategoryID: Some(cat.ID)})
	detail, err := f.cats.GetDetail(ctx, cat.ID)
	if err != nil || len(detail.Documents) != 1 {
		t.Fatalf("expected one document in category: %v", err)
	}
	if _, err := f.cats.Create(ctx, "Contracts", nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate name conflict, got %v", err)
	}
	if err := f.cats.Delete(ctx, cat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := f.docs.GetDocument(ctx, doc.ID)
	if got.CategoryID != nil {
		t.Fatalf("category should be nulled on delete")
	}
}
