// Package storetest opens migrated SQLite databases for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"dms-server/config"
	"dms-server/core/store"
	"dms-server/core/utils"
)

func Open(t testing.TB) *store.DB {
	t.Helper()
	cfg := &config.AppConfig{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "test.db")}
	logger := utils.NewNopLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type Fixture struct {
	DB          *store.DB
	Users       store.UsersStore
	Docs        store.DocsStore
	Roles       store.RolesStore
	Departments store.CatalogStore
	Categories  store.CatalogStore
	Tags        store.TagsStore
	Permissions store.PermissionsStore
	Checkouts   store.CheckoutsStore
	Audit       store.AuditStore
	RoleByName  map[string]*store.Role
}

// New returns a fixture with the admin, manager and user roles in place.
func New(t testing.TB) *Fixture {
	t.Helper()
	db := Open(t)
	f := &Fixture{
		DB:          db,
		Users:       store.NewUsersStore(db),
		Docs:        store.NewDocsStore(db),
		Roles:       store.NewRolesStore(db),
		Departments: store.NewDepartmentsStore(db),
		Categories:  store.NewCategoriesStore(db),
		Tags:        store.NewTagsStore(db),
		Permissions: store.NewPermissionsStore(db),
		Checkouts:   store.NewCheckoutsStore(db),
		Audit:       store.NewAuditStore(db),
		RoleByName:  map[string]*store.Role{},
	}
	for _, name := range []string{"admin", "manager", "user"} {
		r, err := f.Roles.Upsert(context.Background(), name, nil)
		if err != nil {
			t.Fatalf("role %s: %v", name, err)
		}
		f.RoleByName[name] = r
	}
	return f
}

// User creates an account and reloads it with role and department.
func (f *Fixture) User(t testing.TB, username, role string, departmentID *string) *store.User {
	t.Helper()
	r, ok := f.RoleByName[role]
	if !ok {
		t.Fatalf("unknown role %q", role)
	}
	u := &store.User{
		Email:        username + "@example.test",
		Username:     username,
		PasswordHash: "hash",
		FullName:     username,
		RoleID:       r.ID,
		DepartmentID: departmentID,
	}
	if err := f.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	loaded, err := f.Users.GetByID(context.Background(), u.ID)
	if err != nil || loaded == nil {
		t.Fatalf("reload user: %v", err)
	}
	return loaded
}

func (f *Fixture) Document(t testing.TB, owner *store.User, title string, tags ...string) *store.Document {
	t.Helper()
	doc, err := f.Docs.CreateDocument(context.Background(), store.NewDocument{
		Title:      title,
		File:       store.FileRef{FileName: title + ".pdf", FileURL: "/files/documents/" + title + ".pdf", FileSize: 10, MimeType: "application/pdf"},
		OwnerID:    owner.ID,
		Tags:       tags,
		OwnerGrant: true,
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}
