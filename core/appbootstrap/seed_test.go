package appbootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dms-server/config"
	"dms-server/core/store"
	"dms-server/core/utils"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(dir, "dms.db"),
		AppEnv:   "test",
		Auth:     config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour, Issuer: "dms-test"},
		Storage: config.StorageConfig{
			Driver:        "local",
			LocalDir:      filepath.Join(dir, "files"),
			PublicBaseURL: "/files",
			Folder:        "documents",
		},
		Seed: config.SeedConfig{
			Enabled:       true,
			AdminEmail:    "admin@dms.local",
			AdminUsername: "admin",
			AdminPassword: "changeme",
			AdminFullName: "Administrator",
			SampleData:    true,
		},
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	logger := utils.NewNopLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rc, err := composeRuntime(cfg, db, logger)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if rc.serverDeps.FilesDir == "" {
		t.Fatalf("local storage should be served")
	}
	for i := 0; i < 2; i++ {
		if err := seed(ctx, cfg.Seed, rc, logger); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}
	roles, err := rc.stores.roles.List(ctx)
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(roles))
	}
	deps, err := rc.stores.departments.List(ctx)
	if err != nil {
		t.Fatalf("departments: %v", err)
	}
	if len(deps) != len(sampleDepartments) {
		t.Fatalf("expected %d departments, got %d", len(sampleDepartments), len(deps))
	}
	admin, err := rc.stores.users.FindByLogin(ctx, "admin")
	if err != nil || admin == nil {
		t.Fatalf("admin missing: %v", err)
	}
	if admin.RoleName() != "admin" {
		t.Fatalf("expected admin role, got %q", admin.RoleName())
	}
	res, err := rc.serverDeps.Auth.Login(ctx, "admin@dms.local", "changeme")
	if err != nil || res.Token == "" {
		t.Fatalf("seeded admin cannot log in: %v", err)
	}
}

func TestSeedSkipsAdminWithoutPassword(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Seed.AdminPassword = ""
	cfg.Seed.SampleData = false
	logger := utils.NewNopLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rc, err := composeRuntime(cfg, db, logger)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if err := seed(ctx, cfg.Seed, rc, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if u, _ := rc.stores.users.FindByLogin(ctx, "admin"); u != nil {
		t.Fatalf("admin should not be created without a password")
	}
}
