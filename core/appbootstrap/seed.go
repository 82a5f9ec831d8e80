package appbootstrap

import (
	"context"
	"fmt"
	"strings"

	"dms-server/config"
	"dms-server/core/rbac"
	"dms-server/core/store"
	"dms-server/core/utils"
)

var roleDescriptions = map[string]string{
	rbac.RoleAdmin:   "Full access to all documents and administration",
	rbac.RoleManager: "Manages documents within their department",
	rbac.RoleUser:    "Works with documents shared with them",
}

var sampleDepartments = []string{"Human Resources", "Finance", "Legal", "Engineering"}

var sampleCategories = []string{"Policies", "Contracts", "Reports", "Templates"}

// seed is idempotent: roles and sample rows are upserted by name and the
// admin account is created only when no account holds its email or username.
func seed(ctx context.Context, cfg config.SeedConfig, rc *runtimeComposition, logger *utils.Logger) error {
	roleIDs := make(map[string]string, len(roleDescriptions))
	for _, name := range []string{rbac.RoleAdmin, rbac.RoleManager, rbac.RoleUser} {
		desc := roleDescriptions[name]
		role, err := rc.stores.roles.Upsert(ctx, name, &desc)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		roleIDs[name] = role.ID
	}
	if cfg.SampleData {
		for _, name := range sampleDepartments {
			if _, err := rc.stores.departments.Upsert(ctx, name, nil); err != nil {
				return fmt.Errorf("seed department %s: %w", name, err)
			}
		}
		for _, name := range sampleCategories {
			if _, err := rc.stores.categories.Upsert(ctx, name, nil); err != nil {
				return fmt.Errorf("seed category %s: %w", name, err)
			}
		}
	}
	return seedAdmin(ctx, cfg, rc, roleIDs[rbac.RoleAdmin], logger)
}

func seedAdmin(ctx context.Context, cfg config.SeedConfig, rc *runtimeComposition, roleID string, logger *utils.Logger) error {
	email := strings.TrimSpace(cfg.AdminEmail)
	username := strings.TrimSpace(cfg.AdminUsername)
	if email == "" || username == "" {
		return nil
	}
	exists, err := rc.stores.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if cfg.AdminPassword == "" {
		logger.Printf("seed: admin account %s not created, DMS_SEED_ADMIN_PASSWORD is empty", username)
		return nil
	}
	hash, err := rc.hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	u := &store.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FullName:     cfg.AdminFullName,
		RoleID:       roleID,
	}
	if err := rc.stores.users.Create(ctx, u); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Printf("seed: admin account %s created", username)
	return nil
}
