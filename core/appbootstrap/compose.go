package appbootstrap

import (
	"strings"

	"dms-server/api"
	"dms-server/config"
	"dms-server/core/access"
	"dms-server/core/audit"
	"dms-server/core/auth"
	"dms-server/core/blob"
	"dms-server/core/catalog"
	"dms-server/core/checkout"
	"dms-server/core/docs"
	"dms-server/core/rbac"
	"dms-server/core/store"
	"dms-server/core/utils"
	"dms-server/core/versions"
)

type runtimeComposition struct {
	serverDeps api.ServerDeps
	stores     stores
	hasher     auth.Hasher
}

type stores struct {
	users       store.UsersStore
	roles       store.RolesStore
	departments store.CatalogStore
	categories  store.CatalogStore
}

func composeRuntime(cfg *config.AppConfig, db *store.DB, logger *utils.Logger) (*runtimeComposition, error) {
	users := store.NewUsersStore(db)
	roles := store.NewRolesStore(db)
	departments := store.NewDepartmentsStore(db)
	categories := store.NewCategoriesStore(db)
	tags := store.NewTagsStore(db)
	audits := store.NewAuditStore(db)
	docsStore := store.NewDocsStore(db)
	permsStore := store.NewPermissionsStore(db)
	checkoutsStore := store.NewCheckoutsStore(db)

	blobs, err := blob.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	policy, err := rbac.NewPolicy(rbac.DefaultRoles())
	if err != nil {
		return nil, err
	}

	rec := audit.NewRecorder(audits, logger)
	hasher := auth.NewBcryptHasher()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	authSvc := auth.NewService(users, roles, hasher, tokens, rec, logger)
	locks := checkout.NewManager(checkoutsStore, docsStore, rec, cfg.EffectiveCheckoutHours())
	vm := versions.NewManager(docsStore, blobs, rec, logger)
	docsSvc := docs.NewService(cfg, docsStore, permsStore, blobs, access.NewResolver(permsStore), locks, vm, rec, logger)

	filesDir := ""
	if local, ok := blobs.(*blob.LocalStore); ok && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		filesDir = local.Root()
	}

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			Config:      cfg,
			Logger:      logger,
			Policy:      policy,
			Auth:        authSvc,
			Docs:        docsSvc,
			Checkouts:   locks,
			Audit:       rec,
			Categories:  catalog.NewNamed(categories, "Category"),
			Departments: catalog.NewNamed(departments, "Department"),
			Tags:        catalog.NewTags(tags),
			Roles:       catalog.NewRoles(roles),
			FilesDir:    filesDir,
		},
		stores: stores{users: users, roles: roles, departments: departments, categories: categories},
		hasher: hasher,
	}, nil
}
