package routegroups

import (
	"dms-server/api/handlers"
	"github.com/go-chi/chi/v5"
)

func RegisterAuth(apiRouter chi.Router, g Guards, auth *handlers.AuthHandler) {
	apiRouter.Route("/auth", func(authRouter chi.Router) {
		authRouter.MethodFunc("POST", "/register", g.Public(auth.Register))
		authRouter.MethodFunc("POST", "/register-admin", g.SessionPerm("auth.register_admin", auth.RegisterAdmin))
		authRouter.MethodFunc("POST", "/login", g.Public(g.Limited(auth.Login)))
		authRouter.MethodFunc("GET", "/me", g.Session(auth.Me))
	})
}

func RegisterUsers(apiRouter chi.Router, g Guards, users *handlers.UsersHandler, audit *handlers.AuditHandler) {
	apiRouter.Route("/users", func(usersRouter chi.Router) {
		usersRouter.MethodFunc("GET", "/", g.SessionPerm("users.manage", users.List))
		usersRouter.MethodFunc("GET", "/{id}", g.SessionPerm("users.view", users.Get))
		usersRouter.MethodFunc("PUT", "/{id}", g.SessionPerm("users.manage", users.Update))
		usersRouter.MethodFunc("DELETE", "/{id}", g.SessionPerm("users.manage", users.Delete))
	})

	apiRouter.Route("/audit-logs", func(auditRouter chi.Router) {
		auditRouter.MethodFunc("GET", "/", g.SessionPerm("audit.view", audit.List))
		auditRouter.MethodFunc("GET", "/{id}", g.SessionPerm("audit.view", audit.Get))
	})
}

func RegisterCatalog(apiRouter chi.Router, g Guards, categories, departments *handlers.NamedHandler, tags *handlers.TagsHandler, roles *handlers.RolesHandler) {
	apiRouter.Route("/categories", func(categoriesRouter chi.Router) {
		categoriesRouter.MethodFunc("GET", "/", g.SessionPerm("catalog.view", categories.List))
		categoriesRouter.MethodFunc("GET", "/{id}", g.SessionPerm("catalog.view", categories.Get))
		categoriesRouter.MethodFunc("POST", "/", g.SessionPerm("catalog.manage", categories.Create))
		categoriesRouter.MethodFunc("PUT", "/{id}", g.SessionPerm("catalog.manage", categories.Update))
		categoriesRouter.MethodFunc("DELETE", "/{id}", g.SessionPerm("catalog.manage", categories.Delete))
	})

	apiRouter.Route("/departments", func(departmentsRouter chi.Router) {
		departmentsRouter.MethodFunc("GET", "/", g.Public(departments.List))
		departmentsRouter.MethodFunc("GET", "/{id}", g.SessionPerm("catalog.view", departments.Get))
		departmentsRouter.MethodFunc("POST", "/", g.SessionPerm("catalog.manage", departments.Create))
		departmentsRouter.MethodFunc("PUT", "/{id}", g.SessionPerm("catalog.manage", departments.Update))
		departmentsRouter.MethodFunc("DELETE", "/{id}", g.SessionPerm("catalog.manage", departments.Delete))
	})

	apiRouter.Route("/tags", func(tagsRouter chi.Router) {
		tagsRouter.MethodFunc("GET", "/", g.SessionPerm("catalog.view", tags.List))
		tagsRouter.MethodFunc("GET", "/{id}", g.SessionPerm("catalog.view", tags.Get))
		tagsRouter.MethodFunc("POST", "/", g.SessionPerm("documents.manage", tags.Create))
		tagsRouter.MethodFunc("DELETE", "/{id}", g.SessionPerm("documents.manage", tags.Delete))
	})

	apiRouter.Route("/roles", func(rolesRouter chi.Router) {
		rolesRouter.MethodFunc("GET", "/", g.Public(roles.List))
		rolesRouter.MethodFunc("GET", "/{id}", g.SessionPerm("catalog.view", roles.Get))
	})
}
