package routegroups

import (
	"dms-server/api/handlers"
	"github.com/go-chi/chi/v5"
)

func RegisterDocuments(apiRouter chi.Router, g Guards, docs *handlers.DocsHandler, checkouts *handlers.CheckoutsHandler) {
	apiRouter.Route("/documents", func(docsRouter chi.Router) {
		docsRouter.MethodFunc("GET", "/", g.SessionPerm("documents.view", docs.List))
		docsRouter.MethodFunc("POST", "/", g.SessionPerm("documents.manage", docs.Upload))
		docsRouter.MethodFunc("GET", "/{id}", g.SessionPerm("documents.view", docs.Get))
		docsRouter.MethodFunc("GET", "/{id}/download", g.SessionPerm("documents.view", docs.Download))
		docsRouter.MethodFunc("PUT", "/{id}", g.SessionPerm("documents.manage", docs.Update))
		docsRouter.MethodFunc("DELETE", "/{id}", g.SessionPerm("documents.manage", docs.Delete))
	})

	apiRouter.Route("/versions", func(versionsRouter chi.Router) {
		versionsRouter.MethodFunc("GET", "/document/{documentId}", g.SessionPerm("documents.view", docs.ListVersions))
		versionsRouter.MethodFunc("POST", "/document/{documentId}", g.SessionPerm("documents.versions", docs.CreateVersion))
		versionsRouter.MethodFunc("POST", "/{id}/restore", g.SessionPerm("documents.versions", docs.RestoreVersion))
	})

	apiRouter.Route("/permissions", func(permsRouter chi.Router) {
		permsRouter.MethodFunc("GET", "/document/{documentId}", g.SessionPerm("documents.view", docs.ListPermissions))
		permsRouter.MethodFunc("POST", "/", g.SessionPerm("documents.permissions", docs.CreatePermission))
		permsRouter.MethodFunc("PUT", "/{id}", g.SessionPerm("documents.permissions", docs.UpdatePermission))
		permsRouter.MethodFunc("DELETE", "/{id}", g.SessionPerm("documents.permissions", docs.DeletePermission))
	})

	apiRouter.Route("/checkouts", func(checkoutsRouter chi.Router) {
		checkoutsRouter.MethodFunc("POST", "/{documentId}/checkout", g.SessionPerm("documents.checkout", checkouts.Checkout))
		checkoutsRouter.MethodFunc("POST", "/{documentId}/checkin", g.SessionPerm("documents.checkout", checkouts.Checkin))
		checkoutsRouter.MethodFunc("GET", "/{documentId}/status", g.SessionPerm("documents.view", checkouts.Status))
	})
}
