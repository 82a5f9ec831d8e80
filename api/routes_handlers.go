package api

import (
	"net/http"

	"dms-server/api/handlers"
	"dms-server/api/routegroups"
	"dms-server/core/rbac"
	"github.com/go-chi/chi/v5"
)

type routeHandlers struct {
	auth        *handlers.AuthHandler
	users       *handlers.UsersHandler
	docs        *handlers.DocsHandler
	checkouts   *handlers.CheckoutsHandler
	audit       *handlers.AuditHandler
	categories  *handlers.NamedHandler
	departments *handlers.NamedHandler
	tags        *handlers.TagsHandler
	roles       *handlers.RolesHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	d := s.deps
	return routeHandlers{
		auth:        handlers.NewAuthHandler(s.cfg, d.Auth, s.logger),
		users:       handlers.NewUsersHandler(s.cfg, d.Auth, s.logger),
		docs:        handlers.NewDocsHandler(s.cfg, d.Docs, s.logger),
		checkouts:   handlers.NewCheckoutsHandler(s.cfg, d.Checkouts, s.logger),
		audit:       handlers.NewAuditHandler(s.cfg, d.Audit, s.logger),
		categories:  handlers.NewNamedHandler(s.cfg, d.Categories, "Category", s.logger),
		departments: handlers.NewNamedHandler(s.cfg, d.Departments, "Department", s.logger),
		tags:        handlers.NewTagsHandler(s.cfg, d.Tags, s.logger),
		roles:       handlers.NewRolesHandler(s.cfg, d.Roles, s.logger),
	}
}

func (s *Server) guards() routegroups.Guards {
	return routegroups.Guards{
		WithSession:       s.withSession,
		RequirePermission: func(p string) func(http.HandlerFunc) http.HandlerFunc { return s.requirePermission(rbac.Permission(p)) },
		RateLimit:         s.throttleLogin,
	}
}

func (s *Server) registerAuthRoutes(apiRouter chi.Router, h routeHandlers) {
	g := s.guards()
	routegroups.RegisterAuth(apiRouter, g, h.auth)
	routegroups.RegisterUsers(apiRouter, g, h.users, h.audit)
}

func (s *Server) registerDocumentRoutes(apiRouter chi.Router, h routeHandlers) {
	routegroups.RegisterDocuments(apiRouter, s.guards(), h.docs, h.checkouts)
}

func (s *Server) registerCatalogRoutes(apiRouter chi.Router, h routeHandlers) {
	routegroups.RegisterCatalog(apiRouter, s.guards(), h.categories, h.departments, h.tags, h.roles)
}
