package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"dms-server/api/handlers"
	"dms-server/config"
	"dms-server/core/audit"
	"dms-server/core/auth"
	"dms-server/core/catalog"
	"dms-server/core/checkout"
	"dms-server/core/docs"
	"dms-server/core/rbac"
	"dms-server/core/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ServerDeps is everything the HTTP layer needs from the composition root.
type ServerDeps struct {
	Config      *config.AppConfig
	Logger      *utils.Logger
	Policy      *rbac.Policy
	Auth        *auth.Service
	Docs        *docs.Service
	Checkouts   *checkout.Manager
	Audit       *audit.Recorder
	Categories  *catalog.Named
	Departments *catalog.Named
	Tags        *catalog.Tags
	Roles       *catalog.Roles
	// FilesDir is served at Config.Storage.PublicBaseURL when set.
	FilesDir string
}

type Server struct {
	cfg      *config.AppConfig
	logger   *utils.Logger
	policy   *rbac.Policy
	authSvc  *auth.Service
	deps     ServerDeps
	router   chi.Router
	http     *http.Server
	throttle *loginThrottle
	proxies  trustedProxies
	now      func() time.Time
	handlers routeHandlers
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		policy:   deps.Policy,
		authSvc:  deps.Auth,
		deps:     deps,
		throttle: newLoginThrottle(loginAttempts, loginWindow),
		proxies:  parseTrustedProxies(deps.Config.Security.TrustedProxies),
		now:      time.Now,
	}
	s.handlers = s.newRouteHandlers()
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.recoverMiddleware)
	r.Use(s.requestMetaMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.securityHeadersMiddleware)
	r.Use(s.loggingMiddleware)

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Use(s.jsonMiddleware)
		apiRouter.MethodFunc("GET", "/health", s.health)
		s.registerAuthRoutes(apiRouter, s.handlers)
		s.registerDocumentRoutes(apiRouter, s.handlers)
		s.registerCatalogRoutes(apiRouter, s.handlers)
	})

	if s.deps.FilesDir != "" {
		prefix := strings.TrimRight(s.cfg.Storage.PublicBaseURL, "/")
		if strings.HasPrefix(prefix, "/") && prefix != "" {
			r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(s.deps.FilesDir))))
		}
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "Route not found")
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "OK",
		"message": "DMS API is running",
		"time":    s.now().UTC(),
	})
}

// ListenAndServe blocks until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.cfg.ListenAddr)
		errCh <- s.http.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Printf("shutting down http server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
