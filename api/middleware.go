package api

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"dms-server/api/handlers"
	"dms-server/core/apperr"
	"dms-server/core/audit"
	"dms-server/core/auth"
	"dms-server/core/rbac"

	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if s.logger != nil {
					s.logger.Errorf("PANIC %s %s: %v\n%s", r.Method, r.URL.Path, rec, string(debug.Stack()))
				}
				handlers.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if s.isHTTPS(r) {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestMetaMiddleware stores the caller's address and agent for audit rows.
func (s *Server) requestMetaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithRequestMeta(r.Context(), audit.RequestMeta{IP: s.clientIP(r), UserAgent: r.UserAgent()})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.logger == nil {
			return
		}
		user := "-"
		if rec.principal != nil {
			user = rec.principal.User.Username
		}
		s.logger.With("request_id", middleware.GetReqID(r.Context()), "user", user).
			Printf("%s %s status=%d dur=%s bytes=%d", r.Method, r.URL.Path, rec.status, time.Since(start), rec.size)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status    int
	size      int
	principal *auth.Principal
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// withSession resolves the bearer token into a principal. The user row is
// reloaded so role changes and deletions apply immediately.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			if s.logger != nil {
				s.logger.Printf("AUTH fail (missing token) %s %s", r.Method, r.URL.Path)
			}
			handlers.WriteError(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		p, err := s.authSvc.Authenticate(r.Context(), raw)
		if err != nil {
			if s.logger != nil {
				s.logger.Printf("AUTH fail %s %s: %v", r.Method, r.URL.Path, err)
			}
			if apperr.Is(err, apperr.KindUnauthenticated) {
				handlers.WriteError(w, http.StatusUnauthorized, "Invalid token.")
				return
			}
			handlers.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if rec, ok := w.(*statusRecorder); ok {
			rec.principal = p
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *Server) requirePermission(perm rbac.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				if s.logger != nil {
					s.logger.Printf("PERM fail (no session) %s %s need=%s", r.Method, r.URL.Path, perm)
				}
				handlers.WriteError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}
			if !s.policy.Allowed(p.Roles(), perm) {
				if s.logger != nil {
					s.logger.Printf("PERM fail %s %s user=%s roles=%v need=%s", r.Method, r.URL.Path, p.User.Username, p.Roles(), perm)
				}
				handlers.WriteError(w, http.StatusForbidden, "Access denied. Insufficient permissions.")
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}
