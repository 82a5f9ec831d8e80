package routegroups

import "net/http"

// Guards wraps handlers with the session and permission checks of the
// server. Public marks the few routes that need neither.
type Guards struct {
	WithSession       func(http.HandlerFunc) http.HandlerFunc
	RequirePermission func(string) func(http.HandlerFunc) http.HandlerFunc
	RateLimit         func(http.HandlerFunc) http.HandlerFunc
}

func (g Guards) SessionPerm(perm string, h http.HandlerFunc) http.HandlerFunc {
	return g.WithSession(g.RequirePermission(perm)(h))
}

// Session requires a signed in caller without a route permission.
func (g Guards) Session(h http.HandlerFunc) http.HandlerFunc {
	return g.WithSession(h)
}

func (g Guards) Public(h http.HandlerFunc) http.HandlerFunc {
	return h
}

func (g Guards) Limited(h http.HandlerFunc) http.HandlerFunc {
	if g.RateLimit == nil {
		return h
	}
	return g.RateLimit(h)
}
