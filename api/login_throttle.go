package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"dms-server/api/handlers"
)

const (
	loginAttempts     = 10
	loginWindow       = time.Minute
	loginIdleTTL      = 10 * time.Minute
	loginSweepEvery   = time.Minute
	loginMaxKeys      = 10000
	loginBodyMaxBytes = 64 << 10
)

// loginThrottle counts attempts per key in fixed windows.
type loginThrottle struct {
	mu        sync.Mutex
	attempts  int
	window    time.Duration
	windows   map[string]*attemptWindow
	lastSweep time.Time
	now       func() time.Time
}

type attemptWindow struct {
	start time.Time
	used  int
	seen  time.Time
}

func newLoginThrottle(attempts int, window time.Duration) *loginThrottle {
	return &loginThrottle{
		attempts: attempts,
		window:   window,
		windows:  make(map[string]*attemptWindow),
		now:      time.Now,
	}
}

// take spends one attempt for key. When the window is used up it returns
// the time left until it resets.
func (t *loginThrottle) take(key string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if now.Sub(t.lastSweep) >= loginSweepEvery {
		t.sweep(now)
		t.lastSweep = now
	}
	w := t.windows[key]
	if w == nil || now.Sub(w.start) >= t.window {
		w = &attemptWindow{start: now}
		t.windows[key] = w
	}
	w.seen = now
	if w.used >= t.attempts {
		return w.start.Add(t.window).Sub(now), false
	}
	w.used++
	return 0, true
}

func (t *loginThrottle) sweep(now time.Time) {
	for key, w := range t.windows {
		if now.Sub(w.seen) > loginIdleTTL {
			delete(t.windows, key)
		}
	}
	if len(t.windows) <= loginMaxKeys {
		return
	}
	keys := make([]string, 0, len(t.windows))
	for key := range t.windows {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return t.windows[keys[i]].seen.Before(t.windows[keys[j]].seen) })
	for _, key := range keys[:len(keys)-loginMaxKeys] {
		delete(t.windows, key)
	}
}

// throttleLogin limits login attempts per client address and per account
// name. The body is buffered so the handler can decode it again.
func (s *Server) throttleLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, loginBodyMaxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				handlers.WriteError(w, http.StatusRequestEntityTooLarge, "Payload too large")
				return
			}
			handlers.WriteError(w, http.StatusBadRequest, "Bad request")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var cred handlers.Credentials
		_ = json.Unmarshal(body, &cred)
		keys := []string{"ip|" + s.clientIP(r)}
		if login := strings.ToLower(cred.Login()); login != "" {
			keys = append(keys, "login|"+login)
		}
		for _, key := range keys {
			if wait, ok := s.throttle.take(key); !ok {
				if s.logger != nil {
					s.logger.Printf("AUTH throttled %s", key)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				handlers.WriteError(w, http.StatusTooManyRequests, "Too many login attempts, please try again later")
				return
			}
		}
		next(w, r)
	}
}
