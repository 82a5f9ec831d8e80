package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"dms-server/config"
	"dms-server/core/apperr"
	"dms-server/core/auth"
	"dms-server/core/utils"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Stack      string      `json:"stack,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError answers with a failure envelope. Only used for errors raised
// outside a handler (middleware, 404).
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{Success: false, Message: message})
}

// base carries what every handler needs to answer.
type base struct {
	cfg    *config.AppConfig
	logger *utils.Logger
}

func (b base) ok(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

func (b base) page(w http.ResponseWriter, data any, p *Pagination) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: p})
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	ae, known := apperr.As(err)
	if !known {
		if b.logger != nil {
			b.logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		}
		env := Envelope{Success: false, Message: err.Error()}
		if !b.cfg.IsProduction() {
			env.Stack = err.Error()
		}
		WriteJSON(w, http.StatusInternalServerError, env)
		return
	}
	status := StatusOf(ae.Kind)
	if status == http.StatusInternalServerError && b.logger != nil {
		b.logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	env := Envelope{Success: false, Message: ae.Message, Data: ae.Data}
	if status == http.StatusInternalServerError && !b.cfg.IsProduction() && ae.Err != nil {
		env.Stack = ae.Err.Error()
	}
	WriteJSON(w, status, env)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindAlreadyLocked:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden, apperr.KindLocked:
		return http.StatusForbidden
	case apperr.KindNotFound, apperr.KindNotLocked:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body. An empty body leaves out untouched.
func decode(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(out)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Validation("Invalid request body: " + err.Error())
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// pageParams reads page and limit, clamped to the configured bounds.
func (b base) pageParams(r *http.Request, defLimit int) (int, int) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	if defLimit <= 0 {
		defLimit = 10
	}
	limit := atoiDefault(q.Get("limit"), defLimit)
	if limit < 1 {
		limit = defLimit
	}
	if max := b.cfg.Pagination.MaxLimit; max > 0 && limit > max {
		limit = max
	}
	return page, limit
}

func atoiDefault(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}
