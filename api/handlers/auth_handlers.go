package handlers

import (
	"net/http"
	"strings"

	"dms-server/config"
	"dms-server/core/apperr"
	"dms-server/core/auth"
	"dms-server/core/utils"
)

type AuthHandler struct {
	base
	svc *auth.Service
}

func NewAuthHandler(cfg *config.AppConfig, svc *auth.Service, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{base: base{cfg: cfg, logger: logger}, svc: svc}
}

// Credentials is the login body. Either email or username identifies the account.
type Credentials struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Login() string {
	if v := strings.TrimSpace(c.Email); v != "" {
		return v
	}
	return strings.TrimSpace(c.Username)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, false)
}

// RegisterAdmin lets an admin create accounts with any role.
func (h *AuthHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, true)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, byAdmin bool) {
	var in auth.RegisterInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.svc.Register(r.Context(), in, byAdmin)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "User registered successfully", user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cred Credentials
	if err := decode(r, &cred); err != nil {
		h.fail(w, r, err)
		return
	}
	if cred.Login() == "" || cred.Password == "" {
		h.fail(w, r, apperr.Validation("Email and password are required"))
		return
	}
	res, err := h.svc.Login(r.Context(), cred.Login(), cred.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", user)
}
