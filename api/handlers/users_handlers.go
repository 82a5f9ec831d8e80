package handlers

import (
	"net/http"
	"strings"

	"dms-server/config"
	"dms-server/core/auth"
	"dms-server/core/store"
	"dms-server/core/utils"
)

type UsersHandler struct {
	base
	svc *auth.Service
}

func NewUsersHandler(cfg *config.AppConfig, svc *auth.Service, logger *utils.Logger) *UsersHandler {
	return &UsersHandler{base: base{cfg: cfg, logger: logger}, svc: svc}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := h.pageParams(r, h.cfg.Pagination.DefaultLimit)
	q := r.URL.Query()
	users, total, err := h.svc.ListUsers(r.Context(), store.UserFilter{
		DepartmentID: strings.TrimSpace(q.Get("departmentId")),
		RoleID:       strings.TrimSpace(q.Get("roleId")),
		Search:       strings.TrimSpace(q.Get("search")),
		Limit:        limit,
		Offset:       (page - 1) * limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.page(w, users, NewPagination(page, limit, total))
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", user)
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in auth.UpdateUserInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.svc.UpdateUser(r.Context(), principal(r), urlParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "User updated successfully", user)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), principal(r), urlParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "User deleted successfully", nil)
}
