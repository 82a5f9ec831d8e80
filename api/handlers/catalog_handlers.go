package handlers

import (
	"net/http"

	"dms-server/config"
	"dms-server/core/catalog"
	"dms-server/core/utils"
)

// NamedHandler serves departments or categories.
type NamedHandler struct {
	base
	svc   *catalog.Named
	label string
}

func NewNamedHandler(cfg *config.AppConfig, svc *catalog.Named, label string, logger *utils.Logger) *NamedHandler {
	return &NamedHandler{base: base{cfg: cfg, logger: logger}, svc: svc, label: label}
}

func (h *NamedHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", items)
}

func (h *NamedHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", item)
}

func (h *NamedHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in catalog.NamedInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, h.label+" created successfully", item)
}

func (h *NamedHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in catalog.NamedInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.svc.Update(r.Context(), urlParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, h.label+" updated successfully", item)
}

func (h *NamedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), urlParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, h.label+" deleted successfully", nil)
}

type TagsHandler struct {
	base
	svc *catalog.Tags
}

func NewTagsHandler(cfg *config.AppConfig, svc *catalog.Tags, logger *utils.Logger) *TagsHandler {
	return &TagsHandler{base: base{cfg: cfg, logger: logger}, svc: svc}
}

func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", items)
}

func (h *TagsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tag, err := h.svc.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", tag)
}

func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	tag, err := h.svc.Create(r.Context(), in.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Tag created successfully", tag)
}

func (h *TagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), urlParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Tag deleted successfully", nil)
}

type RolesHandler struct {
	base
	svc *catalog.Roles
}

func NewRolesHandler(cfg *config.AppConfig, svc *catalog.Roles, logger *utils.Logger) *RolesHandler {
	return &RolesHandler{base: base{cfg: cfg, logger: logger}, svc: svc}
}

func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", roles)
}

func (h *RolesHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, err := h.svc.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", role)
}
