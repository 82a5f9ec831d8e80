package handlers

import (
	"net/http"

	"dms-server/config"
	"dms-server/core/checkout"
	"dms-server/core/utils"
)

type CheckoutsHandler struct {
	base
	locks *checkout.Manager
}

func NewCheckoutsHandler(cfg *config.AppConfig, locks *checkout.Manager, logger *utils.Logger) *CheckoutsHandler {
	return &CheckoutsHandler{base: base{cfg: cfg, logger: logger}, locks: locks}
}

type checkoutRequest struct {
	ExpiresInHours *float64 `json:"expiresInHours"`
}

func (h *CheckoutsHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.locks.Checkout(r.Context(), principal(r).Subject(), urlParam(r, "documentId"), req.ExpiresInHours)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Document checked out successfully", c)
}

func (h *CheckoutsHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	if err := h.locks.Checkin(r.Context(), principal(r).Subject(), urlParam(r, "documentId")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Document checked in successfully", nil)
}

// Status answers with the live checkout, or no data when the document is
// free. Expired rows are dropped on the way.
func (h *CheckoutsHandler) Status(w http.ResponseWriter, r *http.Request) {
	c, err := h.locks.Status(r.Context(), urlParam(r, "documentId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if c == nil {
		h.ok(w, http.StatusOK, "Document is not checked out", nil)
		return
	}
	h.ok(w, http.StatusOK, "", c)
}
