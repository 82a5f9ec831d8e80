package handlers

import (
	"net/http"
	"strings"
	"time"

	"dms-server/config"
	"dms-server/core/audit"
	"dms-server/core/store"
	"dms-server/core/utils"
)

type AuditHandler struct {
	base
	rec *audit.Recorder
}

func NewAuditHandler(cfg *config.AppConfig, rec *audit.Recorder, logger *utils.Logger) *AuditHandler {
	return &AuditHandler{base: base{cfg: cfg, logger: logger}, rec: rec}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := h.pageParams(r, h.cfg.Pagination.AuditDefaultLimit)
	q := r.URL.Query()
	filter := store.AuditFilter{
		UserID:     strings.TrimSpace(q.Get("userId")),
		DocumentID: strings.TrimSpace(q.Get("documentId")),
		Action:     strings.TrimSpace(q.Get("action")),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	if t, ok := parseDateTime(q.Get("from")); ok {
		filter.From = &t
	}
	if t, ok := parseDateTime(q.Get("to")); ok {
		filter.To = &t
	}
	logs, total, err := h.rec.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.page(w, logs, NewPagination(page, limit, total))
}

func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.rec.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", entry)
}

func parseDateTime(raw string) (time.Time, bool) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
