package handlers

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"dms-server/config"
	"dms-server/core/apperr"
	"dms-server/core/blob"
	"dms-server/core/docs"
	"dms-server/core/utils"
)

// multipartSlack covers the form fields sent next to the file.
const multipartSlack = 1 << 20

type DocsHandler struct {
	base
	svc *docs.Service
}

func NewDocsHandler(cfg *config.AppConfig, svc *docs.Service, logger *utils.Logger) *DocsHandler {
	return &DocsHandler{base: base{cfg: cfg, logger: logger}, svc: svc}
}

func (h *DocsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := h.pageParams(r, h.cfg.Pagination.DefaultLimit)
	q := r.URL.Query()
	items, total, err := h.svc.List(r.Context(), principal(r).Subject(), docs.ListQuery{
		Page:         page,
		Limit:        limit,
		CategoryID:   strings.TrimSpace(q.Get("categoryId")),
		DepartmentID: strings.TrimSpace(q.Get("departmentId")),
		TagID:        strings.TrimSpace(q.Get("tagId")),
		Search:       strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.page(w, items, NewPagination(page, limit, total))
}

func (h *DocsHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), principal(r).Subject(), urlParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", doc)
}

func (h *DocsHandler) Download(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Download(r.Context(), principal(r).Subject(), urlParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", d)
}

func (h *DocsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, closeFn, err := h.readFile(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFn()
	doc, err := h.svc.Upload(r.Context(), principal(r).Subject(), docs.UploadInput{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		CategoryID:   r.FormValue("categoryId"),
		DepartmentID: r.FormValue("departmentId"),
		Tags:         docs.ParseTags(r.FormValue("tags")),
		File:         file,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Document uploaded successfully", doc)
}

func (h *DocsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req docs.UpdateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := h.svc.Update(r.Context(), principal(r).Subject(), urlParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Document updated successfully", doc)
}

func (h *DocsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), principal(r).Subject(), urlParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Document deleted successfully", nil)
}

func (h *DocsHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListVersions(r.Context(), principal(r).Subject(), urlParam(r, "documentId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", items)
}

func (h *DocsHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	file, closeFn, err := h.readFile(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFn()
	v, err := h.svc.CreateVersion(r.Context(), principal(r).Subject(), urlParam(r, "documentId"), file, r.FormValue("changeNote"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Version created successfully", v)
}

func (h *DocsHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.RestoreVersion(r.Context(), principal(r).Subject(), urlParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Version restored successfully", doc)
}

func (h *DocsHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListPermissions(r.Context(), principal(r).Subject(), urlParam(r, "documentId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "", items)
}

func (h *DocsHandler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var in docs.PermissionInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.CreatePermission(r.Context(), principal(r).Subject(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Permission created successfully", p)
}

func (h *DocsHandler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	var in docs.PermissionUpdate
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.UpdatePermission(r.Context(), principal(r).Subject(), urlParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Permission updated successfully", p)
}

func (h *DocsHandler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePermission(r.Context(), principal(r).Subject(), urlParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Permission deleted successfully", nil)
}

// readFile parses the multipart form and returns the "file" part. A
// missing part yields a nil object so the service can reject it.
func (h *DocsHandler) readFile(w http.ResponseWriter, r *http.Request) (*blob.Object, func(), error) {
	noop := func() {}
	max := h.cfg.Upload.MaxBytes
	if max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max+multipartSlack)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, apperr.Validation("File is too large")
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, apperr.Validation("No file uploaded")
		}
		return nil, noop, apperr.Validation("Invalid multipart form: " + err.Error())
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, apperr.Validation("Invalid file: " + err.Error())
	}
	return &blob.Object{
		FileName:    filepath.Base(hdr.Filename),
		ContentType: contentTypeOf(hdr),
		Size:        hdr.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func contentTypeOf(hdr *multipart.FileHeader) string {
	if ct := strings.TrimSpace(hdr.Header.Get("Content-Type")); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(hdr.Filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
