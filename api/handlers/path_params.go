package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// urlParam reads a chi route parameter such as {id} or {documentId}.
func urlParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}
