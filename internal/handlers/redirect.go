package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linklytics/apiserver/internal/store"
	"github.com/linklytics/apiserver/types"
)

// redirectService is the slice of URLService the redirect handler consumes.
type redirectService interface {
	ResolveAndRecordClick(ctx context.Context, shortCode string) (types.URLMapping, error)
}

// RedirectHandler resolves short codes to their original URLs.
type RedirectHandler struct {
	service redirectService
}

// NewRedirectHandler constructs a RedirectHandler.
func NewRedirectHandler(service redirectService) *RedirectHandler {
	return &RedirectHandler{service: service}
}

// Redirect resolves the short code, records the click, and issues a
// temporary redirect to the original URL.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	mapping, err := h.service.ResolveAndRecordClick(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "short url not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to resolve short url")
		return
	}

	http.Redirect(w, r, mapping.OriginalURL, http.StatusFound)
}
