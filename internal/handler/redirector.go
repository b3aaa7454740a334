package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) RedirectHandler(rw http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	target, err := h.service.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	http.Redirect(rw, r, target, http.StatusTemporaryRedirect)
}
