package handler

import (
	"bytes"
	"net/http"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/export"
	"github.com/mmeshcher/linkvault/internal/models"
)

func (h *Handler) ListTagsHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	tags, err := h.service.ListTags(r.Context(), userID)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}
	if tags == nil {
		tags = []models.TagCount{}
	}

	h.writeJSON(rw, http.StatusOK, tags)
}

func (h *Handler) StatsHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}
	if stats.TopTags == nil {
		stats.TopTags = []models.TagCount{}
	}

	h.writeJSON(rw, http.StatusOK, stats)
}

func (h *Handler) ExportHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	views, err := h.service.ExportAll(r.Context(), userID)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}
	if len(views) == 0 {
		h.writeError(rw, r, apperror.NotFound("no bookmarks to export"))
		return
	}

	var buf bytes.Buffer
	if err := export.WriteNetscape(&buf, views); err != nil {
		h.writeError(rw, r, apperror.Internal("render export", err))
		return
	}

	rw.Header().Set("Content-Type", export.ContentType)
	rw.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	rw.WriteHeader(http.StatusOK)
	rw.Write(buf.Bytes())
}
