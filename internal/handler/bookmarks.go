package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/models"
	"github.com/mmeshcher/linkvault/internal/normalize"
	"github.com/mmeshcher/linkvault/internal/service"
)

const maxBodyBytes = 1 << 20

func (h *Handler) CreateBookmarkHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	in, err := decodeCreateInput(rw, r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	view, err := h.service.CreateBookmark(r.Context(), userID, in)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	h.writeJSON(rw, http.StatusCreated, view)
}

// decodeCreateInput accepts a JSON body or an HTML form. Both produce the same
// CreateInput; in a form, tags is comma-separated and may repeat.
func decodeCreateInput(rw http.ResponseWriter, r *http.Request) (models.CreateInput, error) {
	r.Body = http.MaxBytesReader(rw, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var in models.CreateInput
		if err := decodeJSON(r, &in); err != nil {
			return in, err
		}
		return in, nil

	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return models.CreateInput{}, apperror.InvalidInput("invalid form body").WithCause(err)
		}

		in := models.CreateInput{
			URL:   r.PostForm.Get("url"),
			Title: r.PostForm.Get("title"),
			Notes: r.PostForm.Get("notes"),
		}
		for _, v := range r.PostForm["tags"] {
			in.Tags = append(in.Tags, normalize.SplitTags(v)...)
		}
		if raw := r.PostForm.Get("archived"); raw != "" {
			archived, err := parseFormBool(raw)
			if err != nil {
				return in, err
			}
			in.Archived = archived
		}
		return in, nil

	default:
		return models.CreateInput{}, apperror.InvalidInputf("unsupported content type %q", r.Header.Get("Content-Type"))
	}
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return apperror.InvalidInput("invalid JSON body").WithCause(err)
	}
	return nil
}

// parseFormBool also accepts "on", which is what an HTML checkbox sends.
func parseFormBool(raw string) (bool, error) {
	if strings.EqualFold(raw, "on") {
		return true, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.InvalidInputf("archived must be a boolean, got %q", raw)
	}
	return b, nil
}

func bookmarkID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.InvalidInputf("invalid bookmark id %q", raw)
	}
	return id, nil
}

func (h *Handler) ListBookmarksHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	filter, err := service.ParseListFilter(r.URL.Query())
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	result, err := h.service.ListBookmarks(r.Context(), userID, filter)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	h.writeJSON(rw, http.StatusOK, result)
}

func (h *Handler) GetBookmarkHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}
	id, err := bookmarkID(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	view, err := h.service.GetBookmark(r.Context(), userID, id)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	h.writeJSON(rw, http.StatusOK, view)
}

func (h *Handler) UpdateBookmarkHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}
	id, err := bookmarkID(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	r.Body = http.MaxBytesReader(rw, r.Body, maxBodyBytes)
	var patch models.Patch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(rw, r, err)
		return
	}

	view, err := h.service.UpdateBookmark(r.Context(), userID, id, patch)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	h.writeJSON(rw, http.StatusOK, view)
}

func (h *Handler) DeleteBookmarkHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}
	id, err := bookmarkID(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	if err := h.service.DeleteBookmark(r.Context(), userID, id); err != nil {
		h.writeError(rw, r, err)
		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

type archiveResponse struct {
	ID       int64 `json:"id"`
	Archived bool  `json:"archived"`
}

func (h *Handler) ToggleArchiveHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}
	id, err := bookmarkID(r)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	archived, err := h.service.ToggleArchive(r.Context(), userID, id)
	if err != nil {
		h.writeError(rw, r, err)
		return
	}

	h.writeJSON(rw, http.StatusOK, archiveResponse{ID: id, Archived: archived})
}
