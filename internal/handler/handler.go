package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/middleware"
	"github.com/mmeshcher/linkvault/internal/models"
)

type BookmarkService interface {
	CreateBookmark(ctx context.Context, userID string, in models.CreateInput) (models.BookmarkView, error)
	GetBookmark(ctx context.Context, userID string, bookmarkID int64) (models.BookmarkView, error)
	UpdateBookmark(ctx context.Context, userID string, bookmarkID int64, patch models.Patch) (models.BookmarkView, error)
	DeleteBookmark(ctx context.Context, userID string, bookmarkID int64) error
	ToggleArchive(ctx context.Context, userID string, bookmarkID int64) (bool, error)
	ListBookmarks(ctx context.Context, userID string, f models.ListFilter) (models.ListResult, error)
	ListTags(ctx context.Context, userID string) ([]models.TagCount, error)
	ExportAll(ctx context.Context, userID string) ([]models.BookmarkView, error)
	Stats(ctx context.Context, userID string) (models.Stats, error)
	ResolveShortCode(ctx context.Context, code string) (string, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	service BookmarkService
	logger  *zap.Logger
	auth    *middleware.Auth
	limiter *middleware.KeyedLimiter
}

func NewHandler(service BookmarkService, logger *zap.Logger, auth *middleware.Auth, limiter *middleware.KeyedLimiter) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		auth:    auth,
		limiter: limiter,
	}
}

type errorResponse struct {
	Error *apperror.Error `json:"error"`
}

func (h *Handler) writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError answers with the error's code. Anything that is not an
// *apperror.Error is logged and reported as INTERNAL without its text.
func (h *Handler) writeError(rw http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.ErrInternal.WithCause(err)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}

	h.writeJSON(rw, status, errorResponse{Error: appErr})
}

func userFromRequest(r *http.Request) (string, error) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return "", apperror.InvalidInput("missing user identity")
	}
	return userID, nil
}
