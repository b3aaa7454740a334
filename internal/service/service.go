package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/models"
	"github.com/mmeshcher/linkvault/internal/normalize"
	"github.com/mmeshcher/linkvault/internal/shortcode"
)

const DefaultTitle = "Untitled"

type Repository interface {
	CreateBookmark(ctx context.Context, userID string, in models.NewBookmark) (models.BookmarkView, error)
	GetBookmark(ctx context.Context, userID string, bookmarkID int64) (models.BookmarkView, error)
	UpdateBookmark(ctx context.Context, userID string, bookmarkID int64, patch models.Patch) (models.BookmarkView, error)
	DeleteBookmark(ctx context.Context, userID string, bookmarkID int64) error
	ToggleArchive(ctx context.Context, userID string, bookmarkID int64) (bool, error)
	ListBookmarks(ctx context.Context, userID string, f models.ListFilter) (models.ListResult, error)
	ListTags(ctx context.Context, userID string) ([]models.TagCount, error)
	ExportAll(ctx context.Context, userID string) ([]models.BookmarkView, error)
	Stats(ctx context.Context, userID string) (models.Stats, error)
	ResolveByShortCode(ctx context.Context, code string) (models.Bookmark, error)
	TouchLastAccessed(ctx context.Context, bookmarkID int64) error
	Ping(ctx context.Context) error
}

// TitleScraper looks up a page title. It returns "" when it cannot, and must
// bound its own running time.
type TitleScraper interface {
	Title(ctx context.Context, rawURL string) string
}

type BookmarkService struct {
	repo      Repository
	scraper   TitleScraper
	validator *validator.Validate
	baseURL   string
	logger    *zap.Logger
}

// NewBookmarkService wires the core. scraper may be nil.
func NewBookmarkService(repo Repository, scraper TitleScraper, baseURL string, logger *zap.Logger) *BookmarkService {
	return &BookmarkService{
		repo:      repo,
		scraper:   scraper,
		validator: newValidator(),
		baseURL:   baseURL,
		logger:    logger,
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.InvalidInput("user id is required")
	}
	return nil
}

func (s *BookmarkService) CreateBookmark(ctx context.Context, userID string, in models.CreateInput) (models.BookmarkView, error) {
	if err := requireUser(userID); err != nil {
		return models.BookmarkView{}, err
	}

	in.URL = strings.TrimSpace(in.URL)
	if err := s.validate(in); err != nil {
		return models.BookmarkView{}, err
	}

	canonical, err := normalize.URL(in.URL)
	if err != nil {
		s.logger.Warn("Invalid URL provided", zap.String("url", in.URL), zap.Error(err))
		return models.BookmarkView{}, err
	}

	tags, err := normalize.TagNames(in.Tags)
	if err != nil {
		return models.BookmarkView{}, err
	}

	view, err := s.repo.CreateBookmark(ctx, userID, models.NewBookmark{
		CanonicalURL: canonical,
		Fingerprint:  normalize.Fingerprint(canonical),
		Title:        s.resolveTitle(ctx, in.Title, in.URL),
		Notes:        strings.TrimSpace(in.Notes),
		Archived:     in.Archived,
		Tags:         tags,
	})
	if err != nil {
		if errors.Is(err, apperror.ErrCodeSpaceExhausted) {
			s.logger.Error("Failed to allocate short code", zap.String("url", canonical), zap.Error(err))
		}
		return models.BookmarkView{}, err
	}

	s.logger.Info("Bookmark created",
		zap.String("userID", userID),
		zap.Int64("bookmarkID", view.ID),
	)

	return s.decorate(view), nil
}

// resolveTitle prefers the user's title, then the page's, then DefaultTitle.
// The scraper sees the URL as typed since canonicalization lower-cases paths.
func (s *BookmarkService) resolveTitle(ctx context.Context, title, rawURL string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}

	if s.scraper != nil {
		if scraped := s.scraper.Title(ctx, rawURL); scraped != "" {
			return scraped
		}
		s.logger.Warn("No title found, using default", zap.String("url", rawURL))
	}

	return DefaultTitle
}

func (s *BookmarkService) GetBookmark(ctx context.Context, userID string, bookmarkID int64) (models.BookmarkView, error) {
	if err := requireUser(userID); err != nil {
		return models.BookmarkView{}, err
	}

	view, err := s.repo.GetBookmark(ctx, userID, bookmarkID)
	if err != nil {
		return models.BookmarkView{}, err
	}
	return s.decorate(view), nil
}

func (s *BookmarkService) UpdateBookmark(ctx context.Context, userID string, bookmarkID int64, patch models.Patch) (models.BookmarkView, error) {
	if err := requireUser(userID); err != nil {
		return models.BookmarkView{}, err
	}
	if err := s.validate(patch); err != nil {
		return models.BookmarkView{}, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			title = DefaultTitle
		}
		patch.Title = &title
	}
	if patch.Notes != nil {
		notes := strings.TrimSpace(*patch.Notes)
		patch.Notes = &notes
	}
	if patch.Tags != nil {
		tags, err := normalize.TagNames(*patch.Tags)
		if err != nil {
			return models.BookmarkView{}, err
		}
		patch.Tags = &tags
	}

	view, err := s.repo.UpdateBookmark(ctx, userID, bookmarkID, patch)
	if err != nil {
		return models.BookmarkView{}, err
	}
	return s.decorate(view), nil
}

func (s *BookmarkService) DeleteBookmark(ctx context.Context, userID string, bookmarkID int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	if err := s.repo.DeleteBookmark(ctx, userID, bookmarkID); err != nil {
		return err
	}

	s.logger.Info("Bookmark deleted",
		zap.String("userID", userID),
		zap.Int64("bookmarkID", bookmarkID),
	)
	return nil
}

func (s *BookmarkService) ToggleArchive(ctx context.Context, userID string, bookmarkID int64) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}
	return s.repo.ToggleArchive(ctx, userID, bookmarkID)
}

func (s *BookmarkService) ListBookmarks(ctx context.Context, userID string, f models.ListFilter) (models.ListResult, error) {
	if err := requireUser(userID); err != nil {
		return models.ListResult{}, err
	}

	f, err := normalizeFilter(f)
	if err != nil {
		return models.ListResult{}, err
	}

	result, err := s.repo.ListBookmarks(ctx, userID, f)
	if err != nil {
		return models.ListResult{}, err
	}

	for i := range result.Items {
		result.Items[i] = s.decorate(result.Items[i])
	}
	return result, nil
}

func (s *BookmarkService) ListTags(ctx context.Context, userID string) ([]models.TagCount, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.repo.ListTags(ctx, userID)
}

func (s *BookmarkService) ExportAll(ctx context.Context, userID string) ([]models.BookmarkView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	views, err := s.repo.ExportAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range views {
		views[i] = s.decorate(views[i])
	}
	return views, nil
}

func (s *BookmarkService) Stats(ctx context.Context, userID string) (models.Stats, error) {
	if err := requireUser(userID); err != nil {
		return models.Stats{}, err
	}
	return s.repo.Stats(ctx, userID)
}

// ResolveShortCode returns the target URL for a redirect. Recording the
// access is best-effort and never fails the lookup.
func (s *BookmarkService) ResolveShortCode(ctx context.Context, code string) (string, error) {
	if !validShortCode(code) {
		return "", apperror.NotFoundf("short code %q not found", code)
	}

	b, err := s.repo.ResolveByShortCode(ctx, code)
	if err != nil {
		return "", err
	}

	if err := s.repo.TouchLastAccessed(ctx, b.ID); err != nil {
		s.logger.Warn("Failed to record access",
			zap.String("shortCode", code),
			zap.Int64("bookmarkID", b.ID),
			zap.Error(err),
		)
	}

	return b.CanonicalURL, nil
}

func (s *BookmarkService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *BookmarkService) decorate(view models.BookmarkView) models.BookmarkView {
	if view.ShortCode != "" && s.baseURL != "" {
		if shortURL, err := url.JoinPath(s.baseURL, view.ShortCode); err == nil {
			view.ShortURL = shortURL
		}
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	return view
}

func validShortCode(code string) bool {
	if code == "" || len(code) > shortcode.MaxLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(shortcode.Alphabet, r) {
			return false
		}
	}
	return true
}
