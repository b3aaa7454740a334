// Package mocks holds testify mocks for the service collaborators.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/mmeshcher/linkvault/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func NewMockRepository(t *testing.T) *MockRepository {
	m := &MockRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRepository) CreateBookmark(ctx context.Context, userID string, in models.NewBookmark) (models.BookmarkView, error) {
	args := m.Called(ctx, userID, in)
	return args.Get(0).(models.BookmarkView), args.Error(1)
}

func (m *MockRepository) GetBookmark(ctx context.Context, userID string, bookmarkID int64) (models.BookmarkView, error) {
	args := m.Called(ctx, userID, bookmarkID)
	return args.Get(0).(models.BookmarkView), args.Error(1)
}

func (m *MockRepository) UpdateBookmark(ctx context.Context, userID string, bookmarkID int64, patch models.Patch) (models.BookmarkView, error) {
	args := m.Called(ctx, userID, bookmarkID, patch)
	return args.Get(0).(models.BookmarkView), args.Error(1)
}

func (m *MockRepository) DeleteBookmark(ctx context.Context, userID string, bookmarkID int64) error {
	return m.Called(ctx, userID, bookmarkID).Error(0)
}

func (m *MockRepository) ToggleArchive(ctx context.Context, userID string, bookmarkID int64) (bool, error) {
	args := m.Called(ctx, userID, bookmarkID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListBookmarks(ctx context.Context, userID string, f models.ListFilter) (models.ListResult, error) {
	args := m.Called(ctx, userID, f)
	return args.Get(0).(models.ListResult), args.Error(1)
}

func (m *MockRepository) ListTags(ctx context.Context, userID string) ([]models.TagCount, error) {
	args := m.Called(ctx, userID)
	tags, _ := args.Get(0).([]models.TagCount)
	return tags, args.Error(1)
}

func (m *MockRepository) ExportAll(ctx context.Context, userID string) ([]models.BookmarkView, error) {
	args := m.Called(ctx, userID)
	views, _ := args.Get(0).([]models.BookmarkView)
	return views, args.Error(1)
}

func (m *MockRepository) Stats(ctx context.Context, userID string) (models.Stats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Stats), args.Error(1)
}

func (m *MockRepository) ResolveByShortCode(ctx context.Context, code string) (models.Bookmark, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(models.Bookmark), args.Error(1)
}

func (m *MockRepository) TouchLastAccessed(ctx context.Context, bookmarkID int64) error {
	return m.Called(ctx, bookmarkID).Error(0)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockTitleScraper struct {
	mock.Mock
}

func NewMockTitleScraper(t *testing.T) *MockTitleScraper {
	m := &MockTitleScraper{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTitleScraper) Title(ctx context.Context, rawURL string) string {
	return m.Called(ctx, rawURL).String(0)
}
