package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func TestUpdateBookmark_UpdatedAtOnlyOnChange(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	in := newBookmark(t, "https://example.com/doc", "go")
	in.Title = "Doc"
	view, err := repo.CreateBookmark(ctx, "user-a", in)
	require.NoError(t, err)

	same := []string{"go"}
	got, err := repo.UpdateBookmark(ctx, "user-a", view.ID, models.Patch{
		Title: ptr("Doc"),
		Tags:  &same,
	})
	require.NoError(t, err)
	assert.Nil(t, got.UpdatedAt)

	got, err = repo.UpdateBookmark(ctx, "user-a", view.ID, models.Patch{Notes: ptr("read later")})
	require.NoError(t, err)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, "Doc", got.Title)
	assert.Equal(t, "read later", got.Notes)
	assert.Equal(t, []string{"go"}, got.Tags)

	first := *got.UpdatedAt
	retag := []string{"go", "web"}
	got, err = repo.UpdateBookmark(ctx, "user-a", view.ID, models.Patch{Tags: &retag})
	require.NoError(t, err)
	require.NotNil(t, got.UpdatedAt)
	assert.False(t, got.UpdatedAt.Before(first))
	assert.Equal(t, []string{"go", "web"}, got.Tags)
}

func TestUpdateBookmark_ReplaceTags(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	view, err := repo.CreateBookmark(ctx, "user-a", newBookmark(t, "https://example.com/r", "a", "b", "c"))
	require.NoError(t, err)
	_, err = repo.CreateBookmark(ctx, "user-a", newBookmark(t, "https://example.com/s", "b"))
	require.NoError(t, err)

	tags := []string{"b", "d"}
	got, err := repo.UpdateBookmark(ctx, "user-a", view.ID, models.Patch{Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "d"}, got.Tags)
	assert.Equal(t, map[string]int{"b": 2, "d": 1}, tagCountMap(t, repo, "user-a"))
	requireCountsConsistent(t, repo)

	none := []string{}
	got, err = repo.UpdateBookmark(ctx, "user-a", view.ID, models.Patch{Tags: &none})
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	assert.Equal(t, map[string]int{"b": 1}, tagCountMap(t, repo, "user-a"))
	requireCountsConsistent(t, repo)
}

func TestOwnershipIsolation(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	in := newBookmark(t, "https://example.com/private", "secret")
	in.Title = "B's"
	view, err := repo.CreateBookmark(ctx, "user-b", in)
	require.NoError(t, err)

	_, err = repo.GetBookmark(ctx, "user-a", view.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = repo.UpdateBookmark(ctx, "user-a", view.ID, models.Patch{Title: ptr("hijacked")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = repo.ToggleArchive(ctx, "user-a", view.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = repo.DeleteBookmark(ctx, "user-a", view.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := repo.GetBookmark(ctx, "user-b", view.ID)
	require.NoError(t, err)
	assert.Equal(t, "B's", got.Title)
	assert.False(t, got.Archived)
	assert.Nil(t, got.UpdatedAt)
	assert.Equal(t, map[string]int{"secret": 1}, tagCountMap(t, repo, "user-b"))
}

func TestToggleArchive(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	view, err := repo.CreateBookmark(ctx, "user-a", newBookmark(t, "https://example.com/a"))
	require.NoError(t, err)

	archived, err := repo.ToggleArchive(ctx, "user-a", view.ID)
	require.NoError(t, err)
	assert.True(t, archived)

	archived, err = repo.ToggleArchive(ctx, "user-a", view.ID)
	require.NoError(t, err)
	assert.False(t, archived)

	got, err := repo.GetBookmark(ctx, "user-a", view.ID)
	require.NoError(t, err)
	assert.False(t, got.Archived)
	assert.NotNil(t, got.UpdatedAt)
}

func TestDeleteBookmark(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	view, err := repo.CreateBookmark(ctx, "user-a", newBookmark(t, "https://example.com/gone", "x"))
	require.NoError(t, err)
	_, err = repo.CreateBookmark(ctx, "user-b", newBookmark(t, "https://example.com/gone", "x"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteBookmark(ctx, "user-a", view.ID))

	_, err = repo.GetBookmark(ctx, "user-a", view.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = repo.DeleteBookmark(ctx, "user-a", view.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = repo.GetBookmark(ctx, "user-b", view.ID)
	assert.NoError(t, err)
	assert.Empty(t, tagCountMap(t, repo, "user-a"))
	assert.Equal(t, map[string]int{"x": 1}, tagCountMap(t, repo, "user-b"))
}
