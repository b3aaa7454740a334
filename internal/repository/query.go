package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/mmeshcher/linkvault/internal/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

// filteredBookmarks builds the FROM/WHERE shared by the count and page
// queries. Each tag adds its own membership join, so a row survives only
// when it carries every listed tag.
func (p *PostgresRepository) filteredBookmarks(userID string, f models.ListFilter) squirrel.SelectBuilder {
	qb := p.sb.
		Select().
		From("user_bookmarks ub").
		Join("bookmarks b ON b.id = ub.bookmark_id").
		Where(squirrel.Eq{"ub.user_id": userID})

	for i, name := range f.Tags {
		qb = qb.
			Join(fmt.Sprintf("tag_memberships tm%[1]d ON tm%[1]d.user_id = ub.user_id AND tm%[1]d.bookmark_id = ub.bookmark_id", i)).
			Join(fmt.Sprintf("tags t%[1]d ON t%[1]d.id = tm%[1]d.tag_id", i)).
			Where(squirrel.Eq{fmt.Sprintf("t%d.name", i): name})
	}

	if f.Text != "" {
		pattern := "%" + likeEscaper.Replace(f.Text) + "%"
		qb = qb.Where(squirrel.Or{
			squirrel.ILike{"ub.title": pattern},
			squirrel.ILike{"ub.notes": pattern},
			squirrel.ILike{"b.canonical_url": pattern},
		})
	}

	if f.Archived != nil {
		qb = qb.Where(squirrel.Eq{"ub.archived": *f.Archived})
	}

	return qb
}

func (p *PostgresRepository) ListBookmarks(ctx context.Context, userID string, f models.ListFilter) (models.ListResult, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	result, err := p.listBookmarks(ctx, userID, f)
	if err != nil {
		return models.ListResult{}, translateError(err)
	}
	return result, nil
}

func (p *PostgresRepository) listBookmarks(ctx context.Context, userID string, f models.ListFilter) (models.ListResult, error) {
	result := models.ListResult{Items: []models.BookmarkView{}, Page: f.Page, PerPage: f.PerPage}
	base := p.filteredBookmarks(userID, f)

	query, args, err := base.Columns("count(*)").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	if err := p.pool.QueryRow(ctx, query, args...).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("count bookmarks: %w", err)
	}

	if result.Total == 0 || f.Offset() >= result.Total {
		return result, nil
	}

	items, err := p.views(ctx, userID, base.
		Columns(viewColumns...).
		OrderBy("ub.created_at DESC", "ub.bookmark_id DESC").
		Limit(uint64(f.PerPage)).
		Offset(uint64(f.Offset())))
	if err != nil {
		return result, err
	}

	result.Items = items
	return result, nil
}

// ExportAll returns every bookmark of the user, newest first.
func (p *PostgresRepository) ExportAll(ctx context.Context, userID string) ([]models.BookmarkView, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	items, err := p.views(ctx, userID, p.filteredBookmarks(userID, models.ListFilter{}).
		Columns(viewColumns...).
		OrderBy("ub.created_at DESC", "ub.bookmark_id DESC"))
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// views runs qb and attaches tags with a single extra query.
func (p *PostgresRepository) views(ctx context.Context, userID string, qb squirrel.SelectBuilder) ([]models.BookmarkView, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	items := make([]models.BookmarkView, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		items = append(items, v)
		ids = append(ids, v.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	tags, err := p.tagsForBookmarks(ctx, p.pool, userID, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Tags = nonNil(tags[items[i].ID])
	}

	return items, nil
}

const topTagsLimit = 5

func (p *PostgresRepository) Stats(ctx context.Context, userID string) (models.Stats, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	query, args, err := p.sb.
		Select("count(*)", "count(*) FILTER (WHERE archived)").
		From("user_bookmarks").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return models.Stats{}, translateError(fmt.Errorf("build query: %w", err))
	}

	var stats models.Stats
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&stats.Total, &stats.Archived); err != nil {
		return models.Stats{}, translateError(fmt.Errorf("query stats: %w", err))
	}

	stats.TopTags, err = p.tagCounts(ctx, p.sb.
		Select("t.name", "max(tm.bookmark_count) AS n").
		From("tag_memberships tm").
		Join("tags t ON t.id = tm.tag_id").
		Where(squirrel.Eq{"tm.user_id": userID}).
		GroupBy("t.name").
		OrderBy("n DESC", "t.name").
		Limit(topTagsLimit))
	if err != nil {
		return models.Stats{}, translateError(err)
	}

	return stats, nil
}
