package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/linkvault/internal/models"
)

// ensureTags returns ids for already-normalized names, creating missing tags.
// Names are inserted in sorted order so concurrent callers wait on each other
// in the same sequence.
func (p *PostgresRepository) ensureTags(ctx context.Context, tx pgx.Tx, names []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	insertBuilder := p.sb.Insert("tags").Columns("name")
	for _, name := range sorted {
		insertBuilder = insertBuilder.Values(name)
	}

	query, args, err := insertBuilder.Suffix("ON CONFLICT (name) DO NOTHING").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert tags: %w", err)
	}

	query, args, err = p.sb.
		Select("id", "name").
		From("tags").
		Where(squirrel.Eq{"name": sorted}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ids[name] = id
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(ids) != len(sorted) {
		return nil, fmt.Errorf("resolved %d of %d tags", len(ids), len(sorted))
	}

	return ids, nil
}

// membershipTags reads the tags a user has on one bookmark straight from
// tag_memberships.
func (p *PostgresRepository) membershipTags(ctx context.Context, q querier, userID string, bookmarkID int64) (map[string]int64, error) {
	query, args, err := p.sb.
		Select("t.id", "t.name").
		From("tag_memberships tm").
		Join("tags t ON t.id = tm.tag_id").
		Where(squirrel.Eq{"tm.user_id": userID, "tm.bookmark_id": bookmarkID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	tags := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		tags[name] = id
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tags, nil
}

// tagsForBookmarks loads tag names for a page of bookmarks in one query.
func (p *PostgresRepository) tagsForBookmarks(ctx context.Context, q querier, userID string, bookmarkIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(bookmarkIDs))
	if len(bookmarkIDs) == 0 {
		return result, nil
	}

	query, args, err := p.sb.
		Select("tm.bookmark_id", "t.name").
		From("tag_memberships tm").
		Join("tags t ON t.id = tm.tag_id").
		Where(squirrel.Eq{"tm.user_id": userID, "tm.bookmark_id": bookmarkIDs}).
		OrderBy("tm.bookmark_id", "t.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookmarkID int64
			name       string
		)
		if err := rows.Scan(&bookmarkID, &name); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result[bookmarkID] = append(result[bookmarkID], name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

// ListTags reads the denormalized counts. A pair with no membership rows has
// no row to read and is omitted.
func (p *PostgresRepository) ListTags(ctx context.Context, userID string) ([]models.TagCount, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	tags, err := p.tagCounts(ctx, p.sb.
		Select("t.name", "max(tm.bookmark_count)").
		From("tag_memberships tm").
		Join("tags t ON t.id = tm.tag_id").
		Where(squirrel.Eq{"tm.user_id": userID}).
		GroupBy("t.name").
		OrderBy("t.name"))
	if err != nil {
		return nil, translateError(err)
	}
	return tags, nil
}

func (p *PostgresRepository) tagCounts(ctx context.Context, qb squirrel.SelectBuilder) ([]models.TagCount, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tag counts: %w", err)
	}
	defer rows.Close()

	tags := make([]models.TagCount, 0)
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		tags = append(tags, tc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tags, nil
}
