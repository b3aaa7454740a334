package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/models"
)

var viewColumns = []string{
	"ub.bookmark_id", "b.canonical_url", "b.short_code",
	"ub.title", "ub.notes", "ub.archived", "ub.created_at", "ub.updated_at",
}

func scanView(row pgx.Row) (models.BookmarkView, error) {
	var v models.BookmarkView
	err := row.Scan(&v.ID, &v.URL, &v.ShortCode, &v.Title, &v.Notes, &v.Archived, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func notFound(bookmarkID int64) error {
	return apperror.NotFoundf("bookmark %d not found", bookmarkID)
}

// CreateBookmark saves a URL for a user. The shared bookmark, the association,
// tag rows and counts commit together or not at all.
func (p *PostgresRepository) CreateBookmark(ctx context.Context, userID string, in models.NewBookmark) (models.BookmarkView, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var view models.BookmarkView
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		b, err := p.findOrCreateBookmark(ctx, tx, in.CanonicalURL, in.Fingerprint)
		if err != nil {
			return err
		}

		query, args, err := p.sb.
			Insert("user_bookmarks").
			Columns("user_id", "bookmark_id", "title", "notes", "archived").
			Values(userID, b.ID, in.Title, in.Notes, in.Archived).
			Suffix("ON CONFLICT (user_id, bookmark_id) DO NOTHING RETURNING created_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		view = models.BookmarkView{
			ID:        b.ID,
			URL:       b.CanonicalURL,
			ShortCode: b.ShortCode,
			Title:     in.Title,
			Notes:     in.Notes,
			Archived:  in.Archived,
		}

		err = tx.QueryRow(ctx, query, args...).Scan(&view.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.Conflict("bookmark already saved").WithDetails(map[string]any{"id": b.ID})
		}
		if err != nil {
			return fmt.Errorf("insert user bookmark: %w", err)
		}

		tagIDs, err := p.ensureTags(ctx, tx, in.Tags)
		if err != nil {
			return err
		}

		var changes ChangeSet
		for _, name := range in.Tags {
			changes.Add(userID, tagIDs[name], b.ID)
		}

		if err := p.aggregator.Apply(ctx, tx, changes); err != nil {
			return err
		}

		view.Tags = sortedTags(in.Tags)
		return nil
	})
	if err != nil {
		return models.BookmarkView{}, err
	}

	return view, nil
}

func (p *PostgresRepository) GetBookmark(ctx context.Context, userID string, bookmarkID int64) (models.BookmarkView, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	view, err := p.loadView(ctx, p.pool, userID, bookmarkID)
	if err != nil {
		return models.BookmarkView{}, translateError(err)
	}
	return view, nil
}

// UpdateBookmark applies the supplied fields. updated_at moves only when a
// value actually changes; a tag set change counts.
func (p *PostgresRepository) UpdateBookmark(ctx context.Context, userID string, bookmarkID int64, patch models.Patch) (models.BookmarkView, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var view models.BookmarkView
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		current, err := p.lockAssociation(ctx, tx, userID, bookmarkID)
		if err != nil {
			return err
		}

		set := make(map[string]any)
		if patch.Title != nil && *patch.Title != current.Title {
			set["title"] = *patch.Title
		}
		if patch.Notes != nil && *patch.Notes != current.Notes {
			set["notes"] = *patch.Notes
		}
		if patch.Archived != nil && *patch.Archived != current.Archived {
			set["archived"] = *patch.Archived
		}

		var changes ChangeSet
		if patch.Tags != nil {
			changes, err = p.tagChanges(ctx, tx, userID, bookmarkID, *patch.Tags)
			if err != nil {
				return err
			}
		}

		if len(set) == 0 && len(changes) == 0 {
			view, err = p.loadView(ctx, tx, userID, bookmarkID)
			return err
		}

		set["updated_at"] = squirrel.Expr("now()")

		query, args, err := p.sb.
			Update("user_bookmarks").
			SetMap(set).
			Where(squirrel.Eq{"user_id": userID, "bookmark_id": bookmarkID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("update user bookmark: %w", err)
		}

		if err := p.aggregator.Apply(ctx, tx, changes); err != nil {
			return err
		}

		view, err = p.loadView(ctx, tx, userID, bookmarkID)
		return err
	})
	if err != nil {
		return models.BookmarkView{}, err
	}

	return view, nil
}

// tagChanges diffs the stored tag set against desired.
func (p *PostgresRepository) tagChanges(ctx context.Context, tx pgx.Tx, userID string, bookmarkID int64, desired []string) (ChangeSet, error) {
	current, err := p.membershipTags(ctx, tx, userID, bookmarkID)
	if err != nil {
		return nil, err
	}

	var changes ChangeSet
	want := make(map[string]struct{}, len(desired))
	var added []string
	for _, name := range desired {
		want[name] = struct{}{}
		if _, ok := current[name]; !ok {
			added = append(added, name)
		}
	}

	for name, id := range current {
		if _, ok := want[name]; !ok {
			changes.Remove(userID, id, bookmarkID)
		}
	}

	if len(added) > 0 {
		ids, err := p.ensureTags(ctx, tx, added)
		if err != nil {
			return nil, err
		}
		for _, name := range added {
			changes.Add(userID, ids[name], bookmarkID)
		}
	}

	return changes, nil
}

// DeleteBookmark removes the user's association and its memberships. The
// shared bookmark row stays so its short code keeps resolving.
func (p *PostgresRepository) DeleteBookmark(ctx context.Context, userID string, bookmarkID int64) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	return p.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := p.lockAssociation(ctx, tx, userID, bookmarkID); err != nil {
			return err
		}

		current, err := p.membershipTags(ctx, tx, userID, bookmarkID)
		if err != nil {
			return err
		}

		var changes ChangeSet
		for _, id := range current {
			changes.Remove(userID, id, bookmarkID)
		}

		if err := p.aggregator.Apply(ctx, tx, changes); err != nil {
			return err
		}

		query, args, err := p.sb.
			Delete("user_bookmarks").
			Where(squirrel.Eq{"user_id": userID, "bookmark_id": bookmarkID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("delete user bookmark: %w", err)
		}
		return nil
	})
}

// ToggleArchive flips the archived flag in a single statement, which reads
// and writes the row under its own lock.
func (p *PostgresRepository) ToggleArchive(ctx context.Context, userID string, bookmarkID int64) (bool, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	query, args, err := p.sb.
		Update("user_bookmarks").
		Set("archived", squirrel.Expr("NOT archived")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"user_id": userID, "bookmark_id": bookmarkID}).
		Suffix("RETURNING archived").
		ToSql()
	if err != nil {
		return false, translateError(fmt.Errorf("build query: %w", err))
	}

	var archived bool
	err = p.pool.QueryRow(ctx, query, args...).Scan(&archived)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, notFound(bookmarkID)
	}
	if err != nil {
		return false, translateError(fmt.Errorf("toggle archive: %w", err))
	}

	return archived, nil
}

func (p *PostgresRepository) lockAssociation(ctx context.Context, tx pgx.Tx, userID string, bookmarkID int64) (models.UserBookmark, error) {
	query, args, err := p.sb.
		Select("user_id", "bookmark_id", "title", "notes", "archived", "created_at", "updated_at").
		From("user_bookmarks").
		Where(squirrel.Eq{"user_id": userID, "bookmark_id": bookmarkID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return models.UserBookmark{}, fmt.Errorf("build query: %w", err)
	}

	var ub models.UserBookmark
	err = tx.QueryRow(ctx, query, args...).Scan(
		&ub.UserID, &ub.BookmarkID, &ub.Title, &ub.Notes, &ub.Archived, &ub.CreatedAt, &ub.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.UserBookmark{}, notFound(bookmarkID)
	}
	if err != nil {
		return models.UserBookmark{}, fmt.Errorf("lock user bookmark: %w", err)
	}

	return ub, nil
}

func (p *PostgresRepository) loadView(ctx context.Context, q querier, userID string, bookmarkID int64) (models.BookmarkView, error) {
	query, args, err := p.sb.
		Select(viewColumns...).
		From("user_bookmarks ub").
		Join("bookmarks b ON b.id = ub.bookmark_id").
		Where(squirrel.Eq{"ub.user_id": userID, "ub.bookmark_id": bookmarkID}).
		ToSql()
	if err != nil {
		return models.BookmarkView{}, fmt.Errorf("build query: %w", err)
	}

	view, err := scanView(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.BookmarkView{}, notFound(bookmarkID)
	}
	if err != nil {
		return models.BookmarkView{}, fmt.Errorf("query row: %w", err)
	}

	tags, err := p.tagsForBookmarks(ctx, q, userID, []int64{bookmarkID})
	if err != nil {
		return models.BookmarkView{}, err
	}
	view.Tags = nonNil(tags[bookmarkID])

	return view, nil
}

func sortedTags(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return nonNil(out)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
