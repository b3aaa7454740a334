package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/models"
)

const shortCodeConstraint = "bookmarks_short_code_key"

var bookmarkColumns = []string{"id", "canonical_url", "url_fingerprint", "short_code", "created_at", "last_accessed_at"}

var errShortCodeTaken = errors.New("short code taken")

func scanBookmark(row pgx.Row) (models.Bookmark, error) {
	var b models.Bookmark
	err := row.Scan(&b.ID, &b.CanonicalURL, &b.URLFingerprint, &b.ShortCode, &b.CreatedAt, &b.LastAccessedAt)
	return b, err
}

// findOrCreateBookmark returns the bookmark for fingerprint, creating it with
// a fresh short code when absent. The fingerprint unique constraint decides
// concurrent creators; a loser reads the winner's row.
func (p *PostgresRepository) findOrCreateBookmark(ctx context.Context, tx pgx.Tx, canonicalURL, fingerprint string) (models.Bookmark, error) {
	b, err := p.bookmarkByFingerprint(ctx, tx, fingerprint)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Bookmark{}, err
	}

	for attempt := 1; attempt <= p.maxCodeAttempts; attempt++ {
		code, err := p.codes.Generate()
		if err != nil {
			return models.Bookmark{}, err
		}

		taken, err := p.shortCodeExists(ctx, tx, code)
		if err != nil {
			return models.Bookmark{}, err
		}
		if taken {
			continue
		}

		b, inserted, err := p.insertBookmark(ctx, tx, canonicalURL, fingerprint, code)
		if errors.Is(err, errShortCodeTaken) {
			continue
		}
		if err != nil {
			return models.Bookmark{}, err
		}
		if !inserted {
			return p.bookmarkByFingerprint(ctx, tx, fingerprint)
		}
		return b, nil
	}

	p.logger.Error("Short code space exhausted",
		zap.Int("attempts", p.maxCodeAttempts),
		zap.Int("length", p.codes.Length()),
	)
	return models.Bookmark{}, apperror.ErrCodeSpaceExhausted
}

// insertBookmark runs inside a savepoint so a short code collision leaves the
// outer transaction usable.
func (p *PostgresRepository) insertBookmark(ctx context.Context, tx pgx.Tx, canonicalURL, fingerprint, code string) (models.Bookmark, bool, error) {
	query, args, err := p.sb.
		Insert("bookmarks").
		Columns("canonical_url", "url_fingerprint", "short_code").
		Values(canonicalURL, fingerprint, code).
		Suffix("ON CONFLICT (url_fingerprint) DO NOTHING RETURNING " + joinColumns(bookmarkColumns)).
		ToSql()
	if err != nil {
		return models.Bookmark{}, false, fmt.Errorf("build query: %w", err)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return models.Bookmark{}, false, fmt.Errorf("begin savepoint: %w", err)
	}
	defer sp.Rollback(ctx)

	b, err := scanBookmark(sp.QueryRow(ctx, query, args...))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := sp.Commit(ctx); err != nil {
			return models.Bookmark{}, false, fmt.Errorf("release savepoint: %w", err)
		}
		return models.Bookmark{}, false, nil
	case isUniqueViolation(err, shortCodeConstraint):
		return models.Bookmark{}, false, errShortCodeTaken
	case err != nil:
		return models.Bookmark{}, false, fmt.Errorf("insert bookmark: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return models.Bookmark{}, false, fmt.Errorf("release savepoint: %w", err)
	}
	return b, true, nil
}

func (p *PostgresRepository) bookmarkByFingerprint(ctx context.Context, q querier, fingerprint string) (models.Bookmark, error) {
	query, args, err := p.sb.
		Select(bookmarkColumns...).
		From("bookmarks").
		Where(squirrel.Eq{"url_fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return models.Bookmark{}, fmt.Errorf("build query: %w", err)
	}

	return scanBookmark(q.QueryRow(ctx, query, args...))
}

func (p *PostgresRepository) shortCodeExists(ctx context.Context, q querier, code string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM bookmarks WHERE short_code = $1)", code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check short code: %w", err)
	}
	return exists, nil
}

func (p *PostgresRepository) ResolveByShortCode(ctx context.Context, code string) (models.Bookmark, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	query, args, err := p.sb.
		Select(bookmarkColumns...).
		From("bookmarks").
		Where(squirrel.Eq{"short_code": code}).
		ToSql()
	if err != nil {
		return models.Bookmark{}, translateError(fmt.Errorf("build query: %w", err))
	}

	b, err := scanBookmark(p.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Bookmark{}, apperror.NotFoundf("short code %q not found", code)
	}
	if err != nil {
		return models.Bookmark{}, translateError(fmt.Errorf("query row: %w", err))
	}
	return b, nil
}

// TouchLastAccessed records a redirect. It runs outside any transaction.
func (p *PostgresRepository) TouchLastAccessed(ctx context.Context, bookmarkID int64) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	query, args, err := p.sb.
		Update("bookmarks").
		Set("last_accessed_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": bookmarkID}).
		ToSql()
	if err != nil {
		return translateError(fmt.Errorf("build query: %w", err))
	}

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return translateError(fmt.Errorf("touch bookmark: %w", err))
	}
	return nil
}
