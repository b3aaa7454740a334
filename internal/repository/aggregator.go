package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

type ChangeKind int

const (
	Added ChangeKind = iota + 1
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// MembershipChange describes one tag_memberships row about to be inserted or deleted.
type MembershipChange struct {
	Kind       ChangeKind
	UserID     string
	TagID      int64
	BookmarkID int64
}

type ChangeSet []MembershipChange

func (cs *ChangeSet) Add(userID string, tagID, bookmarkID int64) {
	*cs = append(*cs, MembershipChange{Kind: Added, UserID: userID, TagID: tagID, BookmarkID: bookmarkID})
}

func (cs *ChangeSet) Remove(userID string, tagID, bookmarkID int64) {
	*cs = append(*cs, MembershipChange{Kind: Removed, UserID: userID, TagID: tagID, BookmarkID: bookmarkID})
}

type tagPair struct {
	UserID string
	TagID  int64
}

func (p tagPair) lockKey() string {
	return fmt.Sprintf("%s:%d", p.UserID, p.TagID)
}

// pairs returns the distinct (user, tag) pairs touched by the change set in a
// stable order. Every transaction locks pairs in this order.
func (cs ChangeSet) pairs() []tagPair {
	seen := make(map[tagPair]struct{}, len(cs))
	pairs := make([]tagPair, 0, len(cs))
	for _, c := range cs {
		p := tagPair{UserID: c.UserID, TagID: c.TagID}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}

	slices.SortFunc(pairs, func(a, b tagPair) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return cmp.Compare(a.TagID, b.TagID)
	})
	return pairs
}

// Aggregator keeps tag_memberships.bookmark_count equal to the number of
// membership rows for its (user, tag) pair. Apply must be called inside the
// transaction that owns the change; the count is recomputed from the table,
// never incremented.
type Aggregator struct {
	sb squirrel.StatementBuilderType
}

func NewAggregator(sb squirrel.StatementBuilderType) *Aggregator {
	return &Aggregator{sb: sb}
}

func (a *Aggregator) Apply(ctx context.Context, tx pgx.Tx, changes ChangeSet) error {
	if len(changes) == 0 {
		return nil
	}

	pairs := changes.pairs()

	// Writers of the same pair serialize here until commit, so each recount
	// below sees every committed membership row of that pair.
	for _, p := range pairs {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", p.lockKey()); err != nil {
			return fmt.Errorf("lock tag pair %s: %w", p.lockKey(), err)
		}
	}

	if err := a.insertMemberships(ctx, tx, changes); err != nil {
		return err
	}
	if err := a.deleteMemberships(ctx, tx, changes); err != nil {
		return err
	}

	for _, p := range pairs {
		if err := a.recount(ctx, tx, p); err != nil {
			return err
		}
	}

	return nil
}

func (a *Aggregator) insertMemberships(ctx context.Context, tx pgx.Tx, changes ChangeSet) error {
	insertBuilder := a.sb.
		Insert("tag_memberships").
		Columns("tag_id", "user_id", "bookmark_id", "bookmark_count")

	n := 0
	for _, c := range changes {
		if c.Kind != Added {
			continue
		}
		insertBuilder = insertBuilder.Values(c.TagID, c.UserID, c.BookmarkID, 0)
		n++
	}
	if n == 0 {
		return nil
	}

	query, args, err := insertBuilder.Suffix("ON CONFLICT (tag_id, user_id, bookmark_id) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert memberships: %w", err)
	}
	return nil
}

func (a *Aggregator) deleteMemberships(ctx context.Context, tx pgx.Tx, changes ChangeSet) error {
	var removed squirrel.Or
	for _, c := range changes {
		if c.Kind != Removed {
			continue
		}
		removed = append(removed, squirrel.Eq{
			"tag_id":      c.TagID,
			"user_id":     c.UserID,
			"bookmark_id": c.BookmarkID,
		})
	}
	if len(removed) == 0 {
		return nil
	}

	query, args, err := a.sb.Delete("tag_memberships").Where(removed).ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	return nil
}

func (a *Aggregator) recount(ctx context.Context, tx pgx.Tx, p tagPair) error {
	query, args, err := a.sb.
		Select("count(*)").
		From("tag_memberships").
		Where(squirrel.Eq{"user_id": p.UserID, "tag_id": p.TagID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("count memberships: %w", err)
	}

	// Zero means the pair has no rows left to carry a count.
	if count == 0 {
		return nil
	}

	query, args, err = a.sb.
		Update("tag_memberships").
		Set("bookmark_count", count).
		Where(squirrel.Eq{"user_id": p.UserID, "tag_id": p.TagID}).
		Where(squirrel.NotEq{"bookmark_count": count}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update bookmark count: %w", err)
	}
	return nil
}
