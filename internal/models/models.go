package models

import "time"

// Bookmark is the shared, deduplicated URL entity.
type Bookmark struct {
	ID             int64      `db:"id"`
	CanonicalURL   string     `db:"canonical_url"`
	URLFingerprint string     `db:"url_fingerprint"`
	ShortCode      string     `db:"short_code"`
	CreatedAt      time.Time  `db:"created_at"`
	LastAccessedAt *time.Time `db:"last_accessed_at"`
}

// UserBookmark is one user's private annotation over a Bookmark.
type UserBookmark struct {
	UserID     string     `db:"user_id"`
	BookmarkID int64      `db:"bookmark_id"`
	Title      string     `db:"title"`
	Notes      string     `db:"notes"`
	Archived   bool       `db:"archived"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at"`
}

type Tag struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// BookmarkView is what a user sees: their annotation joined with the shared bookmark.
type BookmarkView struct {
	ID        int64      `json:"id"`
	URL       string     `json:"url"`
	ShortCode string     `json:"short_code"`
	ShortURL  string     `json:"short_url,omitempty"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes"`
	Archived  bool       `json:"archived"`
	Tags      []string   `json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Stats struct {
	Total    int        `json:"total"`
	Archived int        `json:"archived"`
	TopTags  []TagCount `json:"top_tags"`
}

// CreateInput is built by the transport from either a JSON body or a form.
type CreateInput struct {
	URL      string   `json:"url" validate:"required,max=2048"`
	Title    string   `json:"title" validate:"max=500"`
	Notes    string   `json:"notes" validate:"max=10000"`
	Tags     []string `json:"tags" validate:"max=50"`
	Archived bool     `json:"archived"`
}

// NewBookmark is a validated CreateInput: URL canonicalized, tags normalized,
// title resolved.
type NewBookmark struct {
	CanonicalURL string
	Fingerprint  string
	Title        string
	Notes        string
	Archived     bool
	Tags         []string
}

// Patch carries only the fields a client supplied. A nil Tags leaves tags
// untouched; a non-nil empty slice clears them.
type Patch struct {
	Title    *string   `json:"title,omitempty" validate:"omitempty,max=500"`
	Notes    *string   `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Archived *bool     `json:"archived,omitempty"`
	Tags     *[]string `json:"tags,omitempty" validate:"omitempty,max=50"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Notes == nil && p.Archived == nil && p.Tags == nil
}

type ListFilter struct {
	Tags     []string
	Text     string
	Archived *bool
	Page     int
	PerPage  int
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

type ListResult struct {
	Items   []BookmarkView `json:"items"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}
