package service

import (
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/models"
	"github.com/mmeshcher/linkvault/internal/normalize"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

const (
	filterTag      = "tag"
	filterText     = "q"
	filterArchived = "archived"
	filterPage     = "page"
	filterPerPage  = "per_page"
)

var allowedFilterKeys = []string{filterTag, filterText, filterArchived, filterPage, filterPerPage}

// ParseListFilter turns query parameters into a ListFilter. Unknown keys are
// rejected so a misspelt filter never silently widens the result.
func ParseListFilter(values url.Values) (models.ListFilter, error) {
	f := models.ListFilter{Page: DefaultPage, PerPage: DefaultPerPage}

	var unknown []string
	for key := range values {
		if !slices.Contains(allowedFilterKeys, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return f, apperror.InvalidInputf("unknown filter key %q", unknown[0]).WithDetails(map[string]any{
			"unknown": unknown,
			"allowed": allowedFilterKeys,
		})
	}

	for _, v := range values[filterTag] {
		f.Tags = append(f.Tags, normalize.SplitTags(v)...)
	}

	f.Text = strings.TrimSpace(values.Get(filterText))

	if raw := strings.TrimSpace(values.Get(filterArchived)); raw != "" {
		switch strings.ToLower(raw) {
		case "true":
			archived := true
			f.Archived = &archived
		case "false":
			archived := false
			f.Archived = &archived
		default:
			return f, apperror.InvalidInputf("archived must be true or false, got %q", raw)
		}
	}

	var err error
	if f.Page, err = positiveInt(values, filterPage, DefaultPage); err != nil {
		return f, err
	}
	if f.PerPage, err = positiveInt(values, filterPerPage, DefaultPerPage); err != nil {
		return f, err
	}

	return normalizeFilter(f)
}

func positiveInt(values url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperror.InvalidInputf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

// normalizeFilter applies defaults and the page size cap to a filter built in
// code rather than parsed from a query.
func normalizeFilter(f models.ListFilter) (models.ListFilter, error) {
	if f.Page < 0 || f.PerPage < 0 {
		return f, apperror.InvalidInput("page and per_page must be positive")
	}
	if f.Page == 0 {
		f.Page = DefaultPage
	}
	if f.PerPage == 0 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	// The row offset (page-1)*per_page must fit a signed 64-bit integer.
	if f.Page-1 > math.MaxInt64/f.PerPage {
		return f, apperror.InvalidInputf("page %d is out of range", f.Page)
	}

	tags, err := normalize.TagNames(f.Tags)
	if err != nil {
		return f, err
	}
	if len(tags) == 0 {
		tags = nil
	}
	f.Tags = tags
	f.Text = strings.TrimSpace(f.Text)

	return f, nil
}
