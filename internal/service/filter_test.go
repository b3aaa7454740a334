package service

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/models"
)

func TestParseListFilter(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name  string
		query string
		want  models.ListFilter
	}{
		{
			name:  "defaults",
			query: "",
			want:  models.ListFilter{Page: 1, PerPage: 20},
		},
		{
			name:  "comma separated tags normalized",
			query: "tag=Python,%20web,,python",
			want:  models.ListFilter{Tags: []string{"python", "web"}, Page: 1, PerPage: 20},
		},
		{
			name:  "repeated tag keys",
			query: "tag=a&tag=b",
			want:  models.ListFilter{Tags: []string{"a", "b"}, Page: 1, PerPage: 20},
		},
		{
			name:  "text and archived",
			query: "q=+golang+&archived=TRUE",
			want:  models.ListFilter{Text: "golang", Archived: &yes, Page: 1, PerPage: 20},
		},
		{
			name:  "archived false",
			query: "archived=false",
			want:  models.ListFilter{Archived: &no, Page: 1, PerPage: 20},
		},
		{
			name:  "paging",
			query: "page=3&per_page=50",
			want:  models.ListFilter{Page: 3, PerPage: 50},
		},
		{
			name:  "per_page capped",
			query: "per_page=500",
			want:  models.ListFilter{Page: 1, PerPage: MaxPerPage},
		},
		{
			name:  "empty values ignored",
			query: "tag=&q=&archived=&page=",
			want:  models.ListFilter{Page: 1, PerPage: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseListFilter(values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseListFilterRejects(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown key", query: "tags=python"},
		{name: "archived not boolean", query: "archived=maybe"},
		{name: "zero page", query: "page=0"},
		{name: "negative per_page", query: "per_page=-5"},
		{name: "non numeric page", query: "page=two"},
		{name: "page offset overflows", query: "page=922337203685477581&per_page=20"},
		{name: "max page with default size", query: "page=9223372036854775807"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			_, err = ParseListFilter(values)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
		})
	}
}

func TestNormalizeFilterLargestPage(t *testing.T) {
	last := int(math.MaxInt64/MaxPerPage) + 1

	f, err := normalizeFilter(models.ListFilter{Page: last, PerPage: MaxPerPage})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.Offset(), 0)

	_, err = normalizeFilter(models.ListFilter{Page: last + 1, PerPage: MaxPerPage})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestParseListFilterUnknownKeyDetails(t *testing.T) {
	values, err := url.ParseQuery("search=x&tga=y&q=ok")
	require.NoError(t, err)

	_, err = ParseListFilter(values)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, `unknown filter key "search"`, appErr.Message)
	assert.Equal(t, map[string]any{
		"unknown": []string{"search", "tga"},
		"allowed": []string{"tag", "q", "archived", "page", "per_page"},
	}, appErr.Details)
}
