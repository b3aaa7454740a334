package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plain title",
			body: `<html><head><title>Hello World</title></head></html>`,
			want: "Hello World",
		},
		{
			name: "collapses whitespace and decodes entities",
			body: "<title>\n  Go &amp; Postgres\n\t Notes </title>",
			want: "Go & Postgres Notes",
		},
		{
			name: "og title fallback",
			body: `<head><meta property="og:title" content="From OG"></head>`,
			want: "From OG",
		},
		{
			name: "title wins over og title",
			body: `<head><meta property="og:title" content="From OG"><title>Real</title></head>`,
			want: "Real",
		},
		{
			name: "svg title ignored",
			body: `<body><svg><title>icon</title></svg></body>`,
			want: "",
		},
		{
			name: "no title",
			body: `<p>nothing here</p>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(strings.NewReader(tt.body)))
		})
	}
}

func TestExtractTitleTruncates(t *testing.T) {
	got := ExtractTitle(strings.NewReader("<title>" + strings.Repeat("é", maxTitleLength+20) + "</title>"))
	assert.Equal(t, maxTitleLength, len([]rune(got)))
}

func TestScraperTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<title>Fetched</title>`))
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"title":"nope"}`))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`<title>Too late</title>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s := New(50*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	type want struct {
		title string
	}
	tests := []struct {
		name string
		path string
		want want
	}{
		{name: "html page", path: "/ok", want: want{title: "Fetched"}},
		{name: "non html", path: "/json", want: want{title: ""}},
		{name: "timeout", path: "/slow", want: want{title: ""}},
		{name: "not found", path: "/missing", want: want{title: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want.title, s.Title(ctx, server.URL+tt.path))
		})
	}

	assert.Equal(t, "", s.Title(ctx, "http://127.0.0.1:1/unreachable"))
}
