package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	maxBodyBytes   = 1 << 20
	maxTitleLength = 500
	userAgent      = "linkvault/1.0 (+title-fetch)"
)

// Scraper fetches a page and returns its title. Every failure yields "".
type Scraper struct {
	client *http.Client
	logger *zap.Logger
}

func New(timeout time.Duration, logger *zap.Logger) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *Scraper) Title(ctx context.Context, rawURL string) string {
	title, err := s.fetchTitle(ctx, rawURL)
	if err != nil {
		s.logger.Debug("Title lookup failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return ""
	}
	return title
}

func (s *Scraper) fetchTitle(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("unsupported content type %q", ct)
	}

	return ExtractTitle(io.LimitReader(resp.Body, maxBodyBytes)), nil
}

// ExtractTitle returns the document <title>, falling back to og:title.
func ExtractTitle(r io.Reader) string {
	doc, err := html.Parse(r)
	if err != nil {
		return ""
	}

	var title, ogTitle string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				title = clean(textOf(n))
				return
			case atom.Meta:
				if ogTitle == "" && attr(n, "property") == "og:title" {
					ogTitle = clean(attr(n, "content"))
				}
			case atom.Svg:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title != "" {
		return title
	}
	return ogTitle
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxTitleLength {
		s = string([]rune(s)[:maxTitleLength])
	}
	return s
}
