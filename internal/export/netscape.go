// Package export renders bookmarks in the Netscape bookmark file format that
// browsers import.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/mmeshcher/linkvault/internal/models"
)

const (
	ContentType = "text/html; charset=utf-8"
	FileName    = "linkvault_bookmarks.html"
)

const header = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>LinkVault Bookmarks</TITLE>
<H1>LinkVault Bookmarks</H1>
<DL><p>
`

// WriteNetscape writes views as one flat folder. Untitled entries fall back
// to their URL; notes become <DD> descriptions.
func WriteNetscape(w io.Writer, views []models.BookmarkView) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, v := range views {
		title := v.Title
		if title == "" {
			title = v.URL
		}

		fmt.Fprintf(bw, `    <DT><A HREF="%s" ADD_DATE="%d"`, html.EscapeString(v.URL), v.CreatedAt.Unix())
		if v.UpdatedAt != nil {
			fmt.Fprintf(bw, ` LAST_MODIFIED="%d"`, v.UpdatedAt.Unix())
		}
		if len(v.Tags) > 0 {
			fmt.Fprintf(bw, ` TAGS="%s"`, html.EscapeString(strings.Join(v.Tags, ",")))
		}
		fmt.Fprintf(bw, ">%s</A>\n", html.EscapeString(title))

		if v.Notes != "" {
			fmt.Fprintf(bw, "    <DD>%s\n", html.EscapeString(v.Notes))
		}
	}

	if _, err := bw.WriteString("</DL><p>\n"); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
