// Netscape bookmark file reading and writing. This is the format every
// major browser uses for bookmark import and export.

package netscape

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// Parse reads a Netscape bookmark file into records in document order.
// Entries without a usable web URL are reported as skips.
func Parse(r io.Reader) (*bookmarks.ParseResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks html: %w", err)
	}

	result := &bookmarks.ParseResult{}
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		addedAt, _ := a.Attr("add_date")
		title := strings.TrimSpace(a.Text())

		result.Add(href, title, addedAt, folderPath(a))
	})

	for _, skip := range result.Skips {
		slog.Debug("skipping bookmark", "href", skip.Href, "reason", skip.Reason)
	}
	slog.Info("parsed bookmarks file", "records", len(result.Records), "skipped", len(result.Skips))

	return result, nil
}

// folderPath collects the H3 headings of every enclosing DL, root first.
// The HTML parser nests each DL inside the DT holding its heading.
func folderPath(a *goquery.Selection) bookmarks.FolderPath {
	var names []string
	a.ParentsFiltered("dl").Each(func(_ int, dl *goquery.Selection) {
		if name := folderName(dl); name != "" {
			names = append(names, name)
		}
	})
	slices.Reverse(names)

	if len(names) == 0 {
		return nil
	}
	return bookmarks.FolderPath(names)
}

func folderName(dl *goquery.Selection) string {
	if parent := dl.Parent(); goquery.NodeName(parent) == "dt" {
		if h3 := parent.ChildrenFiltered("h3"); h3.Length() > 0 {
			return strings.TrimSpace(h3.First().Text())
		}
	}
	if prev := dl.Prev(); goquery.NodeName(prev) == "h3" {
		return strings.TrimSpace(prev.Text())
	}
	return ""
}
