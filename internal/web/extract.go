package web

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

const (
	maxTextRunes = 4000
	maxNavRunes  = 500
	maxKeywords  = 20
)

// Extract builds the content signature of a loaded page: title, meta
// description and keywords, navigation text and the main visible text.
func Extract(page *Page) (*bookmarks.Signature, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}

	sig := &bookmarks.Signature{
		Title:       collapse(page.Title),
		Description: metaContent(doc, "description", "og:description"),
		Keywords:    keywords(metaContent(doc, "keywords")),
		NavText:     truncate(collapse(doc.Find("nav, ul.navbar").Text()), maxNavRunes),
	}
	if sig.Title == "" {
		sig.Title = collapse(doc.Find("title").First().Text())
	}

	sig.Text = truncate(mainText(page, doc), maxTextRunes)
	return sig, nil
}

// mainText prefers the readability article and falls back to the whole
// body without scripts and styles.
func mainText(page *Page, doc *goquery.Document) string {
	if u, err := url.Parse(page.FinalURL); err == nil {
		parser := readability.NewParser()
		article, err := parser.Parse(strings.NewReader(page.HTML), u)
		if err == nil && article.Content != "" {
			if content, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); err == nil {
				if text := collapse(content.Text()); text != "" {
					return text
				}
			}
		}
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template, svg").Remove()
	return collapse(body.Text())
}

// metaContent returns the first non-empty content of a meta tag whose name
// or property matches one of names, case-insensitively.
func metaContent(doc *goquery.Document, names ...string) string {
	metas := doc.Find("meta")
	for _, name := range names {
		var found string
		metas.EachWithBreak(func(_ int, m *goquery.Selection) bool {
			key := m.AttrOr("name", m.AttrOr("property", ""))
			if !strings.EqualFold(key, name) {
				return true
			}
			found = collapse(m.AttrOr("content", ""))
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func keywords(raw string) []string {
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
