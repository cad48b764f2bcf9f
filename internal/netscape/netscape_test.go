package netscape

import (
	"strings"
	"testing"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

const sampleExport = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3 ADD_DATE="1600000000" PERSONAL_TOOLBAR_FOLDER="true">Bookmarks bar</H3>
    <DL><p>
        <DT><A HREF="https://go.dev/" ADD_DATE="1600000001" ICON="data:image/png;base64,AAA">The Go Programming Language</A>
        <DT><H3 ADD_DATE="1600000002">Reading</H3>
        <DL><p>
            <DT><A HREF="https://example.com/article?b=2&amp;a=1" ADD_DATE="1600000003">Article &amp; notes</A>
            <DT><A HREF="javascript:void(0)">Bookmarklet</A>
        </DL><p>
        <DT><A HREF="http://example.com/?" ADD_DATE="1600000004">After nested folder</A>
    </DL><p>
    <DT><A HREF="https://top.example/">Top level</A>
    <DT><A>No href</A>
</DL><p>
`

func TestParse(t *testing.T) {
	result, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	expected := []struct {
		url     string
		title   string
		addedAt string
		folder  string
	}{
		{"https://go.dev/", "The Go Programming Language", "1600000001", "Bookmarks bar"},
		{"https://example.com/article?a=1&b=2", "Article & notes", "1600000003", "Bookmarks bar/Reading"},
		{"http://example.com/", "After nested folder", "1600000004", "Bookmarks bar"},
		{"https://top.example/", "Top level", "", ""},
	}

	if len(result.Records) != len(expected) {
		t.Fatalf("got %d records, want %d", len(result.Records), len(expected))
	}

	for i, want := range expected {
		r := result.Records[i]
		if r.URL != want.url {
			t.Errorf("record %d URL = %q, want %q", i, r.URL, want.url)
		}
		if r.Title != want.title {
			t.Errorf("record %d Title = %q, want %q", i, r.Title, want.title)
		}
		if r.AddedAt != want.addedAt {
			t.Errorf("record %d AddedAt = %q, want %q", i, r.AddedAt, want.addedAt)
		}
		if got := r.OriginalFolderPath.String(); got != want.folder {
			t.Errorf("record %d folder = %q, want %q", i, got, want.folder)
		}
		if r.Status != bookmarks.Pending {
			t.Errorf("record %d Status = %v, want pending", i, r.Status)
		}
	}

	if len(result.Skips) != 2 {
		t.Fatalf("got %d skips, want 2", len(result.Skips))
	}
	if result.Skips[0].Href != "javascript:void(0)" {
		t.Errorf("first skip = %+v", result.Skips[0])
	}
}

func TestParseKeepsDocumentOrder(t *testing.T) {
	result, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	last := -1
	for _, r := range result.Records {
		if r.Order <= last {
			t.Errorf("order %d after %d", r.Order, last)
		}
		last = r.Order
	}
}

func TestEmptyInput(t *testing.T) {
	result, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Records) != 0 || len(result.Skips) != 0 {
		t.Fatalf("expected nothing parsed, got %d records and %d skips", len(result.Records), len(result.Skips))
	}

	root, _ := bookmarks.Build(result.Records, bookmarks.BuildOptions{})
	out := Render(root)

	if !strings.HasPrefix(out, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Errorf("missing doctype:\n%s", out)
	}
	if !strings.HasSuffix(out, "<DL><p>\n</DL><p>\n") {
		t.Errorf("expected an empty top-level list:\n%s", out)
	}

	again, err := Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse(rendered) error = %v", err)
	}
	if len(again.Records) != 0 {
		t.Errorf("rendered empty file contains %d records", len(again.Records))
	}
}

func TestRoundTrip(t *testing.T) {
	mk := func(raw, title, added string, path ...string) *bookmarks.Record {
		r, err := bookmarks.NewRecord(raw, title, added, nil, 0)
		if err != nil {
			t.Fatalf("NewRecord(%q) error = %v", raw, err)
		}
		r.Status = bookmarks.Fetched
		r.Assign(path)
		return r
	}

	records := []*bookmarks.Record{
		mk("https://go.dev/doc/", "Docs <Go> & \"more\"", "1700000000", "Dev", "Go"),
		mk("https://pkg.go.dev/?q=a&b=c", "Packages", "1690000000", "Dev", "Go"),
		mk("https://news.example/", "News", "", "News"),
		mk("https://rust-lang.org/", "Rust", "1710000000", "Dev"),
	}

	root, _ := bookmarks.Build(records, bookmarks.BuildOptions{})
	out := Render(root)

	if !strings.Contains(out, `<DT><H3 ADD_DATE="1690000000">Dev</H3>`) {
		t.Errorf("Dev folder should carry the earliest date of its subtree:\n%s", out)
	}
	if !strings.Contains(out, "<DT><H3>News</H3>") {
		t.Errorf("undated folder should omit ADD_DATE:\n%s", out)
	}

	parsed, err := Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(parsed.Records) != len(records) {
		t.Fatalf("got %d records back, want %d", len(parsed.Records), len(records))
	}

	byURL := map[string]*bookmarks.Record{}
	for _, r := range parsed.Records {
		byURL[r.RawURL] = r
	}
	for _, want := range records {
		got, ok := byURL[want.RawURL]
		if !ok {
			t.Errorf("missing %s after round trip", want.RawURL)
			continue
		}
		if got.Title != want.Title {
			t.Errorf("Title = %q, want %q", got.Title, want.Title)
		}
		if got.AddedAt != want.AddedAt {
			t.Errorf("AddedAt = %q, want %q", got.AddedAt, want.AddedAt)
		}
		if got.OriginalFolderPath.String() != want.AssignedFolderPath.String() {
			t.Errorf("folder = %q, want %q", got.OriginalFolderPath, want.AssignedFolderPath)
		}
	}
}
