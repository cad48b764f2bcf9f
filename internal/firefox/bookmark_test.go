package firefox

import (
	"strings"
	"testing"
)

const export = `{
  "bookmarks": {
    "toolbar": {"id": "toolbar", "type": "folder", "title": "toolbar", "children": [
      {"id": "a", "type": "bookmark", "title": "Go", "uri": "https://go.dev/", "added_unix": 1600000000},
      {"id": "b", "type": "folder", "title": "Reading", "children": [
        {"id": "c", "type": "bookmark", "title": "Blog", "uri": "https://blog.example/", "added_unix": 1600000000123},
        {"id": "d", "type": "bookmark", "title": "Gone", "uri": "https://gone.example/", "deleted": true}
      ]}
    ]},
    "menu": {"id": "menu", "type": "folder", "title": "menu", "children": [
      {"id": "e", "type": "bookmark", "title": "Recent", "uri": "place:sort=8"}
    ]},
    "unfiled": {"id": "unfiled", "type": "folder", "title": "unfiled"},
    "mobile": {"id": "mobile", "type": "folder", "title": "mobile"}
  }
}`

func TestParse(t *testing.T) {
	result, err := Parse(strings.NewReader(export))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}

	first, second := result.Records[0], result.Records[1]
	if first.URL != "https://go.dev/" || first.OriginalFolderPath.String() != "toolbar" {
		t.Errorf("first = %s in %q", first.URL, first.OriginalFolderPath)
	}
	if first.AddedAt != "1600000000" {
		t.Errorf("first AddedAt = %q", first.AddedAt)
	}
	if second.OriginalFolderPath.String() != "toolbar/Reading" {
		t.Errorf("second folder = %q", second.OriginalFolderPath)
	}
	if second.AddedAt != "1600000000" {
		t.Errorf("millisecond timestamp not converted: %q", second.AddedAt)
	}

	if len(result.Skips) != 1 || result.Skips[0].Href != "place:sort=8" {
		t.Errorf("skips = %+v", result.Skips)
	}
}
