package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
	"github.com/xtruder/bookmark-curator/internal/classify"
	"github.com/xtruder/bookmark-curator/internal/netscape"
	"github.com/xtruder/bookmark-curator/internal/web"
)

const input = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3>Saved</H3>
    <DL><p>
        <DT><A HREF="http://example.com/?" ADD_DATE="200">Example again</A>
        <DT><A HREF="http://example.com/" ADD_DATE="100">Example</A>
        <DT><A HREF="https://go.dev/doc" ADD_DATE="300">Go docs</A>
        <DT><A HREF="https://mirror.example/doc" ADD_DATE="400">Go docs mirror</A>
        <DT><A HREF="https://slow.example/" ADD_DATE="500">Slow</A>
        <DT><A HREF="https://missing.example/" ADD_DATE="600">Missing</A>
        <DT><A HREF="javascript:void(0)">Bookmarklet</A>
    </DL><p>
</DL><p>
`

const goDocs = `<html><head><title>Go documentation</title></head><body>
<article><p>The Go programming language is an open source project to make programmers more productive.
Go is expressive, concise, clean, and efficient. Its concurrency mechanisms make it easy to write programs
that get the most out of multicore and networked machines.</p></article></body></html>`

const examplePage = `<html><head><title>Example Domain</title></head><body>
<div><p>This domain is for use in illustrative examples in documents. You may use this domain in
literature without prior coordination or asking for permission.</p></div></body></html>`

func testNavigator() web.Navigator {
	return web.NavigatorFunc(func(ctx context.Context, raw string) (*web.Page, error) {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		switch u.Host {
		case "slow.example":
			return nil, fmt.Errorf("%w: %s", web.ErrNavigationTimeout, raw)
		case "missing.example":
			return &web.Page{FinalURL: raw, StatusCode: 404}, nil
		case "go.dev", "mirror.example":
			return &web.Page{FinalURL: raw, Title: "Go documentation", HTML: goDocs, StatusCode: 200}, nil
		default:
			return &web.Page{FinalURL: raw, Title: "Example Domain", HTML: examplePage, StatusCode: 200}, nil
		}
	})
}

type classifierFunc func(r *bookmarks.Record) (bookmarks.FolderPath, error)

func (f classifierFunc) Classify(ctx context.Context, r *bookmarks.Record, existing []string, maxDepth int) (bookmarks.FolderPath, error) {
	return f(r)
}

func byHost() classify.Classifier {
	return classifierFunc(func(r *bookmarks.Record) (bookmarks.FolderPath, error) {
		if strings.Contains(r.URL, "go.dev") {
			return bookmarks.FolderPath{"Programming", "Go"}, nil
		}
		return bookmarks.FolderPath{"Reference"}, nil
	})
}

func testOptions() Options {
	return Options{
		Fetch: web.FetchOptions{
			Workers:     2,
			Timeout:     time.Second,
			Retries:     1,
			BackoffBase: time.Millisecond,
			BackoffMax:  time.Millisecond,
		},
		Classify: classify.Options{
			Workers:     2,
			Timeout:     time.Second,
			Retries:     1,
			BackoffBase: time.Millisecond,
			BackoffMax:  time.Millisecond,
		},
		ContentDedupe: true,
	}
}

func exported(t *testing.T, output []byte) map[string]string {
	t.Helper()
	parsed, err := netscape.Parse(bytes.NewReader(output))
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	folders := map[string]string{}
	for _, r := range parsed.Records {
		folders[r.RawURL] = r.OriginalFolderPath.String()
	}
	return folders
}

func TestRun(t *testing.T) {
	p := &Pipeline{Navigator: testNavigator(), Classifier: byHost(), Options: testOptions()}

	res, err := p.Run(context.Background(), []byte(input))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	s := res.Summary

	if s.RunID == "" {
		t.Error("RunID is empty")
	}
	if s.Parsed != 6 || len(s.Skips) != 1 {
		t.Errorf("Parsed = %d, skips = %d, want 6 and 1", s.Parsed, len(s.Skips))
	}
	if s.ExactDuplicates != 1 {
		t.Errorf("ExactDuplicates = %d, want 1", s.ExactDuplicates)
	}
	if s.ContentDuplicates != 1 {
		t.Errorf("ContentDuplicates = %d, want 1", s.ContentDuplicates)
	}
	if len(s.DeadLinks) != 2 {
		t.Errorf("DeadLinks = %+v, want 2", s.DeadLinks)
	}
	if s.Errors[FetchTimeout] != 1 || s.Errors[FetchHTTPError] != 1 || s.Errors[ParseSkip] != 1 {
		t.Errorf("Errors = %v", s.Errors)
	}
	if s.Interrupted {
		t.Error("run reported as interrupted")
	}

	got := exported(t, res.Output)
	want := map[string]string{
		"http://example.com/": "Reference",
		"https://go.dev/doc":  "Programming/Go",
	}
	if len(got) != len(want) {
		t.Fatalf("exported = %v, want %v", got, want)
	}
	for u, folder := range want {
		if got[u] != folder {
			t.Errorf("%s in %q, want %q", u, got[u], folder)
		}
	}
	if s.Exported != len(want) {
		t.Errorf("Exported = %d, want %d", s.Exported, len(want))
	}
}

func TestRunOutputIsSubsetOfInput(t *testing.T) {
	p := &Pipeline{Navigator: testNavigator(), Classifier: byHost(), Options: testOptions()}

	res, err := p.Run(context.Background(), []byte(input))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	parsed, err := netscape.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	known := map[string]bool{}
	for _, r := range parsed.Records {
		known[r.URL] = true
	}

	seen := map[string]bool{}
	for path, r := range res.Tree.Records() {
		if !known[r.URL] {
			t.Errorf("%s in %s was not in the input", r.URL, path)
		}
		if seen[r.URL] {
			t.Errorf("%s exported twice", r.URL)
		}
		seen[r.URL] = true
	}
}

func TestRunEmptyInput(t *testing.T) {
	p := &Pipeline{Navigator: testNavigator(), Classifier: byHost(), Options: testOptions()}

	res, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !bytes.HasPrefix(res.Output, []byte("<!DOCTYPE NETSCAPE-Bookmark-file-1>")) {
		t.Errorf("output is not a bookmark file:\n%s", res.Output)
	}
	for kind, n := range res.Summary.Errors {
		if n != 0 {
			t.Errorf("Errors[%s] = %d", kind, n)
		}
	}
	if res.Summary.Exported != 0 {
		t.Errorf("Exported = %d", res.Summary.Exported)
	}
}

func TestRunClassifierFailsFallsBack(t *testing.T) {
	failing := classifierFunc(func(r *bookmarks.Record) (bookmarks.FolderPath, error) {
		return nil, errors.New("model overloaded")
	})
	p := &Pipeline{Navigator: testNavigator(), Classifier: failing, Options: testOptions()}

	res, err := p.Run(context.Background(), []byte(input))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for u, folder := range exported(t, res.Output) {
		if folder != bookmarks.DefaultFallbackFolder {
			t.Errorf("%s in %q, want %q", u, folder, bookmarks.DefaultFallbackFolder)
		}
	}
	if res.Summary.Errors[ClassifierError] != 2 {
		t.Errorf("Errors[ClassifierError] = %d, want 2", res.Summary.Errors[ClassifierError])
	}
}

func TestRunKeepDead(t *testing.T) {
	opts := testOptions()
	opts.Tree.KeepDead = true
	p := &Pipeline{Navigator: testNavigator(), Classifier: byHost(), Options: opts}

	res, err := p.Run(context.Background(), []byte(input))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := exported(t, res.Output)
	if got["https://slow.example/"] != "Saved" {
		t.Errorf("dead bookmark in %q, want original folder", got["https://slow.example/"])
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Pipeline{Navigator: testNavigator(), Classifier: byHost(), Options: testOptions()}
	res, err := p.Run(ctx, []byte(input))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	s := res.Summary
	if !s.Interrupted {
		t.Error("Interrupted = false")
	}
	if s.Fetch.Interrupted != 5 || s.Fetch.Attempted != 0 {
		t.Errorf("Fetch = %+v", s.Fetch)
	}
	for u, folder := range exported(t, res.Output) {
		if folder != "Saved" {
			t.Errorf("%s in %q, want original folder", u, folder)
		}
	}
}

func TestParseInputFirefoxJSON(t *testing.T) {
	data := []byte(`
	{"bookmarks": {"toolbar": {"id": "toolbar", "type": "folder", "title": "toolbar", "children": [
		{"id": "a", "type": "bookmark", "title": "Go", "uri": "https://go.dev/", "added_unix": 1600000000}
	]}}}`)

	result, err := ParseInput(data)
	if err != nil {
		t.Fatalf("ParseInput() error = %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].URL != "https://go.dev/" {
		t.Errorf("records = %+v", result.Records)
	}
}

func TestParseInputInvalidJSON(t *testing.T) {
	_, err := ParseInput([]byte(`{"bookmarks": `))
	if kind, ok := KindOf(err); !ok || kind != InputError {
		t.Errorf("KindOf(%v) = %q, want %q", err, kind, InputError)
	}
}

func TestWriteReport(t *testing.T) {
	s := &Summary{
		RunID:     "run-1",
		Parsed:    3,
		DeadLinks: []DeadLink{{URL: "https://gone.example/", Reason: "http status 404"}},
	}
	s.Fetch.HTTPErrors = 1
	s.countErrors()

	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := WriteReport(path, s); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		RunID     string         `yaml:"run_id"`
		Errors    map[string]int `yaml:"errors"`
		DeadLinks []DeadLink     `yaml:"dead_links"`
	}
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("report is not yaml: %v", err)
	}
	if got.RunID != "run-1" || got.Errors["FetchHTTPError"] != 1 || len(got.DeadLinks) != 1 {
		t.Errorf("report = %+v", got)
	}
}

func TestRunAbortsWhenBrowserIsLost(t *testing.T) {
	lost := web.NavigatorFunc(func(ctx context.Context, raw string) (*web.Page, error) {
		return nil, fmt.Errorf("%w: connection refused", web.ErrEndpointUnavailable)
	})
	p := &Pipeline{Navigator: lost, Classifier: byHost(), Options: testOptions()}

	res, err := p.Run(context.Background(), []byte(input))
	if kind, ok := KindOf(err); !ok || kind != EndpointUnavailable {
		t.Fatalf("Run() error = %v, want %s", err, EndpointUnavailable)
	}
	if !errors.Is(err, web.ErrEndpointUnavailable) {
		t.Errorf("error does not wrap web.ErrEndpointUnavailable: %v", err)
	}
	if res != nil {
		t.Errorf("Run() returned a result with %d exported bookmarks", res.Summary.Exported)
	}
}

func TestSummaryWriteTextOrdersKinds(t *testing.T) {
	s := &Summary{RunID: "run-2"}
	s.Skips = []bookmarks.Skip{{Href: "javascript:void(0)"}}
	s.Fetch.Timeouts = 2
	s.Fetch.NotLive = 1
	s.Classify.Fallback = 3
	s.countErrors()

	for range 5 {
		var buf bytes.Buffer
		s.WriteText(&buf)
		out := buf.String()

		last := -1
		for _, kind := range []Kind{ParseSkip, FetchTimeout, FetchNotLive, ClassifierError} {
			i := strings.Index(out, string(kind)+":")
			if i < 0 {
				t.Fatalf("%s missing from summary:\n%s", kind, out)
			}
			if i < last {
				t.Fatalf("%s printed out of order:\n%s", kind, out)
			}
			last = i
		}
		if strings.Contains(out, string(FetchHTTPError)) {
			t.Errorf("zero counts should be omitted:\n%s", out)
		}
	}
}
