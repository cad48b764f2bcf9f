package classify

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

type classifierFunc func(ctx context.Context, r *bookmarks.Record, existing []string, maxDepth int) (bookmarks.FolderPath, error)

func (f classifierFunc) Classify(ctx context.Context, r *bookmarks.Record, existing []string, maxDepth int) (bookmarks.FolderPath, error) {
	return f(ctx, r, existing, maxDepth)
}

func fetchedRecords(t *testing.T, n int) []*bookmarks.Record {
	t.Helper()
	var out []*bookmarks.Record
	for i := range n {
		r, err := bookmarks.NewRecord(fmt.Sprintf("https://site%d.example/", i), "t", "", nil, i)
		if err != nil {
			t.Fatalf("NewRecord() error = %v", err)
		}
		r.Status = bookmarks.Fetched
		r.Signature = &bookmarks.Signature{Text: "text"}
		out = append(out, r)
	}
	return out
}

func newTestStage(c Classifier, opts Options) *Stage {
	s := NewStage(c, nil, opts)
	s.backOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(opts.Retries))
	}
	return s
}

func TestRunFallbackAfterPersistentErrors(t *testing.T) {
	var calls atomic.Int32
	c := classifierFunc(func(context.Context, *bookmarks.Record, []string, int) (bookmarks.FolderPath, error) {
		calls.Add(1)
		return nil, errors.New("model unavailable")
	})

	records := fetchedRecords(t, 1)
	stats := newTestStage(c, Options{Retries: 3}).Run(context.Background(), records)

	if got := records[0].AssignedFolderPath.String(); got != bookmarks.DefaultFallbackFolder {
		t.Errorf("assigned = %q, want %q", got, bookmarks.DefaultFallbackFolder)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
	if stats.Fallback != 1 || stats.Errors != 4 || stats.Classified != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c := classifierFunc(func(context.Context, *bookmarks.Record, []string, int) (bookmarks.FolderPath, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return bookmarks.FolderPath{"Technology"}, nil
	})

	records := fetchedRecords(t, 1)
	stats := newTestStage(c, Options{Retries: 2}).Run(context.Background(), records)

	if got := records[0].AssignedFolderPath.String(); got != "Technology" {
		t.Errorf("assigned = %q", got)
	}
	if stats.Classified != 1 || stats.Errors != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunNormalizesAndReusesVocabulary(t *testing.T) {
	answers := map[string]bookmarks.FolderPath{
		"https://site0.example/": {"Technology", "Go"},
		"https://site1.example/": {"technology", "  programming  ", "Languages", "Extra"},
		"https://site2.example/": {"", " "},
	}
	var seen [][]string
	c := classifierFunc(func(_ context.Context, r *bookmarks.Record, existing []string, maxDepth int) (bookmarks.FolderPath, error) {
		seen = append(seen, existing)
		return answers[r.URL], nil
	})

	records := fetchedRecords(t, 3)
	stage := newTestStage(c, Options{Workers: 1, MaxDepth: 3})
	stats := stage.Run(context.Background(), records)

	if got := records[0].AssignedFolderPath.String(); got != "Technology/Go" {
		t.Errorf("first = %q", got)
	}
	if got := records[1].AssignedFolderPath.String(); got != "Technology/programming/Languages" {
		t.Errorf("second = %q, want casing reused and depth capped", got)
	}
	if got := records[2].AssignedFolderPath.String(); got != bookmarks.DefaultFallbackFolder {
		t.Errorf("empty answer should fall back, got %q", got)
	}

	if len(seen) < 2 || len(seen[1]) == 0 {
		t.Fatalf("second call should see the first folders, saw %v", seen)
	}
	if stats.Classified != 2 || stats.Fallback != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunSkipsNonFetched(t *testing.T) {
	c := classifierFunc(func(context.Context, *bookmarks.Record, []string, int) (bookmarks.FolderPath, error) {
		return bookmarks.FolderPath{"A"}, nil
	})

	records := fetchedRecords(t, 3)
	records[0].MarkDead("timeout")
	records[1].Status = bookmarks.Skipped

	newTestStage(c, Options{}).Run(context.Background(), records)

	if records[0].AssignedFolderPath != nil || records[1].AssignedFolderPath != nil {
		t.Errorf("only fetched records may be assigned")
	}
	if records[2].AssignedFolderPath.String() != "A" {
		t.Errorf("fetched record not assigned")
	}
}

func TestRunCancelled(t *testing.T) {
	c := classifierFunc(func(context.Context, *bookmarks.Record, []string, int) (bookmarks.FolderPath, error) {
		return bookmarks.FolderPath{"A"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := fetchedRecords(t, 4)
	stats := newTestStage(c, Options{}).Run(ctx, records)

	if stats.Interrupted != 4 || stats.Classified != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunWorkerLimit(t *testing.T) {
	var active, peak atomic.Int32
	c := classifierFunc(func(context.Context, *bookmarks.Record, []string, int) (bookmarks.FolderPath, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return bookmarks.FolderPath{"A"}, nil
	})

	records := fetchedRecords(t, 12)
	stats := newTestStage(c, Options{Workers: 2}).Run(context.Background(), records)

	if peak.Load() > 2 {
		t.Errorf("peak = %d, want <= 2", peak.Load())
	}
	if stats.Classified != 12 {
		t.Errorf("Classified = %d", stats.Classified)
	}
}

func TestVocabulary(t *testing.T) {
	v := NewVocabulary(bookmarks.FolderPath{"News", "World"})

	got := v.Add(bookmarks.FolderPath{"NEWS", "Local"})
	if got.String() != "News/Local" {
		t.Errorf("Add() = %q, want existing casing", got)
	}

	want := []string{"News", "News/World", "News/Local"}
	if fmt.Sprint(v.List()) != fmt.Sprint(want) {
		t.Errorf("List() = %v, want %v", v.List(), want)
	}
}

func TestVocabularySeedWithSlashInName(t *testing.T) {
	v := NewVocabulary(bookmarks.FolderPath{"News/Politics"})

	got := v.Add(bookmarks.ParseFolderPath("news/politics"))
	if got.String() != "News/Politics" {
		t.Errorf("Add() = %q, want seeded casing", got)
	}

	want := []string{"News", "News/Politics"}
	if fmt.Sprint(v.List()) != fmt.Sprint(want) {
		t.Errorf("List() = %v, want %v", v.List(), want)
	}
}

func TestNormalizePath(t *testing.T) {
	long := ""
	for range 70 {
		long += "a"
	}

	tests := []struct {
		name  string
		input bookmarks.FolderPath
		depth int
		want  string
	}{
		{name: "trims", input: bookmarks.FolderPath{"  Dev  Tools ", `"Go"`}, depth: 3, want: "Dev Tools/Go"},
		{name: "depth", input: bookmarks.FolderPath{"A", "B", "C"}, depth: 1, want: "A"},
		{name: "empty", input: bookmarks.FolderPath{" "}, depth: 3, want: ""},
		{name: "long", input: bookmarks.FolderPath{long}, depth: 3, want: long[:64]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePath(tt.input, tt.depth).String(); got != tt.want {
				t.Errorf("NormalizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}
