package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
	"github.com/xtruder/bookmark-curator/internal/classify"
	"github.com/xtruder/bookmark-curator/internal/taxonomy"
	"github.com/xtruder/bookmark-curator/internal/web"
)

// DeadLink is a bookmark dropped because its page could not be used.
type DeadLink struct {
	URL    string `yaml:"url"`
	Title  string `yaml:"title,omitempty"`
	Reason string `yaml:"reason"`
}

// Summary describes a finished run.
type Summary struct {
	RunID       string        `yaml:"run_id"`
	StartedAt   time.Time     `yaml:"started_at"`
	Duration    time.Duration `yaml:"duration"`
	Interrupted bool          `yaml:"interrupted"`

	Parsed            int `yaml:"parsed"`
	ExactDuplicates   int `yaml:"exact_duplicates"`
	ContentDuplicates int `yaml:"content_duplicates"`
	Exported          int `yaml:"exported"`

	Fetch    web.FetchStats       `yaml:"fetch"`
	Classify classify.Stats       `yaml:"classify"`
	Taxonomy taxonomy.Stats       `yaml:"taxonomy"`
	Tree     bookmarks.BuildStats `yaml:"tree"`

	Errors    map[Kind]int     `yaml:"errors"`
	Skips     []bookmarks.Skip `yaml:"skips,omitempty"`
	DeadLinks []DeadLink       `yaml:"dead_links,omitempty"`
}

func (s *Summary) countErrors() {
	s.Errors = map[Kind]int{
		ParseSkip:         len(s.Skips),
		FetchTimeout:      s.Fetch.Timeouts,
		FetchNetworkError: s.Fetch.NetworkErrors,
		FetchHTTPError:    s.Fetch.HTTPErrors,
		FetchNotLive:      s.Fetch.NotLive,
		ClassifierError:   s.Classify.Fallback,
	}
}

// WriteText prints a human readable summary to w.
func (s *Summary) WriteText(w io.Writer) {
	fmt.Fprintf(w, "run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  parsed %d, exported %d\n", s.Parsed, s.Exported)
	fmt.Fprintf(w, "  duplicates removed: %d exact, %d by content\n", s.ExactDuplicates, s.ContentDuplicates)
	fmt.Fprintf(w, "  dead links removed: %d\n", len(s.DeadLinks))
	for _, d := range s.DeadLinks {
		fmt.Fprintf(w, "    %s (%s)\n", d.URL, d.Reason)
	}
	for _, kind := range CountedKinds {
		if n := s.Errors[kind]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", kind, n)
		}
	}
	if s.Interrupted {
		fmt.Fprintln(w, "  run was interrupted, unprocessed bookmarks kept their original folders")
	}
}

// WriteReport stores the summary as YAML at path.
func WriteReport(path string, s *Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
