package classify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
	"github.com/xtruder/bookmark-curator/internal/x"
)

const maxSegmentRunes = 64

var (
	errEmptyPath   = errors.New("classifier returned an empty folder path")
	errInterrupted = errors.New("run interrupted before classification")
)

// Classifier maps a fetched record to a folder path. existing holds the
// folder paths assigned so far.
type Classifier interface {
	Classify(ctx context.Context, r *bookmarks.Record, existing []string, maxDepth int) (bookmarks.FolderPath, error)
}

// Options configures the classification stage.
type Options struct {
	Workers       int
	Timeout       time.Duration
	Retries       int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	RatePerSecond float64
	Burst         int
	MaxDepth      int
	Fallback      string
}

// Stats counts classification outcomes.
type Stats struct {
	Classified  int `json:"classified" yaml:"classified"`
	Fallback    int `json:"fallback" yaml:"fallback"`
	Errors      int `json:"errors" yaml:"errors"`
	Interrupted int `json:"interrupted" yaml:"interrupted"`
	Folders     int `json:"folders" yaml:"folders"`
}

// Stage classifies fetched records with bounded concurrency and a rate
// limit independent of the fetch pool.
type Stage struct {
	classifier Classifier
	vocab      *Vocabulary
	opts       Options
	limiter    *rate.Limiter

	mu    sync.Mutex
	stats Stats

	backOff func() backoff.BackOff
}

// NewStage creates a stage, filling unset options with defaults.
func NewStage(classifier Classifier, vocab *Vocabulary, opts Options) *Stage {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = 10 * opts.BackoffBase
	}
	if opts.MaxDepth < 1 || opts.MaxDepth > 3 {
		opts.MaxDepth = 3
	}
	if opts.Fallback == "" {
		opts.Fallback = bookmarks.DefaultFallbackFolder
	}
	if vocab == nil {
		vocab = NewVocabulary()
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	s := &Stage{
		classifier: classifier,
		vocab:      vocab,
		opts:       opts,
		limiter:    rate.NewLimiter(limit, burst),
	}
	s.backOff = func() backoff.BackOff {
		return x.Backoff(s.opts.BackoffBase, s.opts.BackoffMax, s.opts.Retries)
	}
	return s
}

// Vocabulary returns the folder vocabulary built so far.
func (s *Stage) Vocabulary() *Vocabulary {
	return s.vocab
}

// Run assigns a folder path to every fetched record without one. Records
// whose classification keeps failing get the fallback folder. After ctx is
// cancelled no new calls start and remaining records stay unassigned.
func (s *Stage) Run(ctx context.Context, records []*bookmarks.Record) Stats {
	s.stats = Stats{}

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)

	for _, r := range records {
		if r.Status != bookmarks.Fetched || len(r.AssignedFolderPath) > 0 {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.classifyRecord(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range records {
		if r.Status == bookmarks.Fetched && len(r.AssignedFolderPath) == 0 {
			s.stats.Interrupted++
		}
	}
	s.stats.Folders = s.vocab.Len()

	slog.Info("classified bookmarks",
		"classified", s.stats.Classified,
		"fallback", s.stats.Fallback,
		"interrupted", s.stats.Interrupted,
		"folders", s.stats.Folders)

	return s.stats
}

func (s *Stage) classifyRecord(ctx context.Context, r *bookmarks.Record) {
	var (
		path    bookmarks.FolderPath
		attempt int
	)

	op := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(errInterrupted)
		}
		attempt++

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
		defer cancel()

		got, err := s.classifier.Classify(callCtx, r, s.vocab.List(), s.opts.MaxDepth)
		if err == nil {
			if got = NormalizePath(got, s.opts.MaxDepth); len(got) > 0 {
				path = got
				return nil
			}
			err = errEmptyPath
		}

		s.count(func(st *Stats) { st.Errors++ })
		slog.Debug("classification attempt failed", "url", r.URL, "attempt", attempt, "error", err)
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(s.backOff(), ctx))
	switch {
	case err == nil:
		r.Assign(s.vocab.Add(path))
		s.count(func(st *Stats) { st.Classified++ })
	case errors.Is(err, errInterrupted), ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// left unassigned, counted as interrupted by Run
	default:
		slog.Warn("classification failed, using fallback folder", "url", r.URL, "folder", s.opts.Fallback, "error", err)
		r.Assign(bookmarks.FolderPath{s.opts.Fallback})
		s.count(func(st *Stats) { st.Fallback++ })
	}
}

// NormalizePath trims segments, drops empty ones, shortens long names and
// keeps at most maxDepth levels.
func NormalizePath(path bookmarks.FolderPath, maxDepth int) bookmarks.FolderPath {
	var out bookmarks.FolderPath
	for _, seg := range path {
		seg = strings.Join(strings.Fields(seg), " ")
		seg = strings.Trim(seg, `"'`)
		if seg == "" {
			continue
		}
		if runes := []rune(seg); len(runes) > maxSegmentRunes {
			seg = string(runes[:maxSegmentRunes])
		}
		out = append(out, seg)
		if len(out) == maxDepth {
			break
		}
	}
	return out
}

func (s *Stage) count(update func(st *Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.stats)
}
