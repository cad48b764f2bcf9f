package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
	"github.com/xtruder/bookmark-curator/internal/x"
)

// FetchOptions contains configuration for content fetching
type FetchOptions struct {
	// Workers bounds concurrent navigations. Callers keep it at or below
	// the browser's session capacity.
	Workers int
	// Timeout applies to each navigation attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after a timeout or network error.
	Retries     int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// Recanonicalize replaces a record's URL with the canonical final URL
	// after redirects. Redirected records are not merged again.
	Recanonicalize bool
	Cache          x.Cache
	Liveness       LivenessChecker
}

// FetchStats counts fetch outcomes.
type FetchStats struct {
	Attempted     int `json:"attempted" yaml:"attempted"`
	Fetched       int `json:"fetched" yaml:"fetched"`
	Cached        int `json:"cached" yaml:"cached"`
	Dead          int `json:"dead" yaml:"dead"`
	Timeouts      int `json:"timeouts" yaml:"timeouts"`
	NetworkErrors int `json:"network_errors" yaml:"network_errors"`
	HTTPErrors    int `json:"http_errors" yaml:"http_errors"`
	NotLive       int `json:"not_live" yaml:"not_live"`
	Redirected    int `json:"redirected" yaml:"redirected"`
	Interrupted   int `json:"interrupted" yaml:"interrupted"`
}

// cachedPage is what survives between runs for a successful fetch.
type cachedPage struct {
	FinalURL   string               `json:"final_url"`
	StatusCode int                  `json:"status_code"`
	Signature  *bookmarks.Signature `json:"signature"`
}

var (
	errNotLive     = errors.New("page looks parked or missing")
	errInterrupted = errors.New("run interrupted before the page was fetched")
)

// Fetcher loads pending records through a Navigator with bounded
// concurrency, per-attempt timeouts and retries.
type Fetcher struct {
	nav  Navigator
	opts FetchOptions

	mu    sync.Mutex
	stats FetchStats

	backOff func() backoff.BackOff
}

// NewFetcher creates a fetcher, filling unset options with defaults.
func NewFetcher(nav Navigator, opts FetchOptions) *Fetcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = 10 * opts.BackoffBase
	}
	if opts.Cache == nil {
		opts.Cache = x.NopCache{}
	}

	f := &Fetcher{nav: nav, opts: opts}
	f.backOff = func() backoff.BackOff {
		return x.Backoff(f.opts.BackoffBase, f.opts.BackoffMax, f.opts.Retries)
	}
	return f
}

// Fetch processes every pending record and returns when all dispatched
// work has finished. Once ctx is cancelled no new attempts start; running
// attempts finish or hit their own timeout, and untouched records stay
// pending. Losing the browser endpoint stops dispatching the same way and
// is returned as an error wrapping ErrEndpointUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, records []*bookmarks.Record) (FetchStats, error) {
	f.stats = FetchStats{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Workers)

	for _, r := range records {
		if r.Status != bookmarks.Pending {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return f.fetchRecord(ctx, r)
		})
	}
	err := g.Wait()

	for _, r := range records {
		if r.Status == bookmarks.Pending {
			f.stats.Interrupted++
		}
	}

	slog.Info("fetched bookmarks",
		"fetched", f.stats.Fetched,
		"cached", f.stats.Cached,
		"dead", f.stats.Dead,
		"interrupted", f.stats.Interrupted)

	if err != nil {
		slog.Error("browser endpoint lost, fetching stopped", "error", err)
		return f.stats, err
	}
	return f.stats, nil
}

// fetchRecord only returns an error when the endpoint is gone; the record
// is then left pending.
func (f *Fetcher) fetchRecord(ctx context.Context, r *bookmarks.Record) error {
	key := x.Key("page", r.RawURL)
	if cached, ok := f.opts.Cache.Get(key); ok {
		var entry cachedPage
		if err := json.Unmarshal([]byte(cached), &entry); err == nil && entry.Signature != nil {
			slog.Debug("using cached page", "url", r.RawURL)
			f.accept(r, entry)
			f.count(func(s *FetchStats) { s.Cached++; s.Fetched++ })
			return nil
		}
	}

	page, err := f.navigate(ctx, r)
	switch {
	case errors.Is(err, errInterrupted):
		return nil
	case errors.Is(err, ErrEndpointUnavailable):
		return err
	}
	f.count(func(s *FetchStats) { s.Attempted++ })

	var entry cachedPage
	if err == nil {
		entry, err = f.inspect(ctx, r, page)
	}
	if err != nil {
		f.markDead(r, err)
		return nil
	}

	if data, err := json.Marshal(entry); err == nil {
		if err := f.opts.Cache.Set(key, string(data)); err != nil {
			slog.Warn("failed to cache page", "url", r.RawURL, "error", err)
		}
	}

	f.accept(r, entry)
	f.count(func(s *FetchStats) { s.Fetched++ })
	return nil
}

// navigate runs attempts until one succeeds, a non-retryable error occurs
// or retries run out. Attempts use a context detached from ctx so a
// started attempt is never cut short by cancellation.
func (f *Fetcher) navigate(ctx context.Context, r *bookmarks.Record) (*Page, error) {
	var (
		page    *Page
		attempt int
	)

	op := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(errInterrupted)
		}
		attempt++

		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.opts.Timeout)
		defer cancel()

		p, err := f.nav.Navigate(attemptCtx, r.RawURL)
		if err == nil {
			page = p
			return nil
		}

		slog.Debug("navigation attempt failed", "url", r.RawURL, "attempt", attempt, "error", err)
		if errors.Is(err, ErrNavigationTimeout) || errors.Is(err, ErrNetwork) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(f.backOff(), ctx))
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil, errInterrupted
	}
	return page, err
}

// inspect turns a loaded page into a cache entry or a reason the record
// is dead.
func (f *Fetcher) inspect(ctx context.Context, r *bookmarks.Record, page *Page) (cachedPage, error) {
	sig, err := Extract(page)
	if err != nil {
		return cachedPage{}, err
	}

	if page.StatusCode >= 400 && sig.Text == "" {
		return cachedPage{}, &HTTPStatusError{StatusCode: page.StatusCode}
	}

	if f.opts.Liveness != nil {
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.opts.Timeout)
		alive, err := f.opts.Liveness.IsAlive(checkCtx, r.URL, sig.Text)
		cancel()
		if err != nil {
			slog.Warn("liveness check failed, keeping page", "url", r.URL, "error", err)
		} else if !alive {
			return cachedPage{}, errNotLive
		}
	}

	return cachedPage{FinalURL: page.FinalURL, StatusCode: page.StatusCode, Signature: sig}, nil
}

func (f *Fetcher) accept(r *bookmarks.Record, entry cachedPage) {
	r.FinalURL = entry.FinalURL
	r.Signature = entry.Signature
	r.Status = bookmarks.Fetched

	if !f.opts.Recanonicalize || entry.FinalURL == "" {
		return
	}
	canonical, err := bookmarks.CanonicalURL(entry.FinalURL)
	if err != nil || canonical == r.URL {
		return
	}

	slog.Debug("following redirect", "from", r.URL, "to", canonical)
	r.URL = canonical
	f.count(func(s *FetchStats) { s.Redirected++ })
}

func (f *Fetcher) markDead(r *bookmarks.Record, err error) {
	r.MarkDead(err.Error())
	slog.Info("bookmark is dead", "url", r.RawURL, "reason", err)

	var statusErr *HTTPStatusError
	f.count(func(s *FetchStats) {
		s.Dead++
		switch {
		case errors.Is(err, ErrNavigationTimeout):
			s.Timeouts++
		case errors.As(err, &statusErr):
			s.HTTPErrors++
		case errors.Is(err, errNotLive):
			s.NotLive++
		default:
			s.NetworkErrors++
		}
	})
}

func (f *Fetcher) count(update func(s *FetchStats)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	update(&f.stats)
}
