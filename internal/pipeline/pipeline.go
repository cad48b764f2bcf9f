package pipeline

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
	"github.com/xtruder/bookmark-curator/internal/classify"
	"github.com/xtruder/bookmark-curator/internal/dedupe"
	"github.com/xtruder/bookmark-curator/internal/netscape"
	"github.com/xtruder/bookmark-curator/internal/taxonomy"
	"github.com/xtruder/bookmark-curator/internal/web"
	"github.com/xtruder/bookmark-curator/internal/x"
)

// Options configures every stage of a run.
type Options struct {
	Fetch    web.FetchOptions
	Classify classify.Options
	Tree     bookmarks.BuildOptions

	ContentDedupe bool
	// SeedFolders prime the classifier vocabulary.
	SeedFolders []bookmarks.FolderPath
	// SeedFromInput adds the input's own folder paths to the vocabulary.
	SeedFromInput bool

	MaxTopLevel   int
	MinFolderSize int
}

// Pipeline wires the stages together. Navigator and Classifier are
// required; Similarity defaults to shingle Jaccard and Reducer is only
// used when MaxTopLevel is set.
type Pipeline struct {
	Navigator  web.Navigator
	Classifier classify.Classifier
	Similarity dedupe.Similarity
	Reducer    taxonomy.Reducer
	Options    Options
}

// Result is the outcome of a run.
type Result struct {
	Records []*bookmarks.Record
	Tree    *bookmarks.Folder
	Output  []byte
	Summary *Summary
}

// Run parses the input file contents and curates them.
func (p *Pipeline) Run(ctx context.Context, input []byte) (*Result, error) {
	parsed, err := ParseInput(input)
	if err != nil {
		return nil, err
	}
	return p.Curate(ctx, parsed)
}

// Curate executes every stage on parsed bookmarks. Each stage sees the
// full output of the previous one. A cancelled ctx stops new fetch and
// classification work; whatever finished is still assembled and exported.
// Losing the browser endpoint aborts the run with an EndpointUnavailable
// error and no output.
func (p *Pipeline) Curate(ctx context.Context, parsed *bookmarks.ParseResult) (*Result, error) {
	summary := &Summary{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := slog.With("run", summary.RunID)

	summary.Parsed = len(parsed.Records)
	summary.Skips = parsed.Skips

	records, dropped := dedupe.Exact(parsed.Records)
	summary.ExactDuplicates = dropped

	log.Info("fetching pages", "records", len(records), "workers", p.Options.Fetch.Workers)
	fetchStats, err := web.NewFetcher(p.Navigator, p.Options.Fetch).Fetch(ctx, records)
	if err != nil {
		return nil, Fatal(EndpointUnavailable, err)
	}
	summary.Fetch = fetchStats

	if p.Options.ContentDedupe {
		sim := p.Similarity
		if sim == nil {
			sim = dedupe.NewJaccard(dedupe.DefaultThreshold)
		}
		summary.ContentDuplicates = dedupe.Content(records, sim)
	}

	vocab := classify.NewVocabulary(p.seeds(records)...)
	log.Info("classifying pages", "known_folders", vocab.Len())
	summary.Classify = classify.NewStage(p.Classifier, vocab, p.Options.Classify).Run(ctx, records)

	p.consolidate(ctx, records, summary)

	tree, buildStats := bookmarks.Build(records, p.Options.Tree)
	summary.Tree = buildStats
	summary.Exported = tree.Count()

	for r := range x.Filter(slices.Values(records), isDead) {
		summary.DeadLinks = append(summary.DeadLinks, DeadLink{URL: r.RawURL, Title: r.Title, Reason: r.DeadReason})
	}

	summary.Interrupted = ctx.Err() != nil
	summary.Duration = time.Since(summary.StartedAt)
	summary.countErrors()

	log.Info("run finished",
		"parsed", summary.Parsed,
		"exported", summary.Exported,
		"dead", len(summary.DeadLinks),
		"interrupted", summary.Interrupted,
		"duration", summary.Duration)

	return &Result{
		Records: records,
		Tree:    tree,
		Output:  []byte(netscape.Render(tree)),
		Summary: summary,
	}, nil
}

func isDead(r *bookmarks.Record) bool {
	return r.Status == bookmarks.Dead
}

func (p *Pipeline) seeds(records []*bookmarks.Record) []bookmarks.FolderPath {
	seeds := append([]bookmarks.FolderPath{}, p.Options.SeedFolders...)
	if p.Options.SeedFromInput {
		for _, r := range records {
			if len(r.OriginalFolderPath) > 0 {
				seeds = append(seeds, r.OriginalFolderPath)
			}
		}
	}
	return seeds
}

// consolidate runs the optional taxonomy passes. A failed reduction keeps
// the classifier's folders.
func (p *Pipeline) consolidate(ctx context.Context, records []*bookmarks.Record, summary *Summary) {
	if p.Reducer != nil && p.Options.MaxTopLevel > 0 && ctx.Err() == nil {
		fallback := p.Options.Tree.Fallback
		if fallback == "" {
			fallback = bookmarks.DefaultFallbackFolder
		}
		stats, err := taxonomy.ReduceTopLevel(ctx, p.Reducer, records, p.Options.MaxTopLevel, fallback)
		if err != nil {
			slog.Warn("folder reduction failed, keeping classifier folders", "error", err)
		}
		summary.Taxonomy = stats
	}

	folded := taxonomy.FoldSparse(records, p.Options.MinFolderSize)
	summary.Taxonomy.Folded = folded.Folded
}
