package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
	"github.com/xtruder/bookmark-curator/internal/classify"
	"github.com/xtruder/bookmark-curator/internal/config"
	"github.com/xtruder/bookmark-curator/internal/dedupe"
	"github.com/xtruder/bookmark-curator/internal/firefox"
	"github.com/xtruder/bookmark-curator/internal/output"
	"github.com/xtruder/bookmark-curator/internal/pipeline"
	"github.com/xtruder/bookmark-curator/internal/web"
)

func curateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	parsed, err := readInput(ctx, c)
	if err != nil {
		return fatal(err)
	}

	// the sink is opened before any page is fetched so a bad destination
	// fails fast
	sink, err := output.Open(ctx, c.String("output"), s3Config(cfg.S3))
	if err != nil {
		return fatal(pipeline.Fatal(pipeline.OutputWriteError, err))
	}

	cache, closeCache := openCache(ctx, cfg.Cache)
	defer closeCache()

	nav, err := connectBrowser(ctx, cfg.Browser)
	if err != nil {
		return fatal(err)
	}
	defer nav.Close()

	llmClient, err := newLLMClient(ctx, cfg.Classifier, cache)
	if err != nil {
		return fatal(err)
	}

	p := &pipeline.Pipeline{
		Navigator:  nav,
		Classifier: llmClient,
		Similarity: dedupe.NewJaccard(cfg.Dedupe.Threshold),
		Reducer:    llmClient,
		Options:    pipelineOptions(cfg),
	}
	p.Options.Fetch.Cache = cache
	if cfg.Fetch.LivenessCheck {
		p.Options.Fetch.Liveness = llmClient
	}

	result, err := p.Curate(ctx, parsed)
	if err != nil {
		return fatal(err)
	}

	// an interrupted run still writes what it has
	writeCtx := context.WithoutCancel(ctx)
	if err := sink.Write(writeCtx, result.Output); err != nil {
		return fatal(pipeline.Fatal(pipeline.OutputWriteError, err))
	}
	slog.Info("wrote bookmarks", "destination", sink.String(), "bookmarks", result.Summary.Exported)

	if path := c.String("report"); path != "" {
		if err := pipeline.WriteReport(path, result.Summary); err != nil {
			slog.Warn("failed to write report", "path", path, "error", err)
		}
	}
	result.Summary.WriteText(os.Stdout)
	return nil
}

func readInput(ctx context.Context, c *cli.Context) (*bookmarks.ParseResult, error) {
	if c.Bool("firefox") {
		parsed, err := firefox.NewFirefoxFetcher().GetBookmarks(ctx)
		if err != nil {
			return nil, pipeline.Fatal(pipeline.InputError, err)
		}
		return parsed, nil
	}

	path := c.String("input")
	if path == "" {
		return nil, pipeline.Fatal(pipeline.InputError, errors.New("either --input or --firefox is required"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeline.Fatal(pipeline.InputError, err)
	}
	return pipeline.ParseInput(data)
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	var seeds []bookmarks.FolderPath
	for _, s := range cfg.Classifier.SeedFolders {
		if path := bookmarks.ParseFolderPath(s); len(path) > 0 {
			seeds = append(seeds, path)
		}
	}

	return pipeline.Options{
		Fetch: web.FetchOptions{
			Workers:        cfg.FetchWorkers(),
			Timeout:        cfg.Fetch.Timeout,
			Retries:        cfg.Fetch.Retries,
			BackoffBase:    cfg.Fetch.BackoffBase,
			BackoffMax:     cfg.Fetch.BackoffMax,
			Recanonicalize: cfg.Fetch.Recanonicalize,
		},
		Classify: classify.Options{
			Workers:       cfg.ClassifyWorkers(),
			Timeout:       cfg.Classifier.Timeout,
			Retries:       cfg.Classifier.Retries,
			BackoffBase:   cfg.Classifier.BackoffBase,
			BackoffMax:    cfg.Classifier.BackoffMax,
			RatePerSecond: cfg.Classifier.RatePerSecond,
			Burst:         cfg.Classifier.Burst,
			MaxDepth:      cfg.Classifier.MaxDepth,
			Fallback:      cfg.Tree.Fallback,
		},
		Tree: bookmarks.BuildOptions{
			KeepDead: cfg.Tree.KeepDead,
			Fallback: cfg.Tree.Fallback,
		},
		ContentDedupe: cfg.Dedupe.Content,
		SeedFolders:   seeds,
		SeedFromInput: cfg.Classifier.SeedFromInput,
		MaxTopLevel:   cfg.Taxonomy.MaxTopLevel,
		MinFolderSize: cfg.Taxonomy.MinFolderSize,
	}
}

func s3Config(cfg config.S3Config) output.S3Config {
	return output.S3Config{
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		UsePathStyle:    cfg.UsePathStyle,
	}
}

// fatal logs err with its kind and turns it into a non-zero exit.
func fatal(err error) error {
	kind, _ := pipeline.KindOf(err)
	slog.Error("run aborted", "kind", kind, "error", err)
	return cli.Exit(err, 1)
}
