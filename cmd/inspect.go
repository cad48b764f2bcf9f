package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
	"github.com/xtruder/bookmark-curator/internal/dedupe"
	"github.com/xtruder/bookmark-curator/internal/netscape"
	"github.com/xtruder/bookmark-curator/internal/output"
	"github.com/xtruder/bookmark-curator/internal/pipeline"
	"github.com/xtruder/bookmark-curator/internal/x"
)

func parseAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	data, err := os.ReadFile(c.String("input"))
	if err != nil {
		return fatal(pipeline.Fatal(pipeline.InputError, err))
	}
	parsed, err := pipeline.ParseInput(data)
	if err != nil {
		return fatal(err)
	}

	records, dropped := dedupe.Exact(parsed.Records)
	for _, r := range records {
		fmt.Printf("%s\t%s\n", r.OriginalFolderPath, r.URL)
	}
	for _, s := range parsed.Skips {
		fmt.Fprintf(os.Stderr, "skipped %q: %s\n", s.Href, s.Reason)
	}
	fmt.Fprintf(os.Stderr, "%d bookmarks, %d duplicates, %d skipped\n", len(records), dropped, len(parsed.Skips))

	dest := c.String("output")
	if dest == "" {
		return nil
	}
	tree, _ := bookmarks.Build(records, bookmarks.BuildOptions{Fallback: cfg.Tree.Fallback})
	sink, err := output.Open(c.Context, dest, s3Config(cfg.S3))
	if err != nil {
		return fatal(pipeline.Fatal(pipeline.OutputWriteError, err))
	}
	if err := sink.Write(c.Context, []byte(netscape.Render(tree))); err != nil {
		return fatal(pipeline.Fatal(pipeline.OutputWriteError, err))
	}
	return nil
}

func checkAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	nav, err := connectBrowser(c.Context, cfg.Browser)
	if err != nil {
		return fatal(err)
	}
	defer nav.Close()
	fmt.Printf("browser: ok (%s)\n", cfg.Browser.Endpoint)

	if _, err := newLLMClient(c.Context, cfg.Classifier, x.NopCache{}); err != nil {
		return fatal(err)
	}
	fmt.Printf("model: ok (%s at %s)\n", cfg.Classifier.Model, cfg.Classifier.BaseURL)
	return nil
}
