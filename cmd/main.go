package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "bookmark-curator",
		Usage: "deduplicate, check and reorganize a bookmarks export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"CURATOR_CONFIG"}},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
			&cli.StringFlag{Name: "log-format", Usage: "log format: text or json"},
		},
		Commands: []*cli.Command{
			{
				Name:   "curate",
				Usage:  "run the full pipeline and write a reorganized bookmark file",
				Action: curateAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"f"}, Usage: "bookmark file (Netscape HTML or ffsclient JSON)"},
					&cli.BoolFlag{Name: "firefox", Usage: "read bookmarks from Firefox Sync through ffsclient"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "bookmarks.curated.html", Usage: "output file or s3://bucket/key"},
					&cli.StringFlag{Name: "report", Usage: "write a YAML run summary to this path"},
					&cli.StringFlag{Name: "endpoint", Usage: "browser DevTools endpoint"},
					&cli.StringFlag{Name: "llm-url", Usage: "OpenAI compatible API base URL"},
					&cli.StringFlag{Name: "llm-key", Usage: "API key for the model endpoint"},
					&cli.StringFlag{Name: "model", Usage: "model used for classification"},
					&cli.BoolFlag{Name: "keep-dead", Usage: "keep dead links in their original folders"},
					&cli.BoolFlag{Name: "no-cache", Usage: "ignore cached pages and classifications"},
				},
			},
			{
				Name:   "parse",
				Usage:  "parse and deduplicate a bookmark file without network access",
				Action: parseAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"f"}, Required: true, Usage: "bookmark file"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the deduplicated bookmarks here"},
				},
			},
			{
				Name:   "check",
				Usage:  "verify the browser and model endpoints are reachable",
				Action: checkAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "endpoint", Usage: "browser DevTools endpoint"},
					&cli.StringFlag{Name: "llm-url", Usage: "OpenAI compatible API base URL"},
					&cli.StringFlag{Name: "llm-key", Usage: "API key for the model endpoint"},
					&cli.StringFlag{Name: "model", Usage: "model used for classification"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
