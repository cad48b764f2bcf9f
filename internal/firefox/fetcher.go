package firefox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// FirefoxFetcher pulls bookmarks from Firefox Sync through ffsclient.
type FirefoxFetcher struct {
	FFSyncCmd string
}

// NewFirefoxFetcher creates a new Firefox bookmarks fetcher
func NewFirefoxFetcher() *FirefoxFetcher {
	return &FirefoxFetcher{FFSyncCmd: "ffsclient"}
}

// GetBookmarks runs ffsclient and parses its JSON output.
func (f *FirefoxFetcher) GetBookmarks(ctx context.Context) (*bookmarks.ParseResult, error) {
	cmd := exec.CommandContext(ctx, f.FFSyncCmd, "bookmarks", "list", "--format=json")
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Error("failed to execute ffsclient", "stderr", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffsclient failed: %w", err)
	}

	var root BookmarksRoot
	if err := json.Unmarshal(output, &root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return root.Records(), nil
}

// Parse reads a saved ffsclient JSON export.
func Parse(r io.Reader) (*bookmarks.ParseResult, error) {
	var root BookmarksRoot
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	result := root.Records()
	slog.Info("parsed firefox export", "records", len(result.Records), "skipped", len(result.Skips))
	return result, nil
}
