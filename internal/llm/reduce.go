package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// ReduceFolders asks the model to merge overlapping folder names into at
// most limit groups. The result maps each input folder to its group; inputs
// the model forgot map to themselves.
func (c *OpenAIClient) ReduceFolders(ctx context.Context, folders []string, limit int) (map[string]string, error) {
	response, err := c.callLLM(ctx, c.prompts.Reduce, struct {
		Folders []string
		Max     int
	}{folders, limit})
	if err != nil {
		return nil, err
	}

	var groups map[string][]string
	if err := decodeJSON(response, &groups); err != nil {
		return nil, err
	}

	known := make(map[string]string, len(folders))
	for _, f := range folders {
		known[bookmarks.SegmentKey(f)] = f
	}

	mapping := make(map[string]string, len(folders))
	for group, members := range groups {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		for _, m := range members {
			if original, ok := known[bookmarks.SegmentKey(strings.TrimSpace(m))]; ok {
				mapping[original] = group
			}
		}
	}

	for _, f := range folders {
		if _, ok := mapping[f]; !ok {
			slog.Debug("folder left out of reduction", "folder", f)
			mapping[f] = f
		}
	}

	return mapping, nil
}
