// Package taxonomy tidies the folder paths assigned by the classifier
// before the tree is built.
package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// Reducer merges overlapping folder names. The returned map sends every
// input name to its group name.
type Reducer interface {
	ReduceFolders(ctx context.Context, folders []string, limit int) (map[string]string, error)
}

// Stats reports what consolidation changed.
type Stats struct {
	TopLevelBefore int `json:"top_level_before" yaml:"top_level_before"`
	TopLevelAfter  int `json:"top_level_after" yaml:"top_level_after"`
	Folded         int `json:"folded" yaml:"folded"`
}

// ReduceTopLevel asks reducer to merge top-level folders when there are
// more than limit of them. keep names folders that are never merged.
func ReduceTopLevel(ctx context.Context, reducer Reducer, records []*bookmarks.Record, limit int, keep ...string) (Stats, error) {
	var stats Stats

	protected := make(map[string]bool, len(keep))
	for _, k := range keep {
		protected[bookmarks.SegmentKey(k)] = true
	}

	var (
		names []string
		seen  = map[string]bool{}
	)
	for _, r := range assigned(records) {
		key := bookmarks.SegmentKey(r.AssignedFolderPath[0])
		if !seen[key] {
			seen[key] = true
			if !protected[key] {
				names = append(names, r.AssignedFolderPath[0])
			}
		}
	}
	stats.TopLevelBefore = len(seen)
	stats.TopLevelAfter = len(seen)

	if limit <= 0 || len(names) <= limit {
		return stats, nil
	}

	mapping, err := reducer.ReduceFolders(ctx, names, limit)
	if err != nil {
		return stats, fmt.Errorf("failed to reduce folders: %w", err)
	}

	byKey := make(map[string]string, len(mapping))
	for from, to := range mapping {
		byKey[bookmarks.SegmentKey(from)] = to
	}

	after := map[string]bool{}
	for _, r := range assigned(records) {
		if to, ok := byKey[bookmarks.SegmentKey(r.AssignedFolderPath[0])]; ok && strings.TrimSpace(to) != "" {
			path := append(bookmarks.FolderPath{strings.TrimSpace(to)}, r.AssignedFolderPath[1:]...)
			r.AssignedFolderPath = path
		}
		after[bookmarks.SegmentKey(r.AssignedFolderPath[0])] = true
	}
	stats.TopLevelAfter = len(after)

	slog.Info("reduced top-level folders", "before", stats.TopLevelBefore, "after", stats.TopLevelAfter)
	return stats, nil
}

// FoldSparse moves bookmarks out of subfolders holding fewer than minSize
// bookmarks into the parent folder, deepest level first. Top-level folders
// are never folded. minSize <= 1 disables folding.
func FoldSparse(records []*bookmarks.Record, minSize int) Stats {
	var stats Stats
	if minSize <= 1 {
		return stats
	}

	list := assigned(records)
	maxDepth := 0
	for _, r := range list {
		maxDepth = max(maxDepth, len(r.AssignedFolderPath))
	}

	for depth := maxDepth; depth >= 2; depth-- {
		counts := map[string]int{}
		for _, r := range list {
			if len(r.AssignedFolderPath) >= depth {
				counts[prefixKey(r.AssignedFolderPath, depth)]++
			}
		}
		for _, r := range list {
			if len(r.AssignedFolderPath) >= depth && counts[prefixKey(r.AssignedFolderPath, depth)] < minSize {
				r.AssignedFolderPath = r.AssignedFolderPath[:depth-1]
				stats.Folded++
			}
		}
	}

	if stats.Folded > 0 {
		slog.Info("folded sparse folders", "moved", stats.Folded, "min_size", minSize)
	}
	return stats
}

func assigned(records []*bookmarks.Record) []*bookmarks.Record {
	var out []*bookmarks.Record
	for _, r := range records {
		if r.Status == bookmarks.Fetched && len(r.AssignedFolderPath) > 0 {
			out = append(out, r)
		}
	}
	return out
}

func prefixKey(path bookmarks.FolderPath, depth int) string {
	keys := make([]string, depth)
	for i := range depth {
		keys[i] = bookmarks.SegmentKey(path[i])
	}
	return strings.Join(keys, "/")
}
