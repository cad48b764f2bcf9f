package bookmarks

import "log/slog"

// DefaultFallbackFolder receives bookmarks that have no usable folder path.
const DefaultFallbackFolder = "Unsorted"

// BuildOptions controls placement of records that were not classified.
type BuildOptions struct {
	// KeepDead places dead records at their original folder instead of
	// dropping them.
	KeepDead bool
	// Fallback is used when a record needs its original folder but has none.
	Fallback string
}

// BuildStats counts how records were handled while building the tree.
type BuildStats struct {
	Placed      int `json:"placed" yaml:"placed"`
	Dead        int `json:"dead" yaml:"dead"`
	Skipped     int `json:"skipped" yaml:"skipped"`
	Unprocessed int `json:"unprocessed" yaml:"unprocessed"`
}

// Build assembles records into a folder tree. Records are visited in slice
// order so the result depends only on the input sequence.
func Build(records []*Record, opts BuildOptions) (*Folder, BuildStats) {
	if opts.Fallback == "" {
		opts.Fallback = DefaultFallbackFolder
	}

	root := NewRoot()
	var stats BuildStats

	for _, r := range records {
		var path FolderPath

		switch {
		case r.Status == Skipped:
			stats.Skipped++
			continue
		case r.Status == Dead:
			stats.Dead++
			if !opts.KeepDead {
				continue
			}
			path = originalOrFallback(r, opts.Fallback)
		case r.Status == Fetched && len(r.AssignedFolderPath) > 0:
			path = r.AssignedFolderPath
		default:
			// interrupted before fetch or classification finished
			stats.Unprocessed++
			path = originalOrFallback(r, opts.Fallback)
		}

		node := root.Ensure(path)
		node.Bookmarks = append(node.Bookmarks, r)
		stats.Placed++
	}

	slog.Debug("built bookmark tree",
		"placed", stats.Placed,
		"dead", stats.Dead,
		"skipped", stats.Skipped,
		"unprocessed", stats.Unprocessed)

	return root, stats
}

func originalOrFallback(r *Record, fallback string) FolderPath {
	if len(r.OriginalFolderPath) > 0 {
		return r.OriginalFolderPath
	}
	return FolderPath{fallback}
}
