package dedupe

import (
	"log/slog"
	"slices"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// Exact collapses records sharing a canonical URL. The earliest added
// record of each group survives, ties going to document order. Survivors
// are returned in document order along with the number of dropped records.
func Exact(records []*bookmarks.Record) ([]*bookmarks.Record, int) {
	winners := make(map[string]*bookmarks.Record, len(records))
	for _, r := range records {
		if current, ok := winners[r.URL]; !ok || r.Earlier(current) {
			winners[r.URL] = r
		}
	}

	survivors := make([]*bookmarks.Record, 0, len(winners))
	for _, r := range winners {
		survivors = append(survivors, r)
	}
	slices.SortFunc(survivors, func(a, b *bookmarks.Record) int {
		return a.Order - b.Order
	})

	dropped := len(records) - len(survivors)
	slog.Info("removed exact duplicates", "input", len(records), "duplicates", dropped)

	return survivors, dropped
}
