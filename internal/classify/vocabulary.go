package classify

import (
	"strings"
	"sync"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// Vocabulary is the set of folder paths assigned so far. It is shared by
// concurrent classifications and fed back into each call so the classifier
// can reuse existing folders.
type Vocabulary struct {
	mu    sync.Mutex
	paths []bookmarks.FolderPath
	index map[string]bookmarks.FolderPath
}

// NewVocabulary creates a vocabulary seeded with known paths. Seed
// segments containing "/" are split into levels, the way classifier
// answers are read.
func NewVocabulary(seed ...bookmarks.FolderPath) *Vocabulary {
	v := &Vocabulary{index: make(map[string]bookmarks.FolderPath)}
	for _, p := range seed {
		if path := bookmarks.ParseFolderPath(p.String()); len(path) > 0 {
			v.Add(path)
		}
	}
	return v
}

// Add records path and returns it with the casing of any matching folders
// already present.
func (v *Vocabulary) Add(path bookmarks.FolderPath) bookmarks.FolderPath {
	v.mu.Lock()
	defer v.mu.Unlock()

	canonical := make(bookmarks.FolderPath, 0, len(path))
	for i := range path {
		key := pathKey(path[:i+1])
		if known, ok := v.index[key]; ok && len(known) > i {
			canonical = append(canonical, known[i])
			continue
		}
		canonical = append(canonical, path[i])
		stored := append(bookmarks.FolderPath{}, canonical...)
		v.index[key] = stored
		v.paths = append(v.paths, stored)
	}
	return canonical
}

// List returns every known path in the order first seen.
func (v *Vocabulary) List() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]string, len(v.paths))
	for i, p := range v.paths {
		out[i] = p.String()
	}
	return out
}

// Len returns the number of known paths.
func (v *Vocabulary) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.paths)
}

func pathKey(path bookmarks.FolderPath) string {
	keys := make([]string, len(path))
	for i, seg := range path {
		keys[i] = bookmarks.SegmentKey(seg)
	}
	// NUL never occurs in a folder name
	return strings.Join(keys, "\x00")
}
