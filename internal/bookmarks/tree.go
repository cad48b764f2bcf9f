package bookmarks

import (
	"iter"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Folder is a node in the assembled bookmark tree. Children keep the
// order in which they were first seen.
type Folder struct {
	Name      string
	Children  []*Folder
	Bookmarks []*Record
}

// NewRoot returns an unnamed root folder.
func NewRoot() *Folder {
	return &Folder{}
}

// SegmentKey is the comparison key for folder names: NFC normalized and
// case folded.
func SegmentKey(name string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Fold().String(norm.NFC.String(name))
}

// Child returns the direct child matching name, or nil.
func (f *Folder) Child(name string) *Folder {
	key := SegmentKey(name)
	idx := slices.IndexFunc(f.Children, func(c *Folder) bool {
		return SegmentKey(c.Name) == key
	})
	if idx == -1 {
		return nil
	}
	return f.Children[idx]
}

// Ensure walks path from f, creating missing folders with the given casing.
func (f *Folder) Ensure(path FolderPath) *Folder {
	node := f
	for _, name := range path {
		child := node.Child(name)
		if child == nil {
			child = &Folder{Name: name}
			node.Children = append(node.Children, child)
		}
		node = child
	}
	return node
}

// Path looks up a folder below f, returning nil when any segment is missing.
func (f *Folder) Path(path FolderPath) *Folder {
	node := f
	for _, name := range path {
		if node = node.Child(name); node == nil {
			return nil
		}
	}
	return node
}

// All yields every folder below f depth first together with its path.
func (f *Folder) All() iter.Seq2[FolderPath, *Folder] {
	return func(yield func(FolderPath, *Folder) bool) {
		var walk func(node *Folder, path FolderPath) bool
		walk = func(node *Folder, path FolderPath) bool {
			if !yield(path, node) {
				return false
			}
			for _, child := range node.Children {
				if !walk(child, append(slices.Clone(path), child.Name)) {
					return false
				}
			}
			return true
		}
		walk(f, nil)
	}
}

// Records yields every bookmark in the subtree in export order.
func (f *Folder) Records() iter.Seq2[FolderPath, *Record] {
	return func(yield func(FolderPath, *Record) bool) {
		for path, node := range f.All() {
			for _, r := range node.Bookmarks {
				if !yield(path, r) {
					return
				}
			}
		}
	}
}

// Count returns the number of bookmarks in the subtree.
func (f *Folder) Count() int {
	n := 0
	for range f.Records() {
		n++
	}
	return n
}

// EarliestAdded returns the smallest timestamp in the subtree, if any
// bookmark carries one.
func (f *Folder) EarliestAdded() (int64, bool) {
	var (
		earliest int64
		found    bool
	)
	for _, r := range f.Records() {
		if !r.HasAddedAt() {
			continue
		}
		if !found || r.AddedUnix < earliest {
			earliest, found = r.AddedUnix, true
		}
	}
	return earliest, found
}
