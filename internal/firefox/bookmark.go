package firefox

import (
	"iter"
	"strconv"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// Node is a bookmark or folder in an ffsclient JSON export.
type Node struct {
	Added     string `json:"added"`
	AddedUnix int64  `json:"added_unix"`
	Deleted   bool   `json:"deleted"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	URI       string `json:"uri,omitempty"`
	Children  []Node `json:"children,omitempty"`
}

// BookmarksRoot represents the root JSON structure from ffsclient
type BookmarksRoot struct {
	Bookmarks struct {
		Menu    Node `json:"menu"`
		Mobile  Node `json:"mobile"`
		Toolbar Node `json:"toolbar"`
		Unfiled Node `json:"unfiled"`
	} `json:"bookmarks"`
	Missing      []string `json:"missing"`
	Unreferenced []string `json:"unreferenced"`
}

// All yields every node below n with the folder path leading to it.
func (n Node) All() iter.Seq2[bookmarks.FolderPath, *Node] {
	return func(yield func(bookmarks.FolderPath, *Node) bool) {
		var walk func(node *Node, path bookmarks.FolderPath) bool
		walk = func(node *Node, path bookmarks.FolderPath) bool {
			if !yield(path, node) {
				return false
			}

			childPath := path
			if node.Type == "folder" && node.Title != "" {
				childPath = append(append(bookmarks.FolderPath{}, path...), node.Title)
			}
			for i := range node.Children {
				if !walk(&node.Children[i], childPath) {
					return false
				}
			}
			return true
		}
		walk(&n, nil)
	}
}

// Records flattens the export into pipeline records. Roots are visited
// toolbar, menu, unfiled, then mobile.
func (root *BookmarksRoot) Records() *bookmarks.ParseResult {
	result := &bookmarks.ParseResult{}

	for _, top := range []Node{
		root.Bookmarks.Toolbar,
		root.Bookmarks.Menu,
		root.Bookmarks.Unfiled,
		root.Bookmarks.Mobile,
	} {
		for path, node := range top.All() {
			if node.Type != "bookmark" || node.Deleted {
				continue
			}
			result.Add(node.URI, node.Title, addDate(node.AddedUnix), path)
		}
	}

	return result
}

// addDate renders the timestamp in Netscape ADD_DATE seconds.
func addDate(unix int64) string {
	if unix <= 0 {
		return ""
	}
	if unix > 1e11 {
		unix /= 1000
	}
	return strconv.FormatInt(unix, 10)
}
