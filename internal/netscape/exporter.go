package netscape

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

const header = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
`

// Write serializes the tree depth first. Within a folder, subfolders are
// written before bookmarks, each in stored order.
func Write(w io.Writer, root *bookmarks.Folder) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(header)
	bw.WriteString("<DL><p>\n")
	writeFolderBody(bw, root, 1)
	bw.WriteString("</DL><p>\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write bookmarks: %w", err)
	}
	return nil
}

// Render returns the serialized tree as a string.
func Render(root *bookmarks.Folder) string {
	var sb strings.Builder
	_ = Write(&sb, root)
	return sb.String()
}

func writeFolderBody(w *bufio.Writer, folder *bookmarks.Folder, depth int) {
	indent := strings.Repeat("    ", depth)

	for _, child := range folder.Children {
		w.WriteString(indent)
		w.WriteString("<DT><H3")
		if added, ok := child.EarliestAdded(); ok {
			fmt.Fprintf(w, ` ADD_DATE="%d"`, added)
		}
		fmt.Fprintf(w, ">%s</H3>\n", html.EscapeString(child.Name))

		w.WriteString(indent + "<DL><p>\n")
		writeFolderBody(w, child, depth+1)
		w.WriteString(indent + "</DL><p>\n")
	}

	for _, r := range folder.Bookmarks {
		w.WriteString(indent)
		fmt.Fprintf(w, `<DT><A HREF="%s"`, html.EscapeString(r.RawURL))
		if r.AddedAt != "" {
			fmt.Fprintf(w, ` ADD_DATE="%s"`, html.EscapeString(r.AddedAt))
		}
		fmt.Fprintf(w, ">%s</A>\n", html.EscapeString(r.Title))
	}
}
