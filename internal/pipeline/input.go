package pipeline

import (
	"bytes"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
	"github.com/xtruder/bookmark-curator/internal/firefox"
	"github.com/xtruder/bookmark-curator/internal/netscape"
)

// ParseInput detects the export format and parses it. JSON input is read
// as an ffsclient export, anything else as a Netscape bookmark file.
func ParseInput(data []byte) (*bookmarks.ParseResult, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n\uFEFF")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		result, err := firefox.Parse(bytes.NewReader(trimmed))
		if err != nil {
			return nil, Fatal(InputError, err)
		}
		return result, nil
	}

	result, err := netscape.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, Fatal(InputError, err)
	}
	return result, nil
}
