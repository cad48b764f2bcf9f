package bookmarks

import (
	"math"
	"strconv"
	"strings"
)

// Status tracks where a record is in the pipeline.
type Status int

const (
	Pending Status = iota
	Fetched
	Dead
	Skipped
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fetched:
		return "fetched"
	case Dead:
		return "dead"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// FolderPath is an ordered list of folder names from the root.
type FolderPath []string

func (p FolderPath) String() string {
	return strings.Join(p, "/")
}

// ParseFolderPath splits a slash separated path, dropping empty segments.
func ParseFolderPath(s string) FolderPath {
	var path FolderPath
	for _, part := range strings.Split(s, "/") {
		if part = strings.TrimSpace(part); part != "" {
			path = append(path, part)
		}
	}
	return path
}

// Signature is the compact content summary derived from a fetched page.
type Signature struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	NavText     string   `json:"nav_text,omitempty"`
	Text        string   `json:"text"`
}

// Record is a single bookmark flowing through the pipeline.
type Record struct {
	URL                string     `json:"url"`
	RawURL             string     `json:"raw_url"`
	Title              string     `json:"title"`
	AddedAt            string     `json:"added_at,omitempty"`
	AddedUnix          int64      `json:"added_unix,omitempty"`
	OriginalFolderPath FolderPath `json:"original_folder_path,omitempty"`
	Order              int        `json:"order"`

	Status             Status     `json:"status"`
	Signature          *Signature `json:"signature,omitempty"`
	AssignedFolderPath FolderPath `json:"assigned_folder_path,omitempty"`
	FinalURL           string     `json:"final_url,omitempty"`
	DeadReason         string     `json:"dead_reason,omitempty"`
}

// NewRecord builds a pending record. AddedAt is kept verbatim, the numeric
// form is only used for ordering.
func NewRecord(rawURL, title, addedAt string, folder FolderPath, order int) (*Record, error) {
	canonical, err := CanonicalURL(rawURL)
	if err != nil {
		return nil, err
	}

	return &Record{
		URL:                canonical,
		RawURL:             rawURL,
		Title:              title,
		AddedAt:            addedAt,
		AddedUnix:          ParseAddedAt(addedAt),
		OriginalFolderPath: folder,
		Order:              order,
		Status:             Pending,
	}, nil
}

// ParseAddedAt parses a unix seconds timestamp. Missing or malformed values
// sort after every dated record.
func ParseAddedAt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return math.MaxInt64
	}
	return v
}

// Earlier reports whether r was added before other, falling back to
// document order on ties.
func (r *Record) Earlier(other *Record) bool {
	if r.AddedUnix != other.AddedUnix {
		return r.AddedUnix < other.AddedUnix
	}
	return r.Order < other.Order
}

// HasAddedAt reports whether the record carries a usable timestamp.
func (r *Record) HasAddedAt() bool {
	return r.AddedUnix != math.MaxInt64
}

// MarkDead marks the record dead and clears any signature.
func (r *Record) MarkDead(reason string) {
	r.Status = Dead
	r.Signature = nil
	r.AssignedFolderPath = nil
	r.DeadReason = reason
}

// Assign sets the classifier result. Only fetched records accept one.
func (r *Record) Assign(path FolderPath) bool {
	if r.Status != Fetched {
		return false
	}
	r.AssignedFolderPath = path
	return true
}

// Skip describes an input entry that could not become a record.
type Skip struct {
	Order  int    `json:"order" yaml:"order"`
	Href   string `json:"href" yaml:"href"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// ParseResult is the output of an input parser.
type ParseResult struct {
	Records []*Record
	Skips   []Skip
}

// Add turns an input entry into a record, or records why it was skipped.
func (p *ParseResult) Add(href, title, addedAt string, folder FolderPath) {
	order := len(p.Records) + len(p.Skips)
	r, err := NewRecord(href, title, addedAt, folder, order)
	if err != nil {
		p.Skips = append(p.Skips, Skip{Order: order, Href: href, Title: title, Reason: err.Error()})
		return
	}
	p.Records = append(p.Records, r)
}
