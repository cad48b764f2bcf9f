package dedupe

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// DefaultThreshold is the Jaccard similarity at which two pages count as
// the same content.
const DefaultThreshold = 0.9

const shingleSize = 3

// Similarity decides whether two fetched records carry the same content.
type Similarity interface {
	Similar(a, b *bookmarks.Record) bool
}

// SimilarityFunc adapts a function to Similarity.
type SimilarityFunc func(a, b *bookmarks.Record) bool

func (f SimilarityFunc) Similar(a, b *bookmarks.Record) bool {
	return f(a, b)
}

// Content marks near-duplicate fetched records as skipped. Matches are
// chained into connected components and the earliest added record of each
// component is kept. Running it twice changes nothing the second time.
func Content(records []*bookmarks.Record, sim Similarity) int {
	var fetched []*bookmarks.Record
	for _, r := range records {
		if r.Status == bookmarks.Fetched && r.Signature != nil {
			fetched = append(fetched, r)
		}
	}

	sets := newUnionFind(len(fetched))
	for i := range fetched {
		for j := i + 1; j < len(fetched); j++ {
			if sets.find(i) == sets.find(j) {
				continue
			}
			if sim.Similar(fetched[i], fetched[j]) {
				sets.union(i, j)
			}
		}
	}

	keep := make(map[int]*bookmarks.Record)
	for i, r := range fetched {
		root := sets.find(i)
		if current, ok := keep[root]; !ok || r.Earlier(current) {
			keep[root] = r
		}
	}

	skipped := 0
	for i, r := range fetched {
		if keep[sets.find(i)] != r {
			r.Status = bookmarks.Skipped
			skipped++
			slog.Debug("skipping duplicate content", "url", r.URL, "kept", keep[sets.find(i)].URL)
		}
	}

	slog.Info("removed content duplicates", "fetched", len(fetched), "duplicates", skipped)
	return skipped
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

// Jaccard compares word shingles of the signature text. Shingle sets are
// memoized per record, so an instance is not safe for concurrent use.
type Jaccard struct {
	Threshold float64

	shingles map[*bookmarks.Record]map[string]struct{}
}

// NewJaccard returns a shingle comparer; a non-positive threshold selects
// DefaultThreshold.
func NewJaccard(threshold float64) *Jaccard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Jaccard{
		Threshold: threshold,
		shingles:  make(map[*bookmarks.Record]map[string]struct{}),
	}
}

// Similar reports whether the shingle overlap reaches the threshold.
// Pages without any text never match.
func (j *Jaccard) Similar(a, b *bookmarks.Record) bool {
	sa, sb := j.set(a), j.set(b)
	if len(sa) == 0 || len(sb) == 0 {
		return false
	}
	return Score(sa, sb) >= j.Threshold
}

func (j *Jaccard) set(r *bookmarks.Record) map[string]struct{} {
	if s, ok := j.shingles[r]; ok {
		return s
	}
	s := Shingles(SignatureText(r.Signature), shingleSize)
	j.shingles[r] = s
	return s
}

// Score is the Jaccard index of two sets.
func Score(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SignatureText is the text compared for content duplicates.
func SignatureText(sig *bookmarks.Signature) string {
	if sig == nil {
		return ""
	}
	return strings.Join([]string{sig.Title, sig.Description, sig.Text}, " ")
}

// Shingles splits text into lower-cased words and returns the set of
// n-word windows. Texts shorter than n words yield a single shingle.
func Shingles(text string, n int) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	set := make(map[string]struct{})
	if len(words) == 0 {
		return set
	}
	if len(words) < n {
		set[strings.Join(words, " ")] = struct{}{}
		return set
	}
	for i := 0; i+n <= len(words); i++ {
		set[strings.Join(words[i:i+n], " ")] = struct{}{}
	}
	return set
}
