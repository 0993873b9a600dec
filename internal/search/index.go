// internal/search/index.go

// Package search ranks book titles against free-text queries using an
// edit-distance based similarity, so a title is still found when the query
// has typos, transpositions, or only part of a word.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Match is one ranked title. Score is in [0,100]; 100 means the query and
// the title are identical after normalization.
type Match struct {
	Title string
	Score int
}

// Index holds the distinct titles to rank. It carries no availability
// data; callers re-scan the catalog for that after ranking.
type Index struct {
	titles     []string
	normalized []string
}

// NewIndex builds an index over the given titles. Duplicate titles (one
// per physical copy) collapse to a single entry; first-encountered order
// is kept and is the tie-break order for equal scores.
func NewIndex(titles []string) *Index {
	idx := &Index{}
	seen := make(map[string]bool, len(titles))
	for _, t := range titles {
		if seen[t] {
			continue
		}
		seen[t] = true
		idx.titles = append(idx.titles, t)
		idx.normalized = append(idx.normalized, normalize(t))
	}
	return idx
}

// Len returns the number of distinct titles in the index.
func (idx *Index) Len() int { return len(idx.titles) }

// Search returns up to limit titles ordered by descending score, ties
// broken by index order. The empty query is the caller's problem to
// reject; here it simply ranks against the empty string.
func (idx *Index) Search(query string, limit int) []Match {
	q := normalize(query)
	matches := make([]Match, 0, len(idx.titles))
	for i, t := range idx.titles {
		matches = append(matches, Match{Title: t, Score: score(q, idx.normalized[i])})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// score combines three similarity views the way fuzzy title matchers do:
// the plain ratio, the ratio after sorting words (order-insensitive), and
// a discounted best-substring ratio (partial word matches).
func score(query, title string) int {
	best := ratio(query, title)
	if s := ratio(sortTokens(query), sortTokens(title)); s > best {
		best = s
	}
	if s := partialRatio(query, title) * 90 / 100; s > best {
		best = s
	}
	return best
}

// ratio is a normalized Levenshtein similarity on [0,100].
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	m := la
	if lb > m {
		m = lb
	}
	if m == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	if d > m {
		d = m
	}
	return (m - d) * 100 / m
}

// partialRatio slides the shorter string over the longer one and returns
// the best window ratio, so "dun" against "dune station" still scores high.
func partialRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	if len(ra) == len(rb) {
		return ratio(string(ra), string(rb))
	}
	best := 0
	for i := 0; i+len(ra) <= len(rb); i++ {
		if s := ratio(string(ra), string(rb[i:i+len(ra)])); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// normalize lowercases and strips everything but letters, digits and
// single spaces, matching how the query and titles are compared.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
