// search.go: Query operations over the shared index
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
)

// Search returns every entry of idx whose name contains query under Unicode
// case folding, in index order. An empty query matches every entry.
// The returned slice belongs to the caller.
func Search(idx *Index, query string) []Entry {
	view := idx.view()
	if query == "" {
		out := make([]Entry, len(view))
		copy(out, view)
		return out
	}

	// A Caser is stateful, one per call keeps Search safe for concurrent use.
	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]Entry, 0)
	for _, e := range view {
		if strings.Contains(fold.String(e.Name), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Match is one ranked result of FuzzySearch.
type Match struct {
	Entry          Entry
	Score          int
	MatchedIndexes []int
}

// entrySource adapts an index snapshot to fuzzy.Source.
type entrySource []Entry

func (s entrySource) String(i int) string { return s[i].Name }

func (s entrySource) Len() int { return len(s) }

// FuzzySearch ranks the entries of idx against query using subsequence
// matching, best match first. An empty query returns every entry in index
// order with a zero score.
func FuzzySearch(idx *Index, query string) []Match {
	view := idx.view()
	if query == "" {
		out := make([]Match, len(view))
		for i, e := range view {
			out[i] = Match{Entry: e}
		}
		return out
	}

	matches := fuzzy.FindFrom(query, entrySource(view))
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, Match{
			Entry:          view[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		})
	}
	return out
}
