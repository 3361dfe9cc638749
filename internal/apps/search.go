package apps

import (
	"github.com/sahilm/fuzzy"
)

type entrySource []Entry

func (s entrySource) String(i int) string { return s[i].Name }
func (s entrySource) Len() int            { return len(s) }

// Search fuzzy-matches query against entry names, best match first.
// An empty query returns entries unchanged.
func Search(entries []Entry, query string) []Entry {
	if query == "" {
		return entries
	}

	matches := fuzzy.FindFrom(query, entrySource(entries))
	results := make([]Entry, 0, len(matches))
	for _, match := range matches {
		results = append(results, entries[match.Index])
	}
	return results
}
