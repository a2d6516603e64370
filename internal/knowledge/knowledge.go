// Package knowledge holds the lookup tables the support handlers answer
// from. Entries are matched by keyword, with a small edit-distance tolerance
// so common typos ("wfi", "printr") still find their entry.
package knowledge

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxTypoDistance is the edit distance allowed when a token does not match a
// keyword exactly. Kept small so short keywords do not collide.
const maxTypoDistance = 1

// Entry is one answerable issue: identifying keywords, a title, ordered
// resolution steps, and an optional follow-up question.
type Entry struct {
	Issue    string
	Title    string
	Keywords []string
	Steps    []string
	FollowUp string
}

// Base is a searchable set of entries for one support category.
type Base struct {
	category string
	entries  []Entry
}

// NewBase builds a knowledge base over the given entries.
func NewBase(category string, entries []Entry) *Base {
	return &Base{category: category, entries: entries}
}

// Category returns the category this base serves.
func (b *Base) Category() string { return b.category }

// Entries returns the underlying entries, in declaration order.
func (b *Base) Entries() []Entry { return b.entries }

// Search returns the entry whose keywords best match the message, or false
// when nothing scores. Exact keyword hits score higher than fuzzy ones; ties
// keep the earlier entry.
func (b *Base) Search(message string) (Entry, bool) {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return Entry{}, false
	}

	var best Entry
	bestScore := 0
	for _, entry := range b.entries {
		score := entryScore(entry, tokens)
		if score > bestScore {
			best, bestScore = entry, score
		}
	}
	if bestScore == 0 {
		return Entry{}, false
	}
	return best, true
}

func entryScore(entry Entry, tokens []string) int {
	score := 0
	for _, keyword := range entry.Keywords {
		keyword = strings.ToLower(keyword)
		for _, token := range tokens {
			if token == keyword {
				score += 2
				break
			}
			if fuzzyMatch(token, keyword) {
				score++
				break
			}
		}
	}
	return score
}

// fuzzyMatch tolerates small typos but refuses to fuzz very short tokens,
// where one edit changes the word entirely.
func fuzzyMatch(token, keyword string) bool {
	if len(token) < 4 || len(keyword) < 4 {
		return false
	}
	return levenshtein.ComputeDistance(token, keyword) <= maxTypoDistance
}

func tokenize(message string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(message)) {
		token := strings.Trim(field, ".,!?:;()[]{}\"'")
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
