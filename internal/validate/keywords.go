package validate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultKeywordLimit caps the number of syllabus keywords merged into the
// domain vocabulary.
const DefaultKeywordLimit = 200

// BuildKeywordSet extracts the most frequent syllabus terms: words of four or
// more characters and acronyms (two or more capitals), stop-words removed.
// Ties keep first-occurrence order. Results are lowercased.
func BuildKeywordSet(text string, stopWords []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	stop := make(map[string]bool, len(stopWords))
	for _, w := range stopWords {
		stop[strings.ToLower(w)] = true
	}

	type entry struct {
		word  string
		count int
	}
	seen := make(map[string]*entry)
	var order []*entry

	for _, raw := range strings.FieldsFunc(text, isPunct) {
		lower := strings.ToLower(raw)
		if stop[lower] {
			continue
		}
		if utf8.RuneCountInString(raw) < 4 && !isAcronym(raw) {
			continue
		}
		e, ok := seen[lower]
		if !ok {
			e = &entry{word: lower}
			seen[lower] = e
			order = append(order, e)
		}
		e.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})
	if len(order) > limit {
		order = order[:limit]
	}
	out := make([]string, len(order))
	for i, e := range order {
		out[i] = e.word
	}
	return out
}

func isAcronym(token string) bool {
	upper := 0
	for _, r := range token {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper >= 2
}
