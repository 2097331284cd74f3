package generate

import (
	"regexp"
	"strings"

	"github.com/abhisek/bloomsbot/internal/question"
)

var (
	qNumbered  = regexp.MustCompile(`(?i)^Q\d+\.?\s+(.+)$`)
	anyNumbers = regexp.MustCompile(`(?i)^Q?\d+[.)]?\s+(.+)$`)
)

// minParsedLength drops fragments such as "Q3. a)".
const minParsedLength = 6

// ParseNumbered extracts questions from a plain-text list in the
// "Q1. <question>" format. Lines numbered "1." or "2)" are accepted when no
// Q-prefixed line is present. Parsed questions default to short-answer.
func ParseNumbered(text string) []question.Candidate {
	lines := strings.Split(text, "\n")

	out := extract(lines, qNumbered)
	if len(out) == 0 {
		out = extract(lines, anyNumbers)
	}
	return out
}

func extract(lines []string, re *regexp.Regexp) []question.Candidate {
	var out []question.Candidate
	for _, line := range lines {
		m := re.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if text := strings.TrimSpace(m[1]); len(text) >= minParsedLength {
			out = append(out, question.Candidate{Text: text, Type: question.TypeShortAnswer})
		}
	}
	return out
}
