package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/abhisek/bloomsbot/internal/bloom"
)

// leadingVerbs maps a question's opening verb to its Bloom level.
var leadingVerbs = map[string]bloom.Level{
	"define": bloom.Remember, "list": bloom.Remember, "name": bloom.Remember,
	"state": bloom.Remember, "identify": bloom.Remember,

	"explain": bloom.Understand, "describe": bloom.Understand,
	"summarize": bloom.Understand, "illustrate": bloom.Understand,

	"solve": bloom.Apply, "implement": bloom.Apply, "write": bloom.Apply,
	"use": bloom.Apply, "apply": bloom.Apply,

	"compare": bloom.Analyze, "differentiate": bloom.Analyze,
	"analyze": bloom.Analyze, "distinguish": bloom.Analyze,

	"justify": bloom.Evaluate, "evaluate": bloom.Evaluate,
	"critique": bloom.Evaluate, "assess": bloom.Evaluate,

	"design": bloom.Create, "propose": bloom.Create,
	"construct": bloom.Create, "develop": bloom.Create,
}

// HeuristicConfidence is reported for every heuristic match.
const HeuristicConfidence = 0.7

// HeuristicClassifier looks only at the leading verb. Questions that do not
// open with a known verb are failures.
type HeuristicClassifier struct{}

func (h *HeuristicClassifier) Name() string { return "heuristic" }

func (h *HeuristicClassifier) Classify(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Failure{Classifier: h.Name(), Kind: FailureCanceled, Err: err}
	}
	verb := leadingVerb(in.Text)
	if verb == "" {
		return nil, &Failure{Classifier: h.Name(), Kind: FailureNoVerb}
	}
	level, ok := leadingVerbs[verb]
	if !ok {
		return nil, &Failure{Classifier: h.Name(), Kind: FailureNoVerb, Detail: verb}
	}
	return &Result{
		Level:      level,
		Verb:       verb,
		Confidence: HeuristicConfidence,
		Classifier: h.Name(),
	}, nil
}

// leadingVerb returns the first word, skipping a "Q1." style numbering prefix.
func leadingVerb(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	first := strings.TrimRight(words[0], ".:)")
	if isNumbering(first) {
		if len(words) < 2 {
			return ""
		}
		first = words[1]
	}
	return strings.ToLower(strings.TrimFunc(first, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
}

func isNumbering(word string) bool {
	if len(word) < 2 || (word[0] != 'q' && word[0] != 'Q') {
		return false
	}
	for _, r := range word[1:] {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
