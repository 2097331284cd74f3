package validate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abhisek/bloomsbot/internal/question"
)

// parsed is the precomputed view of a question's text shared by all checks.
type parsed struct {
	raw    string
	tokens []string // lowercased alphanumeric runs
}

// check is a pure predicate over parsed text. detail is optional.
type check func(p parsed) (detail string, failed bool)

// Validator applies the rule set in Order. It is immutable and safe for
// concurrent use.
type Validator struct {
	rules  Rules
	checks map[RuleID]check
}

// New compiles rules into a validator.
func New(rules Rules) (*Validator, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return compile(rules), nil
}

func compile(rules Rules) *Validator {
	forbidden := phrases(rules.ForbiddenWords)
	vocab := phrases(rules.DomainVocabulary)
	stop := make(map[string]bool, len(rules.StopWords))
	for _, w := range rules.StopWords {
		stop[strings.ToLower(strings.TrimSpace(w))] = true
	}

	return &Validator{
		rules: rules,
		checks: map[RuleID]check{
			RuleForbiddenWord: func(p parsed) (string, bool) {
				for _, ph := range forbidden {
					if containsPhrase(p.tokens, ph) {
						return strings.Join(ph, " "), true
					}
				}
				return "", false
			},
			RuleTooFewWords: func(p parsed) (string, bool) {
				n := 0
				for _, w := range strings.Fields(p.raw) {
					w = strings.ToLower(strings.TrimFunc(w, isPunct))
					if w == "" || stop[w] {
						continue
					}
					n++
				}
				return "", n < rules.MinMeaningfulWords
			},
			RuleNoDomainNoun: func(p parsed) (string, bool) {
				for _, ph := range vocab {
					if containsPhrase(p.tokens, ph) {
						return "", false
					}
				}
				return "", true
			},
			RuleMissingQuestionMark: func(p parsed) (string, bool) {
				return "", !strings.HasSuffix(p.raw, "?")
			},
			RuleTooShort: func(p parsed) (string, bool) {
				return "", utf8.RuneCountInString(p.raw) < rules.MinLength
			},
		},
	}
}

// Rules returns the rule set the validator was built from.
func (v *Validator) Rules() Rules { return v.rules }

// WithVocabulary returns a validator whose domain vocabulary also includes
// extra. The receiver is unchanged.
func (v *Validator) WithVocabulary(extra []string) *Validator {
	rules := v.rules
	rules.DomainVocabulary = make([]string, 0, len(v.rules.DomainVocabulary)+len(extra))
	rules.DomainVocabulary = append(rules.DomainVocabulary, v.rules.DomainVocabulary...)
	for _, w := range extra {
		if len(tokenize(w)) > 0 {
			rules.DomainVocabulary = append(rules.DomainVocabulary, w)
		}
	}
	return compile(rules)
}

// Check evaluates text against every rule in Order and returns the first
// failure, or nil if the text is accepted.
func (v *Validator) Check(text string) *Rejection {
	p := parsed{raw: strings.TrimSpace(text)}
	p.tokens = tokenize(p.raw)
	for _, id := range Order {
		if detail, failed := v.checks[id](p); failed {
			return &Rejection{Rule: id, Detail: detail}
		}
	}
	return nil
}

// Apply validates a Pending question and records the verdict on it. A
// question that was already rejected yields its stored reason again; one
// that already passed is reported as accepted.
func (v *Validator) Apply(q *question.Question) (*Rejection, error) {
	switch q.Status() {
	case question.StatusRejected:
		return ParseReason(q.RejectReason()), nil
	case question.StatusPending:
	default:
		return nil, nil
	}

	rej := v.Check(q.Text)
	if rej == nil {
		return nil, q.MarkValidated()
	}
	if err := q.Reject(rej.Reason()); err != nil {
		return nil, err
	}
	return rej, nil
}

// ApplyAll validates a batch in order. Per-question rejections never abort
// the batch.
func (v *Validator) ApplyAll(qs []*question.Question) (accepted, rejected []*question.Question, err error) {
	for _, q := range qs {
		rej, err := v.Apply(q)
		if err != nil {
			return accepted, rejected, err
		}
		if rej != nil {
			rejected = append(rejected, q)
		} else {
			accepted = append(accepted, q)
		}
	}
	return accepted, rejected, nil
}

func isPunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// tokenize splits text into lowercased runs of letters and digits.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, isPunct)
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

func phrases(list []string) [][]string {
	out := make([][]string, 0, len(list))
	for _, w := range list {
		if toks := tokenize(w); len(toks) > 0 {
			out = append(out, toks)
		}
	}
	return out
}

func containsPhrase(tokens, phrase []string) bool {
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, w := range phrase {
			if tokens[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
