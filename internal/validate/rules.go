package validate

import (
	"fmt"
	"strings"
)

// RuleID names one validation rule. It doubles as the rejection reason prefix.
type RuleID string

const (
	RuleForbiddenWord       RuleID = "forbidden_word"
	RuleTooFewWords         RuleID = "too_few_words"
	RuleNoDomainNoun        RuleID = "no_domain_noun"
	RuleMissingQuestionMark RuleID = "missing_question_mark"
	RuleTooShort            RuleID = "too_short"
)

// Order is the fixed evaluation order. The first failing rule is reported.
var Order = []RuleID{
	RuleForbiddenWord,
	RuleTooFewWords,
	RuleNoDomainNoun,
	RuleMissingQuestionMark,
	RuleTooShort,
}

// Rules is the data the validator runs on. Word lists are matched
// case-insensitively; entries may be multi-word phrases.
type Rules struct {
	ForbiddenWords     []string `mapstructure:"forbidden_words" json:"forbidden_words"`
	StopWords          []string `mapstructure:"stop_words" json:"stop_words"`
	DomainVocabulary   []string `mapstructure:"domain_vocabulary" json:"domain_vocabulary"`
	MinMeaningfulWords int      `mapstructure:"min_meaningful_words" json:"min_meaningful_words"`
	MinLength          int      `mapstructure:"min_length" json:"min_length"`
}

// DefaultRules returns the reference rule set for computer science syllabi.
func DefaultRules() Rules {
	return Rules{
		ForbiddenWords: []string{
			"zero", "unlike", "therefore", "pham", "something", "any question",
		},
		StopWords: []string{
			"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has",
			"he", "in", "is", "it", "its", "of", "on", "that", "the", "to", "was",
			"were", "will", "with", "you", "your", "we", "our", "they", "their",
			"this", "these", "those", "or", "if", "then", "than", "but", "not",
			"can", "could", "should", "would", "may", "might", "do", "does", "did",
			"what", "which", "who", "whom", "why", "how", "when", "where", "so",
			"such", "about", "into", "over", "under", "between", "within", "without",
			"because", "while", "also", "there", "here", "all", "any", "some",
			"no", "yes", "one", "two", "three", "more", "most", "much", "many",
			"each", "every", "other", "another", "same", "new", "old", "use", "used",
			"using", "useful", "example", "examples", "define", "definition",
		},
		DomainVocabulary: []string{
			"algorithm", "data", "structure", "database", "network", "protocol",
			"system", "software", "hardware", "api", "programming", "security",
			"compiler", "memory", "process", "thread", "array", "tree", "graph",
			"queue", "stack", "class", "object", "inheritance", "oop",
		},
		MinMeaningfulWords: 6,
		MinLength:          20,
	}
}

// ConfigError reports an unusable rule set. It is fatal for the request.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("validation rules: %s: %s", e.Field, e.Reason)
}

// Validate checks the thresholds and word lists.
func (r Rules) Validate() error {
	if r.MinMeaningfulWords < 1 {
		return &ConfigError{Field: "min_meaningful_words", Reason: "must be at least 1"}
	}
	if r.MinLength < 1 {
		return &ConfigError{Field: "min_length", Reason: "must be at least 1"}
	}
	if len(r.DomainVocabulary) == 0 {
		return &ConfigError{Field: "domain_vocabulary", Reason: "must not be empty"}
	}
	for name, list := range map[string][]string{
		"forbidden_words":   r.ForbiddenWords,
		"stop_words":        r.StopWords,
		"domain_vocabulary": r.DomainVocabulary,
	} {
		for i, w := range list {
			if len(tokenize(w)) == 0 {
				return &ConfigError{Field: fmt.Sprintf("%s[%d]", name, i), Reason: "entry has no words"}
			}
		}
	}
	return nil
}

// Rejection is the verdict for a question that failed a rule.
type Rejection struct {
	Rule   RuleID
	Detail string
}

// Reason is the audit string stored on the question, e.g.
// "forbidden_word:something".
func (r *Rejection) Reason() string {
	if r.Detail == "" {
		return string(r.Rule)
	}
	return string(r.Rule) + ":" + r.Detail
}

func (r *Rejection) Error() string {
	return "rejected: " + r.Reason()
}

// ParseReason reverses Reason.
func ParseReason(reason string) *Rejection {
	rule, detail, _ := strings.Cut(reason, ":")
	return &Rejection{Rule: RuleID(rule), Detail: detail}
}
