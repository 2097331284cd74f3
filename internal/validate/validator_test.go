package validate

import (
	"testing"

	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefault(t *testing.T) *Validator {
	t.Helper()
	v, err := New(DefaultRules())
	require.NoError(t, err)
	return v
}

func TestCheck_FirstFailingRuleWins(t *testing.T) {
	v := newDefault(t)
	tests := []struct {
		name   string
		text   string
		rule   RuleID
		detail string
	}{
		{"forbidden beats everything", "Discuss something about OOP", RuleForbiddenWord, "something"},
		{"forbidden on tiny text", "Therefore?", RuleForbiddenWord, "therefore"},
		{"forbidden phrase", "Is there any question about the network protocol stack design?", RuleForbiddenWord, "any question"},
		{"one word", "List?", RuleTooFewWords, ""},
		{"empty", "", RuleTooFewWords, ""},
		{"whitespace", "   \t ", RuleTooFewWords, ""},
		{"punctuation only tokens", "Explain ... -- ?? !! memory system?", RuleTooFewWords, ""},
		{"no domain noun", "Describe the main causes of the French revolution in Europe?", RuleNoDomainNoun, ""},
		{"no question mark", "Explain how a hash table resolves collisions in memory", RuleMissingQuestionMark, ""},
		{"too short", "Add DB API OS IO X?", RuleTooShort, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := v.Check(tt.text)
			require.NotNil(t, rej)
			assert.Equal(t, tt.rule, rej.Rule)
			assert.Equal(t, tt.detail, rej.Detail)
		})
	}
}

func TestCheck_Accepts(t *testing.T) {
	v := newDefault(t)
	for _, text := range []string{
		"Explain how a hash table resolves collisions in memory?",
		"Explain the zeroth law of thermodynamics in a system of gases?",
		"  Compare stack and queue data structures with suitable diagrams?  ",
	} {
		assert.Nil(t, v.Check(text), text)
	}
}

func TestCheck_ShortCircuitNeverReportsLaterRule(t *testing.T) {
	v := newDefault(t)
	index := make(map[RuleID]int, len(Order))
	for i, id := range Order {
		index[id] = i
	}

	// Each input fails its own rule and every later one is irrelevant.
	inputs := map[RuleID]string{
		RuleForbiddenWord:       "zero",
		RuleTooFewWords:         "Why",
		RuleNoDomainNoun:        "Summarise seven famous poems written during Victorian times",
		RuleMissingQuestionMark: "Describe seven common network protocol failure modes",
	}
	for want, text := range inputs {
		rej := v.Check(text)
		require.NotNil(t, rej, text)
		assert.Equal(t, want, rej.Rule, text)
		assert.LessOrEqual(t, index[rej.Rule], index[want])
	}
}

func TestRejection_Reason(t *testing.T) {
	r := &Rejection{Rule: RuleForbiddenWord, Detail: "something"}
	assert.Equal(t, "forbidden_word:something", r.Reason())
	assert.Equal(t, r, ParseReason(r.Reason()))

	r = &Rejection{Rule: RuleTooShort}
	assert.Equal(t, "too_short", r.Reason())
	assert.Equal(t, r, ParseReason("too_short"))
}

func TestApply_RejectedIsTerminalAndDeterministic(t *testing.T) {
	v := newDefault(t)
	q := question.New("q1", 0, 0, question.Candidate{Text: "Discuss something about OOP"})

	first, err := v.Apply(q)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, question.StatusRejected, q.Status())
	assert.Equal(t, "forbidden_word:something", q.RejectReason())

	again, err := v.Apply(q)
	require.NoError(t, err)
	assert.Equal(t, first.Reason(), again.Reason())
	assert.Equal(t, question.StatusRejected, q.Status())
}

func TestApply_PromotesAndIsIdempotent(t *testing.T) {
	v := newDefault(t)
	q := question.New("q1", 0, 0, question.Candidate{Text: "Explain how a hash table resolves collisions in memory?"})

	rej, err := v.Apply(q)
	require.NoError(t, err)
	assert.Nil(t, rej)
	assert.Equal(t, question.StatusValidated, q.Status())

	rej, err = v.Apply(q)
	require.NoError(t, err)
	assert.Nil(t, rej)
	assert.Equal(t, question.StatusValidated, q.Status())
}

func TestApplyAll(t *testing.T) {
	v := newDefault(t)
	pool := question.NewPool()
	qs, err := pool.AddChunk(0, []question.Candidate{
		{Text: "Explain how a hash table resolves collisions in memory?"},
		{Text: "List?"},
		{Text: "Compare stack and queue data structures with suitable diagrams?"},
	})
	require.NoError(t, err)

	accepted, rejected, err := v.ApplyAll(qs)
	require.NoError(t, err)
	require.Len(t, accepted, 2)
	require.Len(t, rejected, 1)
	assert.Equal(t, "too_few_words", rejected[0].RejectReason())
	assert.Len(t, pool.ByStatus(question.StatusValidated), 2)
}

func TestWithVocabulary(t *testing.T) {
	v := newDefault(t)
	text := "Describe the main causes of the French revolution in Europe?"
	require.NotNil(t, v.Check(text))

	extended := v.WithVocabulary([]string{"revolution", "  "})
	assert.Nil(t, extended.Check(text))
	assert.NotNil(t, v.Check(text), "receiver must not change")
	assert.Len(t, extended.Rules().DomainVocabulary, len(v.Rules().DomainVocabulary)+1)
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	tests := []struct {
		name  string
		mut   func(r *Rules)
		field string
	}{
		{"min words", func(r *Rules) { r.MinMeaningfulWords = 0 }, "min_meaningful_words"},
		{"min length", func(r *Rules) { r.MinLength = -1 }, "min_length"},
		{"empty vocabulary", func(r *Rules) { r.DomainVocabulary = nil }, "domain_vocabulary"},
		{"blank forbidden entry", func(r *Rules) { r.ForbiddenWords = []string{"zero", " ?! "} }, "forbidden_words[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRules()
			tt.mut(&r)
			_, err := New(r)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestBuildKeywordSet(t *testing.T) {
	text := "The TCP protocol uses sockets. TCP sockets are reliable. UDP is not. OS"
	got := BuildKeywordSet(text, DefaultRules().StopWords, 3)
	assert.Equal(t, []string{"tcp", "sockets", "protocol"}, got)

	all := BuildKeywordSet(text, DefaultRules().StopWords, 0)
	assert.Equal(t, []string{"tcp", "sockets", "protocol", "uses", "reliable", "udp", "os"}, all)

	assert.Empty(t, BuildKeywordSet("", nil, 10))
}
