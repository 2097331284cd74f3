package pipeline

import (
	"sort"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/classify"
	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/abhisek/bloomsbot/internal/validate"
)

const (
	maxReportedChunks     = 10
	maxRejectionExamples  = 2
	maxReportedRejections = 3
)

// Report is the per-run diagnostic returned with ?debug=1 and --debug.
type Report struct {
	RunID string `json:"run_id"`

	RawTextChars    int   `json:"raw_text_chars"`
	RawTextWords    int   `json:"raw_text_words"`
	ChunksCreated   int   `json:"chunks_created"`
	ChunkWordCounts []int `json:"chunk_word_counts"`
	KeywordCount    int   `json:"keyword_count"`

	RawQuestionsGenerated int         `json:"raw_questions_generated"`
	RawQuestionsPerChunk  map[int]int `json:"raw_questions_per_chunk"`
	GenerationErrors      int         `json:"generation_errors"`

	Accepted              int                 `json:"accepted_questions"`
	Rejected              int                 `json:"rejected_questions"`
	RejectionReasonsCount map[string]int      `json:"rejection_reasons_count"`
	RejectionExamples     map[string][]string `json:"rejection_examples"`

	Classified           int            `json:"bloom_classified"`
	ClassificationFailed int            `json:"bloom_failed"`
	FailuresByKind       map[string]int `json:"bloom_failures_by_kind,omitempty"`

	BankSizeTotal   int                 `json:"bank_size_total"`
	BankSizeByBloom map[bloom.Level]int `json:"bank_size_by_bloom"`
	BankSizeByMarks map[int]int         `json:"bank_size_by_marks"`

	TargetMarks       int    `json:"paper_total_marks_target"`
	RealizedMarks     int    `json:"paper_total_marks"`
	QuestionsSelected int    `json:"paper_questions_selected"`
	Outcome           string `json:"paper_outcome,omitempty"`
	SwapsExplored     int    `json:"swaps_explored"`
	FastPath          bool   `json:"fast_path"`

	StageMillis map[string]int64 `json:"stage_ms"`
}

func newReport(runID string) *Report {
	return &Report{
		RunID:                 runID,
		RawQuestionsPerChunk:  make(map[int]int),
		RejectionReasonsCount: make(map[string]int),
		RejectionExamples:     make(map[string][]string),
		BankSizeByBloom:       make(map[bloom.Level]int),
		BankSizeByMarks:       make(map[int]int),
		StageMillis:           make(map[string]int64),
	}
}

// recordRejections tallies rejections by rule, keeping the first examples.
func (r *Report) recordRejections(rejected []*question.Question) {
	r.Rejected = len(rejected)
	for _, q := range rejected {
		rule := string(validate.ParseReason(q.RejectReason()).Rule)
		r.RejectionReasonsCount[rule]++
		if len(r.RejectionExamples[rule]) < maxRejectionExamples {
			r.RejectionExamples[rule] = append(r.RejectionExamples[rule], q.Text)
		}
	}
}

func (r *Report) recordClassification(out *classify.Outcome) {
	r.Classified = len(out.Classified)
	r.ClassificationFailed = len(out.Failures)
	if len(out.Failures) > 0 {
		r.FailuresByKind = make(map[string]int)
		for _, f := range out.Failures {
			r.FailuresByKind[string(f.Kind())]++
		}
	}
}

// recordBank counts the classified questions that carry marks.
func (r *Report) recordBank(qs []*question.Question) {
	for _, q := range qs {
		level, ok := q.Level()
		if !ok || q.Marks <= 0 {
			continue
		}
		r.BankSizeTotal++
		r.BankSizeByBloom[level]++
		r.BankSizeByMarks[q.Marks]++
	}
}

// TopRejections returns up to three rules by descending count, ties broken
// by rule name.
func (r *Report) TopRejections() []RuleCount {
	out := make([]RuleCount, 0, len(r.RejectionReasonsCount))
	for rule, n := range r.RejectionReasonsCount {
		out = append(out, RuleCount{Rule: rule, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Rule < out[j].Rule
	})
	if len(out) > maxReportedRejections {
		out = out[:maxReportedRejections]
	}
	return out
}

type RuleCount struct {
	Rule  string
	Count int
}
