package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/classify"
	"github.com/abhisek/bloomsbot/internal/generate"
	"github.com/abhisek/bloomsbot/internal/llm"
	"github.com/abhisek/bloomsbot/internal/metrics"
	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/abhisek/bloomsbot/internal/store"
	"github.com/abhisek/bloomsbot/internal/syllabus"
	"github.com/abhisek/bloomsbot/internal/validate"
)

const syllabusText = `Unit 1: Operating systems, process scheduling and memory.
Unit 2: Graph algorithms and compilers.`

var bank = []question.Candidate{
	{Text: "Define the role of a process control block in operating system scheduling?", Type: question.TypeShortAnswer},
	{Text: "List the main stages of a compiler pipeline from lexing to emission?", Type: question.TypeShortAnswer},
	{Text: "Explain how virtual memory paging reduces external fragmentation in systems?", Type: question.TypeLongAnswer},
	{Text: "Solve the shortest path problem on the given weighted graph using Dijkstra?", Type: question.TypeNumerical},
	{Text: "Describe something about trees?", Type: question.TypeShortAnswer},
	{Text: "Explain the array data structure in detail", Type: question.TypeShortAnswer},
}

// fakeGenerator returns one canned batch per chunk and records its inputs.
type fakeGenerator struct {
	mu      sync.Mutex
	batches [][]question.Candidate
	err     error
	inputs  []generate.Input
}

func (g *fakeGenerator) Generate(_ context.Context, in generate.Input) ([]question.Candidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inputs = append(g.inputs, in)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.batches) == 0 {
		return nil, nil
	}
	b := g.batches[0]
	g.batches = g.batches[1:]
	return b, nil
}

// targetSpec is met only by both Remember questions plus the Apply one.
func targetSpec() paper.Spec {
	return paper.Spec{
		TotalMarks: 9,
		BloomQuota: map[bloom.Level]paper.Range{
			bloom.Remember: {Min: 2, Max: 2},
			bloom.Apply:    {Min: 1, Max: 1},
		},
	}
}

func testSettings() Settings {
	return Settings{
		Chunking:         syllabus.DefaultChunkConfig(),
		Rules:            validate.DefaultRules(),
		SyllabusKeywords: true,
		Classify:         classify.DefaultAdapterConfig(),
		Search:           paper.DefaultOptions(),
		Marks:            paper.DefaultMarkScheme(),
		Spec:             targetSpec(),
	}
}

func newPipeline(t *testing.T, s Settings, d Deps) *Pipeline {
	t.Helper()
	if d.Classifier == nil {
		d.Classifier = &classify.HeuristicClassifier{}
	}
	if d.Logger == nil {
		d.Logger = zaptest.NewLogger(t)
	}
	p, err := New(s, d)
	require.NoError(t, err)
	return p
}

func TestRun_Feasible(t *testing.T) {
	st, err := store.Open(store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rec := tracetest.NewSpanRecorder()
	m := metrics.New()
	gen := &fakeGenerator{batches: [][]question.Candidate{bank}}
	p := newPipeline(t, testSettings(), Deps{
		Generator: gen,
		Papers:    st.PaperRepo(),
		Metrics:   m,
		Tracer:    sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)),
	})

	out, err := p.Run(context.Background(), Input{Syllabus: syllabusText, Source: "os.pdf"})
	require.NoError(t, err)

	assert.Equal(t, paper.Feasible, out.Paper.Outcome)
	assert.Equal(t, 9, out.Paper.TotalMarks)
	require.Len(t, out.Paper.Questions, 3)
	assert.Equal(t, bloom.Remember, out.Paper.Questions[0].BloomLevel)
	assert.Equal(t, bloom.Apply, out.Paper.Questions[2].BloomLevel)
	assert.Equal(t, 5, out.Paper.Questions[2].Marks)

	statuses := map[question.Status]int{}
	for _, q := range out.Questions {
		statuses[q.Status()]++
	}
	assert.Equal(t, map[question.Status]int{
		question.StatusSelected:  3,
		question.StatusDiscarded: 1,
		question.StatusRejected:  2,
	}, statuses)

	r := out.Report
	assert.Equal(t, out.RunID, r.RunID)
	assert.Equal(t, 1, r.ChunksCreated)
	assert.Equal(t, 6, r.RawQuestionsGenerated)
	assert.Equal(t, map[int]int{0: 6}, r.RawQuestionsPerChunk)
	assert.Equal(t, 4, r.Accepted)
	assert.Equal(t, 2, r.Rejected)
	assert.Equal(t, map[string]int{"forbidden_word": 1, "too_few_words": 1}, r.RejectionReasonsCount)
	assert.Equal(t, []string{"Describe something about trees?"}, r.RejectionExamples["forbidden_word"])
	assert.Equal(t, 4, r.Classified)
	assert.Equal(t, map[bloom.Level]int{bloom.Remember: 2, bloom.Understand: 1, bloom.Apply: 1}, r.BankSizeByBloom)
	assert.Equal(t, map[int]int{2: 3, 5: 1}, r.BankSizeByMarks)
	assert.Equal(t, 9, r.TargetMarks)
	assert.Equal(t, 9, r.RealizedMarks)
	assert.Positive(t, r.KeywordCount)
	assert.Contains(t, r.StageMillis, StageAssemble)

	assert.Equal(t, 6.0, testutil.ToFloat64(m.QuestionsGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("forbidden_word")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Assemblies.WithLabelValues("feasible")))

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{StageGenerate, StageValidate, StageClassify, StageAssemble, "pipeline.run"}, names)

	stored, err := st.PaperRepo().Get(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, "feasible", stored.Outcome)
	assert.Equal(t, "os.pdf", stored.Source)
	var body paper.ExportedPaper
	require.NoError(t, json.Unmarshal(stored.Body, &body))
	assert.Equal(t, out.Paper.Questions, body.Questions)
}

func TestRun_Infeasible(t *testing.T) {
	st, err := store.Open(store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	p := newPipeline(t, testSettings(), Deps{
		Generator: &fakeGenerator{batches: [][]question.Candidate{bank}},
		Papers:    st.PaperRepo(),
	})
	spec := paper.DefaultSpec()

	out, err := p.Run(context.Background(), Input{Syllabus: syllabusText, Spec: &spec})
	var infeasible *paper.InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	require.NotNil(t, out)
	assert.Equal(t, paper.Infeasible, out.Paper.Outcome)
	assert.Empty(t, out.Paper.Questions)
	assert.NotEmpty(t, out.Paper.Shortfalls)
	assert.Equal(t, 50, out.Report.TargetMarks)

	for _, q := range out.Questions {
		assert.NotEqual(t, question.StatusSelected, q.Status())
	}

	stored, err := st.PaperRepo().Get(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, "infeasible", stored.Outcome)
}

func TestRun_TerminalErrors(t *testing.T) {
	undecided := question.Candidate{
		Text: "Why does a deadlock occur in concurrent process scheduling systems?",
		Type: question.TypeShortAnswer,
	}
	tests := []struct {
		name     string
		syllabus string
		gen      *fakeGenerator
		want     error
	}{
		{"empty syllabus", "  \n\t ", &fakeGenerator{}, ErrEmptySyllabus},
		{"nothing generated", syllabusText, &fakeGenerator{}, ErrNoQuestions},
		{"generator down", syllabusText, &fakeGenerator{err: &llm.ErrProviderUnavailable{}}, ErrNoQuestions},
		{"all rejected", syllabusText, &fakeGenerator{batches: [][]question.Candidate{bank[4:]}}, ErrNoValidQuestions},
		{"none classified", syllabusText, &fakeGenerator{batches: [][]question.Candidate{{undecided}}}, ErrNoClassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, testSettings(), Deps{Generator: tt.gen})
			_, err := p.Run(context.Background(), Input{Syllabus: tt.syllabus})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_ReportsGenerationErrors(t *testing.T) {
	p := newPipeline(t, testSettings(), Deps{
		Generator: &fakeGenerator{err: errors.New("boom")},
	})
	out, err := p.Run(context.Background(), Input{Syllabus: syllabusText})
	require.ErrorIs(t, err, ErrNoQuestions)
	assert.Equal(t, 1, out.Report.GenerationErrors)
}

func TestRun_ClassificationFailuresReported(t *testing.T) {
	cands := append([]question.Candidate{{
		Text: "Why does a deadlock occur in concurrent process scheduling systems?",
		Type: question.TypeShortAnswer,
	}}, bank...)
	m := metrics.New()
	p := newPipeline(t, testSettings(), Deps{
		Generator: &fakeGenerator{batches: [][]question.Candidate{cands}},
		Metrics:   m,
	})

	out, err := p.Run(context.Background(), Input{Syllabus: syllabusText})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Report.ClassificationFailed)
	assert.Equal(t, map[string]int{string(classify.FailureNoVerb): 1}, out.Report.FailuresByKind)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassificationFailures.WithLabelValues(string(classify.FailureNoVerb))))
	assert.Equal(t, question.StatusValidated, out.Questions[0].Status(), "unclassified questions stay validated")
}

func TestRun_PriorQuestionsAcrossChunks(t *testing.T) {
	s := testSettings()
	s.Chunking = syllabus.ChunkConfig{MinWords: 2, MaxWords: 6, OverlapWords: 0}
	gen := &fakeGenerator{batches: [][]question.Candidate{bank[:2], bank[2:4]}}
	p := newPipeline(t, s, Deps{Generator: gen})

	out, err := p.Run(context.Background(), Input{
		Syllabus: "graphs trees queues stacks heaps tries compilers parsers lexers linkers",
	})
	require.NoError(t, err)
	require.Len(t, gen.inputs, 2)
	assert.Empty(t, gen.inputs[0].PriorQuestions)
	assert.Equal(t, []string{bank[0].Text, bank[1].Text}, gen.inputs[1].PriorQuestions)
	assert.Equal(t, map[int]int{0: 2, 1: 2}, out.Report.RawQuestionsPerChunk)
	assert.Equal(t, []int{6, 4}, out.Report.ChunkWordCounts)
}

type eventLog struct {
	store.EventRepo
	events []store.LLMRequestEventData
}

func (e *eventLog) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	e.events = append(e.events, data)
	return nil
}

func TestRun_WithLLMGenerator(t *testing.T) {
	body, err := json.Marshal(map[string]any{"questions": []map[string]string{
		{"text": bank[0].Text, "type": "short-answer"},
		{"text": bank[1].Text, "type": "short-answer"},
		{"text": bank[3].Text, "type": "numerical"},
	}})
	require.NoError(t, err)
	mock := llm.NewMockProvider(llm.MockResponse{Content: body})
	repo := &eventLog{}
	provider := llm.WithLogging(mock, repo, nil)

	p := newPipeline(t, testSettings(), Deps{Generator: generate.New(provider, generate.DefaultConfig())})
	out, err := p.Run(context.Background(), Input{Syllabus: syllabusText})
	require.NoError(t, err)
	assert.Len(t, out.Paper.Questions, 3)
	assert.Equal(t, 1, mock.CallCount())
	require.Len(t, repo.events, 1)
	assert.Equal(t, out.RunID, repo.events[0].RunID, "LLM calls are tagged with the run")
	assert.Equal(t, generate.PurposeGenerate, repo.events[0].Purpose)
}

func TestRun_InvalidTarget(t *testing.T) {
	p := newPipeline(t, testSettings(), Deps{Generator: &fakeGenerator{}})
	spec := paper.Spec{TotalMarks: 10, Tolerance: 10}
	_, err := p.Run(context.Background(), Input{Syllabus: syllabusText, Spec: &spec})
	var ce *paper.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tolerance", ce.Field)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{batches: [][]question.Candidate{bank}}
	p := newPipeline(t, testSettings(), Deps{Generator: gen})

	_, err := p.Run(ctx, Input{Syllabus: syllabusText})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.inputs)
}

func TestNew_RejectsBadSettings(t *testing.T) {
	s := testSettings()
	s.Rules.MinLength = 0
	_, err := New(s, Deps{Generator: &fakeGenerator{}, Classifier: &classify.HeuristicClassifier{}})
	var ve *validate.ConfigError
	require.ErrorAs(t, err, &ve)

	_, err = New(testSettings(), Deps{Generator: &fakeGenerator{}})
	require.Error(t, err)
}

func TestReport_TopRejections(t *testing.T) {
	r := newReport("x")
	r.RejectionReasonsCount = map[string]int{"too_short": 1, "no_domain_noun": 4, "forbidden_word": 2, "too_few_words": 2}
	assert.Equal(t, []RuleCount{
		{Rule: "no_domain_noun", Count: 4},
		{Rule: "forbidden_word", Count: 2},
		{Rule: "too_few_words", Count: 2},
	}, r.TopRejections())
}
