// Package pipeline runs one paper-generation request end to end: syllabus
// chunking, question generation, validation, Bloom classification, mark
// assignment and paper assembly.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/bloomsbot/internal/classify"
	"github.com/abhisek/bloomsbot/internal/generate"
	"github.com/abhisek/bloomsbot/internal/llm"
	"github.com/abhisek/bloomsbot/internal/metrics"
	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/abhisek/bloomsbot/internal/store"
	"github.com/abhisek/bloomsbot/internal/syllabus"
	"github.com/abhisek/bloomsbot/internal/tracing"
	"github.com/abhisek/bloomsbot/internal/validate"
)

// Stage names used for spans, metrics and Report.StageMillis.
const (
	StageGenerate = "generate"
	StageValidate = "validate"
	StageClassify = "classify"
	StageAssemble = "assemble"
)

// Settings are the validated knobs of a run.
type Settings struct {
	Chunking         syllabus.ChunkConfig
	Rules            validate.Rules
	SyllabusKeywords bool
	KeywordLimit     int
	Classify         classify.AdapterConfig
	Search           paper.Options
	Marks            paper.MarkScheme
	Spec             paper.Spec

	// KeepPapers bounds stored papers; 0 keeps all.
	KeepPapers int
}

// Deps are the collaborators of a run. Papers, Metrics, Tracer and Logger
// are optional.
type Deps struct {
	Generator  generate.Generator
	Classifier classify.Classifier
	Papers     store.PaperRepo
	Metrics    *metrics.Metrics
	Tracer     trace.TracerProvider
	Logger     *zap.Logger
}

// Pipeline is safe for concurrent use; all run state lives in Run.
type Pipeline struct {
	settings  Settings
	deps      Deps
	validator *validate.Validator
	adapter   *classify.Adapter
	assembler *paper.Assembler
	tracer    trace.Tracer
	logger    *zap.Logger
}

// New checks the settings and builds the stage components.
func New(s Settings, d Deps) (*Pipeline, error) {
	if d.Generator == nil || d.Classifier == nil {
		return nil, errors.New("pipeline: generator and classifier are required")
	}
	if err := s.Chunking.Validate(); err != nil {
		return nil, err
	}
	if err := s.Spec.Validate(); err != nil {
		return nil, err
	}
	if err := s.Marks.Validate(); err != nil {
		return nil, err
	}
	v, err := validate.New(s.Rules)
	if err != nil {
		return nil, err
	}
	asm, err := paper.NewAssembler(s.Search)
	if err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		settings:  s,
		deps:      d,
		validator: v,
		adapter:   classify.NewAdapter(d.Classifier, s.Classify, logger),
		assembler: asm,
		tracer:    tracing.Tracer(d.Tracer),
		logger:    logger,
	}, nil
}

// DefaultSpec is the paper target used when Input.Spec is nil.
func (p *Pipeline) DefaultSpec() paper.Spec { return p.settings.Spec }

// Input is one request.
type Input struct {
	Syllabus string
	// Source names the syllabus (file name or "text") in stored papers.
	Source string
	// Spec overrides the configured target when set.
	Spec *paper.Spec
}

// Output is everything a run produced. On error it is still returned when
// the run got past input checks, carrying the report and, for an infeasible
// paper, the diagnostic.
type Output struct {
	RunID     string
	Paper     paper.ExportedPaper
	Result    *paper.Result
	Questions []*question.Question
	Report    *Report
}

// Run executes the pipeline. Errors are ErrEmptySyllabus, *paper.ConfigError
// for a bad target, ErrNoQuestions, ErrNoValidQuestions, ErrNoClassified,
// *paper.InfeasibleError, or a context error. Generation failures of single
// chunks are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Output, error) {
	spec := p.settings.Spec
	if in.Spec != nil {
		spec = *in.Spec
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	text := syllabus.Clean(in.Syllabus)
	chunks := syllabus.Split(text, p.settings.Chunking)
	if len(chunks) == 0 {
		return nil, ErrEmptySyllabus
	}

	runID := uuid.NewString()
	ctx = llm.WithRunID(ctx, runID)
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("chunks", len(chunks)),
	))
	defer span.End()

	logger := p.logger.With(zap.String("run_id", runID))
	report := newReport(runID)
	report.RawTextChars = len(text)
	report.RawTextWords = syllabus.WordCount(text)
	report.ChunksCreated = len(chunks)
	report.TargetMarks = spec.TotalMarks
	for _, c := range chunks[:min(len(chunks), maxReportedChunks)] {
		report.ChunkWordCounts = append(report.ChunkWordCounts, c.Words)
	}
	out := &Output{RunID: runID, Report: report}

	err := p.run(ctx, logger, text, chunks, spec, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.save(ctx, logger, in.Source, out)

	logger.Info("pipeline run finished",
		zap.Int("chunks", report.ChunksCreated),
		zap.Int("generated", report.RawQuestionsGenerated),
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
		zap.Int("classified", report.Classified),
		zap.String("outcome", report.Outcome),
		zap.Error(err))
	return out, err
}

func (p *Pipeline) run(ctx context.Context, logger *zap.Logger, text string, chunks []syllabus.Chunk, spec paper.Spec, out *Output) error {
	report := out.Report
	pool := question.NewPool()

	if err := p.stage(ctx, StageGenerate, report, func(ctx context.Context) error {
		return p.generate(ctx, logger, chunks, pool, report)
	}); err != nil {
		return err
	}
	out.Questions = pool.All()
	if pool.Size() == 0 {
		return ErrNoQuestions
	}

	if err := p.stage(ctx, StageValidate, report, func(context.Context) error {
		return p.validate(text, pool, report)
	}); err != nil {
		return err
	}
	if report.Accepted == 0 {
		return ErrNoValidQuestions
	}

	if err := p.stage(ctx, StageClassify, report, func(ctx context.Context) error {
		return p.classify(ctx, text, pool, report)
	}); err != nil {
		return err
	}
	if report.Classified == 0 {
		return ErrNoClassified
	}

	return p.stage(ctx, StageAssemble, report, func(context.Context) error {
		return p.assemble(pool, spec, out)
	})
}

// stage wraps fn in a span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, report *Report, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, name)
	defer span.End()
	start := time.Now()

	err := fn(ctx)

	p.deps.Metrics.ObserveStage(name, start)
	report.StageMillis[name] = time.Since(start).Milliseconds()
	var infeasible *paper.InfeasibleError
	if err != nil && !errors.As(err, &infeasible) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Pipeline) generate(ctx context.Context, logger *zap.Logger, chunks []syllabus.Chunk, pool *question.Pool, report *Report) error {
	var prior []string
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		cands, err := p.deps.Generator.Generate(ctx, generate.Input{Chunk: c, PriorQuestions: prior})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			report.GenerationErrors++
			logger.Warn("question generation failed for chunk", zap.Int("chunk", c.ID), zap.Error(err))
			cands = nil
		}
		added, err := pool.AddChunk(c.ID, cands)
		if err != nil {
			return fmt.Errorf("add chunk %d: %w", c.ID, err)
		}
		report.RawQuestionsPerChunk[c.ID] = len(added)
		for _, q := range added {
			prior = append(prior, q.Text)
		}
	}
	report.RawQuestionsGenerated = pool.Size()
	if p.deps.Metrics != nil {
		p.deps.Metrics.QuestionsGenerated.Add(float64(pool.Size()))
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("questions", pool.Size()))
	return nil
}

func (p *Pipeline) validate(text string, pool *question.Pool, report *Report) error {
	v := p.validator
	if p.settings.SyllabusKeywords {
		keywords := validate.BuildKeywordSet(text, p.settings.Rules.StopWords, p.settings.KeywordLimit)
		report.KeywordCount = len(keywords)
		v = v.WithVocabulary(keywords)
	}

	accepted, rejected, err := v.ApplyAll(pool.All())
	if err != nil {
		return fmt.Errorf("validate questions: %w", err)
	}
	report.Accepted = len(accepted)
	report.recordRejections(rejected)
	if p.deps.Metrics != nil {
		for rule, n := range report.RejectionReasonsCount {
			p.deps.Metrics.Rejections.WithLabelValues(rule).Add(float64(n))
		}
	}
	return nil
}

func (p *Pipeline) classify(ctx context.Context, text string, pool *question.Pool, report *Report) error {
	outcome, err := p.adapter.ClassifyAll(ctx, pool.All(), text)
	if err != nil {
		return err
	}
	report.recordClassification(outcome)
	if p.deps.Metrics != nil {
		for kind, n := range report.FailuresByKind {
			p.deps.Metrics.ClassificationFailures.WithLabelValues(kind).Add(float64(n))
		}
	}
	if err := p.settings.Marks.Apply(outcome.Classified); err != nil {
		return err
	}
	report.recordBank(outcome.Classified)
	return nil
}

func (p *Pipeline) assemble(pool *question.Pool, spec paper.Spec, out *Output) error {
	qs := pool.All()
	res, err := p.assembler.Assemble(qs, spec)
	if err != nil {
		return err
	}
	if err := paper.Commit(res, qs); err != nil {
		return err
	}
	out.Result = res
	out.Paper = paper.Export(res)

	report := out.Report
	report.Outcome = string(res.Outcome)
	report.RealizedMarks = res.TotalMarks
	report.QuestionsSelected = len(res.Questions)
	report.SwapsExplored = res.SwapsExplored
	report.FastPath = res.FastPath
	if p.deps.Metrics != nil {
		p.deps.Metrics.Assemblies.WithLabelValues(string(res.Outcome)).Inc()
	}
	return res.Err()
}

// save stores assembled papers, feasible or not. Storage problems are
// logged and never fail the run.
func (p *Pipeline) save(ctx context.Context, logger *zap.Logger, source string, out *Output) {
	if p.deps.Papers == nil || out.Result == nil || ctx.Err() != nil {
		return
	}
	body, err := json.Marshal(out.Paper)
	if err != nil {
		logger.Warn("failed to encode paper", zap.Error(err))
		return
	}
	rec := &store.PaperRecord{
		RunID:         out.RunID,
		Outcome:       string(out.Result.Outcome),
		Source:        source,
		TargetMarks:   out.Paper.TargetMarks,
		TotalMarks:    out.Paper.TotalMarks,
		QuestionCount: len(out.Paper.Questions),
		Body:          body,
	}
	if err := p.deps.Papers.Save(ctx, rec); err != nil {
		logger.Warn("failed to store paper", zap.Error(err))
		return
	}
	if p.settings.KeepPapers > 0 {
		if err := p.deps.Papers.Prune(ctx, p.settings.KeepPapers); err != nil {
			logger.Warn("failed to prune stored papers", zap.Error(err))
		}
	}
}
