package classify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abhisek/bloomsbot/internal/question"
)

// AdapterConfig bounds the fan-out of classification calls.
type AdapterConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// RatePerSecond limits call starts; 0 means unlimited.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// DefaultAdapterConfig returns sensible defaults.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Concurrency: 4,
		Timeout:     30 * time.Second,
		Burst:       1,
	}
}

// QuestionFailure records a question left unresolved by this run.
type QuestionFailure struct {
	QuestionID string
	Seq        int
	Text       string
	Err        error
}

// Kind reports the failure category for metrics and reports.
func (f QuestionFailure) Kind() FailureKind {
	return KindOf(f.Err)
}

// KindOf extracts the FailureKind of err, defaulting to unavailable.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureUnavailable
}

// Outcome is the result of one classification pass.
type Outcome struct {
	Classified []*question.Question
	Failures   []QuestionFailure
}

// Adapter assigns Bloom levels to validated questions through a Classifier.
type Adapter struct {
	classifier Classifier
	cfg        AdapterConfig
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewAdapter creates an adapter. A nil logger is replaced with a no-op.
func NewAdapter(c Classifier, cfg AdapterConfig, logger *zap.Logger) *Adapter {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{classifier: c, cfg: cfg, logger: logger}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return a
}

// ClassifyAll classifies every Validated question in qs. Calls run
// concurrently; status transitions are applied afterwards in slice order.
// A failed question stays Validated and is listed in Outcome.Failures; it is
// not retried. If ctx ends first, every result is discarded and ctx.Err() is
// returned.
func (a *Adapter) ClassifyAll(ctx context.Context, qs []*question.Question, syllabusContext string) (*Outcome, error) {
	var pending []*question.Question
	for _, q := range qs {
		if q.Status() == question.StatusValidated {
			pending = append(pending, q)
		}
	}

	results := make([]*Result, len(pending))
	errs := make([]error, len(pending))

	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, q := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i], errs[i] = a.classifyOne(ctx, Input{Text: q.Text, Context: syllabusContext})
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Outcome{}
	for i, q := range pending {
		err := errs[i]
		if err == nil {
			err = q.Classify(results[i].Level, results[i].Verb)
		}
		if err != nil {
			a.logger.Warn("question left unclassified",
				zap.String("question_id", q.ID),
				zap.Int("seq", q.Seq),
				zap.String("kind", string(KindOf(err))),
				zap.Error(err))
			out.Failures = append(out.Failures, QuestionFailure{QuestionID: q.ID, Seq: q.Seq, Text: q.Text, Err: err})
			continue
		}
		out.Classified = append(out.Classified, q)
	}
	return out, nil
}

func (a *Adapter) classifyOne(ctx context.Context, in Input) (*Result, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			kind := FailureTimeout
			if errors.Is(err, context.Canceled) {
				kind = FailureCanceled
			}
			return nil, &Failure{Classifier: a.classifier.Name(), Kind: kind, Err: err}
		}
	}
	res, err := a.classifier.Classify(ctx, in)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && KindOf(err) != FailureTimeout {
			return nil, &Failure{Classifier: a.classifier.Name(), Kind: FailureTimeout, Err: err}
		}
		return nil, err
	}
	if res == nil || !res.Level.Valid() {
		return nil, &Failure{Classifier: a.classifier.Name(), Kind: FailureUnknownLabel}
	}
	return res, nil
}
