package classify

import (
	"context"
	"fmt"

	"github.com/abhisek/bloomsbot/internal/bloom"
)

// Input is what a classifier sees: the question text and, optionally, an
// excerpt of the syllabus it was generated from.
type Input struct {
	Text    string
	Context string
}

// Result is a successful classification.
type Result struct {
	Level      bloom.Level `json:"level"`
	Verb       string      `json:"verb"`
	Confidence float64     `json:"confidence"`
	Classifier string      `json:"classifier"`
}

// Classifier maps question text to exactly one of the six Bloom levels.
// Implementations must be safe for concurrent use and return a *Failure
// instead of defaulting when they cannot decide.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, in Input) (*Result, error)
}

// FailureKind categorises why a classification did not produce a level.
type FailureKind string

const (
	FailureTimeout      FailureKind = "timeout"
	FailureMalformed    FailureKind = "malformed_response"
	FailureUnknownLabel FailureKind = "unknown_label"
	FailureUnavailable  FailureKind = "unavailable"
	FailureNoVerb       FailureKind = "no_leading_verb"
	FailureCanceled     FailureKind = "canceled"
)

// Failure is a per-question classification error. The question stays
// unresolved for the current run.
type Failure struct {
	Classifier string
	Kind       FailureKind
	Detail     string
	Err        error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("classifier %q: %s", f.Classifier, f.Kind)
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }
