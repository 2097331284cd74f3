package classify

import (
	"context"
	"errors"
)

// Chain tries classifiers in order and returns the first result. When all
// fail, the last failure is returned.
type Chain []Classifier

func (c Chain) Name() string { return "chain" }

func (c Chain) Classify(ctx context.Context, in Input) (*Result, error) {
	var last error = &Failure{Classifier: c.Name(), Kind: FailureUnavailable, Detail: "no classifiers configured"}
	for _, cl := range c {
		res, err := cl.Classify(ctx, in)
		if err == nil {
			return res, nil
		}
		last = err
		// A dead request context fails every later classifier too.
		if ctx.Err() != nil {
			break
		}
		var f *Failure
		if errors.As(err, &f) && f.Kind == FailureCanceled {
			break
		}
	}
	return nil, last
}
