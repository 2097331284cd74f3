package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, KindTimeout},
		{fmt.Errorf("generate: %w", context.Canceled), KindCanceled},
		{&ErrMaxTokensExceeded{}, KindTruncated},
		{&ErrInvalidResponse{Err: errors.New("bad json")}, KindInvalid},
		{&ErrRateLimit{Err: errors.New("429")}, KindRateLimit},
		{&ErrProviderUnavailable{}, KindUnavailable},
		{errors.New("connection reset"), KindUnavailable},
		{&ErrProviderUnavailable{Err: context.DeadlineExceeded}, KindTimeout},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
