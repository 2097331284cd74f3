package paper

import (
	"fmt"
	"sort"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/question"
)

// Range is an inclusive count range for a quota cell.
type Range struct {
	Min int `json:"min" mapstructure:"min"`
	Max int `json:"max" mapstructure:"max"`
}

func (r Range) Contains(n int) bool { return n >= r.Min && n <= r.Max }

// deficit is how many more items are needed to reach Min.
func (r Range) deficit(n int) int {
	if n >= r.Min {
		return 0
	}
	return r.Min - n
}

// Spec is the target a paper must meet. Levels and types missing from the
// quota maps are unconstrained.
type Spec struct {
	TotalMarks int                     `json:"total_marks"`
	Tolerance  int                     `json:"tolerance"`
	BloomQuota map[bloom.Level]Range   `json:"bloom_quota,omitempty"`
	TypeQuota  map[question.Type]Range `json:"type_quota,omitempty"`
}

// DefaultSpec is a 50-mark paper weighted towards the lower levels.
func DefaultSpec() Spec {
	return Spec{
		TotalMarks: 50,
		Tolerance:  0,
		BloomQuota: map[bloom.Level]Range{
			bloom.Remember:   {Min: 1, Max: 4},
			bloom.Understand: {Min: 1, Max: 4},
			bloom.Apply:      {Min: 1, Max: 4},
			bloom.Analyze:    {Min: 0, Max: 3},
			bloom.Evaluate:   {Min: 0, Max: 2},
			bloom.Create:     {Min: 0, Max: 0},
		},
	}
}

// MarksRange is the accepted interval for the paper total.
func (s Spec) MarksRange() Range {
	return Range{Min: s.TotalMarks - s.Tolerance, Max: s.TotalMarks + s.Tolerance}
}

// ConfigError reports an unusable target or search setting. It is fatal for
// the request and raised before any processing.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("paper spec: %s: %s", e.Field, e.Reason)
}

// Validate checks the target before assembly. Besides non-negative ranges
// it requires Tolerance < TotalMarks, so a zero-mark paper is never in
// range.
func (s Spec) Validate() error {
	if s.TotalMarks <= 0 {
		return &ConfigError{Field: "total_marks", Reason: "must be positive"}
	}
	if s.Tolerance < 0 {
		return &ConfigError{Field: "tolerance", Reason: "must not be negative"}
	}
	if s.Tolerance >= s.TotalMarks {
		return &ConfigError{Field: "tolerance", Reason: "must be below total_marks"}
	}
	for _, level := range sortedLevels(s.BloomQuota) {
		if !level.Valid() {
			return &ConfigError{Field: "bloom_quota", Reason: fmt.Sprintf("unknown level %s", level)}
		}
		if err := checkRange("bloom_quota."+level.String(), s.BloomQuota[level]); err != nil {
			return err
		}
	}
	known := make(map[question.Type]bool)
	for _, t := range question.Types() {
		known[t] = true
	}
	for _, t := range sortedTypes(s.TypeQuota) {
		if !known[t] {
			return &ConfigError{Field: "type_quota", Reason: fmt.Sprintf("unknown question type %q", t)}
		}
		if err := checkRange("type_quota."+string(t), s.TypeQuota[t]); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(field string, r Range) error {
	if r.Min < 0 {
		return &ConfigError{Field: field, Reason: "min must not be negative"}
	}
	if r.Max < r.Min {
		return &ConfigError{Field: field, Reason: fmt.Sprintf("max %d is below min %d", r.Max, r.Min)}
	}
	return nil
}

// Options bounds the backtracking search.
type Options struct {
	// MaxSwaps is the number of selection states explored before giving up.
	MaxSwaps int `mapstructure:"max_swaps"`
	// MaxBranch is the number of best-ranked moves tried from each state.
	MaxBranch int `mapstructure:"max_branch"`
}

func DefaultOptions() Options {
	return Options{MaxSwaps: 5000, MaxBranch: 6}
}

func (o Options) Validate() error {
	if o.MaxSwaps < 1 {
		return &ConfigError{Field: "max_swaps", Reason: "must be at least 1"}
	}
	if o.MaxBranch < 1 {
		return &ConfigError{Field: "max_branch", Reason: "must be at least 1"}
	}
	return nil
}

func sortedLevels(m map[bloom.Level]Range) []bloom.Level {
	out := make([]bloom.Level, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedTypes(m map[question.Type]Range) []question.Type {
	out := make([]question.Type, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
