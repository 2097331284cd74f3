package paper

import (
	"fmt"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/question"
)

// MarkScheme gives the marks of a question by its Bloom level.
type MarkScheme map[bloom.Level]int

// DefaultMarkScheme weights higher-order questions more heavily.
func DefaultMarkScheme() MarkScheme {
	return MarkScheme{
		bloom.Remember:   2,
		bloom.Understand: 2,
		bloom.Apply:      5,
		bloom.Analyze:    5,
		bloom.Evaluate:   10,
		bloom.Create:     10,
	}
}

// Validate requires a positive mark for every level.
func (m MarkScheme) Validate() error {
	for _, l := range bloom.Levels() {
		if m[l] <= 0 {
			return &ConfigError{Field: "marks." + l.String(), Reason: "must be positive"}
		}
	}
	return nil
}

// Apply sets marks on classified questions that have none. Questions whose
// marks came from generation keep them.
func (m MarkScheme) Apply(qs []*question.Question) error {
	for _, q := range qs {
		level, ok := q.Level()
		if !ok || q.Marks > 0 {
			continue
		}
		if err := q.AssignMarks(m[level]); err != nil {
			return fmt.Errorf("assign marks: %w", err)
		}
	}
	return nil
}
