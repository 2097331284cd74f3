package paper

import (
	"fmt"
	"strings"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/question"
)

// Outcome is the terminal state of an assembly.
type Outcome string

const (
	Feasible   Outcome = "feasible"
	Infeasible Outcome = "infeasible"
)

// ConstraintMarks names the paper total in shortfalls. Quota cells are
// named "bloom:<Level>" and "type:<type>".
const ConstraintMarks = "marks"

func levelConstraint(l bloom.Level) string   { return "bloom:" + l.String() }
func typeConstraint(t question.Type) string { return "type:" + string(t) }

// Shortfall describes one unmet constraint. Delta is the signed distance
// from the nearest bound: negative when Got is below Min.
type Shortfall struct {
	Constraint string `json:"constraint"`
	Min        int    `json:"min"`
	Max        int    `json:"max"`
	Got        int    `json:"got"`
	Delta      int    `json:"delta"`
}

func newShortfall(constraint string, r Range, got int) Shortfall {
	sf := Shortfall{Constraint: constraint, Min: r.Min, Max: r.Max, Got: got}
	switch {
	case got < r.Min:
		sf.Delta = got - r.Min
	case got > r.Max:
		sf.Delta = got - r.Max
	}
	return sf
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s wanted %d..%d, got %d (%+d)", s.Constraint, s.Min, s.Max, s.Got, s.Delta)
}

// Result is the outcome of Assemble. For a Feasible result Questions is the
// selection ordered by level then Seq. For an Infeasible one Questions is
// empty and the totals describe the closest selection found.
type Result struct {
	Outcome       Outcome
	Spec          Spec
	Questions     []*question.Question
	TotalMarks    int
	LevelCounts   map[bloom.Level]int
	TypeCounts    map[question.Type]int
	Shortfalls    []Shortfall
	Candidates    int
	SwapsExplored int
	FastPath      bool
}

func (r *Result) Feasible() bool { return r.Outcome == Feasible }

// InfeasibleError carries an infeasible result to callers that work with
// errors. It is terminal for the request.
type InfeasibleError struct {
	Result *Result
}

func (e *InfeasibleError) Error() string {
	parts := make([]string, len(e.Result.Shortfalls))
	for i, s := range e.Result.Shortfalls {
		parts[i] = s.String()
	}
	return "paper infeasible: " + strings.Join(parts, "; ")
}

// Err returns an *InfeasibleError for infeasible results and nil otherwise.
func (r *Result) Err() error {
	if r.Feasible() {
		return nil
	}
	return &InfeasibleError{Result: r}
}

// Commit records the selection on the questions: selected ones become
// Selected and every other Classified question becomes Discarded. An
// infeasible result changes nothing.
func Commit(res *Result, qs []*question.Question) error {
	if !res.Feasible() {
		return nil
	}
	chosen := make(map[string]bool, len(res.Questions))
	for _, q := range res.Questions {
		chosen[q.ID] = true
	}
	for _, q := range qs {
		if q.Status() != question.StatusClassified {
			continue
		}
		var err error
		if chosen[q.ID] {
			err = q.MarkSelected()
		} else {
			err = q.MarkDiscarded()
		}
		if err != nil {
			return fmt.Errorf("commit paper: %w", err)
		}
	}
	return nil
}

// ExportedQuestion is one line of an exported paper.
type ExportedQuestion struct {
	Text          string        `json:"text"`
	Marks         int           `json:"marks"`
	Type          question.Type `json:"type"`
	BloomLevel    bloom.Level   `json:"bloom_level"`
	Verb          string        `json:"verb,omitempty"`
	SourceChunkID int           `json:"source_chunk_id"`
}

// ExportedPaper is the serialisable form handed to storage and clients.
type ExportedPaper struct {
	Outcome     Outcome               `json:"outcome"`
	TotalMarks  int                   `json:"total_marks"`
	TargetMarks int                   `json:"target_marks"`
	Tolerance   int                   `json:"tolerance"`
	Questions   []ExportedQuestion    `json:"questions"`
	BloomCounts map[bloom.Level]int   `json:"bloom_counts"`
	TypeCounts  map[question.Type]int `json:"type_counts"`
	Shortfalls  []Shortfall           `json:"shortfalls,omitempty"`
}

// Export converts a result into its serialisable form.
func Export(res *Result) ExportedPaper {
	out := ExportedPaper{
		Outcome:     res.Outcome,
		TotalMarks:  res.TotalMarks,
		TargetMarks: res.Spec.TotalMarks,
		Tolerance:   res.Spec.Tolerance,
		Questions:   make([]ExportedQuestion, 0, len(res.Questions)),
		BloomCounts: res.LevelCounts,
		TypeCounts:  res.TypeCounts,
		Shortfalls:  res.Shortfalls,
	}
	for _, q := range res.Questions {
		level, _ := q.Level()
		out.Questions = append(out.Questions, ExportedQuestion{
			Text:          q.Text,
			Marks:         q.Marks,
			Type:          q.Type,
			BloomLevel:    level,
			Verb:          q.Verb(),
			SourceChunkID: q.ChunkID,
		})
	}
	return out
}
