package question

import (
	"fmt"
	"strings"

	"github.com/abhisek/bloomsbot/internal/bloom"
)

// Type is the answer category a question was generated for.
type Type string

const (
	TypeShortAnswer Type = "short-answer"
	TypeLongAnswer  Type = "long-answer"
	TypeNumerical   Type = "numerical"
)

// Types returns the known question types in a stable order.
func Types() []Type {
	return []Type{TypeShortAnswer, TypeLongAnswer, TypeNumerical}
}

// ParseType normalises a type label. Underscores and spaces are accepted in
// place of the hyphen.
func ParseType(s string) (Type, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	for _, t := range Types() {
		if norm == string(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

// Status is the pipeline stage a question has reached. Progression is
// strictly forward; Rejected and Discarded are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidated  Status = "validated"
	StatusRejected   Status = "rejected"
	StatusClassified Status = "classified"
	StatusSelected   Status = "selected"
	StatusDiscarded  Status = "discarded"
)

// Candidate is a raw record handed over by the generation collaborator.
type Candidate struct {
	Text  string
	Marks int
	Type  Type
}

// Question is a generated exam question moving through validation,
// classification and selection. Stage fields are only changed through the
// transition methods.
type Question struct {
	ID      string
	Seq     int
	ChunkID int
	Text    string
	Marks   int
	Type    Type

	status Status
	reason string
	level  bloom.Level
	verb   string
}

// New creates a Pending question from a candidate.
func New(id string, seq, chunkID int, c Candidate) *Question {
	return &Question{
		ID:      id,
		Seq:     seq,
		ChunkID: chunkID,
		Text:    strings.TrimSpace(c.Text),
		Marks:   c.Marks,
		Type:    c.Type,
		status:  StatusPending,
	}
}

func (q *Question) Status() Status { return q.status }

// RejectReason is the reason recorded at rejection, empty otherwise.
func (q *Question) RejectReason() string { return q.reason }

// Level returns the assigned Bloom level and whether one has been set.
func (q *Question) Level() (bloom.Level, bool) {
	return q.level, q.level != 0
}

// Verb is the cognitive verb reported by the classifier, if any.
func (q *Question) Verb() string { return q.verb }

// TransitionError reports an illegal status change.
type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("question %s: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (q *Question) move(from, to Status) error {
	if q.status != from {
		return &TransitionError{ID: q.ID, From: q.status, To: to}
	}
	q.status = to
	return nil
}

// MarkValidated promotes a Pending question.
func (q *Question) MarkValidated() error {
	return q.move(StatusPending, StatusValidated)
}

// Reject records a terminal rejection. The reason cannot change afterwards.
func (q *Question) Reject(reason string) error {
	if err := q.move(StatusPending, StatusRejected); err != nil {
		return err
	}
	q.reason = reason
	return nil
}

// Classify assigns the Bloom level of a Validated question.
func (q *Question) Classify(level bloom.Level, verb string) error {
	if !level.Valid() {
		return fmt.Errorf("question %s: invalid bloom level %d", q.ID, int(level))
	}
	if q.level != 0 {
		return fmt.Errorf("question %s: bloom level already set to %s", q.ID, q.level)
	}
	if err := q.move(StatusValidated, StatusClassified); err != nil {
		return err
	}
	q.level = level
	q.verb = verb
	return nil
}

// AssignMarks sets the marks of a question that has none yet.
func (q *Question) AssignMarks(marks int) error {
	if marks <= 0 {
		return fmt.Errorf("question %s: marks must be positive, got %d", q.ID, marks)
	}
	if q.Marks > 0 {
		return fmt.Errorf("question %s: marks already set to %d", q.ID, q.Marks)
	}
	q.Marks = marks
	return nil
}

func (q *Question) MarkSelected() error {
	return q.move(StatusClassified, StatusSelected)
}

func (q *Question) MarkDiscarded() error {
	return q.move(StatusClassified, StatusDiscarded)
}
