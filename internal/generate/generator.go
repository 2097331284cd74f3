package generate

import (
	"context"

	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/abhisek/bloomsbot/internal/syllabus"
)

// Input is one generation request: a syllabus chunk plus the questions
// already produced from earlier chunks.
type Input struct {
	Chunk          syllabus.Chunk
	PriorQuestions []string
}

// Generator produces raw question candidates from syllabus text. Candidates
// carry text and type only; Bloom levels come later from classification.
type Generator interface {
	Generate(ctx context.Context, input Input) ([]question.Candidate, error)
}
