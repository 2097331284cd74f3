package pipeline

import "errors"

// Terminal outcomes of a run other than an infeasible paper, which is
// reported as *paper.InfeasibleError.
var (
	ErrEmptySyllabus    = errors.New("syllabus text is empty")
	ErrNoQuestions      = errors.New("no questions could be generated from the syllabus")
	ErrNoValidQuestions = errors.New("no questions passed validation")
	ErrNoClassified     = errors.New("no questions could be classified")
)
