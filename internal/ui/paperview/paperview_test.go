package paperview

import (
	"strings"
	"testing"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/pipeline"
	"github.com/abhisek/bloomsbot/internal/question"
)

func testPaper() paper.ExportedPaper {
	return paper.ExportedPaper{
		Outcome:     paper.Feasible,
		TotalMarks:  7,
		TargetMarks: 7,
		Questions: []paper.ExportedQuestion{
			{Text: "Define a process control block?", Marks: 2, Type: question.TypeShortAnswer, BloomLevel: bloom.Remember},
			{Text: "Solve the shortest path problem on the weighted graph?", Marks: 5, Type: question.TypeNumerical, BloomLevel: bloom.Apply},
		},
		BloomCounts: map[bloom.Level]int{bloom.Remember: 1, bloom.Apply: 1},
		TypeCounts:  map[question.Type]int{question.TypeShortAnswer: 1, question.TypeNumerical: 1},
	}
}

func TestRender_Feasible(t *testing.T) {
	out := Render(testPaper(), DefaultWidth)
	for _, want := range []string{
		"Question Paper",
		"Total 7 marks (target 7)",
		"Q1.",
		"Define a process control block?",
		"Q2.",
		"[5 marks · Apply · numerical]",
		"Bloom levels",
		"numerical",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Create") {
		t.Error("levels without questions should be omitted")
	}
}

func TestRender_Infeasible(t *testing.T) {
	p := paper.ExportedPaper{
		Outcome:     paper.Infeasible,
		TargetMarks: 50,
		Tolerance:   2,
		Shortfalls: []paper.Shortfall{
			{Constraint: "bloom:Apply", Min: 2, Max: 4, Got: 0, Delta: -2},
		},
	}
	out := Render(p, DefaultWidth)
	if !strings.Contains(out, "No paper satisfies the target.") {
		t.Errorf("missing infeasible banner:\n%s", out)
	}
	if !strings.Contains(out, "bloom:Apply wanted 2..4, got 0 (-2)") {
		t.Errorf("missing shortfall:\n%s", out)
	}
	if !strings.Contains(out, "± 2") {
		t.Errorf("missing tolerance:\n%s", out)
	}
}

func TestRenderReport(t *testing.T) {
	r := &pipeline.Report{
		RunID:                 "run-7",
		ChunksCreated:         2,
		Rejected:              3,
		RejectionReasonsCount: map[string]int{"too_short": 2, "forbidden_word": 1},
		RejectionExamples:     map[string][]string{"too_short": {"Why?"}},
		BankSizeByBloom:       map[bloom.Level]int{bloom.Apply: 4},
		BankSizeByMarks:       map[int]int{5: 4, 2: 1},
	}
	out := RenderReport(r, DefaultWidth)
	for _, want := range []string{"run-7", "too_short=2", "Why?", "Apply:4", "2m:1 5m:4"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if RenderReport(nil, DefaultWidth) != "" {
		t.Error("nil report should render empty")
	}
}
