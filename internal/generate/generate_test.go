package generate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/bloomsbot/internal/llm"
	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/abhisek/bloomsbot/internal/syllabus"
)

func chunk(text string) syllabus.Chunk {
	return syllabus.Chunk{ID: 0, Text: text, Words: syllabus.WordCount(text)}
}

func TestGenerate_ParsesQuestions(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"questions":[
		{"text":"Explain the working of a two-phase commit protocol?","type":"long-answer"},
		{"text":"  Define a deadlock in operating systems?  ","type":"short-answer"},
		{"text":"Compute the page faults for the reference string with FIFO?","type":"numerical"}
	]}`)})
	gen := New(mock, DefaultConfig())

	got, err := gen.Generate(context.Background(), Input{Chunk: chunk("Distributed transactions and deadlocks")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[1].Text != "Define a deadlock in operating systems?" {
		t.Errorf("text not trimmed: %q", got[1].Text)
	}
	if got[0].Type != question.TypeLongAnswer || got[2].Type != question.TypeNumerical {
		t.Errorf("unexpected types: %q, %q", got[0].Type, got[2].Type)
	}
	for _, c := range got {
		if c.Marks != 0 {
			t.Errorf("generator must not assign marks, got %d", c.Marks)
		}
	}

	req := mock.Calls[0]
	if req.Schema != QuestionsSchema {
		t.Error("expected QuestionsSchema on request")
	}
	if !strings.Contains(req.Messages[0].Content, "Distributed transactions and deadlocks") {
		t.Error("user message should contain the chunk text")
	}
	if !strings.Contains(req.Messages[0].Content, "Number of questions: 12") {
		t.Error("user message should request 12 questions")
	}
}

func TestGenerate_DropsInvalidAndDuplicates(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"questions":[
		{"text":"Explain paging in memory management?","type":"short-answer"},
		{"text":"explain   paging in memory management?","type":"short-answer"},
		{"text":"Write an essay on compilers?","type":"essay"},
		{"text":"   ","type":"short-answer"},
		{"text":"Define a semaphore?","type":"short-answer"}
	]}`)})
	gen := New(mock, DefaultConfig())

	got, err := gen.Generate(context.Background(), Input{
		Chunk:          chunk("Memory management"),
		PriorQuestions: []string{"Define a  semaphore?"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Explain paging in memory management?" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if !strings.Contains(mock.Calls[0].Messages[0].Content, "1. Define a  semaphore?") {
		t.Error("prior questions should be listed in the prompt")
	}
}

func TestGenerate_EmptyChunkSkipsLLM(t *testing.T) {
	mock := llm.NewMockProvider()
	got, err := New(mock, DefaultConfig()).Generate(context.Background(), Input{Chunk: chunk("  ")})
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
	if mock.CallCount() != 0 {
		t.Error("LLM must not be called for an empty chunk")
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	_, err := New(mock, DefaultConfig()).Generate(context.Background(), Input{Chunk: chunk("Graphs")})
	var unavailable *llm.ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestBuildDedup(t *testing.T) {
	if got := buildDedup(nil, 5); got != "None" {
		t.Errorf("got %q, want None", got)
	}
	got := buildDedup([]string{"a", "b", "c"}, 2)
	if got != "1. b\n2. c" {
		t.Errorf("got %q", got)
	}
}

func TestParseNumbered(t *testing.T) {
	out := ParseNumbered(`Here are your questions:
Q1. Define a process control block?
q2 Explain context switching in detail?
Q3. a)

Q10. Compare paging and segmentation?`)
	want := []string{
		"Define a process control block?",
		"Explain context switching in detail?",
		"Compare paging and segmentation?",
	}
	if len(out) != len(want) {
		t.Fatalf("expected %d questions, got %d: %+v", len(want), len(out), out)
	}
	for i, w := range want {
		if out[i].Text != w {
			t.Errorf("question %d = %q, want %q", i, out[i].Text, w)
		}
		if out[i].Type != question.TypeShortAnswer {
			t.Errorf("question %d type = %q", i, out[i].Type)
		}
	}
}

func TestParseNumbered_Fallback(t *testing.T) {
	out := ParseNumbered("1. Define an interrupt vector?\n2) Explain DMA transfers?\nnotes")
	if len(out) != 2 {
		t.Fatalf("expected 2 questions, got %+v", out)
	}
	if out[1].Text != "Explain DMA transfers?" {
		t.Errorf("got %q", out[1].Text)
	}
}
