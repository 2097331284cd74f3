package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/bloomsbot/internal/llm"
	"github.com/abhisek/bloomsbot/internal/question"
)

// PurposeGenerate labels generation calls in the LLM event log.
const PurposeGenerate = "question-gen"

// LLMGenerator implements Generator using the LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

// questionsOutput is the raw LLM response.
type questionsOutput struct {
	Questions []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"questions"`
}

// Generate asks the LLM for questions on one chunk. Entries with an unknown
// type, empty text, or text already seen in this run are dropped.
func (g *LLMGenerator) Generate(ctx context.Context, input Input) ([]question.Candidate, error) {
	if strings.TrimSpace(input.Chunk.Text) == "" {
		return nil, nil
	}
	ctx = llm.WithPurpose(ctx, PurposeGenerate)

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input, g.config)},
		},
		Schema:      QuestionsSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw questionsOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	seen := make(map[string]bool, len(input.PriorQuestions))
	for _, p := range input.PriorQuestions {
		seen[normalize(p)] = true
	}

	var out []question.Candidate
	for _, rq := range raw.Questions {
		text := strings.TrimSpace(rq.Text)
		typ, err := question.ParseType(rq.Type)
		if text == "" || err != nil {
			continue
		}
		key := normalize(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, question.Candidate{Text: text, Type: typ})
	}
	return out, nil
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
