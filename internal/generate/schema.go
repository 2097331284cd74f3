package generate

import (
	"github.com/abhisek/bloomsbot/internal/llm"
	"github.com/abhisek/bloomsbot/internal/question"
)

// QuestionsSchema defines the JSON schema for LLM question generation responses.
var QuestionsSchema = &llm.Schema{
	Name:        "exam-questions",
	Description: "Exam questions written from a syllabus excerpt",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{
							"type":        "string",
							"description": "The question as printed on the paper, ending with a question mark",
						},
						"type": map[string]any{
							"type":        "string",
							"enum":        typeEnum(),
							"description": "The expected answer style",
						},
					},
					"required":             []any{"text", "type"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

func typeEnum() []any {
	types := question.Types()
	out := make([]any, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
