package classify

import (
	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/llm"
)

// BloomSchema defines the JSON schema for LLM Bloom classification responses.
var BloomSchema = &llm.Schema{
	Name:        "bloom-classification",
	Description: "Bloom's taxonomy level of a single exam question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level": map[string]any{
				"type":        "string",
				"enum":        levelEnum(),
				"description": "The Bloom's taxonomy level of the question",
			},
			"verb": map[string]any{
				"type":        "string",
				"description": "The main cognitive verb in the question",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence score (0.0–1.0) for the chosen level",
			},
		},
		"required":             []any{"level", "verb", "confidence"},
		"additionalProperties": false,
	},
}

func levelEnum() []any {
	names := bloom.Names()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
