package llm

// levelSchema mirrors the shape of the Bloom classification schema without
// importing the classify package.
var levelSchema = &Schema{
	Name: "test-bloom-level",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level":      map[string]any{"type": "string", "enum": []any{"Remember", "Understand", "Apply"}},
			"verb":       map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required":             []any{"level", "verb", "confidence"},
		"additionalProperties": false,
	},
}

const levelJSON = `{"level":"Apply","verb":"compute","confidence":0.82}`

func classifyRequest() Request {
	return Request{
		System:    "You classify exam questions by Bloom's taxonomy level.",
		Messages:  []Message{{Role: RoleUser, Content: "Compute the page faults for the reference string using LRU?"}},
		Schema:    levelSchema,
		MaxTokens: 128,
	}
}
