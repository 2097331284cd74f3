package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func questionListSchema() *Schema {
	return &Schema{
		Name: "test-question-list",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questions": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"text":  map[string]any{"type": "string"},
							"type":  map[string]any{"type": "string", "enum": []any{"short-answer", "long-answer", "numerical"}},
							"marks": map[string]any{"type": "integer", "minimum": 1},
						},
						"required": []any{"text", "type"},
					},
				},
			},
			"required": []any{"questions"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"questions":[{"text":"Define a process?","type":"short-answer","marks":2}]}`, false},
		{"optional field omitted", `{"questions":[{"text":"Define a process?","type":"numerical"}]}`, false},
		{"empty list", `{"questions":[]}`, false},
		{"missing required", `{"questions":[{"text":"Define a process?"}]}`, true},
		{"wrong type", `{"questions":[{"text":"Define a process?","type":"short-answer","marks":"two"}]}`, true},
		{"below minimum", `{"questions":[{"text":"Define a process?","type":"short-answer","marks":0}]}`, true},
		{"invalid enum", `{"questions":[{"text":"Write an essay?","type":"essay"}]}`, true},
		{"malformed JSON", `{not json}`, true},
		{"empty response", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(questionListSchema(), json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var inv *ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Fatalf("expected ErrInvalidResponse, got: %T", err)
			}
			if string(inv.Content) != tt.raw {
				t.Errorf("content not carried on error: %q", inv.Content)
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`{"anything":"goes"}`)); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestValidateResponse_CachesCompiledSchema(t *testing.T) {
	s := questionListSchema()
	s.Name = "test-question-list-cache"
	first, err := compileSchema(s)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := compileSchema(s)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if first != second {
		t.Error("expected the cached schema on second compile")
	}
}
