package llm

import "testing"

func TestGeminiModelMapping(t *testing.T) {
	if got := resolveModel("gemini-flash", geminiModels); got != "gemini-2.0-flash" {
		t.Errorf("gemini-flash resolved to %q", got)
	}
	if got := resolveModel("gemini-2.5-pro", geminiModels); got != "gemini-2.5-pro" {
		t.Errorf("pass-through resolved to %q", got)
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	schema := buildGeminiSchema(levelSchema.Definition)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(schema.Properties))
	}
	if got := schema.Properties["level"]; got.Type != "STRING" || len(got.Enum) != 3 {
		t.Errorf("level property = %+v", got)
	}
	conf := schema.Properties["confidence"]
	if conf.Type != "NUMBER" {
		t.Errorf("expected NUMBER for confidence, got %s", conf.Type)
	}
	if conf.Minimum == nil || *conf.Minimum != 0 || conf.Maximum == nil || *conf.Maximum != 1 {
		t.Errorf("confidence bounds not carried: %v %v", conf.Minimum, conf.Maximum)
	}
	if len(schema.Required) != 3 {
		t.Errorf("expected 3 required fields, got %d", len(schema.Required))
	}
}

func TestBuildGeminiSchema_Array(t *testing.T) {
	schema := buildGeminiSchema(map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
		},
	})
	if schema.Type != "ARRAY" || schema.Items == nil || schema.Items.Properties["text"].Type != "STRING" {
		t.Errorf("unexpected array schema: %+v", schema)
	}
}
