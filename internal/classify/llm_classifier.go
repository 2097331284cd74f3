package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/llm"
)

// PurposeClassify labels classification calls in the LLM event log.
const PurposeClassify = "bloom-classify"

// LLMConfig holds configuration for the LLM classifier.
type LLMConfig struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`

	// MaxContextChars truncates the syllabus excerpt sent with each question.
	MaxContextChars int `mapstructure:"max_context_chars"`
}

// DefaultLLMConfig returns sensible defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		MaxTokens:       128,
		Temperature:     0.1,
		MaxContextChars: 1500,
	}
}

// LLMClassifier asks an LLM for the Bloom level of a question.
type LLMClassifier struct {
	provider llm.Provider
	cfg      LLMConfig
}

// NewLLMClassifier creates an LLM-backed classifier.
func NewLLMClassifier(provider llm.Provider, cfg LLMConfig) *LLMClassifier {
	return &LLMClassifier{provider: provider, cfg: cfg}
}

func (c *LLMClassifier) Name() string { return "llm" }

// classificationOutput is the raw LLM response.
type classificationOutput struct {
	Level      string  `json:"level"`
	Verb       string  `json:"verb"`
	Confidence float64 `json:"confidence"`
}

// Classify sends one question to the LLM. Labels outside the six levels are
// failures.
func (c *LLMClassifier) Classify(ctx context.Context, in Input) (*Result, error) {
	ctx = llm.WithPurpose(ctx, PurposeClassify)

	userMsg, err := c.buildMessage(in)
	if err != nil {
		return nil, fmt.Errorf("build classification prompt: %w", err)
	}

	resp, err := c.provider.Generate(ctx, llm.Request{
		System: classifySystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      BloomSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, c.failure(ctx, err)
	}

	var raw classificationOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &Failure{Classifier: c.Name(), Kind: FailureMalformed, Err: err}
	}

	label := strings.TrimSpace(raw.Level)
	level, err := bloom.ParseLevel(label)
	if err != nil || level.String() != label {
		return nil, &Failure{Classifier: c.Name(), Kind: FailureUnknownLabel, Detail: fmt.Sprintf("%q", raw.Level)}
	}

	return &Result{
		Level:      level,
		Verb:       strings.ToLower(strings.TrimSpace(raw.Verb)),
		Confidence: raw.Confidence,
		Classifier: c.Name(),
	}, nil
}

func (c *LLMClassifier) failure(ctx context.Context, err error) *Failure {
	f := &Failure{Classifier: c.Name(), Kind: FailureUnavailable, Err: err}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		f.Kind = FailureTimeout
		return f
	}
	switch llm.KindOf(err) {
	case llm.KindTimeout:
		f.Kind = FailureTimeout
	case llm.KindCanceled:
		f.Kind = FailureCanceled
	case llm.KindInvalid, llm.KindTruncated:
		f.Kind = FailureMalformed
	}
	return f
}

const classifySystemPrompt = `You classify exam questions according to Bloom's Taxonomy.

Instructions:
- Choose exactly one level: Remember, Understand, Apply, Analyze, Evaluate, Create.
- Judge the cognitive demand of the question, not its topic.
- Report the main cognitive verb of the question in lowercase.
- Provide a confidence score (0.0–1.0) for the chosen level.
- Do not rewrite the question.`

var classifyUserTemplate = template.Must(template.New("classify").Parse(`Question: {{.Text}}
{{if .Context}}
Syllabus excerpt:
{{.Context}}
{{end}}`))

func (c *LLMClassifier) buildMessage(in Input) (string, error) {
	if limit := c.cfg.MaxContextChars; limit > 0 {
		if r := []rune(in.Context); len(r) > limit {
			in.Context = string(r[:limit])
		}
	}
	var buf bytes.Buffer
	if err := classifyUserTemplate.Execute(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}
