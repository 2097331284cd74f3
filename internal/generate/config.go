package generate

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// QuestionsPerChunk is how many questions are requested per chunk.
	QuestionsPerChunk int `mapstructure:"questions_per_chunk"`

	// MaxTokens is the token budget for the LLM response.
	MaxTokens int `mapstructure:"max_tokens"`

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64 `mapstructure:"temperature"`

	// MaxPriorQuestions is the maximum number of earlier questions
	// to include in the prompt for deduplication.
	MaxPriorQuestions int `mapstructure:"max_prior_questions"`
}

// DefaultConfig returns recommended defaults.
func DefaultConfig() Config {
	return Config{
		QuestionsPerChunk: 12,
		MaxTokens:         2048,
		Temperature:       0.3,
		MaxPriorQuestions: 24,
	}
}
