package syllabus

import (
	"fmt"
	"strings"
)

// ChunkConfig sizes the word windows handed to the question generator.
type ChunkConfig struct {
	MinWords     int `mapstructure:"min_words"`
	MaxWords     int `mapstructure:"max_words"`
	OverlapWords int `mapstructure:"overlap_words"`
}

// DefaultChunkConfig returns 500–800 word chunks with a 100 word overlap.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{MinWords: 500, MaxWords: 800, OverlapWords: 100}
}

func (c ChunkConfig) Validate() error {
	if c.MaxWords < 1 {
		return fmt.Errorf("chunking: max_words must be positive, got %d", c.MaxWords)
	}
	if c.MinWords < 0 || c.MinWords > c.MaxWords {
		return fmt.Errorf("chunking: min_words must be between 0 and max_words, got %d", c.MinWords)
	}
	if c.OverlapWords < 0 || c.OverlapWords >= c.MaxWords {
		return fmt.Errorf("chunking: overlap_words must be below max_words, got %d", c.OverlapWords)
	}
	return nil
}

// Chunk is one window of syllabus text. ID is its position in the document.
type Chunk struct {
	ID    int
	Text  string
	Words int
}

// Split cuts text into overlapping windows of at most MaxWords words. A
// trailing window shorter than MinWords is merged into the previous one.
func Split(text string, cfg ChunkConfig) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= cfg.MaxWords {
		return []Chunk{newChunk(0, words)}
	}

	var spans [][2]int
	start := 0
	for start < len(words) {
		end := min(start+cfg.MaxWords, len(words))
		if end == len(words) && end-start < cfg.MinWords && len(spans) > 0 {
			spans[len(spans)-1][1] = end
			break
		}
		spans = append(spans, [2]int{start, end})
		if end == len(words) {
			break
		}
		next := end - cfg.OverlapWords
		if next <= start {
			next = end
		}
		start = next
	}

	chunks := make([]Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = newChunk(i, words[sp[0]:sp[1]])
	}
	return chunks
}

func newChunk(id int, words []string) Chunk {
	return Chunk{ID: id, Text: strings.Join(words, " "), Words: len(words)}
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
