package syllabus

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestSplit(t *testing.T) {
	cfg := DefaultChunkConfig()

	assert.Nil(t, Split("   \n ", cfg))

	single := Split("  Operating systems:\n processes   and threads ", cfg)
	require.Len(t, single, 1)
	assert.Equal(t, "Operating systems: processes and threads", single[0].Text)
	assert.Equal(t, 5, single[0].Words)

	chunks := Split(words(2000), cfg)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{800, 800, 600}, []int{chunks[0].Words, chunks[1].Words, chunks[2].Words})
	assert.True(t, strings.HasPrefix(chunks[1].Text, "w700 "), "chunks overlap by 100 words")
	assert.True(t, strings.HasPrefix(chunks[2].Text, "w1400 "))
	for i, c := range chunks {
		assert.Equal(t, i, c.ID)
	}
}

func TestSplit_MergesShortTail(t *testing.T) {
	chunks := Split(words(1700), DefaultChunkConfig())
	require.Len(t, chunks, 2)
	assert.Equal(t, 800, chunks[0].Words)
	assert.Equal(t, 1000, chunks[1].Words)
	assert.True(t, strings.HasSuffix(chunks[1].Text, " w1699"))
	assert.Equal(t, 1, strings.Count(chunks[1].Text, "w1400 "), "merged tail must not repeat the overlap")
}

func TestSplit_ZeroOverlap(t *testing.T) {
	chunks := Split(words(25), ChunkConfig{MinWords: 5, MaxWords: 10})
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{10, 10, 5}, []int{chunks[0].Words, chunks[1].Words, chunks[2].Words})
}

func TestChunkConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultChunkConfig().Validate())
	assert.Error(t, ChunkConfig{MaxWords: 0}.Validate())
	assert.Error(t, ChunkConfig{MinWords: 900, MaxWords: 800}.Validate())
	assert.Error(t, ChunkConfig{MinWords: 10, MaxWords: 100, OverlapWords: 100}.Validate())
}

func TestClean(t *testing.T) {
	in := "  Unit 1: Data Structures  \n\n\t\n Arrays, linked lists \r\n  Stacks\n"
	assert.Equal(t, "Unit 1: Data Structures\nArrays, linked lists\nStacks", Clean(in))
	assert.Equal(t, "", Clean(" \n \n"))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 4, WordCount(" a b\nc\td "))
	assert.Equal(t, 0, WordCount(""))
}

func TestExtractPDF_RejectsGarbage(t *testing.T) {
	_, err := ExtractPDFBytes([]byte("this is not a pdf document"))
	assert.Error(t, err)

	_, err = ExtractPDFBytes(nil)
	assert.Error(t, err)
}

func TestExtractPDFFile_Missing(t *testing.T) {
	_, err := ExtractPDFFile(t.TempDir() + "/missing.pdf")
	assert.Error(t, err)
}
