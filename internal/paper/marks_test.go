package paper

import (
	"testing"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkScheme_Apply(t *testing.T) {
	pool := question.NewPool()
	qs, err := pool.AddChunk(0, []question.Candidate{
		{Text: "a?"}, {Text: "b?", Marks: 7}, {Text: "c?"},
	})
	require.NoError(t, err)
	require.NoError(t, qs[0].MarkValidated())
	require.NoError(t, qs[0].Classify(bloom.Evaluate, "assess"))
	require.NoError(t, qs[1].MarkValidated())
	require.NoError(t, qs[1].Classify(bloom.Remember, "define"))

	require.NoError(t, DefaultMarkScheme().Apply(qs))
	assert.Equal(t, 10, qs[0].Marks)
	assert.Equal(t, 7, qs[1].Marks, "generator marks are kept")
	assert.Equal(t, 0, qs[2].Marks, "unclassified questions get no marks")
}

func TestMarkScheme_Validate(t *testing.T) {
	require.NoError(t, DefaultMarkScheme().Validate())

	m := DefaultMarkScheme()
	delete(m, bloom.Create)
	var ce *ConfigError
	require.ErrorAs(t, m.Validate(), &ce)
	assert.Equal(t, "marks.Create", ce.Field)
}
