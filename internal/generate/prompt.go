package generate

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a university Computer Science examiner setting internal and end-semester papers.

Rules:
- Write clear, exam-ready questions based strictly on the syllabus excerpt provided.
- Every question must test a concept named in the excerpt. Technical nouns must come from the excerpt or be standard terms directly related to it.
- Do not invent placeholder topics.
- Avoid vague filler words such as "zero", "unlike", "therefore", "something" and "any question".
- Use academic verbs such as define, explain, differentiate, write, implement, compare, design.
- Mix short-answer, long-answer and numerical questions where the material allows.
- End every question with a question mark.
- Do not include Bloom levels, difficulty, marks or explanations.
- Do not repeat any question from the "already asked" list.`

// buildUserMessage constructs the user message for one chunk.
func buildUserMessage(input Input, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Number of questions: %d\n", cfg.QuestionsPerChunk)

	b.WriteString("\nAlready asked:\n")
	b.WriteString(buildDedup(input.PriorQuestions, cfg.MaxPriorQuestions))

	b.WriteString("\n\nSyllabus excerpt:\n")
	b.WriteString(input.Chunk.Text)

	return b.String()
}

// buildDedup formats prior questions for the prompt, respecting the max limit.
// Returns "None" if there are no prior questions.
func buildDedup(priorQuestions []string, limit int) string {
	if len(priorQuestions) == 0 {
		return "None"
	}

	// Keep only the most recent N questions.
	if limit > 0 && len(priorQuestions) > limit {
		priorQuestions = priorQuestions[len(priorQuestions)-limit:]
	}

	var b strings.Builder
	for i, q := range priorQuestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}
