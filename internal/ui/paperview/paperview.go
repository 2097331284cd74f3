// Package paperview renders exported papers and run reports for the
// terminal.
package paperview

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/pipeline"
	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/abhisek/bloomsbot/internal/ui/theme"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

const minWidth = 40

// Render draws a paper: numbered questions with marks and levels, then the
// distribution. Infeasible papers show their shortfalls instead.
func Render(p paper.ExportedPaper, width int) string {
	width = max(width, minWidth)
	var b strings.Builder

	b.WriteString(theme.Title.Width(width).Render("Question Paper"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render(marksLine(p)))
	b.WriteString("\n\n")

	if p.Outcome != paper.Feasible {
		b.WriteString(renderShortfalls(p.Shortfalls, width))
		b.WriteString("\n")
		return b.String()
	}

	textWidth := width - 6
	for i, q := range p.Questions {
		num := theme.Heading.Render(fmt.Sprintf("Q%d.", i+1))
		text := theme.Body.Width(textWidth - 4).Render(q.Text)
		b.WriteString(num + " " + strings.ReplaceAll(text, "\n", "\n    "))
		b.WriteString("\n")

		tag := lipgloss.NewStyle().Foreground(theme.LevelColor(q.BloomLevel)).
			Render(fmt.Sprintf("[%d marks · %s · %s]", q.Marks, q.BloomLevel, q.Type))
		b.WriteString("    " + tag)
		b.WriteString("\n\n")
	}

	b.WriteString(divider(width))
	b.WriteString("\n")
	b.WriteString(renderCounts(p))
	return b.String()
}

func marksLine(p paper.ExportedPaper) string {
	line := fmt.Sprintf("Total %d marks (target %d", p.TotalMarks, p.TargetMarks)
	if p.Tolerance > 0 {
		line += fmt.Sprintf(" ± %d", p.Tolerance)
	}
	return line + ")"
}

func divider(width int) string {
	return lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", min(width, 60)))
}

func renderCounts(p paper.ExportedPaper) string {
	var b strings.Builder
	b.WriteString(theme.Heading.Render("Bloom levels"))
	b.WriteString("\n")
	for _, l := range bloom.Levels() {
		n := p.BloomCounts[l]
		if n == 0 {
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(theme.LevelColor(l)).
			Render(fmt.Sprintf("  %-11s %d", l, n)))
		b.WriteString("\n")
	}
	if len(p.TypeCounts) > 0 {
		b.WriteString(theme.Heading.Render("Question types"))
		b.WriteString("\n")
		for _, t := range question.Types() {
			if n := p.TypeCounts[t]; n > 0 {
				b.WriteString(theme.Body.Render(fmt.Sprintf("  %-13s %d", t, n)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func renderShortfalls(sfs []paper.Shortfall, width int) string {
	lines := []string{theme.Bad.Render("No paper satisfies the target.")}
	for _, s := range sfs {
		lines = append(lines, "  "+s.String())
	}
	return theme.Warning.Width(min(width, 72)).Render(strings.Join(lines, "\n"))
}

// RenderReport draws the per-run diagnostic.
func RenderReport(r *pipeline.Report, width int) string {
	if r == nil {
		return ""
	}
	width = max(width, minWidth)

	rows := [][2]string{
		{"Run", r.RunID},
		{"Syllabus", fmt.Sprintf("%d words, %d chars", r.RawTextWords, r.RawTextChars)},
		{"Chunks", fmt.Sprintf("%d %v", r.ChunksCreated, r.ChunkWordCounts)},
		{"Keywords", fmt.Sprint(r.KeywordCount)},
		{"Generated", fmt.Sprintf("%d (%d chunk errors)", r.RawQuestionsGenerated, r.GenerationErrors)},
		{"Accepted", fmt.Sprint(r.Accepted)},
		{"Rejected", fmt.Sprint(r.Rejected)},
		{"Classified", fmt.Sprintf("%d (%d failed)", r.Classified, r.ClassificationFailed)},
		{"Bank", fmt.Sprintf("%d  %s  %s", r.BankSizeTotal, levelCounts(r.BankSizeByBloom), markCounts(r.BankSizeByMarks))},
		{"Marks", fmt.Sprintf("%d of %d", r.RealizedMarks, r.TargetMarks)},
		{"Search", fmt.Sprintf("%d states, fast path %v", r.SwapsExplored, r.FastPath)},
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(theme.Heading.Render(fmt.Sprintf("%-11s", row[0])))
		b.WriteString(theme.Body.Render(row[1]))
		b.WriteString("\n")
	}
	if top := r.TopRejections(); len(top) > 0 {
		b.WriteString(theme.Heading.Render("Top rejections"))
		b.WriteString("\n")
		for _, rc := range top {
			b.WriteString(theme.Body.Render(fmt.Sprintf("  %s=%d", rc.Rule, rc.Count)))
			b.WriteString("\n")
			for _, ex := range r.RejectionExamples[rc.Rule] {
				b.WriteString(theme.Hint.Render("    " + ex))
				b.WriteString("\n")
			}
		}
	}
	return theme.Card.Width(min(width, 100)).Render(strings.TrimRight(b.String(), "\n"))
}

func levelCounts(m map[bloom.Level]int) string {
	var parts []string
	for _, l := range bloom.Levels() {
		if n := m[l]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", l, n))
		}
	}
	return strings.Join(parts, " ")
}

func markCounts(m map[int]int) string {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%dm:%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
