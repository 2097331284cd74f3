package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloomsbot/internal/app"
	"github.com/abhisek/bloomsbot/internal/classify"
	"github.com/abhisek/bloomsbot/internal/generate"
	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/abhisek/bloomsbot/internal/syllabus"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <questions.txt|->",
	Short: "Classify a numbered question list into Bloom levels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		heuristic, _ := cmd.Flags().GetBool("heuristic")

		text, err := readInput(args[0])
		if err != nil {
			return fmt.Errorf("read questions: %w", err)
		}
		candidates := generate.ParseNumbered(text)
		if len(candidates) == 0 {
			return fmt.Errorf("no numbered questions found in %s", args[0])
		}

		var excerpt string
		if path, _ := cmd.Flags().GetString("syllabus"); path != "" {
			raw, err := readSyllabus(path)
			if err != nil {
				return err
			}
			excerpt = syllabus.Clean(raw)
		}

		a, err := newApp(cmd, app.Options{NoLLM: heuristic})
		if err != nil {
			return err
		}
		defer closeApp(a)

		classifier := a.Classifier
		if heuristic {
			classifier = &classify.HeuristicClassifier{}
		}

		pool := question.NewPool()
		qs, err := pool.AddChunk(0, candidates)
		if err != nil {
			return err
		}
		for _, q := range qs {
			if err := q.MarkValidated(); err != nil {
				return err
			}
		}

		adapter := classify.NewAdapter(classifier, a.Config.Classifier.AdapterConfig, a.Logger)
		outcome, err := adapter.ClassifyAll(cmd.Context(), qs, excerpt)
		if err != nil {
			return err
		}
		failed := make(map[string]classify.QuestionFailure, len(outcome.Failures))
		for _, f := range outcome.Failures {
			failed[f.QuestionID] = f
		}

		fmt.Printf("%-4s  %-10s  %-12s  %s\n", "#", "Level", "Verb", "Question")
		fmt.Println(strings.Repeat("─", 100))
		for i, q := range qs {
			level, verb := "-", "-"
			if f, ok := failed[q.ID]; ok {
				verb = string(f.Kind())
			} else if l, ok := q.Level(); ok {
				level, verb = l.String(), q.Verb()
			}
			fmt.Printf("%-4d  %-10s  %-12s  %s\n", i+1, level, truncate(verb, 12), truncate(q.Text, 66))
		}
		fmt.Println(strings.Repeat("─", 100))
		fmt.Printf("%d classified, %d failed (%s)\n", len(outcome.Classified), len(outcome.Failures), classifier.Name())
		return nil
	},
}

func init() {
	classifyCmd.Flags().Bool("heuristic", false, "Use the leading-verb heuristic instead of the LLM")
	classifyCmd.Flags().String("syllabus", "", "Syllabus file (PDF or text) passed to the classifier as context")
}
