package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloomsbot/internal/generate"
	"github.com/abhisek/bloomsbot/internal/syllabus"
	"github.com/abhisek/bloomsbot/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <questions.txt|->",
	Short: "Check a numbered question list against the validation rules",
	Long: `validate reads questions in the "Q1. <question>" format and reports which
ones pass the configured validation rules. With --syllabus, terms from the
syllabus count as allowed vocabulary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		text, err := readInput(args[0])
		if err != nil {
			return fmt.Errorf("read questions: %w", err)
		}
		candidates := generate.ParseNumbered(text)
		if len(candidates) == 0 {
			return fmt.Errorf("no numbered questions found in %s", args[0])
		}

		v, err := validate.New(cfg.Rules())
		if err != nil {
			return err
		}
		if path, _ := cmd.Flags().GetString("syllabus"); path != "" {
			raw, err := readSyllabus(path)
			if err != nil {
				return err
			}
			v = v.WithVocabulary(validate.BuildKeywordSet(syllabus.Clean(raw), cfg.Validation.StopWords, cfg.Validation.KeywordLimit))
		}

		fmt.Printf("%-4s  %-8s  %-30s  %s\n", "#", "Verdict", "Reason", "Question")
		fmt.Println(strings.Repeat("─", 100))

		var passed int
		for i, c := range candidates {
			verdict, reason := "ok", ""
			if rej := v.Check(c.Text); rej != nil {
				verdict, reason = "rejected", rej.Reason()
			} else {
				passed++
			}
			fmt.Printf("%-4d  %-8s  %-30s  %s\n", i+1, verdict, truncate(reason, 30), truncate(c.Text, 60))
		}

		fmt.Println(strings.Repeat("─", 100))
		fmt.Printf("%d of %d questions passed\n", passed, len(candidates))
		return nil
	},
}

func init() {
	validateCmd.Flags().String("syllabus", "", "Syllabus file (PDF or text) whose terms are allowed vocabulary")
}
