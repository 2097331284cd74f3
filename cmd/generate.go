package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloomsbot/internal/app"
	"github.com/abhisek/bloomsbot/internal/config"
	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/pipeline"
	"github.com/abhisek/bloomsbot/internal/syllabus"
	"github.com/abhisek/bloomsbot/internal/ui/paperview"
)

var generateCmd = &cobra.Command{
	Use:   "generate <syllabus.pdf|syllabus.txt|->",
	Short: "Generate an exam paper from a syllabus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		debug, _ := cmd.Flags().GetBool("debug")
		targetPath, _ := cmd.Flags().GetString("target")

		text, err := readSyllabus(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		in := pipeline.Input{Syllabus: text, Source: args[0]}
		if targetPath != "" {
			raw, err := os.ReadFile(targetPath)
			if err != nil {
				return fmt.Errorf("read target: %w", err)
			}
			spec, err := config.ParseTarget(raw, a.Pipeline.DefaultSpec())
			if err != nil {
				return err
			}
			in.Spec = &spec
		}

		out, runErr := a.Pipeline.Run(cmd.Context(), in)
		if out == nil {
			return runErr
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			payload := map[string]any{"run_id": out.RunID}
			if out.Result != nil {
				payload["paper"] = out.Paper
			}
			if debug {
				payload["debug"] = out.Report
			}
			if err := enc.Encode(payload); err != nil {
				return err
			}
			return runErr
		}

		if out.Result != nil {
			fmt.Println(paperview.Render(out.Paper, paperview.DefaultWidth))
		}
		if debug || (runErr != nil && !isInfeasible(runErr)) {
			fmt.Println(paperview.RenderReport(out.Report, paperview.DefaultWidth))
		}
		fmt.Printf("Run ID: %s\n", out.RunID)
		return runErr
	},
}

// readSyllabus extracts text from a PDF, or reads a text file or stdin.
func readSyllabus(path string) (string, error) {
	if isPDF(path) {
		text, err := syllabus.ExtractPDFFile(path)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", path, err)
		}
		return text, nil
	}
	text, err := readInput(path)
	if err != nil {
		return "", fmt.Errorf("read syllabus: %w", err)
	}
	return text, nil
}

func isInfeasible(err error) bool {
	var ie *paper.InfeasibleError
	return errors.As(err, &ie)
}

func init() {
	generateCmd.Flags().Bool("json", false, "Print the exported paper as JSON")
	generateCmd.Flags().Bool("debug", false, "Include the per-stage debug report")
	generateCmd.Flags().String("target", "", "JSON file overriding the paper target (total_marks, tolerance, bloom_quota, type_quota)")
}
