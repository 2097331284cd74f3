package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/store"
	"github.com/abhisek/bloomsbot/internal/ui/paperview"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Browse stored papers",
}

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		recs, err := s.PaperRepo().List(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list papers: %w", err)
		}
		if len(recs) == 0 {
			fmt.Println("No papers stored yet.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-10s  %6s  %6s  %4s  %s\n",
			"Run ID", "Created", "Outcome", "Marks", "Target", "Qs", "Source")
		fmt.Println(strings.Repeat("─", 110))
		for _, r := range recs {
			fmt.Printf("%-36s  %-19s  %-10s  %6d  %6d  %4d  %s\n",
				r.RunID,
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.Outcome,
				r.TotalMarks,
				r.TargetMarks,
				r.QuestionCount,
				truncate(r.Source, 20),
			)
		}
		return nil
	},
}

var papersShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		rec, err := s.PaperRepo().Get(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("paper %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("get paper: %w", err)
		}

		if asJSON {
			_, err := os.Stdout.Write(append(rec.Body, '\n'))
			return err
		}
		var p paper.ExportedPaper
		if err := json.Unmarshal(rec.Body, &p); err != nil {
			return fmt.Errorf("decode paper: %w", err)
		}
		fmt.Println(paperview.Render(p, paperview.DefaultWidth))
		fmt.Printf("Run ID: %s  Source: %s  Created: %s\n",
			rec.RunID, rec.Source, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	papersListCmd.Flags().IntP("limit", "n", 20, "Number of papers to show")
	papersShowCmd.Flags().Bool("json", false, "Print the stored JSON")

	papersCmd.AddCommand(papersListCmd)
	papersCmd.AddCommand(papersShowCmd)
}
