package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloomsbot/internal/app"
	"github.com/abhisek/bloomsbot/internal/config"
	"github.com/abhisek/bloomsbot/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "bloomsbot",
	Short: "Generate Bloom-balanced exam papers from a syllabus",
	Long: `bloomsbot turns a syllabus (PDF or text) into an exam paper. Questions are
generated by an LLM, filtered by validation rules, classified into Bloom's
taxonomy levels and assembled to a target of marks, levels and types.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ./bloomsbot.yaml or $XDG_CONFIG_HOME/bloomsbot/bloomsbot.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides store.path and BLOOMSBOT_DB)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(papersCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config and applies
// command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// newApp loads config and wires the application. The caller must Close it.
func newApp(cmd *cobra.Command, opts app.Options) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		opts.DBPath = p
	}
	return app.New(cmd.Context(), cfg, opts)
}

// openStore opens the database for read-only commands, using --db first,
// then store.path, then the default location.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		dbPath = cfg.Store.Path
	}
	var err error
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
	} else {
		err = store.EnsureDir(dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// readInput returns the contents of path, or stdin for "-".
func readInput(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func closeApp(a *app.App) {
	_ = a.Close(context.Background())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
