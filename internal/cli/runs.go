package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codesum/internal/analyzer"
	"github.com/mvp-joe/codesum/internal/config"
	"github.com/mvp-joe/codesum/internal/storage"
)

var (
	runsDBPath  string
	runsKeep    int
	runsKind    string
	runsFindRun string
)

var symbolKinds = []storage.SymbolKind{
	storage.KindFunction,
	storage.KindClass,
	storage.KindComment,
	storage.KindUsedDataset,
	storage.KindSavedDataset,
	storage.KindCommand,
}

// runsCmd groups the commands that read or trim stored summaries.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect summaries stored with --db",
	Long: `Runs lists, prints, searches and prunes the summaries that
"codesum summarize --db" stored in SQLite.

The database defaults to output.database from .codesum/config.yml.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunsDB(func(db *sql.DB) error {
			return listRuns(cmd.Context(), db, cmd.OutOrStdout())
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print a stored summary as JSON (default: latest run)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := ""
		if len(args) == 1 {
			runID = args[0]
		}
		return withRunsDB(func(db *sql.DB) error {
			return showRun(cmd.Context(), db, runID, cmd.OutOrStdout())
		})
	},
}

var runsFindCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Find files declaring a symbol in a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunsDB(func(db *sql.DB) error {
			return findSymbols(cmd.Context(), db, runsFindRun, storage.SymbolKind(runsKind), args[0], cmd.OutOrStdout())
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete one stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunsDB(func(db *sql.DB) error {
			return deleteRun(cmd.Context(), db, args[0], cmd.OutOrStdout())
		})
	},
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the newest runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunsDB(func(db *sql.DB) error {
			return pruneRuns(cmd.Context(), db, runsKeep, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.PersistentFlags().StringVar(&runsDBPath, "db", "", "SQLite database written by summarize --db (default: output.database)")

	runsFindCmd.Flags().StringVar(&runsKind, "kind", string(storage.KindFunction), "Symbol kind: function, class, comment, used_dataset, saved_dataset, command")
	runsFindCmd.Flags().StringVar(&runsFindRun, "run", "", "Run to search (default: latest run)")
	runsPruneCmd.Flags().IntVar(&runsKeep, "keep", 10, "Number of newest runs to keep")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsFindCmd, runsDeleteCmd, runsPruneCmd)
}

// withRunsDB opens the runs database named by --db or the project config.
func withRunsDB(fn func(db *sql.DB) error) error {
	dbPath := runsDBPath
	if dbPath == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		dbPath = cfg.Output.Database
	}
	if dbPath == "" {
		return fmt.Errorf("no database configured: pass --db or set output.database")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("failed to access database %s: %w", dbPath, err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open summary database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func listRuns(ctx context.Context, db *sql.DB, out io.Writer) error {
	runs, err := storage.NewSummaryReader(db).ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(out, "%s  %s  %s files  %s directories  %s\n",
			run.ID, run.GeneratedAt, formatNumber(run.TotalFiles),
			formatNumber(run.TotalDirectories), run.RootDir)
	}
	return nil
}

// showRun prints the stored summary exactly as summarize would have written it.
func showRun(ctx context.Context, db *sql.DB, runID string, out io.Writer) error {
	reader := storage.NewSummaryReader(db)
	runID, err := resolveRunID(ctx, reader, runID)
	if err != nil {
		return err
	}

	summary, err := reader.LoadSummary(ctx, runID)
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	data, err := analyzer.MarshalSummary(summary)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func findSymbols(ctx context.Context, db *sql.DB, runID string, kind storage.SymbolKind, name string, out io.Writer) error {
	if !validSymbolKind(kind) {
		return fmt.Errorf("unknown symbol kind %q", kind)
	}

	reader := storage.NewSummaryReader(db)
	runID, err := resolveRunID(ctx, reader, runID)
	if err != nil {
		return err
	}

	matches, err := reader.FindSymbols(ctx, runID, kind, name)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintf(out, "No %s named %q\n", kind, name)
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%s\t%s #%d\n", m.FilePath, m.Kind, m.Ordinal)
	}
	return nil
}

func deleteRun(ctx context.Context, db *sql.DB, runID string, out io.Writer) error {
	run, err := storage.NewSummaryReader(db).GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	if err := storage.NewSummaryWriter(db).DeleteRun(ctx, runID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted run %s\n", runID)
	return nil
}

func pruneRuns(ctx context.Context, db *sql.DB, keep int, out io.Writer) error {
	if keep < 0 {
		return fmt.Errorf("--keep must be >= 0, got %d", keep)
	}

	removed, err := storage.NewSummaryWriter(db).PruneRuns(ctx, keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Pruned %s runs\n", formatNumber(int(removed)))
	return nil
}

// resolveRunID returns runID, or the latest run when runID is empty.
func resolveRunID(ctx context.Context, reader *storage.SummaryReader, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	latest, err := reader.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", fmt.Errorf("no stored runs")
	}
	return latest.ID, nil
}

func validSymbolKind(kind storage.SymbolKind) bool {
	for _, k := range symbolKinds {
		if k == kind {
			return true
		}
	}
	return false
}
