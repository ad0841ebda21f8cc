package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codesum/internal/analyzer"
	"github.com/mvp-joe/codesum/internal/config"
	"github.com/mvp-joe/codesum/internal/storage"
)

// summarizeOptions are the command-line overrides for one invocation.
// Zero values leave the configured setting alone.
type summarizeOptions struct {
	outputDir string
	dbPath    string
	workers   int
	watch     bool
	quiet     bool
	verbose   bool
}

var summarizeFlags summarizeOptions

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize [directory]",
	Short: "Write a JSON summary of a codebase",
	Long: `Summarize walks a directory (default: the current one) and writes
codebase_summary.json describing every file that survives the ignore rules.

Ignore rules come from .codebaseignore and .gitignore in the directory. When
the directory has no .codebaseignore, the configured fallback directory (or the
bundled default) supplies one.

Examples:
  # Summarize the current directory into ./codebase_summary.json
  codesum summarize

  # Summarize another project, writing the output elsewhere
  codesum summarize ../service --output-dir /tmp/summaries

  # Also store every run in SQLite
  codesum summarize --db .codesum/summaries.db

  # Regenerate the summary whenever files change
  codesum summarize --watch
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVarP(&summarizeFlags.outputDir, "output-dir", "o", "", "Directory for codebase_summary.json (default: working directory)")
	summarizeCmd.Flags().StringVar(&summarizeFlags.dbPath, "db", "", "Also store the summary in this SQLite database")
	summarizeCmd.Flags().IntVarP(&summarizeFlags.workers, "workers", "j", 0, "Files to read and extract concurrently (default from config: 1)")
	summarizeCmd.Flags().BoolVarP(&summarizeFlags.watch, "watch", "w", false, "Watch for file changes and regenerate the summary")
	summarizeCmd.Flags().BoolVarP(&summarizeFlags.quiet, "quiet", "q", false, "Disable progress bars and non-error output")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted! Stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	baseDir := "."
	if len(args) == 1 {
		baseDir = args[0]
	}

	opts := summarizeFlags
	opts.verbose = verbose
	return summarize(ctx, baseDir, opts, cmd.OutOrStdout())
}

// summarize runs one summary (or a watch loop) for baseDir.
func summarize(ctx context.Context, baseDir string, opts summarizeOptions, out io.Writer) error {
	rootDir, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", baseDir, err)
	}
	info, err := os.Stat(rootDir)
	if err != nil {
		return fmt.Errorf("failed to access %s: %w", baseDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", baseDir)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	// Load configuration from .codesum/config.yml
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return err
	}

	writer, err := analyzer.NewSummaryWriter(cfg.OutputDir(workDir), cfg.Output.File)
	if err != nil {
		return err
	}

	var store *storage.SummaryWriter
	if cfg.Output.Database != "" {
		dbPath := cfg.Output.Database
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(workDir, dbPath)
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open summary database: %w", err)
		}
		defer db.Close()
		store = storage.NewSummaryWriter(db)
	}

	var progress analyzer.ProgressReporter = &analyzer.NoOpProgressReporter{}
	if !opts.quiet {
		progress = NewCLIProgressReporter(out)
	}

	a, err := analyzer.New(cfg.ToAnalyzerConfig(rootDir), progress)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	emit := func(result *analyzer.Result) error {
		if err := writer.Write(result.Summary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		if store != nil {
			runID, err := store.WriteSummary(ctx, rootDir, result.Summary)
			if err != nil {
				return fmt.Errorf("failed to store summary: %w", err)
			}
			if !opts.quiet {
				fmt.Fprintf(out, "Stored run %s\n", runID)
			}
		}
		if opts.verbose && !opts.quiet {
			for _, src := range result.IgnoreFiles {
				fmt.Fprintf(out, "  ignore rules: %s\n", src)
			}
			for _, doc := range result.DocFiles {
				fmt.Fprintf(out, "  doc file:     %s\n", doc)
			}
		}
		if !opts.quiet {
			fmt.Fprintf(out, "Summary written to: %s\n", writer.Path())
		}
		return nil
	}

	result, err := a.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("summarize cancelled")
		}
		return fmt.Errorf("summarize failed: %w", err)
	}
	if err := emit(result); err != nil {
		return err
	}

	if !opts.watch {
		return nil
	}

	w, err := analyzer.NewWatcher(a, cfg.Debounce(), func(result *analyzer.Result, err error) {
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Warning: failed to regenerate summary: %v", err)
			}
			return
		}
		if err := emit(result); err != nil {
			log.Printf("Warning: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	// Our own output must not retrigger the watcher.
	w.Skip(writer.Path(), writer.Path()+".lock")

	if !opts.quiet {
		log.Printf("Watching %s for changes (Ctrl+C to stop)...", rootDir)
	}
	w.Start(ctx)

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	w.Stop()

	if !opts.quiet {
		log.Println("Watch mode stopped")
	}
	return nil
}

// applyOverrides layers command-line flags on top of the loaded config.
func applyOverrides(cfg *config.Config, opts summarizeOptions) error {
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}
	if opts.dbPath != "" {
		cfg.Output.Database = opts.dbPath
	}
	if opts.workers != 0 {
		cfg.Processing.Workers = opts.workers
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}
