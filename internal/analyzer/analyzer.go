package analyzer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/codesum/internal/analyzer/extract"
)

// Config holds everything a run needs.
type Config struct {
	RootDir      string
	Extensions   []string
	DocsPatterns []string

	ProjectIgnoreFile string
	VCSIgnoreFile     string
	// IgnoreFallbackDir is searched for ProjectIgnoreFile when the project has
	// none. Empty means use the bundled default.
	IgnoreFallbackDir string

	// Workers > 1 reads and extracts files concurrently. Output order is
	// unaffected.
	Workers int
}

// Result is everything produced by one run.
type Result struct {
	Summary     *Summary
	Diagnostics []Diagnostic
	DocFiles    []string
	IgnoreFiles []string
	Stats       *ProcessingStats
}

// Analyzer runs the discovery → read → extract → aggregate pipeline.
type Analyzer struct {
	config     *Config
	dispatcher *extract.Dispatcher
	progress   ProgressReporter
	now        func() time.Time
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithClock replaces time.Now for the generated_at timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithDispatcher replaces the default extractor dispatch.
func WithDispatcher(d *extract.Dispatcher) Option {
	return func(a *Analyzer) { a.dispatcher = d }
}

// New creates an analyzer. A nil progress reporter is replaced by a no-op one.
func New(config *Config, progress ProgressReporter, opts ...Option) (*Analyzer, error) {
	if config == nil || config.RootDir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	cfg := *config
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if cfg.ProjectIgnoreFile == "" {
		cfg.ProjectIgnoreFile = DefaultProjectIgnoreFile
	}
	if cfg.VCSIgnoreFile == "" {
		cfg.VCSIgnoreFile = DefaultVCSIgnoreFile
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	abs, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", cfg.RootDir, err)
	}
	cfg.RootDir = abs

	a := &Analyzer{
		config:   &cfg,
		progress: progress,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.dispatcher == nil {
		a.dispatcher = extract.NewDispatcher(extract.NewContentReader())
	}

	return a, nil
}

// RootDir returns the absolute project root.
func (a *Analyzer) RootDir() string {
	return a.config.RootDir
}

// LoadRules reads the ignore files for the project root.
func (a *Analyzer) LoadRules() (*RuleSet, []string) {
	loader := &IgnoreLoader{
		ProjectFile: a.config.ProjectIgnoreFile,
		VCSFile:     a.config.VCSIgnoreFile,
		FallbackDir: a.config.IgnoreFallbackDir,
	}
	return loader.Load(a.config.RootDir)
}

// NewDiscovery builds a FileDiscovery for the project root with rules.
func (a *Analyzer) NewDiscovery(rules *RuleSet) (*FileDiscovery, error) {
	return NewFileDiscovery(a.config.RootDir, rules, a.config.Extensions, a.config.DocsPatterns)
}

// Run summarizes the project. Per-file failures are recovered and reported
// in Result.Diagnostics; only discovery failures and cancellation abort.
func (a *Analyzer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	rules, sources := a.LoadRules()
	discovery, err := a.NewDiscovery(rules)
	if err != nil {
		return nil, err
	}

	a.progress.OnDiscoveryStart()
	files, err := discovery.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	directories, err := discovery.ListDirectories()
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}

	docFiles := []string{}
	for _, f := range files {
		if discovery.IsDocFile(f.Path) {
			docFiles = append(docFiles, a.relPath(f.Path))
		}
	}
	a.progress.OnDiscoveryComplete(len(files), len(directories), len(docFiles))

	outcomes, err := a.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	records := make([]*extract.Record, len(outcomes))
	var diagnostics []Diagnostic
	degraded := 0
	for i, out := range outcomes {
		records[i] = out.Record
		if out.Degraded() {
			degraded++
		}
		for _, d := range out.Diagnostics {
			diag := Diagnostic{File: a.relPath(files[i].Path), Stage: d.Stage, Err: d.Err}
			log.Printf("Warning: %s failed for %s, entry degraded: %v", diag.Stage, diag.File, diag.Err)
			a.progress.OnDiagnostic(diag)
			diagnostics = append(diagnostics, diag)
		}
	}

	summary := NewAggregator(a.config.RootDir, a.now).Aggregate(files, directories, records)

	stats := &ProcessingStats{
		FilesProcessed: summary.Meta.TotalFiles,
		Directories:    summary.Meta.TotalDirectories,
		DocFiles:       len(docFiles),
		DegradedFiles:  degraded,
		ProcessingTime: time.Since(start),
	}
	a.progress.OnComplete(stats)

	return &Result{
		Summary:     summary,
		Diagnostics: diagnostics,
		DocFiles:    docFiles,
		IgnoreFiles: sources,
		Stats:       stats,
	}, nil
}

// extractAll reads and extracts every file. With more than one worker the
// files are processed concurrently; outcomes[i] always belongs to files[i].
func (a *Analyzer) extractAll(ctx context.Context, files []DiscoveredFile) ([]extract.Outcome, error) {
	outcomes := make([]extract.Outcome, len(files))
	a.progress.OnFileProcessingStart(len(files))

	if a.config.Workers == 1 {
		for i, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = a.dispatcher.Extract(ctx, f.Ext, f.Path)
			a.progress.OnFileProcessed(a.relPath(f.Path))
		}
		return outcomes, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)

	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = a.dispatcher.Extract(gctx, f.Ext, f.Path)

			mu.Lock()
			a.progress.OnFileProcessed(a.relPath(f.Path))
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (a *Analyzer) relPath(path string) string {
	rel, err := filepath.Rel(a.config.RootDir, path)
	if err != nil {
		return path
	}
	return rel
}
