package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/codesum/internal/analyzer"
)

// SummaryReader reads stored runs back out of SQLite.
type SummaryReader struct {
	db *sql.DB
}

// NewSummaryReader creates a SummaryReader instance.
// DB should have schema already created.
func NewSummaryReader(db *sql.DB) *SummaryReader {
	return &SummaryReader{db: db}
}

// GetRun retrieves a single run.
// Returns (nil, nil) if run not found.
func (r *SummaryReader) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := runColumns().
		Where(sq.Eq{"run_id": runID}).
		RunWith(r.db).
		QueryRowContext(ctx)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns every run, newest first.
func (r *SummaryReader) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := runColumns().
		OrderBy("created_at DESC", "rowid DESC").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recently stored run, or nil when there is none.
func (r *SummaryReader) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := r.ListRuns(ctx)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// LoadSummary rebuilds the summary document stored as runID.
// Returns (nil, nil) if run not found.
func (r *SummaryReader) LoadSummary(ctx context.Context, runID string) (*analyzer.Summary, error) {
	run, err := r.GetRun(ctx, runID)
	if err != nil || run == nil {
		return nil, err
	}

	summary := &analyzer.Summary{
		Files:       []analyzer.FileEntry{},
		Directories: []string{},
		Meta: analyzer.Meta{
			TotalFiles:       run.TotalFiles,
			TotalDirectories: run.TotalDirectories,
			FileTypes:        map[string]int{},
			GeneratedAt:      run.GeneratedAt,
		},
	}

	if summary.Directories, err = r.loadDirectories(ctx, runID); err != nil {
		return nil, err
	}
	if summary.Meta.FileTypes, err = r.loadFileTypes(ctx, runID); err != nil {
		return nil, err
	}
	if summary.Files, err = r.loadFiles(ctx, runID); err != nil {
		return nil, err
	}

	return summary, nil
}

// FindSymbols returns every symbol of kind named value in runID, in file order.
func (r *SummaryReader) FindSymbols(ctx context.Context, runID string, kind SymbolKind, value string) ([]SymbolMatch, error) {
	rows, err := sq.Select("f.file_path", "s.kind", "s.ordinal", "s.value").
		From("symbols s").
		Join("files f ON f.file_id = s.file_id").
		Where(sq.Eq{"f.run_id": runID, "s.kind": string(kind), "s.value": value}).
		OrderBy("f.ordinal", "s.ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var matches []SymbolMatch
	for rows.Next() {
		var m SymbolMatch
		var k string
		if err := rows.Scan(&m.FilePath, &k, &m.Ordinal, &m.Value); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		m.Kind = SymbolKind(k)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *SummaryReader) loadDirectories(ctx context.Context, runID string) ([]string, error) {
	rows, err := sq.Select("dir_path").
		From("directories").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query directories: %w", err)
	}
	defer rows.Close()

	dirs := []string{}
	for rows.Next() {
		var dir string
		if err := rows.Scan(&dir); err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		dirs = append(dirs, dir)
	}
	return dirs, rows.Err()
}

func (r *SummaryReader) loadFileTypes(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := sq.Select("ext", "file_count").
		From("file_types").
		Where(sq.Eq{"run_id": runID}).
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query file types: %w", err)
	}
	defer rows.Close()

	types := map[string]int{}
	for rows.Next() {
		var ext string
		var count int
		if err := rows.Scan(&ext, &count); err != nil {
			return nil, fmt.Errorf("failed to scan file type: %w", err)
		}
		types[ext] = count
	}
	return types, rows.Err()
}

func (r *SummaryReader) loadFiles(ctx context.Context, runID string) ([]analyzer.FileEntry, error) {
	rows, err := sq.Select("file_id", "file_path", "is_stata", "content").
		From("files").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}

	var ids []int64
	files := []analyzer.FileEntry{}
	for rows.Next() {
		var id int64
		var isStata bool
		entry := analyzer.FileEntry{
			Functions: []string{},
			Classes:   []string{},
			Comments:  []string{},
		}
		if err := rows.Scan(&id, &entry.File, &isStata, &entry.Content); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		if isStata {
			entry.StataFields = &analyzer.StataFields{
				UsedDatasets:  []string{},
				SavedDatasets: []string{},
				Commands:      []string{},
			}
		}
		ids = append(ids, id)
		files = append(files, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}
	rows.Close()

	for i, id := range ids {
		if err := r.loadSymbols(ctx, id, &files[i]); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (r *SummaryReader) loadSymbols(ctx context.Context, fileID int64, entry *analyzer.FileEntry) error {
	rows, err := sq.Select("kind", "value").
		From("symbols").
		Where(sq.Eq{"file_id": fileID}).
		OrderBy("kind", "ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query symbols for %s: %w", entry.File, err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return fmt.Errorf("failed to scan symbol: %w", err)
		}

		switch SymbolKind(kind) {
		case KindFunction:
			entry.Functions = append(entry.Functions, value)
		case KindClass:
			entry.Classes = append(entry.Classes, value)
		case KindComment:
			entry.Comments = append(entry.Comments, value)
		}
		if entry.StataFields == nil {
			continue
		}
		switch SymbolKind(kind) {
		case KindUsedDataset:
			entry.UsedDatasets = append(entry.UsedDatasets, value)
		case KindSavedDataset:
			entry.SavedDatasets = append(entry.SavedDatasets, value)
		case KindCommand:
			entry.Commands = append(entry.Commands, value)
		}
	}
	return rows.Err()
}

func runColumns() sq.SelectBuilder {
	return sq.Select("run_id", "root_dir", "generated_at", "total_files", "total_directories", "created_at").
		From("runs")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var createdAt string
	if err := row.Scan(&run.ID, &run.RootDir, &run.GeneratedAt, &run.TotalFiles, &run.TotalDirectories, &createdAt); err != nil {
		return nil, err
	}
	run.CreatedAt, _ = time.Parse(timestampFormat, createdAt)
	return run, nil
}
