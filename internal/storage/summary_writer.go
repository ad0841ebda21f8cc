package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/codesum/internal/analyzer"
)

// SummaryWriter stores summaries in SQLite, one run per call.
type SummaryWriter struct {
	db  *sql.DB
	now func() time.Time
}

// NewSummaryWriter creates a SummaryWriter instance.
// DB must have schema already created via CreateSchema().
func NewSummaryWriter(db *sql.DB) *SummaryWriter {
	return &SummaryWriter{db: db, now: time.Now}
}

// WriteSummary stores summary as a new run and returns its ID.
// Everything is written in a single transaction.
func (w *SummaryWriter) WriteSummary(ctx context.Context, rootDir string, summary *analyzer.Summary) (string, error) {
	runID := uuid.NewString()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("runs").
		Columns("run_id", "root_dir", "generated_at", "total_files", "total_directories", "created_at").
		Values(
			runID,
			rootDir,
			summary.Meta.GeneratedAt,
			summary.Meta.TotalFiles,
			summary.Meta.TotalDirectories,
			w.now().UTC().Format(timestampFormat),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	if err := writeDirectories(ctx, tx, runID, summary.Directories); err != nil {
		return "", err
	}
	if err := writeFileTypes(ctx, tx, runID, summary.Meta.FileTypes); err != nil {
		return "", err
	}
	if err := writeFiles(ctx, tx, runID, summary.Files); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run %s: %w", runID, err)
	}

	return runID, nil
}

// DeleteRun removes a run and, through cascades, everything it owns.
func (w *SummaryWriter) DeleteRun(ctx context.Context, runID string) error {
	_, err := sq.Delete("runs").
		Where(sq.Eq{"run_id": runID}).
		RunWith(w.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}

// PruneRuns keeps the newest keep runs and deletes the rest.
func (w *SummaryWriter) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	newest := sq.Select("run_id").
		From("runs").
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(keep))

	res, err := sq.Delete("runs").
		Where(sq.Expr("run_id NOT IN (?)", newest)).
		RunWith(w.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

func writeDirectories(ctx context.Context, tx *sql.Tx, runID string, dirs []string) error {
	if len(dirs) == 0 {
		return nil
	}

	sqlStr, _, err := sq.Insert("directories").
		Columns("run_id", "ordinal", "dir_path").
		Values("", 0, "").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, dir := range dirs {
		if _, err := stmt.ExecContext(ctx, runID, i, dir); err != nil {
			return fmt.Errorf("failed to insert directory %s: %w", dir, err)
		}
	}
	return nil
}

func writeFileTypes(ctx context.Context, tx *sql.Tx, runID string, types map[string]int) error {
	if len(types) == 0 {
		return nil
	}

	exts := make([]string, 0, len(types))
	for ext := range types {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	builder := sq.Insert("file_types").Columns("run_id", "ext", "file_count")
	for _, ext := range exts {
		builder = builder.Values(runID, ext, types[ext])
	}

	if _, err := builder.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to insert file types: %w", err)
	}
	return nil
}

func writeFiles(ctx context.Context, tx *sql.Tx, runID string, files []analyzer.FileEntry) error {
	if len(files) == 0 {
		return nil
	}

	fileSQL, _, err := sq.Insert("files").
		Columns("run_id", "ordinal", "file_path", "is_stata", "content").
		Values("", 0, "", false, "").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}
	symbolSQL, _, err := sq.Insert("symbols").
		Columns("file_id", "kind", "ordinal", "value").
		Values(0, "", 0, "").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}

	fileStmt, err := tx.PrepareContext(ctx, fileSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer fileStmt.Close()

	symbolStmt, err := tx.PrepareContext(ctx, symbolSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer symbolStmt.Close()

	for i, f := range files {
		res, err := fileStmt.ExecContext(ctx, runID, i, f.File, f.StataFields != nil, f.Content)
		if err != nil {
			return fmt.Errorf("failed to insert file %s: %w", f.File, err)
		}
		fileID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get id for file %s: %w", f.File, err)
		}

		for _, group := range symbolGroups(f) {
			for ordinal, value := range group.values {
				if _, err := symbolStmt.ExecContext(ctx, fileID, string(group.kind), ordinal, value); err != nil {
					return fmt.Errorf("failed to insert %s symbol for %s: %w", group.kind, f.File, err)
				}
			}
		}
	}

	return nil
}

type symbolGroup struct {
	kind   SymbolKind
	values []string
}

func symbolGroups(f analyzer.FileEntry) []symbolGroup {
	groups := []symbolGroup{
		{KindFunction, f.Functions},
		{KindClass, f.Classes},
		{KindComment, f.Comments},
	}
	if f.StataFields != nil {
		groups = append(groups,
			symbolGroup{KindUsedDataset, f.UsedDatasets},
			symbolGroup{KindSavedDataset, f.SavedDatasets},
			symbolGroup{KindCommand, f.Commands},
		)
	}
	return groups
}
