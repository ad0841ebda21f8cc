package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codesum/internal/analyzer"
)

// Test Plan for SummaryWriter and SummaryReader:
// - WriteSummary returns a UUID run ID and stores run metadata
// - LoadSummary rebuilds the same document, Stata fields included only where stored
// - Entry, directory and symbol order survive storage
// - Duplicate symbols are stored, not collapsed
// - Unknown runs read back as nil
// - ListRuns is newest first, PruneRuns keeps the newest N
// - FindSymbols locates files by function name
// - Data persists across connections to a file database

func storedSummary() *analyzer.Summary {
	return &analyzer.Summary{
		Files: []analyzer.FileEntry{
			{
				File:      "app.py",
				Functions: []string{"main", "helper", "main"},
				Classes:   []string{"App"},
				Comments:  []string{"Module doc."},
				Content:   "def main(): ...",
			},
			{
				File:      "src/clean.do",
				Functions: []string{},
				Classes:   []string{},
				Comments:  []string{"load"},
				Content:   "use raw.dta",
				StataFields: &analyzer.StataFields{
					UsedDatasets:  []string{"raw.dta"},
					SavedDatasets: []string{},
					Commands:      []string{"gen", "replace"},
				},
			},
			{
				File:      "README.md",
				Functions: []string{},
				Classes:   []string{},
				Comments:  []string{},
				Content:   "# café",
			},
		},
		Directories: []string{"src", "docs"},
		Meta: analyzer.Meta{
			TotalFiles:       3,
			TotalDirectories: 2,
			FileTypes:        map[string]int{".py": 1, ".do": 1, ".md": 1},
			GeneratedAt:      "2024-05-01T12:30:00Z",
		},
	}
}

func TestSummaryWriter_WriteAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := NewTestDB(t)

	runID, err := NewSummaryWriter(db).WriteSummary(ctx, "/project", storedSummary())
	require.NoError(t, err)
	_, err = uuid.Parse(runID)
	assert.NoError(t, err)

	reader := NewSummaryReader(db)

	run, err := reader.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "/project", run.RootDir)
	assert.Equal(t, 3, run.TotalFiles)
	assert.Equal(t, 2, run.TotalDirectories)
	assert.Equal(t, "2024-05-01T12:30:00Z", run.GeneratedAt)
	assert.False(t, run.CreatedAt.IsZero())

	loaded, err := reader.LoadSummary(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, storedSummary(), loaded)
}

func TestSummaryReader_UnknownRun(t *testing.T) {
	t.Parallel()

	reader := NewSummaryReader(NewTestDB(t))

	run, err := reader.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, run)

	summary, err := reader.LoadSummary(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, summary)

	latest, err := reader.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSummaryWriter_EmptySummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := NewTestDB(t)

	empty := &analyzer.Summary{
		Files:       []analyzer.FileEntry{},
		Directories: []string{},
		Meta:        analyzer.Meta{FileTypes: map[string]int{}, GeneratedAt: "2024-05-01T12:30:00Z"},
	}
	runID, err := NewSummaryWriter(db).WriteSummary(ctx, "/empty", empty)
	require.NoError(t, err)

	loaded, err := NewSummaryReader(db).LoadSummary(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, empty, loaded)
}

func TestSummaryWriter_ListAndPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := NewTestDB(t)
	writer := NewSummaryWriter(db)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		writer.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		id, err := writer.WriteSummary(ctx, "/project", storedSummary())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	reader := NewSummaryReader(db)
	runs, err := reader.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	deleted, err := writer.PruneRuns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	latest, err := reader.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ids[2], latest.ID)

	var files int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM files").Scan(&files))
	assert.Equal(t, 3, files)

	require.NoError(t, writer.DeleteRun(ctx, ids[2]))
	runs, err = reader.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSummaryReader_FindSymbols(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := NewTestDB(t)

	runID, err := NewSummaryWriter(db).WriteSummary(ctx, "/project", storedSummary())
	require.NoError(t, err)

	reader := NewSummaryReader(db)

	matches, err := reader.FindSymbols(ctx, runID, KindFunction, "main")
	require.NoError(t, err)
	assert.Equal(t, []SymbolMatch{
		{FilePath: "app.py", Kind: KindFunction, Ordinal: 0, Value: "main"},
		{FilePath: "app.py", Kind: KindFunction, Ordinal: 2, Value: "main"},
	}, matches)

	matches, err = reader.FindSymbols(ctx, runID, KindUsedDataset, "raw.dta")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "src/clean.do", matches[0].FilePath)

	matches, err = reader.FindSymbols(ctx, runID, KindClass, "Missing")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSummaryWriter_PersistsAcrossConnections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, dbPath := NewTestDBFile(t)

	runID, err := NewSummaryWriter(db).WriteSummary(ctx, "/project", storedSummary())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := NewSummaryReader(reopened).LoadSummary(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Files, 3)
}
