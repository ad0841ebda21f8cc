package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codesum/internal/analyzer/extract"
)

// Test Plan for Analyzer.Run:
// - Every kept file appears exactly once, in walk order, with a relative path
// - Pruned directories and substring-excluded files never appear
// - Python, JS, Stata and plain files get the right record shape
// - Latin-1 files decode instead of being dropped
// - Malformed Python degrades to empty sequences with a diagnostic
// - Read failures degrade to empty content with a diagnostic
// - Counts in meta agree with the lists
// - Running twice over the same tree gives the same document
// - Parallel workers give the same document as one worker
// - A cancelled context aborts the run
// - Progress callbacks see the run

const pythonSource = `"""Module doc."""


class Greeter:
    """Says hello."""

    def greet(self, name):
        return f"hi {name}"


async def main():
    pass
`

func analyzerFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".codebaseignore":           "node_modules\n",
		".gitignore":                "*.log\nsecret\n",
		"README.md":                 "# Project\n",
		"app.py":                    pythonSource,
		"broken.py":                 "def broken(:\n",
		"latin.txt":                 "caf\xe9\n",
		"notes.rst":                 "ignored extension\n",
		"src/index.js":              "// entry point\nfunction start() {}\nclass App {}\n",
		"src/analysis.do":           "* load data\nuse data/raw.dta, clear\ngen x = 1\nsave out.dta, replace\n",
		"src/secret.json":           "{\"token\": 1}\n",
		"node_modules/lib/index.js": "function vendored() {}\n",
	})
	return root
}

func newTestAnalyzer(t *testing.T, root string, workers int, opts ...Option) *Analyzer {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	a, err := New(&Config{RootDir: root, Workers: workers, DocsPatterns: DefaultDocFiles}, nil, opts...)
	require.NoError(t, err)
	return a
}

func entriesByFile(summary *Summary) map[string]FileEntry {
	out := make(map[string]FileEntry, len(summary.Files))
	for _, f := range summary.Files {
		out[filepath.ToSlash(f.File)] = f
	}
	return out
}

func TestAnalyzer_Run(t *testing.T) {
	t.Parallel()

	root := analyzerFixture(t)
	result, err := newTestAnalyzer(t, root, 1).Run(context.Background())
	require.NoError(t, err)

	summary := result.Summary
	files := make([]string, len(summary.Files))
	for i, f := range summary.Files {
		files[i] = filepath.ToSlash(f.File)
	}
	assert.Equal(t, []string{
		"README.md",
		"app.py",
		"broken.py",
		"latin.txt",
		"src/analysis.do",
		"src/index.js",
	}, files)
	assert.Equal(t, []string{"src"}, slashAll(summary.Directories))

	assert.Equal(t, 6, summary.Meta.TotalFiles)
	assert.Equal(t, 1, summary.Meta.TotalDirectories)
	assert.Equal(t, map[string]int{".md": 1, ".py": 2, ".txt": 1, ".do": 1, ".js": 1}, summary.Meta.FileTypes)
	assert.Equal(t, "2024-05-01T12:30:00Z", summary.Meta.GeneratedAt)

	byFile := entriesByFile(summary)

	app := byFile["app.py"]
	assert.Equal(t, []string{"greet", "main"}, app.Functions)
	assert.Equal(t, []string{"Greeter"}, app.Classes)
	assert.Equal(t, []string{"Module doc.", "Says hello."}, app.Comments)
	assert.Equal(t, pythonSource, app.Content)
	assert.Nil(t, app.StataFields)

	js := byFile["src/index.js"]
	assert.Equal(t, []string{"start"}, js.Functions)
	assert.Equal(t, []string{"App"}, js.Classes)
	assert.Equal(t, []string{"entry point"}, js.Comments)

	do := byFile["src/analysis.do"]
	require.NotNil(t, do.StataFields)
	assert.Equal(t, []string{"data/raw.dta"}, do.UsedDatasets)
	assert.Equal(t, []string{"out.dta"}, do.SavedDatasets)
	assert.Equal(t, []string{"gen"}, do.Commands)
	assert.Equal(t, []string{"load data"}, do.Comments)

	assert.Equal(t, "café\n", byFile["latin.txt"].Content)
	assert.Equal(t, "# Project\n", byFile["README.md"].Content)

	broken := byFile["broken.py"]
	assert.Equal(t, []string{}, broken.Functions)
	assert.Equal(t, []string{}, broken.Classes)
	assert.Equal(t, []string{}, broken.Comments)
	assert.Equal(t, "def broken(:\n", broken.Content)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "broken.py", result.Diagnostics[0].File)
	assert.Equal(t, extract.StageExtract, result.Diagnostics[0].Stage)

	assert.Equal(t, []string{"README.md"}, result.DocFiles)
	assert.Len(t, result.IgnoreFiles, 2)
	assert.Equal(t, 1, result.Stats.DegradedFiles)
	assert.Equal(t, 6, result.Stats.FilesProcessed)
}

func TestAnalyzer_Idempotent(t *testing.T) {
	t.Parallel()

	root := analyzerFixture(t)
	a := newTestAnalyzer(t, root, 1)

	first, err := a.Run(context.Background())
	require.NoError(t, err)
	second, err := a.Run(context.Background())
	require.NoError(t, err)

	firstJSON, err := MarshalSummary(first.Summary)
	require.NoError(t, err)
	secondJSON, err := MarshalSummary(second.Summary)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestAnalyzer_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	root := analyzerFixture(t)

	sequential, err := newTestAnalyzer(t, root, 1).Run(context.Background())
	require.NoError(t, err)
	parallel, err := newTestAnalyzer(t, root, 4).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sequential.Summary, parallel.Summary)
	assert.Equal(t, len(sequential.Diagnostics), len(parallel.Diagnostics))
}

// failingReader fails for paths with the given suffix and reads nothing else.
type failingReader struct {
	suffix string
}

func (r failingReader) Read(path string) (string, error) {
	if strings.HasSuffix(path, r.suffix) {
		return "", errors.New("permission denied")
	}
	return "ok", nil
}

func TestAnalyzer_ReadFailureDegrades(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".codebaseignore": "node_modules\n",
		"a.py":            "def a(): pass\n",
		"b.md":            "# b\n",
	})

	dispatcher := extract.NewDispatcher(failingReader{suffix: "a.py"})
	result, err := newTestAnalyzer(t, root, 1, WithDispatcher(dispatcher)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Summary.Files, 2)
	a := result.Summary.Files[0]
	assert.Equal(t, "a.py", a.File)
	assert.Equal(t, "", a.Content)
	assert.Equal(t, []string{}, a.Functions)
	assert.Equal(t, "ok", result.Summary.Files[1].Content)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, extract.StageRead, result.Diagnostics[0].Stage)
	assert.EqualError(t, result.Diagnostics[0].Err, "permission denied")
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	t.Parallel()

	root := analyzerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := newTestAnalyzer(t, root, workers).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled, "workers=%d", workers)
	}
}

func TestAnalyzer_RootMustExist(t *testing.T) {
	t.Parallel()

	_, err := New(&Config{}, nil)
	assert.Error(t, err)

	a := newTestAnalyzer(t, filepath.Join(t.TempDir(), "missing"), 1)
	_, err = a.Run(context.Background())
	assert.Error(t, err)
}

type recordingReporter struct {
	NoOpProgressReporter
	mu          sync.Mutex
	processed   []string
	diagnostics []Diagnostic
	total       int
	stats       *ProcessingStats
}

func (r *recordingReporter) OnFileProcessingStart(total int) { r.total = total }

func (r *recordingReporter) OnFileProcessed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, name)
}

func (r *recordingReporter) OnDiagnostic(d Diagnostic) { r.diagnostics = append(r.diagnostics, d) }

func (r *recordingReporter) OnComplete(stats *ProcessingStats) { r.stats = stats }

func TestAnalyzer_ReportsProgress(t *testing.T) {
	t.Parallel()

	root := analyzerFixture(t)
	reporter := &recordingReporter{}
	a, err := New(&Config{RootDir: root, Workers: 2}, reporter, WithClock(fixedClock))
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, reporter.total)
	assert.Len(t, reporter.processed, 6)
	assert.Len(t, reporter.diagnostics, 1)
	require.NotNil(t, reporter.stats)
	assert.Equal(t, 6, reporter.stats.FilesProcessed)
}
