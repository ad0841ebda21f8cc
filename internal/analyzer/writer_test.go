package analyzer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for SummaryWriter:
// - Output uses the documented field names
// - Stata keys appear only on Stata entries
// - Non-ASCII and HTML characters are written as-is
// - Output is indented with two spaces
// - The output directory is created when missing
// - A second write replaces the first and leaves no temp files behind

func sampleSummary() *Summary {
	return &Summary{
		Files: []FileEntry{
			{
				File:      "index.html",
				Functions: []string{},
				Classes:   []string{},
				Comments:  []string{},
				Content:   "<p>café</p>",
			},
			{
				File:      "clean.do",
				Functions: []string{},
				Classes:   []string{},
				Comments:  []string{"load"},
				Content:   "use raw.dta",
				StataFields: &StataFields{
					UsedDatasets:  []string{"raw.dta"},
					SavedDatasets: []string{},
					Commands:      []string{},
				},
			},
		},
		Directories: []string{},
		Meta: Meta{
			TotalFiles:  2,
			FileTypes:   map[string]int{".html": 1, ".do": 1},
			GeneratedAt: "2024-05-01T12:30:00Z",
		},
	}
}

func TestMarshalSummary_Shape(t *testing.T) {
	t.Parallel()

	data, err := MarshalSummary(sampleSummary())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.ElementsMatch(t, []string{"files", "directories", "meta"}, keys(doc))

	meta := doc["meta"].(map[string]any)
	assert.ElementsMatch(t, []string{"total_files", "total_directories", "file_types", "generated_at"}, keys(meta))

	files := doc["files"].([]any)
	html := files[0].(map[string]any)
	assert.ElementsMatch(t, []string{"file", "functions", "classes", "comments", "content"}, keys(html))

	do := files[1].(map[string]any)
	assert.ElementsMatch(t, []string{
		"file", "functions", "classes", "comments", "content",
		"used_datasets", "saved_datasets", "commands",
	}, keys(do))
	assert.Equal(t, []any{"raw.dta"}, do["used_datasets"])
}

func TestMarshalSummary_Unescaped(t *testing.T) {
	t.Parallel()

	data, err := MarshalSummary(sampleSummary())
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "<p>café</p>")
	assert.NotContains(t, text, `<`)
	assert.True(t, strings.HasPrefix(text, "{\n  \"files\": ["))
}

func TestSummaryWriter_Write(t *testing.T) {
	t.Parallel()

	outDir := filepath.Join(t.TempDir(), "out", "nested")
	w, err := NewSummaryWriter(outDir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, DefaultOutputFile), w.Path())

	require.NoError(t, w.Write(sampleSummary()))

	second := sampleSummary()
	second.Meta.GeneratedAt = "2024-05-02T00:00:00Z"
	require.NoError(t, w.Write(second))

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	var got Summary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "2024-05-02T00:00:00Z", got.Meta.GeneratedAt)
	require.Len(t, got.Files, 2)
	assert.Nil(t, got.Files[0].StataFields)
	require.NotNil(t, got.Files[1].StataFields)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
