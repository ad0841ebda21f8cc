package analyzer

import (
	"time"

	"github.com/mvp-joe/codesum/internal/analyzer/extract"
)

// DefaultExtensions is the allow-list of file extensions that are summarized.
var DefaultExtensions = []string{
	".js", ".ts", ".py", ".html", ".css", ".json", ".yaml", ".yml",
	".toml", ".md", ".txt", ".do", ".ado",
}

// DefaultDocFiles names the documentation files reported during discovery.
var DefaultDocFiles = []string{"README.md", "CHANGELOG.md", "LICENSE", "CONTRIBUTING.md"}

// DefaultOutputFile is the summary file name written into the output directory.
const DefaultOutputFile = "codebase_summary.json"

// DiscoveredFile is a file that survived the extension and ignore filters.
type DiscoveredFile struct {
	Path string // absolute
	Ext  string
}

// Summary is the document written for a codebase.
type Summary struct {
	Files       []FileEntry `json:"files"`
	Directories []string    `json:"directories"`
	Meta        Meta        `json:"meta"`
}

// FileEntry describes one summarized file. Functions, Classes and Comments are
// always present, empty when the extractor produced nothing.
type FileEntry struct {
	File      string   `json:"file"`
	Functions []string `json:"functions"`
	Classes   []string `json:"classes"`
	Comments  []string `json:"comments"`
	Content   string   `json:"content"`

	// Set only for Stata scripts; its fields are flattened into the entry.
	*StataFields
}

// StataFields are the extra sequences reported for .do and .ado files.
type StataFields struct {
	UsedDatasets  []string `json:"used_datasets"`
	SavedDatasets []string `json:"saved_datasets"`
	Commands      []string `json:"commands"`
}

// Meta holds the aggregate counters for a summary.
type Meta struct {
	TotalFiles       int            `json:"total_files"`
	TotalDirectories int            `json:"total_directories"`
	FileTypes        map[string]int `json:"file_types"`
	GeneratedAt      string         `json:"generated_at"`
}

// Diagnostic is a recovered per-file failure. It never appears in the summary.
type Diagnostic struct {
	File  string
	Stage extract.Stage
	Err   error
}

// ProcessingStats tracks statistics about one run.
type ProcessingStats struct {
	FilesProcessed int
	Directories    int
	DocFiles       int
	DegradedFiles  int
	ProcessingTime time.Duration
}
