package analyzer

import (
	"path/filepath"
	"time"

	"github.com/mvp-joe/codesum/internal/analyzer/extract"
)

// Aggregator merges per-file records into a Summary.
type Aggregator struct {
	rootDir string
	now     func() time.Time
}

// NewAggregator creates an aggregator that reports paths relative to rootDir.
// now defaults to time.Now.
func NewAggregator(rootDir string, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{rootDir: rootDir, now: now}
}

// Aggregate builds the summary in a single pass over files. records[i] belongs
// to files[i]; a missing record is treated as an empty one. Absent sequences
// are normalized to empty ones here, not in the extractors.
func (a *Aggregator) Aggregate(files []DiscoveredFile, directories []string, records []*extract.Record) *Summary {
	summary := &Summary{
		Files:       make([]FileEntry, 0, len(files)),
		Directories: directories,
		Meta: Meta{
			FileTypes: make(map[string]int),
		},
	}
	if summary.Directories == nil {
		summary.Directories = []string{}
	}

	for i, f := range files {
		var rec *extract.Record
		if i < len(records) {
			rec = records[i]
		}
		if rec == nil {
			rec = &extract.Record{}
		}

		summary.Files = append(summary.Files, a.entry(f, rec))
		summary.Meta.TotalFiles++
		summary.Meta.FileTypes[f.Ext]++
	}

	summary.Meta.TotalDirectories = len(summary.Directories)
	summary.Meta.GeneratedAt = a.now().UTC().Format(time.RFC3339)
	return summary
}

func (a *Aggregator) entry(f DiscoveredFile, rec *extract.Record) FileEntry {
	rel, err := filepath.Rel(a.rootDir, f.Path)
	if err != nil {
		rel = f.Path
	}

	entry := FileEntry{
		File:      rel,
		Functions: orEmpty(rec.Functions),
		Classes:   orEmpty(rec.Classes),
		Comments:  orEmpty(rec.Comments),
		Content:   rec.Content,
	}

	if rec.HasStataFields() {
		entry.StataFields = &StataFields{
			UsedDatasets:  orEmpty(rec.UsedDatasets),
			SavedDatasets: orEmpty(rec.SavedDatasets),
			Commands:      orEmpty(rec.Commands),
		}
	}

	return entry
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
