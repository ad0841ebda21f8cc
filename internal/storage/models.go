package storage

import "time"

// timestampFormat is fixed-width so stored timestamps sort lexically.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Domain models that mirror SQL tables in schema.go.
// These are lightweight data transfer structs, NOT ORM models.

// SymbolKind names a per-file sequence stored in the symbols table.
type SymbolKind string

const (
	KindFunction     SymbolKind = "function"
	KindClass        SymbolKind = "class"
	KindComment      SymbolKind = "comment"
	KindUsedDataset  SymbolKind = "used_dataset"
	KindSavedDataset SymbolKind = "saved_dataset"
	KindCommand      SymbolKind = "command"
)

// Run represents one stored summary.
// Maps to the runs table.
type Run struct {
	ID               string    // run_id: UUID
	RootDir          string    // root_dir: absolute summarized root
	GeneratedAt      string    // generated_at: meta.generated_at, verbatim
	TotalFiles       int       // total_files
	TotalDirectories int       // total_directories
	CreatedAt        time.Time // created_at: when the row was stored
}

// SymbolMatch is a symbol found by FindSymbols.
type SymbolMatch struct {
	FilePath string
	Kind     SymbolKind
	Ordinal  int
	Value    string
}
