package extract

import "context"

// Category identifies which record shape an extractor produces.
type Category string

const (
	CategoryCode  Category = "code"
	CategoryStata Category = "stata"
	CategoryPlain Category = "plain"
)

// Soundness describes how far an extractor's output can be trusted.
// It is part of each extractor's contract, not of the records it returns.
type Soundness int

const (
	// PassThrough extractors return the raw content and nothing else.
	PassThrough Soundness = iota

	// Heuristic extractors match text patterns. They can report names that are
	// not declarations (e.g. inside strings) and miss ones that are.
	Heuristic

	// Exact extractors work from a full syntax tree.
	Exact
)

func (s Soundness) String() string {
	switch s {
	case PassThrough:
		return "pass-through"
	case Heuristic:
		return "heuristic"
	case Exact:
		return "exact"
	default:
		return "unknown"
	}
}

// Record is the structured result of extracting a single file.
//
// A nil slice means the extractor did not produce that field at all (plain
// files, degraded records). An empty non-nil slice means it looked and found
// nothing. Sequences keep source order and are never deduplicated.
type Record struct {
	Category Category

	Functions []string
	Classes   []string
	Comments  []string

	// Stata only
	UsedDatasets  []string
	SavedDatasets []string
	Commands      []string

	Content string
}

// HasStataFields reports whether the record carries the Stata-specific sequences.
func (r *Record) HasStataFields() bool {
	return r.UsedDatasets != nil || r.SavedDatasets != nil || r.Commands != nil
}

// Extractor converts raw file text into a Record.
//
// Extract always returns a usable record. A non-nil error means the record was
// degraded (content only, or empty sequences) and the error explains why.
type Extractor interface {
	Extract(ctx context.Context, content string) (*Record, error)
	Soundness() Soundness
}

// contentOnly is the weakest record shape: raw text and no structural fields.
func contentOnly(category Category, content string) *Record {
	return &Record{Category: category, Content: content}
}
