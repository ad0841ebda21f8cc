package extract

import (
	"context"
	"regexp"
)

var (
	stataUse     = regexp.MustCompile(`(?i)\buse\s+([^\s,]+)`)
	stataSave    = regexp.MustCompile(`(?i)\bsave\s+([^\s,]+)`)
	stataCommand = regexp.MustCompile(`(?m)^\s*(graph|regress|summarize|import|gen|replace|merge|append)\b`)
	stataComment = regexp.MustCompile(`(?m)^\s*\*\s*(.*)`)
)

// stataExtractor reports datasets read and written by Stata .do/.ado scripts,
// the key commands they run and their star comments. Regex based.
type stataExtractor struct{}

// NewStataExtractor creates the heuristic Stata extractor.
func NewStataExtractor() Extractor {
	return &stataExtractor{}
}

func (e *stataExtractor) Soundness() Soundness {
	return Heuristic
}

func (e *stataExtractor) Extract(ctx context.Context, content string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return contentOnly(CategoryStata, content), err
	}

	return &Record{
		Category:      CategoryStata,
		UsedDatasets:  appendGroup([]string{}, stataUse, content),
		SavedDatasets: appendGroup([]string{}, stataSave, content),
		Commands:      appendGroup([]string{}, stataCommand, content),
		Comments:      appendGroup([]string{}, stataComment, content),
		Content:       content,
	}, nil
}
