package extract

import "context"

type plainExtractor struct{}

// NewPlainExtractor creates the extractor for markup, config and text files.
// It returns the content and nothing else.
func NewPlainExtractor() Extractor {
	return &plainExtractor{}
}

func (e *plainExtractor) Soundness() Soundness {
	return PassThrough
}

func (e *plainExtractor) Extract(ctx context.Context, content string) (*Record, error) {
	return contentOnly(CategoryPlain, content), nil
}
