package extract

import (
	"context"
	"regexp"
	"strings"
)

var (
	// function name(
	jsFunctionDecl = regexp.MustCompile(`function\s+([a-zA-Z0-9_]+)\s*\(`)

	// const name = function(   |   let name = (...) =>
	jsVariableFunc = regexp.MustCompile(`(?:const|let|var)\s+([a-zA-Z0-9_]+)\s*=\s*(?:function\s*\(|\([^)]*\)\s*=>)`)

	// { name: (...) => }
	jsObjectArrow = regexp.MustCompile(`([a-zA-Z0-9_]+)\s*:\s*\([^)]*\)\s*=>`)

	jsClassDecl    = regexp.MustCompile(`class\s+([a-zA-Z0-9_]+)`)
	jsLineComment  = regexp.MustCompile(`//\s*(.*)`)
	jsBlockComment = regexp.MustCompile(`/\*([\s\S]*?)\*/`)
)

// jsTsExtractor pulls functions, classes and comments out of JavaScript and
// TypeScript with regular expressions. It is not a parser: nested or minified
// code, template literals and comment markers inside strings all confuse it.
//
// Functions are reported per pattern (declarations, then variable-bound, then
// object-literal arrows), so a name matched by two patterns appears twice.
// Line comments are all reported before block comments regardless of where
// they sit in the file.
type jsTsExtractor struct{}

// NewJsTsExtractor creates the heuristic JS/TS extractor.
func NewJsTsExtractor() Extractor {
	return &jsTsExtractor{}
}

func (e *jsTsExtractor) Soundness() Soundness {
	return Heuristic
}

func (e *jsTsExtractor) Extract(ctx context.Context, content string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return contentOnly(CategoryCode, content), err
	}

	rec := &Record{
		Category:  CategoryCode,
		Functions: []string{},
		Classes:   []string{},
		Comments:  []string{},
		Content:   content,
	}

	rec.Functions = appendGroup(rec.Functions, jsFunctionDecl, content)
	rec.Functions = appendGroup(rec.Functions, jsVariableFunc, content)
	rec.Functions = appendGroup(rec.Functions, jsObjectArrow, content)
	rec.Classes = appendGroup(rec.Classes, jsClassDecl, content)
	rec.Comments = appendGroup(rec.Comments, jsLineComment, content)

	for _, m := range jsBlockComment.FindAllStringSubmatch(content, -1) {
		rec.Comments = append(rec.Comments, strings.TrimSpace(m[1]))
	}

	return rec, nil
}

// appendGroup appends the first capture group of every match of re in content.
func appendGroup(dst []string, re *regexp.Regexp, content string) []string {
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		dst = append(dst, m[1])
	}
	return dst
}
