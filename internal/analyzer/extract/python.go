package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	"golang.org/x/text/unicode/runenames"
)

// pythonExtractor walks a full Python syntax tree. Every function and class
// definition at any depth is reported, along with every bare string statement
// (the docstring idiom).
type pythonExtractor struct {
	*treeSitterParser
}

// NewPythonExtractor creates the syntax-tree based Python extractor.
func NewPythonExtractor() Extractor {
	lang := sitter.NewLanguage(python.Language())
	return &pythonExtractor{
		treeSitterParser: newTreeSitterParser(lang, "python"),
	}
}

func (p *pythonExtractor) Soundness() Soundness {
	return Exact
}

// Extract parses content and collects names and docstrings. Source that does
// not parse cleanly yields the raw content with empty sequences.
func (p *pythonExtractor) Extract(ctx context.Context, content string) (*Record, error) {
	rec := &Record{
		Category:  CategoryCode,
		Functions: []string{},
		Classes:   []string{},
		Comments:  []string{},
		Content:   content,
	}

	if err := ctx.Err(); err != nil {
		return rec, err
	}

	source := []byte(content)
	tree, err := p.parse(source)
	if err != nil {
		return rec, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return rec, syntaxError(root, p.lang)
	}
	if err := legacySyntaxError(root, p.lang); err != nil {
		return rec, err
	}

	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				rec.Functions = append(rec.Functions, extractNodeText(name, source))
			}
		case "class_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				rec.Classes = append(rec.Classes, extractNodeText(name, source))
			}
		case "expression_statement":
			if doc, ok := docstringText(n, source); ok {
				rec.Comments = append(rec.Comments, strings.TrimSpace(doc))
			}
		}
		return true
	})

	return rec, nil
}

// legacySyntaxError reports the first Python 2 construct below root. The
// grammar still accepts print and exec statements, the <> operator and
// "raise E, msg", none of which Python 3 compiles.
func legacySyntaxError(root *sitter.Node, lang string) error {
	var bad *sitter.Node
	var what string
	walkTree(root, func(n *sitter.Node) bool {
		if bad != nil {
			return false
		}
		switch n.Kind() {
		case "print_statement":
			bad, what = n, "print statement"
		case "exec_statement":
			bad, what = n, "exec statement"
		case "<>":
			if !n.IsNamed() {
				bad, what = n, "<> operator"
			}
		case "raise_statement":
			if findChildByType(n, "expression_list") != nil || findChildByType(n, ",") != nil {
				bad, what = n, "raise with a comma"
			}
		}
		return bad == nil
	})

	if bad == nil {
		return nil
	}
	pos := bad.StartPosition()
	return fmt.Errorf("invalid %s syntax at line %d, column %d: %s", lang, pos.Row+1, pos.Column+1, what)
}

// docstringText returns the value of an expression statement that consists of
// a single string literal (or implicitly concatenated literals).
func docstringText(stmt *sitter.Node, source []byte) (string, bool) {
	children := namedChildren(stmt)
	if len(children) != 1 {
		return "", false
	}

	expr := children[0]
	switch expr.Kind() {
	case "string":
		return stringLiteralValue(expr, source)
	case "concatenated_string":
		var b strings.Builder
		for _, part := range namedChildren(expr) {
			if part.Kind() != "string" {
				return "", false
			}
			v, ok := stringLiteralValue(part, source)
			if !ok {
				return "", false
			}
			b.WriteString(v)
		}
		return b.String(), true
	default:
		return "", false
	}
}

// stringLiteralValue decodes a plain str literal. Bytes, f-strings and
// t-strings are not str constants and are rejected.
func stringLiteralValue(node *sitter.Node, source []byte) (string, bool) {
	start := findChildByType(node, "string_start")
	end := findChildByType(node, "string_end")
	if start == nil || end == nil {
		return "", false
	}

	delim := extractNodeText(start, source)
	prefix := strings.ToLower(strings.TrimRight(delim, `"'`))
	if strings.ContainsAny(prefix, "bft") {
		return "", false
	}

	raw := string(source[start.EndByte():end.StartByte()])
	if strings.Contains(prefix, "r") {
		return raw, true
	}
	return unescapePython(raw), true
}

var simpleEscapes = map[byte]string{
	'\\': "\\",
	'\'': "'",
	'"':  "\"",
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
	'v':  "\v",
	'\n': "",
}

// unescapePython resolves backslash escapes in a non-raw str literal body.
// Unknown escapes are kept verbatim, as Python does.
func unescapePython(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}

		next := s[i+1]
		if rep, ok := simpleEscapes[next]; ok {
			b.WriteString(rep)
			i++
			continue
		}

		switch {
		case next >= '0' && next <= '7':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i+1:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		case next == 'N':
			if r, width, ok := namedEscape(s[i+2:]); ok {
				b.WriteRune(r)
				i += 1 + width
				continue
			}
			b.WriteByte(c)
		case next == 'x' || next == 'u' || next == 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[next]
			end := i + 2 + width
			if end <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:end], 16, 32); err == nil {
					b.WriteRune(rune(v))
					i = end - 1
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// namedEscape decodes the "{NAME}" part of a \N escape at the start of s and
// returns the rune and the number of bytes consumed. Names are matched
// case-insensitively. Unknown names are not decoded.
func namedEscape(s string) (rune, int, bool) {
	if !strings.HasPrefix(s, "{") {
		return 0, 0, false
	}
	end := strings.IndexByte(s, '}')
	if end < 2 {
		return 0, 0, false
	}
	r, ok := lookupRuneName(s[1:end])
	return r, end + 1, ok
}

const cjkIdeographPrefix = "CJK UNIFIED IDEOGRAPH-"

var (
	runeNamesOnce sync.Once
	runeNames     map[string]rune
)

// lookupRuneName maps a Unicode character name to its rune. The reverse table
// is built on first use.
func lookupRuneName(name string) (rune, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if hex, ok := strings.CutPrefix(name, cjkIdeographPrefix); ok {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || !unicode.Is(unicode.Ideographic, rune(v)) {
			return 0, false
		}
		return rune(v), true
	}

	runeNamesOnce.Do(func() {
		runeNames = make(map[string]rune, 1<<16)
		for r := rune(0); r <= unicode.MaxRune; r++ {
			n := runenames.Name(r)
			if n == "" || strings.HasPrefix(n, "<") {
				continue
			}
			if _, dup := runeNames[n]; !dup {
				runeNames[n] = r
			}
		}
	})
	r, ok := runeNames[name]
	return r, ok
}
