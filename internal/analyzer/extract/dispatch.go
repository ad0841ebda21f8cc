package extract

import (
	"context"
	"fmt"
)

// Stage names the pipeline step that produced a diagnostic.
type Stage string

const (
	StageRead    Stage = "read"
	StageExtract Stage = "extract"
)

// Diagnostic records a recovered failure for one file.
type Diagnostic struct {
	Stage Stage
	Err   error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %v", d.Stage, d.Err)
}

// Outcome is the result of running one file through read and extract.
// Record is always non-nil. Diagnostics is empty when nothing was degraded.
type Outcome struct {
	Record      *Record
	Diagnostics []Diagnostic
}

// Degraded reports whether any stage had to fall back.
func (o Outcome) Degraded() bool {
	return len(o.Diagnostics) > 0
}

// Reader loads the text of a file. The text is "" whenever err is non-nil.
type Reader interface {
	Read(path string) (string, error)
}

// Dispatcher picks an extractor by file extension.
type Dispatcher struct {
	reader     Reader
	extractors map[string]Extractor
	extensions []string
}

// NewDispatcher creates a dispatcher with the fixed extension mapping:
//
//	.js .ts                                  heuristic JS/TS
//	.py                                      Python syntax tree
//	.html .css .json .yaml .yml .toml .md .txt  plain
//	.do .ado                                 heuristic Stata
//
// Anything else gets an empty plain record without being read.
func NewDispatcher(reader Reader) *Dispatcher {
	if reader == nil {
		reader = NewContentReader()
	}

	jsts := NewJsTsExtractor()
	py := NewPythonExtractor()
	plain := NewPlainExtractor()
	stata := NewStataExtractor()

	d := &Dispatcher{
		reader:     reader,
		extractors: make(map[string]Extractor),
	}
	d.register(jsts, ".js", ".ts")
	d.register(py, ".py")
	d.register(plain, ".html", ".css", ".json", ".yaml", ".yml", ".toml", ".md", ".txt")
	d.register(stata, ".do", ".ado")
	return d
}

func (d *Dispatcher) register(ex Extractor, exts ...string) {
	for _, ext := range exts {
		d.extractors[ext] = ex
		d.extensions = append(d.extensions, ext)
	}
}

// Extensions lists every extension with a registered extractor.
func (d *Dispatcher) Extensions() []string {
	out := make([]string, len(d.extensions))
	copy(out, d.extensions)
	return out
}

// ExtractorFor returns the extractor registered for ext, if any.
func (d *Dispatcher) ExtractorFor(ext string) (Extractor, bool) {
	ex, ok := d.extractors[ext]
	return ex, ok
}

// Extract reads the file at path and runs the extractor registered for ext.
// Failures in either step are recovered into the outcome's diagnostics.
func (d *Dispatcher) Extract(ctx context.Context, ext, path string) Outcome {
	ex, ok := d.extractors[ext]
	if !ok {
		return Outcome{Record: contentOnly(CategoryPlain, "")}
	}

	var out Outcome
	content, err := d.reader.Read(path)
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Stage: StageRead, Err: err})
	}

	rec, err := runExtractor(ctx, ex, content)
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Stage: StageExtract, Err: err})
	}
	out.Record = rec
	return out
}

// runExtractor converts a panicking extractor into a content-only record.
func runExtractor(ctx context.Context, ex Extractor, content string) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = contentOnly(CategoryPlain, content)
			err = fmt.Errorf("extractor panicked: %v", r)
		}
	}()

	rec, err = ex.Extract(ctx, content)
	if rec == nil {
		rec = contentOnly(CategoryPlain, content)
	}
	return rec, err
}
