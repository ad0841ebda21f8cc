package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Dispatcher:
// - Each registered extension routes to the right strategy
// - Unknown extensions get an empty plain record and are never read
// - Read failures become a read diagnostic and empty content
// - Extraction failures become an extract diagnostic
// - A panicking extractor degrades to a content-only record

type fakeReader struct {
	files map[string]string
	reads []string
}

func (f *fakeReader) Read(path string) (string, error) {
	f.reads = append(f.reads, path)
	content, ok := f.files[path]
	if !ok {
		return "", errors.New("no such file")
	}
	return content, nil
}

type panicExtractor struct{}

func (panicExtractor) Extract(ctx context.Context, content string) (*Record, error) {
	panic("boom")
}

func (panicExtractor) Soundness() Soundness { return Heuristic }

func TestDispatcher_Routing(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{files: map[string]string{
		"/p/app.js":    "function run() {}",
		"/p/mod.py":    "class M:\n    pass\n",
		"/p/README.md": "# hi",
		"/p/clean.do":  "use raw.dta\n",
	}}
	d := NewDispatcher(reader)
	ctx := context.Background()

	js := d.Extract(ctx, ".js", "/p/app.js")
	assert.False(t, js.Degraded())
	assert.Equal(t, []string{"run"}, js.Record.Functions)

	py := d.Extract(ctx, ".py", "/p/mod.py")
	assert.False(t, py.Degraded())
	assert.Equal(t, []string{"M"}, py.Record.Classes)

	md := d.Extract(ctx, ".md", "/p/README.md")
	assert.Equal(t, CategoryPlain, md.Record.Category)
	assert.Equal(t, "# hi", md.Record.Content)

	do := d.Extract(ctx, ".do", "/p/clean.do")
	assert.Equal(t, CategoryStata, do.Record.Category)
	assert.Equal(t, []string{"raw.dta"}, do.Record.UsedDatasets)
}

func TestDispatcher_UnknownExtensionNotRead(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	out := NewDispatcher(reader).Extract(context.Background(), ".rs", "/p/main.rs")

	require.NotNil(t, out.Record)
	assert.Equal(t, CategoryPlain, out.Record.Category)
	assert.Equal(t, "", out.Record.Content)
	assert.False(t, out.Degraded())
	assert.Empty(t, reader.reads)
}

func TestDispatcher_ReadFailure(t *testing.T) {
	t.Parallel()

	out := NewDispatcher(&fakeReader{}).Extract(context.Background(), ".py", "/p/gone.py")

	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, StageRead, out.Diagnostics[0].Stage)
	assert.Equal(t, "", out.Record.Content)
	assert.Equal(t, []string{}, out.Record.Functions)
}

func TestDispatcher_ExtractFailure(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{files: map[string]string{"/p/bad.py": "def (:\n"}}
	out := NewDispatcher(reader).Extract(context.Background(), ".py", "/p/bad.py")

	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, StageExtract, out.Diagnostics[0].Stage)
	assert.Equal(t, "def (:\n", out.Record.Content)
	assert.Empty(t, out.Record.Functions)
}

func TestDispatcher_PanicDegrades(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{files: map[string]string{"/p/x.boom": "payload"}}
	d := NewDispatcher(reader)
	d.register(panicExtractor{}, ".boom")

	out := d.Extract(context.Background(), ".boom", "/p/x.boom")

	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, StageExtract, out.Diagnostics[0].Stage)
	assert.Contains(t, out.Diagnostics[0].Error(), "boom")
	assert.Equal(t, "payload", out.Record.Content)
	assert.Nil(t, out.Record.Functions)
}

func TestDispatcher_Extensions(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil)
	assert.ElementsMatch(t, []string{
		".js", ".ts", ".py", ".html", ".css", ".json", ".yaml", ".yml",
		".toml", ".md", ".txt", ".do", ".ado",
	}, d.Extensions())

	ex, ok := d.ExtractorFor(".ts")
	require.True(t, ok)
	assert.Equal(t, Heuristic, ex.Soundness())

	ex, ok = d.ExtractorFor(".py")
	require.True(t, ok)
	assert.Equal(t, Exact, ex.Soundness())

	ex, ok = d.ExtractorFor(".md")
	require.True(t, ok)
	assert.Equal(t, PassThrough, ex.Soundness())
	assert.Equal(t, "pass-through", ex.Soundness().String())

	_, ok = d.ExtractorFor(".go")
	assert.False(t, ok)
}
