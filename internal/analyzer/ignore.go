package analyzer

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultProjectIgnoreFile is looked up at the project root, then in the fallback location.
	DefaultProjectIgnoreFile = ".codebaseignore"

	// DefaultVCSIgnoreFile is read from the project root only.
	DefaultVCSIgnoreFile = ".gitignore"
)

//go:embed defaults.codebaseignore
var bundledIgnore []byte

// RuleSet is an immutable set of literal ignore patterns.
//
// A pattern prunes a directory whose bare name equals it, and drops a file
// whose full path contains it. Patterns are not globs.
type RuleSet struct {
	patterns map[string]struct{}
}

// NewRuleSet builds a rule set. Duplicates collapse.
func NewRuleSet(patterns ...string) *RuleSet {
	rs := &RuleSet{patterns: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		rs.patterns[p] = struct{}{}
	}
	return rs
}

// Len returns the number of distinct patterns.
func (rs *RuleSet) Len() int {
	return len(rs.patterns)
}

// MatchesName reports whether name equals a pattern exactly.
func (rs *RuleSet) MatchesName(name string) bool {
	_, ok := rs.patterns[name]
	return ok
}

// MatchesPath reports whether any pattern is a substring of path.
func (rs *RuleSet) MatchesPath(path string) bool {
	for p := range rs.patterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// Patterns returns the patterns sorted lexically.
func (rs *RuleSet) Patterns() []string {
	out := make([]string, 0, len(rs.patterns))
	for p := range rs.patterns {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IgnoreLoader locates and reads ignore files for a project.
type IgnoreLoader struct {
	// ProjectFile is looked for at the base path, then in FallbackDir.
	ProjectFile string

	// VCSFile is looked for at the base path only.
	VCSFile string

	// FallbackDir holds a default ProjectFile. Empty means the bundled copy.
	FallbackDir string
}

// NewIgnoreLoader creates a loader with the default file names and the bundled fallback.
func NewIgnoreLoader() *IgnoreLoader {
	return &IgnoreLoader{
		ProjectFile: DefaultProjectIgnoreFile,
		VCSFile:     DefaultVCSIgnoreFile,
	}
}

// Load merges the project ignore file (or its fallback) and the VCS ignore
// file found at basePath. It returns the rules and the sources that were used.
//
// Missing files are skipped silently. Files that exist but cannot be read are
// logged and skipped; an unreadable project file is not replaced by a fallback.
func (l *IgnoreLoader) Load(basePath string) (*RuleSet, []string) {
	var patterns []string
	var sources []string

	if src, r, ok := l.openProjectFile(basePath); ok {
		patterns = append(patterns, readPatterns(src, r)...)
		sources = append(sources, src)
		log.Printf("Using %s: %s", l.ProjectFile, src)
	}

	if l.VCSFile != "" {
		path := filepath.Join(basePath, l.VCSFile)
		if data, err := readIgnoreFile(path); err == nil {
			patterns = append(patterns, readPatterns(path, bytes.NewReader(data))...)
			sources = append(sources, path)
			log.Printf("Using %s: %s", l.VCSFile, path)
		}
	}

	return NewRuleSet(patterns...), sources
}

// openProjectFile finds the project ignore file: base path first, then the
// fallback directory, then the bundled default. Only a missing file moves the
// search on.
func (l *IgnoreLoader) openProjectFile(basePath string) (string, io.Reader, bool) {
	if l.ProjectFile == "" {
		return "", nil, false
	}

	local := filepath.Join(basePath, l.ProjectFile)
	data, err := readIgnoreFile(local)
	if err == nil {
		return local, bytes.NewReader(data), true
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", nil, false
	}

	if l.FallbackDir == "" {
		return "(bundled default)", bytes.NewReader(bundledIgnore), true
	}

	fallback := filepath.Join(l.FallbackDir, l.ProjectFile)
	if data, err := readIgnoreFile(fallback); err == nil {
		return fallback, bytes.NewReader(data), true
	}
	return "", nil, false
}

// readIgnoreFile reads path. Errors other than a missing file are logged.
func readIgnoreFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to read ignore file %s: %v", path, err)
	}
	return data, err
}

// readPatterns returns every trimmed line that is neither blank nor a # comment.
func readPatterns(source string, r io.Reader) []string {
	var patterns []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Warning: stopped reading %s early: %v", source, err)
	}

	return patterns
}
