package analyzer

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery walks a project tree, pruning ignored directories.
type FileDiscovery struct {
	rootDir      string
	rules        *RuleSet
	extensions   []string
	docsPatterns []compiledPattern
}

// NewFileDiscovery creates a new file discovery instance. docsPatterns are
// globs matched against file base names to spot documentation files.
func NewFileDiscovery(rootDir string, rules *RuleSet, extensions, docsPatterns []string) (*FileDiscovery, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rootDir, err)
	}
	if rules == nil {
		rules = NewRuleSet()
	}

	fd := &FileDiscovery{
		rootDir:    absRoot,
		rules:      rules,
		extensions: extensions,
	}

	for _, pattern := range docsPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid docs pattern %q: %w", pattern, err)
		}
		fd.docsPatterns = append(fd.docsPatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return fd, nil
}

// RootDir returns the absolute root being walked.
func (fd *FileDiscovery) RootDir() string {
	return fd.rootDir
}

// ListFiles returns every file whose name ends with an allowed extension and
// whose absolute path contains no ignore pattern, in walk order.
func (fd *FileDiscovery) ListFiles() ([]DiscoveredFile, error) {
	files := []DiscoveredFile{}

	err := fd.walk(func(path string, d fs.DirEntry) {
		if d.IsDir() {
			return
		}
		name := d.Name()
		if !fd.hasAllowedExtension(name) || fd.rules.MatchesPath(path) {
			return
		}
		files = append(files, DiscoveredFile{Path: path, Ext: splitExt(name)})
	})

	return files, err
}

// ListDirectories returns every visited directory relative to the root,
// excluding the root itself, in walk order.
func (fd *FileDiscovery) ListDirectories() ([]string, error) {
	dirs := []string{}

	err := fd.walk(func(path string, d fs.DirEntry) {
		if !d.IsDir() || path == fd.rootDir {
			return
		}
		rel, err := filepath.Rel(fd.rootDir, path)
		if err != nil || rel == "." {
			return
		}
		dirs = append(dirs, rel)
	})

	return dirs, err
}

// IsDocFile reports whether the file's base name matches a docs pattern.
func (fd *FileDiscovery) IsDocFile(path string) bool {
	name := filepath.Base(path)
	for _, cp := range fd.docsPatterns {
		if cp.glob.Match(name) {
			return true
		}
	}
	return false
}

// ShouldWatchDirectory reports whether a directory would be descended into.
func (fd *FileDiscovery) ShouldWatchDirectory(path string) bool {
	if path == fd.rootDir {
		return true
	}
	return !fd.rules.MatchesName(filepath.Base(path))
}

// ShouldTrackFile reports whether a file at path would be listed.
func (fd *FileDiscovery) ShouldTrackFile(path string) bool {
	return fd.hasAllowedExtension(filepath.Base(path)) && !fd.rules.MatchesPath(path)
}

// walk visits the tree top-down in lexical order. Directories whose bare name
// is an ignore pattern are pruned along with everything below them; the root
// is never pruned. Unreadable entries below the root are logged and skipped.
func (fd *FileDiscovery) walk(visit func(path string, d fs.DirEntry)) error {
	info, err := os.Stat(fd.rootDir)
	if err != nil {
		return fmt.Errorf("failed to stat root %s: %w", fd.rootDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", fd.rootDir)
	}

	return filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == fd.rootDir {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != fd.rootDir && fd.rules.MatchesName(d.Name()) {
				return filepath.SkipDir
			}
			visit(path, d)
			return nil
		}

		// Symlinks to directories are neither files nor descended into.
		if d.Type()&fs.ModeSymlink != 0 {
			if target, err := os.Stat(path); err == nil && target.IsDir() {
				return nil
			}
		}

		visit(path, d)
		return nil
	})
}

func (fd *FileDiscovery) hasAllowedExtension(name string) bool {
	for _, ext := range fd.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// splitExt returns the extension of a file name, including the dot. Leading
// dots do not start an extension, so ".gitignore" has none.
func splitExt(name string) string {
	base := strings.TrimLeft(name, ".")
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return ""
	}
	return base[i:]
}
