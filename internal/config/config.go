package config

import (
	"path/filepath"
	"time"

	"github.com/mvp-joe/codesum/internal/analyzer"
)

// ConfigDir is the per-project directory holding config.yml.
const ConfigDir = ".codesum"

// Config represents the complete codesum configuration.
// It can be loaded from .codesum/config.yml with environment variable overrides.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Ignore     IgnoreConfig     `yaml:"ignore" mapstructure:"ignore"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Watch      WatchConfig      `yaml:"watch" mapstructure:"watch"`
}

// PathsConfig defines which files are summarized.
type PathsConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions"` // allow-list, leading dot required
	Docs       []string `yaml:"docs" mapstructure:"docs"`             // glob patterns on base names
}

// IgnoreConfig names the ignore files read from the project root.
type IgnoreConfig struct {
	ProjectFile string `yaml:"project_file" mapstructure:"project_file"`
	VCSFile     string `yaml:"vcs_file" mapstructure:"vcs_file"`
	FallbackDir string `yaml:"fallback_dir" mapstructure:"fallback_dir"` // empty means the bundled default
}

// OutputConfig controls where summaries go.
type OutputConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`           // empty means the working directory
	File     string `yaml:"file" mapstructure:"file"`         // summary file name
	Database string `yaml:"database" mapstructure:"database"` // SQLite path, empty disables the sink
}

// ProcessingConfig tunes the read and extract stage.
type ProcessingConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Extensions: append([]string(nil), analyzer.DefaultExtensions...),
			Docs:       append([]string(nil), analyzer.DefaultDocFiles...),
		},
		Ignore: IgnoreConfig{
			ProjectFile: analyzer.DefaultProjectIgnoreFile,
			VCSFile:     analyzer.DefaultVCSIgnoreFile,
			FallbackDir: "",
		},
		Output: OutputConfig{
			Dir:      "",
			File:     analyzer.DefaultOutputFile,
			Database: "",
		},
		Processing: ProcessingConfig{
			Workers: 1,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// ToAnalyzerConfig converts a Config to an analyzer.Config.
// The rootDir parameter specifies the root directory of the codebase to summarize.
func (c *Config) ToAnalyzerConfig(rootDir string) *analyzer.Config {
	return &analyzer.Config{
		RootDir:           rootDir,
		Extensions:        c.Paths.Extensions,
		DocsPatterns:      c.Paths.Docs,
		ProjectIgnoreFile: c.Ignore.ProjectFile,
		VCSIgnoreFile:     c.Ignore.VCSFile,
		IgnoreFallbackDir: c.Ignore.FallbackDir,
		Workers:           c.Processing.Workers,
	}
}

// OutputDir resolves the output directory, falling back to workDir.
func (c *Config) OutputDir(workDir string) string {
	if c.Output.Dir == "" {
		return workDir
	}
	if filepath.IsAbs(c.Output.Dir) {
		return c.Output.Dir
	}
	return filepath.Join(workDir, c.Output.Dir)
}

// Debounce returns the watch debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
