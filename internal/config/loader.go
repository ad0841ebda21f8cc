package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CODESUM_*)
// 2. Config file (.codesum/config.yml or .codesum/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, ConfigDir))

	v.SetEnvPrefix("CODESUM")
	v.AutomaticEnv()
	// CODESUM_PROCESSING_WORKERS -> processing.workers
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"paths.extensions",
		"paths.docs",
		"ignore.project_file",
		"ignore.vcs_file",
		"ignore.fallback_dir",
		"output.dir",
		"output.file",
		"output.database",
		"processing.workers",
		"watch.debounce_ms",
	} {
		v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.extensions", defaults.Paths.Extensions)
	v.SetDefault("paths.docs", defaults.Paths.Docs)

	v.SetDefault("ignore.project_file", defaults.Ignore.ProjectFile)
	v.SetDefault("ignore.vcs_file", defaults.Ignore.VCSFile)
	v.SetDefault("ignore.fallback_dir", defaults.Ignore.FallbackDir)

	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.file", defaults.Output.File)
	v.SetDefault("output.database", defaults.Output.Database)

	v.SetDefault("processing.workers", defaults.Processing.Workers)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
