package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyExtensions indicates the extension allow-list is empty
	ErrEmptyExtensions = errors.New("empty extension list")

	// ErrInvalidExtension indicates an extension without a leading dot
	ErrInvalidExtension = errors.New("invalid extension")

	// ErrInvalidDocsPattern indicates a doc pattern that does not compile
	ErrInvalidDocsPattern = errors.New("invalid docs pattern")

	// ErrEmptyIgnoreFile indicates a missing ignore file name
	ErrEmptyIgnoreFile = errors.New("empty ignore file name")

	// ErrEmptyOutputFile indicates a missing summary file name
	ErrEmptyOutputFile = errors.New("empty output file name")

	// ErrInvalidWorkers indicates a worker count below one
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidDebounce indicates a negative debounce
	ErrInvalidDebounce = errors.New("invalid debounce")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if err := validateIgnore(&cfg.Ignore); err != nil {
		errs = append(errs, err)
	}
	if err := validateOutput(&cfg.Output); err != nil {
		errs = append(errs, err)
	}
	if cfg.Processing.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidWorkers, cfg.Processing.Workers))
	}
	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMS))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if len(cfg.Extensions) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one extension required", ErrEmptyExtensions))
	}
	for _, ext := range cfg.Extensions {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("%w: %q must start with a dot", ErrInvalidExtension, ext))
		}
	}

	for _, pattern := range cfg.Docs {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidDocsPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateIgnore(cfg *IgnoreConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.ProjectFile) == "" {
		errs = append(errs, fmt.Errorf("%w: project_file is required", ErrEmptyIgnoreFile))
	}
	if strings.TrimSpace(cfg.VCSFile) == "" {
		errs = append(errs, fmt.Errorf("%w: vcs_file is required", ErrEmptyIgnoreFile))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateOutput(cfg *OutputConfig) error {
	if strings.TrimSpace(cfg.File) == "" {
		return fmt.Errorf("%w: file is required", ErrEmptyOutputFile)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// Each error stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
