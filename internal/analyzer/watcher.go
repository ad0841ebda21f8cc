package analyzer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunHandler receives the outcome of every run triggered by the watcher.
type RunHandler func(result *Result, err error)

// Watcher watches a project for changes and regenerates the whole summary
// after each debounced burst of events.
type Watcher struct {
	analyzer     *Analyzer
	discovery    *FileDiscovery
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	onRun        RunHandler
	skip         map[string]bool
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
}

// NewWatcher creates a watcher over every directory the analyzer would walk.
func NewWatcher(a *Analyzer, debounce time.Duration, onRun RunHandler) (*Watcher, error) {
	rules, _ := a.LoadRules()
	discovery, err := a.NewDiscovery(rules)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if onRun == nil {
		onRun = func(*Result, error) {}
	}

	w := &Watcher{
		analyzer:     a,
		discovery:    discovery,
		watcher:      fw,
		debounceTime: debounce,
		onRun:        onRun,
		skip:         make(map[string]bool),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	if err := w.addDirectoriesRecursively(a.RootDir()); err != nil {
		fw.Close()
		return nil, err
	}

	return w, nil
}

// Skip excludes paths from triggering runs, e.g. the summary file itself.
// Call before Start.
func (w *Watcher) Skip(paths ...string) {
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			w.skip[abs] = true
		}
	}
}

// Start begins watching for file changes.
func (w *Watcher) Start(ctx context.Context) {
	go w.watch(ctx)
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		w.watcher.Close()
	})
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// watch is the main event loop with debouncing logic.
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	var debounceTimer *time.Timer
	rerunCh := make(chan struct{}, 1)
	changed := make(map[string]bool)

	stopTimer := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case <-w.stopCh:
			stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.shouldProcessEvent(event) {
				continue
			}

			relPath, _ := filepath.Rel(w.analyzer.RootDir(), event.Name)
			changed[relPath] = true

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && w.discovery.ShouldWatchDirectory(event.Name) {
					if err := w.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			stopTimer()
			debounceTimer = time.AfterFunc(w.debounceTime, func() {
				select {
				case rerunCh <- struct{}{}:
				default:
				}
			})

		case <-rerunCh:
			w.rerun(ctx, changed)
			changed = make(map[string]bool)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

func (w *Watcher) rerun(ctx context.Context, changed map[string]bool) {
	if len(changed) == 0 {
		return
	}

	log.Printf("Regenerating summary after changes in %d path(s)...", len(changed))
	result, err := w.analyzer.Run(ctx)
	w.onRun(result, err)
}

// shouldProcessEvent filters events down to tracked files, ignore files and
// directory changes.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if w.skip[event.Name] {
		return false
	}

	name := filepath.Base(event.Name)
	cfg := w.analyzer.config
	if name == cfg.ProjectIgnoreFile || name == cfg.VCSIgnoreFile {
		return true
	}

	if w.discovery.ShouldTrackFile(event.Name) {
		return true
	}

	// Directory creation or removal changes the directory list.
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return w.discovery.ShouldWatchDirectory(event.Name) && filepath.Ext(name) == ""
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return w.discovery.ShouldWatchDirectory(event.Name)
	}
	return false
}

// addDirectoriesRecursively adds all non-pruned directories under rootPath.
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if !w.discovery.ShouldWatchDirectory(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
