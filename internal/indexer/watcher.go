package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// IndexerWatcher watches a directory for source changes and re-runs Index.
type IndexerWatcher struct {
	indexer      *Indexer
	rootDir      string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	onReindex    func(*Result, error)
	dirs         map[string]struct{} // watched directories; touched only before Start and by the watch goroutine
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
}

// WatcherOption configures an IndexerWatcher.
type WatcherOption func(*IndexerWatcher)

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(iw *IndexerWatcher) {
		iw.debounceTime = d
	}
}

// WithReindexHook is called after every reindex triggered by the watcher.
func WithReindexHook(fn func(*Result, error)) WatcherOption {
	return func(iw *IndexerWatcher) {
		iw.onReindex = fn
	}
}

// NewIndexerWatcher creates a new file watcher for the indexer.
func NewIndexerWatcher(idx *Indexer, rootDir string, opts ...WatcherOption) (*IndexerWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	iw := &IndexerWatcher{
		indexer:      idx,
		rootDir:      rootDir,
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
		dirs:         make(map[string]struct{}),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(iw)
	}

	// Add directories to watcher recursively
	if err := iw.addDirectoriesRecursively(rootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	return iw, nil
}

// Start begins watching for file changes.
func (iw *IndexerWatcher) Start(ctx context.Context) {
	go iw.watch(ctx)
}

// Stop stops the file watcher.
func (iw *IndexerWatcher) Stop() {
	iw.stopOnce.Do(func() {
		close(iw.stopCh)
		<-iw.doneCh // Wait for goroutine to finish
		iw.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (iw *IndexerWatcher) watch(ctx context.Context) {
	defer close(iw.doneCh)

	var debounceTimer *time.Timer
	reindexCh := make(chan struct{}, 1)
	changedFiles := make(map[string]bool)

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

		case <-iw.stopCh:
			stopTimer()
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}

			if !iw.handleEvent(event) {
				continue
			}

			relPath, _ := filepath.Rel(iw.rootDir, event.Name)
			changedFiles[relPath] = true

			stopTimer()
			debounceTimer = time.AfterFunc(iw.debounceTime, func() {
				// Send reindex signal (non-blocking)
				select {
				case reindexCh <- struct{}{}:
				default:
				}
			})

		case <-reindexCh:
			iw.triggerReindex(ctx, changedFiles)
			changedFiles = make(map[string]bool)

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			iw.indexer.logger.WithError(err).Warn("File watcher error")
		}
	}
}

// triggerReindex runs a full pass. Unchanged files are served from the result cache when one is configured.
func (iw *IndexerWatcher) triggerReindex(ctx context.Context, changedFiles map[string]bool) {
	if len(changedFiles) == 0 {
		return
	}

	iw.indexer.logger.WithField("changed_files", len(changedFiles)).Info("Reindexing after source changes")

	result, err := iw.indexer.Index(ctx, iw.rootDir)
	if err != nil {
		iw.indexer.logger.WithError(err).Error("Reindex failed")
	}
	if iw.onReindex != nil {
		iw.onReindex(result, err)
	}
}

// handleEvent keeps the watch list in step with the tree and reports whether the
// event can change the extraction result.
func (iw *IndexerWatcher) handleEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !iw.shouldWatchDirectory(event.Name) {
				return false
			}
			if err := iw.addDirectoriesRecursively(event.Name); err != nil {
				iw.indexer.logger.WithFields(logrus.Fields{
					"path":  event.Name,
					"error": err,
				}).Warn("Failed to watch new directory")
			}
			// A directory moved into the tree may already hold source files
			return true
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && iw.forgetDirectory(event.Name) {
		return true
	}

	return iw.shouldProcessEvent(event)
}

// forgetDirectory drops a removed or renamed directory and everything below it from
// the watch list. It reports whether path was a watched directory.
func (iw *IndexerWatcher) forgetDirectory(path string) bool {
	if _, ok := iw.dirs[path]; !ok {
		return false
	}

	prefix := path + string(filepath.Separator)
	for dir := range iw.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(iw.dirs, dir)
			// The kernel may already have dropped the watch
			_ = iw.watcher.Remove(dir)
		}
	}
	return true
}

// shouldProcessEvent checks if an event should trigger reindexing.
func (iw *IndexerWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	// Only care about WRITE, CREATE, REMOVE and RENAME events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	// The artifact itself may live under the watched tree
	if absEvent, err := filepath.Abs(event.Name); err == nil {
		if absOut, err := filepath.Abs(iw.indexer.writer.Path()); err == nil && absEvent == absOut {
			return false
		}
	}

	relPath, err := filepath.Rel(iw.rootDir, event.Name)
	if err != nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	if iw.indexer.discovery.shouldIgnore(relPath) {
		return false
	}

	return iw.indexer.discovery.hasSourceExtension(event.Name)
}

// shouldWatchDirectory checks if a directory should be watched.
func (iw *IndexerWatcher) shouldWatchDirectory(path string) bool {
	relPath, err := filepath.Rel(iw.rootDir, path)
	if err != nil {
		return false
	}

	relPath = filepath.ToSlash(relPath)
	if relPath == "." {
		return true
	}

	return !iw.indexer.discovery.shouldIgnore(relPath)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (iw *IndexerWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			// Don't fail the entire watch for one directory
			iw.indexer.logger.WithFields(logrus.Fields{
				"path":  path,
				"error": err,
			}).Warn("Error accessing directory")
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if !iw.shouldWatchDirectory(path) {
			return filepath.SkipDir
		}

		if err := iw.watcher.Add(path); err != nil {
			iw.indexer.logger.WithFields(logrus.Fields{
				"path":  path,
				"error": err,
			}).Warn("Failed to watch directory")
			return nil
		}
		iw.dirs[path] = struct{}{}

		return nil
	})
}
