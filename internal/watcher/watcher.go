package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrRootGone is reported when the watched directory itself is removed or renamed.
var ErrRootGone = errors.New("watched directory removed or renamed")

// FileWatcher wraps fsnotify for a single, non-recursive directory
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	logger  *zap.Logger
	events  chan FileEvent
	errors  chan error
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewFileWatcher creates a watcher for dir. Nothing is delivered until Start.
func NewFileWatcher(dir string, logger *zap.Logger) (*FileWatcher, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, &WatchError{Op: "init", Path: dir, Err: err}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &WatchError{Op: "init", Path: absPath, Err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FileWatcher{
		watcher: w,
		root:    absPath,
		logger:  logger,
		events:  make(chan FileEvent, 1000),
		errors:  make(chan error, 10),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Root returns the absolute path being watched
func (fw *FileWatcher) Root() string {
	return fw.root
}

// Start registers the directory with the OS and begins delivering events
func (fw *FileWatcher) Start() error {
	info, err := os.Stat(fw.root)
	if err != nil {
		return &WatchError{Op: "start", Path: fw.root, Err: err}
	}
	if !info.IsDir() {
		return &WatchError{Op: "start", Path: fw.root, Err: errors.New("not a directory")}
	}

	if err := fw.watcher.Add(fw.root); err != nil {
		return &WatchError{Op: "add", Path: fw.root, Err: err}
	}

	if detectWSL() && isDrvFsPath(fw.root) {
		fw.logger.Warn("watched directory is on a Windows mount; inotify events may not be delivered",
			zap.String("path", fw.root))
	}

	fw.logger.Info("watching directory", zap.String("path", fw.root))

	fw.wg.Add(1)
	go fw.processEvents()
	return nil
}

// Stop stops the watcher and closes the Events and Errors channels
func (fw *FileWatcher) Stop() error {
	var err error
	fw.once.Do(func() {
		fw.cancel()
		err = fw.watcher.Close()
		fw.wg.Wait()
		close(fw.events)
		close(fw.errors)
	})
	return err
}

// processEvents processes events from fsnotify
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.reportError(&WatchError{Op: "watch", Path: fw.root, Err: err})
		case <-fw.ctx.Done():
			return
		}
	}
}

// handleEvent translates a single fsnotify event
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if path == fw.root {
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			fw.reportError(&WatchError{Op: event.Op.String(), Path: fw.root, Err: ErrRootGone})
		}
		return
	}

	kind, ok := translateOp(event.Op)
	if !ok {
		fw.logger.Debug("ignoring event", zap.String("path", path), zap.String("op", event.Op.String()))
		return
	}

	fileEvent := FileEvent{
		Path:        path,
		Kind:        kind,
		IsDirectory: isDirectory(path),
		Timestamp:   time.Now(),
	}

	select {
	case fw.events <- fileEvent:
	case <-fw.ctx.Done():
	}
}

// translateOp maps fsnotify ops to event kinds. Remove, rename-away and
// chmod carry nothing to sort.
func translateOp(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreated, true
	case op.Has(fsnotify.Write):
		return EventModified, true
	default:
		return 0, false
	}
}

func isDirectory(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

func (fw *FileWatcher) reportError(err error) {
	fw.logger.Error("watcher error", zap.Error(err))
	select {
	case fw.errors <- err:
	default:
	}
}

// Events returns the events channel
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

// Errors returns the errors channel. Every error on it is fatal.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

// detectWSL detects if running in WSL
func detectWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

// isDrvFsPath checks if a path is on DrvFS (Windows filesystem mounted in WSL)
func isDrvFsPath(path string) bool {
	return strings.HasPrefix(path, "/mnt/")
}
