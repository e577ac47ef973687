package watcher

import (
	"fmt"
	"time"
)

// EventKind is the kind of change reported for a path
type EventKind int

const (
	EventCreated EventKind = iota
	EventModified
)

// String returns the string representation of the kind
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	default:
		return "unknown"
	}
}

// FileEvent represents a file system event in the watched directory
type FileEvent struct {
	Path        string
	Kind        EventKind
	IsDirectory bool
	Timestamp   time.Time
}

// WatchError is a failure of the watch primitive itself. The sorter cannot
// work without it, so it is fatal to the process.
type WatchError struct {
	Op   string
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }
