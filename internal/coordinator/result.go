package coordinator

import (
	"time"

	"github.com/obby/inbox-sorter/internal/mover"
	"github.com/obby/inbox-sorter/internal/watcher"
)

// Disposition is what the coordinator ended up doing with an event
type Disposition int

const (
	DispositionMoved Disposition = iota
	DispositionDirectory
	DispositionTempArtifact
	DispositionIgnored
	// DispositionMissing means the file was gone by the time it was
	// handled, usually because an earlier event already moved it.
	DispositionMissing
	DispositionFailed
	DispositionCancelled
)

// String returns the string representation of the disposition
func (d Disposition) String() string {
	switch d {
	case DispositionMoved:
		return "moved"
	case DispositionDirectory:
		return "directory"
	case DispositionTempArtifact:
		return "temp_artifact"
	case DispositionIgnored:
		return "ignored"
	case DispositionMissing:
		return "source_missing"
	case DispositionFailed:
		return "failed"
	case DispositionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the handling of a single event. Outcome is only populated for
// moved, missing and failed events.
type Result struct {
	Event       watcher.FileEvent
	Disposition Disposition
	Outcome     mover.Outcome
	Elapsed     time.Duration
}

// Benign reports whether the result needs no operator attention
func (r Result) Benign() bool {
	return r.Disposition != DispositionFailed
}
