// Package coordinator turns watcher events into classify-and-move work.
//
// Each event gets its own settle timer so the producing application can
// finish writing. After the timer fires the event is handed to a worker,
// which re-checks the file, filters scratch files, classifies it and moves
// it. Work on the same path is serialised; different paths run in parallel.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/obby/inbox-sorter/internal/classify"
	"github.com/obby/inbox-sorter/internal/logging"
	"github.com/obby/inbox-sorter/internal/metrics"
	"github.com/obby/inbox-sorter/internal/mover"
	"github.com/obby/inbox-sorter/internal/patterns"
	"github.com/obby/inbox-sorter/internal/watcher"
)

// DefaultSettleDelay is how long an event waits before it is acted on.
const DefaultSettleDelay = time.Second

// Options configures a Coordinator
type Options struct {
	SourceDir   string
	Categories  classify.CategoryMap
	Mover       *mover.Mover
	Ignore      *patterns.Matcher
	SettleDelay time.Duration
	Workers     int
	QueueSize   int
	Logger      *zap.Logger
	Metrics     *metrics.Recorder

	// Exclude lists exact paths that are never moved, such as a lock
	// file kept inside the source directory.
	Exclude []string

	// OnResult, when set, is called with the result of every event
	// handled through Submit or Sweep.
	OnResult func(Result)
}

// Coordinator owns the decision of whether and when to act on an event
type Coordinator struct {
	sourceDir  string
	categories classify.CategoryMap
	mover      *mover.Mover
	ignore     *patterns.Matcher
	settle     time.Duration
	logger     *zap.Logger
	metrics    *metrics.Recorder
	onResult   func(Result)
	exclude    map[string]struct{}

	locks *pathLocks
	pool  *WorkerPool

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	stopped  bool
	nextID   uint64
	timers   map[uint64]pending
	inflight sync.WaitGroup
}

type pending struct {
	timer *time.Timer
	path  string
}

// New creates a Coordinator. Call Start before Submit.
func New(opts Options) (*Coordinator, error) {
	if opts.Mover == nil {
		return nil, errors.New("coordinator requires a mover")
	}
	if opts.SettleDelay < 0 {
		return nil, fmt.Errorf("negative settle delay %s", opts.SettleDelay)
	}
	if opts.Ignore == nil {
		m, err := patterns.NewMatcher(nil)
		if err != nil {
			return nil, err
		}
		opts.Ignore = m
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}

	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, p := range opts.Exclude {
		if p != "" {
			exclude[filepath.Clean(p)] = struct{}{}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		sourceDir:  opts.SourceDir,
		categories: opts.Categories,
		mover:      opts.Mover,
		ignore:     opts.Ignore,
		settle:     opts.SettleDelay,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		onResult:   opts.OnResult,
		exclude:    exclude,
		locks:      newPathLocks(),
		pool:       NewWorkerPool(opts.Workers, opts.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
		timers:     make(map[uint64]pending),
	}, nil
}

// Start starts the worker pool
func (c *Coordinator) Start() {
	c.pool.Start()
}

// Stop stops accepting events, drops events still settling, and waits for
// queued and running moves to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	var dropped []string
	for id, p := range c.timers {
		if p.timer.Stop() {
			dropped = append(dropped, p.path)
			c.inflight.Done()
		}
		delete(c.timers, id)
	}
	c.mu.Unlock()

	for _, path := range dropped {
		c.logger.Warn("dropped event still settling, run sweep to sort it", logging.Path(path))
	}
	if len(dropped) > 0 {
		c.logger.Info("dropped events still settling", zap.Int("count", len(dropped)))
	}

	c.cancel()
	c.pool.Stop()
	c.inflight.Wait()
}

// Submit hands ev off for asynchronous handling and returns immediately.
// It returns false once the coordinator is stopped.
func (c *Coordinator) Submit(ev watcher.FileEvent) bool {
	c.metrics.EventReceived(ev.Kind.String())

	if ev.IsDirectory {
		c.report(c.record(Result{Event: ev, Disposition: DispositionDirectory}))
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}

	c.logDetected(ev)

	id := c.nextID
	c.nextID++
	c.inflight.Add(1)
	// The timer removes itself only after handing off to the pool, so an
	// empty timer table means every accepted event is queued or done.
	t := time.AfterFunc(c.settle, func() {
		ok := c.pool.Submit(func() {
			defer c.inflight.Done()
			c.report(c.process(ev))
		})
		if !ok {
			c.inflight.Done()
		}

		c.mu.Lock()
		delete(c.timers, id)
		c.mu.Unlock()
	})
	c.timers[id] = pending{timer: t, path: ev.Path}
	return true
}

// Handle runs the full pipeline for ev on the calling goroutine, settle
// included. Cancelling ctx during the settle abandons the event.
func (c *Coordinator) Handle(ctx context.Context, ev watcher.FileEvent) Result {
	if ev.IsDirectory {
		return c.record(Result{Event: ev, Disposition: DispositionDirectory})
	}

	c.logDetected(ev)

	if err := c.wait(ctx); err != nil {
		return c.record(Result{Event: ev, Disposition: DispositionCancelled})
	}
	return c.process(ev)
}

// Run pumps watcher output into Submit until ctx is done or the event
// channel closes. A watcher error is fatal and returned as-is.
func (c *Coordinator) Run(ctx context.Context, events <-chan watcher.FileEvent, errs <-chan error) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.Submit(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep sorts every regular file already sitting in the source directory.
// No settle is applied: these files predate the sorter.
func (c *Coordinator) Sweep(ctx context.Context) ([]Result, error) {
	entries, err := os.ReadDir(c.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	c.logger.Info("sweeping existing files", zap.String("dir", c.sourceDir), zap.Int("entries", len(entries)))

	var results []Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		ev := watcher.FileEvent{
			Path:      filepath.Join(c.sourceDir, entry.Name()),
			Kind:      watcher.EventCreated,
			Timestamp: time.Now(),
		}
		r := c.process(ev)
		c.report(r)
		results = append(results, r)
	}
	return results, nil
}

func (c *Coordinator) wait(ctx context.Context) error {
	if c.settle <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// process runs the post-settle stages while holding the path's lock.
func (c *Coordinator) process(ev watcher.FileEvent) Result {
	unlock := c.locks.Lock(ev.Path)
	defer unlock()

	name := filepath.Base(ev.Path)

	if _, ok := c.exclude[filepath.Clean(ev.Path)]; ok {
		return c.record(Result{Event: ev, Disposition: DispositionIgnored})
	}

	if ev.Kind == watcher.EventModified {
		if _, err := os.Lstat(ev.Path); errors.Is(err, fs.ErrNotExist) {
			return c.record(Result{
				Event:       ev,
				Disposition: DispositionMissing,
				Outcome: mover.Outcome{
					OriginalName: name,
					Source:       ev.Path,
					Kind:         mover.KindSourceMissing,
					Err:          &mover.Error{Kind: mover.KindSourceMissing, Path: ev.Path, Err: err},
				},
			})
		}
	}

	if c.ignore.IsTempArtifact(name) {
		return c.record(Result{Event: ev, Disposition: DispositionTempArtifact})
	}
	if c.ignore.IsIgnored(name) {
		return c.record(Result{Event: ev, Disposition: DispositionIgnored})
	}

	category := classify.Classify(name, c.categories)

	start := time.Now()
	out := c.mover.Move(ev.Path, category)
	r := Result{Event: ev, Outcome: out, Elapsed: time.Since(start)}

	switch {
	case out.Success:
		r.Disposition = DispositionMoved
	case out.Kind == mover.KindSourceMissing:
		r.Disposition = DispositionMissing
	default:
		r.Disposition = DispositionFailed
	}
	return c.record(r)
}

func (c *Coordinator) logDetected(ev watcher.FileEvent) {
	if ev.Kind == watcher.EventModified {
		c.logger.Info("file modified, checking", logging.Path(ev.Path))
		return
	}
	c.logger.Info("new file detected", logging.Path(ev.Path))
}

// record logs r and updates metrics. It returns r unchanged.
func (c *Coordinator) record(r Result) Result {
	path := logging.Path(r.Event.Path)

	switch r.Disposition {
	case DispositionMoved:
		c.logger.Info("moved",
			zap.String("file", r.Outcome.OriginalName),
			zap.String("category", r.Outcome.Category),
			zap.String("destination", r.Outcome.Destination))
		c.metrics.FileMoved(r.Outcome.Category, r.Elapsed)
		return r
	case DispositionFailed:
		c.logger.Error("move failed, leaving file in place",
			path,
			zap.String("category", r.Outcome.Category),
			zap.Stringer("kind", r.Outcome.Kind),
			zap.Error(r.Outcome.Err))
		c.metrics.MoveFailed(r.Outcome.Kind.String())
		return r
	case DispositionMissing:
		c.logger.Info("file not found, may have been processed", path)
	case DispositionTempArtifact:
		c.logger.Info("skipping temp file", path)
	case DispositionIgnored:
		c.logger.Info("skipping ignored file", path)
	case DispositionDirectory:
		c.logger.Debug("ignoring directory", path)
	case DispositionCancelled:
		c.logger.Debug("event abandoned on shutdown", path)
	}
	c.metrics.FileSkipped(r.Disposition.String())
	return r
}

func (c *Coordinator) report(r Result) {
	if c.onResult != nil {
		c.onResult(r)
	}
}
