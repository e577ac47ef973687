// Package metrics provides Prometheus metrics for the sorter.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the sorter's counters on a private registry
type Recorder struct {
	registry *prometheus.Registry

	eventsReceived *prometheus.CounterVec
	filesMoved     *prometheus.CounterVec
	filesSkipped   *prometheus.CounterVec
	moveFailures   *prometheus.CounterVec
	moveDuration   prometheus.Histogram
}

// New creates a Recorder with all collectors registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		eventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inbox_sorter_events_received_total",
				Help: "File events received from the watcher",
			},
			[]string{"kind"},
		),
		filesMoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inbox_sorter_files_moved_total",
				Help: "Files relocated, by category",
			},
			[]string{"category"},
		),
		filesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inbox_sorter_files_skipped_total",
				Help: "Events discarded without a move, by reason",
			},
			[]string{"reason"},
		),
		moveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inbox_sorter_move_failures_total",
				Help: "Failed moves, by error kind",
			},
			[]string{"kind"},
		),
		moveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "inbox_sorter_move_duration_seconds",
				Help:    "Time spent relocating a file",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	r.registry.MustRegister(r.eventsReceived, r.filesMoved, r.filesSkipped, r.moveFailures, r.moveDuration)
	return r
}

// EventReceived counts an incoming event
func (r *Recorder) EventReceived(kind string) {
	r.eventsReceived.WithLabelValues(kind).Inc()
}

// FileMoved records a successful move
func (r *Recorder) FileMoved(category string, d time.Duration) {
	r.filesMoved.WithLabelValues(category).Inc()
	r.moveDuration.Observe(d.Seconds())
}

// FileSkipped records a discarded event
func (r *Recorder) FileSkipped(reason string) {
	r.filesSkipped.WithLabelValues(reason).Inc()
}

// MoveFailed records a failed move
func (r *Recorder) MoveFailed(kind string) {
	r.moveFailures.WithLabelValues(kind).Inc()
}

// Registry returns the registry the collectors live on
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the /metrics handler for this recorder
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
