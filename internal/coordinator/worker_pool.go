package coordinator

import (
	"sync"
)

// Task is a unit of post-settle work
type Task func()

// WorkerPool runs tasks on a fixed set of goroutines. Stop drains queued
// tasks instead of dropping them, so moves already scheduled get to finish.
type WorkerPool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers * 2
	}
	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop rejects new tasks, then waits for queued and running ones
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.taskQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
}

// Submit queues a task. It blocks while the queue is full and returns false
// once the pool is stopped.
func (wp *WorkerPool) Submit(task Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	wp.taskQueue <- task
	return true
}

// worker runs a worker goroutine
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		if task != nil {
			task()
		}
	}
}
