package coordinator

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_StopDrainsQueuedTasks(t *testing.T) {
	wp := NewWorkerPool(1, 16)
	wp.Start()

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		assert.True(t, wp.Submit(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		}))
	}

	wp.Stop()

	assert.Equal(t, int32(10), ran.Load())
	assert.False(t, wp.Submit(func() { ran.Add(1) }))
	wp.Stop()
}

func TestNewWorkerPool_Defaults(t *testing.T) {
	wp := NewWorkerPool(0, 0)
	assert.Equal(t, 1, wp.workers)
	assert.Equal(t, 2, cap(wp.taskQueue))
}
