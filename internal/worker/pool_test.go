package worker

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_RunsAllTasksBeforeStop(t *testing.T) {
	p := NewPool(3, 100)
	var n atomic.Int32
	for i := 0; i < 50; i++ {
		assert.True(t, p.TrySubmit(func() { n.Add(1) }))
	}
	p.Stop()
	assert.Equal(t, int32(50), n.Load())
}

func TestPool_TrySubmitFullQueueDoesNotBlock(t *testing.T) {
	p := NewPool(1, 1)
	block := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)
	assert.True(t, p.TrySubmit(func() { started.Done(); <-block }))
	started.Wait()

	assert.True(t, p.TrySubmit(func() {}))
	assert.False(t, p.TrySubmit(func() {}))

	close(block)
	p.Stop()
	assert.False(t, p.TrySubmit(func() {}))
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	p := NewPool(1, 10)
	var ran atomic.Bool
	p.TrySubmit(func() { panic("boom") })
	p.TrySubmit(func() { ran.Store(true) })
	p.Stop()
	assert.True(t, ran.Load())
}
