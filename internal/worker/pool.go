package worker

import (
	"log/slog"
	"sync"

	"github.com/baharkarakas/custodial-ledger/internal/metrics"
)

// Pool runs side-effect tasks (notifications, operator messages) off the request path.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan func()
	mu     sync.RWMutex
	closed bool
}

func NewPool(n, queue int) *Pool {
	if n <= 0 {
		n = 1
	}
	if queue <= 0 {
		queue = 1024
	}
	p := &Pool{jobs: make(chan func(), queue)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				run(job)
			}
		}()
	}
	return p
}

func run(job func()) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker panic", "err", rec)
		}
	}()
	job()
}

// TrySubmit enqueues f without blocking. It reports false when the queue is full or the pool stopped.
func (p *Pool) TrySubmit(f func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Inc()
		return true
	default:
		return false
	}
}

// Stop drains queued tasks and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
