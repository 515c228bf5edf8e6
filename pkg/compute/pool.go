package compute

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
)

// Job is one unit of pool work: a chunk closure. Jobs are independent and
// carry their own state; the pool never inspects them.
type Job func()

// PoolConfig tunes the shared worker pool.
type PoolConfig struct {
	// Workers is the number of worker goroutines.
	// Zero or negative means runtime.NumCPU().
	Workers int

	// QueueSize bounds the backlog of accepted jobs. Zero means 1024.
	QueueSize int
}

// Pool runs chunk closures on a fixed set of workers shared by all tasks.
//
// The pool is sized to the host's logical processor count by default: chunk
// bodies are CPU-bound, so more workers than cores only adds contention.
type Pool struct {
	jobs    chan Job
	workers int

	// Worker management
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu      sync.Mutex
	started bool

	metrics *Metrics
}

// NewPool creates a worker pool. metrics may be nil.
func NewPool(cfg PoolConfig, metrics *Metrics) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}

	return &Pool{
		jobs:      make(chan Job, cfg.QueueSize),
		workers:   cfg.Workers,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		metrics:   metrics,
	}
}

// Start launches the workers. Later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	logger.Info("Starting compute pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	// Monitor goroutine to close stoppedCh when all workers exit
	go func() {
		p.wg.Wait()
		close(p.stoppedCh)
	}()
}

// Stop shuts the pool down, draining already-accepted jobs.
// It returns once the workers exit or the timeout elapses.
func (p *Pool) Stop(timeout time.Duration) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		// Never started - nothing to stop
		return
	}
	p.mu.Unlock()

	logger.Info("Stopping compute pool", "pending", p.Pending())

	// Signal workers to stop
	close(p.stopCh)

	// Wait with timeout
	select {
	case <-p.stoppedCh:
		logger.Info("Compute pool stopped gracefully")
	case <-time.After(timeout):
		logger.Warn("Compute pool stop timed out", "pending", p.Pending())
	}
}

// Submit enqueues a job, blocking while the queue is full.
// Returns false once the pool is stopping and the job was not accepted.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.jobs <- job:
		p.metrics.RecordEnqueued()
		return true
	case <-p.stopCh:
		return false
	}
}

// TrySubmit enqueues a job without blocking.
// Returns false if the queue is full or the pool is stopping.
func (p *Pool) TrySubmit(job Job) bool {
	select {
	case <-p.stopCh:
		return false
	default:
	}
	select {
	case p.jobs <- job:
		p.metrics.RecordEnqueued()
		return true
	default:
		return false
	}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Pending returns the number of accepted jobs not yet picked up by a worker.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

// worker processes jobs until stopCh closes.
//
// IMPORTANT: Workers ignore the passed context for lifecycle management and
// only exit when stopCh is closed. This prevents workers from exiting early
// if the initialization context is short-lived or cancelled.
func (p *Pool) worker(_ context.Context, id int) {
	defer p.wg.Done()

	logger.Debug("Compute pool worker started", "workerID", id)

	for {
		select {
		case job := <-p.jobs:
			p.runJob(job)
		case <-p.stopCh:
			p.drainQueue()
			logger.Debug("Compute pool worker stopped", "workerID", id)
			return
		}
	}
}

// drainQueue runs the jobs still queued during shutdown. Tasks observe their
// cancellation flags at chunk boundaries, so draining finishes quickly even
// mid-task.
func (p *Pool) drainQueue() {
	for {
		select {
		case job := <-p.jobs:
			p.runJob(job)
		default:
			return
		}
	}
}

// runJob runs one closure. Chunk closures recover their own panics and route
// the failure into their task; this recover is the backstop so a stray panic
// can never kill a worker.
func (p *Pool) runJob(job Job) {
	p.metrics.RecordDequeued()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Compute pool job panicked", "panic", r)
		}
	}()
	job()
}
