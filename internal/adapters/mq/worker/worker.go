// Package worker runs queued full scans off the request path.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/dupscan/internal/adapters/mq/queue"
	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/pkg/logger"
	"github.com/okian/dupscan/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Scanner runs a full duplicate scan for a tenant.
type Scanner interface {
	ScanAll(ctx context.Context, tenantID string, minScore *int) (model.ScanResult, error)
}

// JobUpdater records job status transitions.
type JobUpdater interface {
	Update(id string, fn func(*model.ScanJob)) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes scan jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for jobs from an in-process queue.
type InMemoryWorker struct {
	queue   Queue
	scanner Scanner
	jobs    JobUpdater
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, scanner Scanner, jobs JobUpdater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scanner:  scanner,
		jobs:     jobs,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named(w.name)

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, j); err != nil {
				w.logger.Error(ctx, "scan job failed",
					logger.String("job_id", j.ID),
					logger.String("tenant_id", j.TenantID),
					logger.Error(err))
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// processJob runs one scan and records its outcome in the job store.
func (w *InMemoryWorker) processJob(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	metrics.IncWorkerActive()
	defer metrics.DecWorkerActive()

	start := time.Now()
	if err := w.jobs.Update(j.ID, func(sj *model.ScanJob) {
		sj.Status = model.JobRunning
		sj.StartedAt = &start
	}); err != nil {
		metrics.RecordErrorByComponent("worker", "job_missing")
		return fmt.Errorf("marking job %s running: %w", j.ID, err)
	}
	metrics.RecordScanJob(string(model.JobRunning))

	minScore := j.MinScore
	res, scanErr := w.scanner.ScanAll(ctx, j.TenantID, &minScore)

	finished := time.Now()
	status := model.JobDone
	if scanErr != nil {
		status = model.JobFailed
		metrics.RecordErrorByComponent("worker", "scan_error")
	}
	metrics.RecordScanJob(string(status))
	metrics.RecordScanJobDuration(float64(finished.Sub(start).Microseconds()) / 1000)

	err := w.jobs.Update(j.ID, func(sj *model.ScanJob) {
		sj.Status = status
		sj.FinishedAt = &finished
		if scanErr != nil {
			sj.Error = "scan failed"
			return
		}
		sj.Result = &res
	})
	if scanErr != nil {
		return fmt.Errorf("scanning tenant %s: %w", j.TenantID, scanErr)
	}
	if err != nil {
		return fmt.Errorf("marking job %s done: %w", j.ID, err)
	}

	w.logger.Debug(ctx, "scan job done",
		logger.String("job_id", j.ID),
		logger.Int("found", res.TotalFound),
		logger.Duration("elapsed", finished.Sub(start)))
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	cancel  context.CancelFunc
	started atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses half the CPUs.
func NewPool(workerCount int, q Queue, scanner Scanner, jobs JobUpdater, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = max(1, runtime.NumCPU()/2)
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, scanner, jobs, wopts...)
	}
	pool.logger = pool.workers[0].logger

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
}

// Shutdown closes the queue, lets workers drain it, and cancels running
// scans if ctx expires first.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
		if timedOut {
			break
		}
	}
	p.cancel()
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
