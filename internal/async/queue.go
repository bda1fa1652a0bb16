package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tenkanalyzer/tenk-analyzer/internal/ingest"
)

// ErrQueueClosed is returned by Enqueue once shutdown has begun.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is the smallest useful unit of batch work.
type Job struct {
	Path        string
	SubmittedAt time.Time
}

// Processor consumes one filing path.
type Processor interface {
	IngestPath(ctx context.Context, path string) (ingest.FileResult, error)
}

// FilingQueue fans filing jobs out to a fixed pool of workers over a bounded
// channel. Workers run each job under its own timeout so one stuck filing
// cannot wedge the pool.
type FilingQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*FilingQueue)

func WithWorkers(n int) Option {
	return func(q *FilingQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *FilingQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *FilingQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewFilingQueue(proc Processor, logger *slog.Logger, opts ...Option) *FilingQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &FilingQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *FilingQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res, err := q.proc.IngestPath(ctx, job.Path)
					cancel()

					if err != nil {
						q.logger.Error("filing failed", "worker_id", workerID, "path", job.Path, "error", err)
						continue
					}
					q.logger.Info("filing processed",
						"worker_id", workerID,
						"path", job.Path,
						"status", res.Status,
						"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
					)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue submits a job, blocking when the queue is full until space frees up
// or ctx ends.
func (q *FilingQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		return nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for the workers to drain the queue, or for
// ctx to give up on the wait.
func (q *FilingQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
