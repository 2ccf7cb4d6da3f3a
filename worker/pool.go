package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/plateful/plateful-server/logger"

	"golang.org/x/sync/errgroup"
)

// Job is a one-shot unit of background work keyed by the record it will
// patch and the generation it was scheduled against. Jobs run at most the
// work they carry: no retry, no backoff, no cancellation once started.
type Job struct {
	Kind       string
	RecordID   string
	Generation int64
	Run        func(ctx context.Context) error
}

// Pool runs jobs on a fixed set of goroutines. Mutations submit exactly one
// job per AI-triggering call; ordering between jobs against the same record
// is resolved by generation fencing at the patch site, not here.
type Pool struct {
	workers int
	jobs    chan Job
	group   *errgroup.Group

	mu      sync.Mutex
	stopped bool
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, queueSize),
	}
}

// Start launches the worker goroutines. The pool drains already-queued jobs
// on shutdown; ctx cancellation is passed through to running jobs.
func (p *Pool) Start(ctx context.Context) {
	group, ctx := errgroup.WithContext(ctx)
	p.group = group

	for i := 0; i < p.workers; i++ {
		group.Go(func() error {
			for job := range p.jobs {
				p.run(ctx, job)
			}
			return nil
		})
	}

	logger.LogSystem("Worker pool started", slog.Int("workers", p.workers))
}

func (p *Pool) run(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)
	logger.LogJob(job.Kind, job.RecordID, time.Since(start), err)
}

// Submit enqueues a job. It reports false when the pool is shutting down or
// the queue is saturated; callers treat that as a completion-service failure
// for the record in question.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		slog.Warn("Worker queue saturated, job rejected",
			slog.String("type", "job"),
			slog.String("kind", job.Kind),
			slog.String("record_id", job.RecordID))
		return false
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	if p.group != nil {
		_ = p.group.Wait()
	}
	logger.LogSystem("Worker pool stopped")
}
