// Package worker runs fire-and-forget jobs on a bounded queue. The event
// consumer submits persistence work here so a slow or failing store never
// blocks event intake.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrQueueFull is returned by Submit when the queue has no room. The caller
// logs and drops; it must not block.
var ErrQueueFull = errors.New("worker queue is full")

type Job func(ctx context.Context) error

type job struct {
	name string
	fn   Job
}

type Pool struct {
	jobs    chan job
	workers int

	wg sync.WaitGroup

	totalSubmitted atomic.Int64
	totalDone      atomic.Int64
	totalErrors    atomic.Int64
	inFlight       atomic.Int64

	lastErrorMu sync.Mutex
	lastError   string
}

func NewPool(queueSize, workers int) *Pool {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &Pool{
		jobs:    make(chan job, queueSize),
		workers: workers,
	}
}

// Start launches the workers. They drain the queue until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-p.jobs:
					p.runOne(ctx, j)
				}
			}
		}()
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Submit enqueues a job without blocking.
func (p *Pool) Submit(name string, fn Job) error {
	select {
	case p.jobs <- job{name: name, fn: fn}:
		p.totalSubmitted.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) runOne(ctx context.Context, j job) {
	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	if err := j.fn(ctx); err != nil {
		p.totalErrors.Add(1)
		p.lastErrorMu.Lock()
		p.lastError = err.Error()
		p.lastErrorMu.Unlock()
		slog.Error("background job failed", "job", j.name, "error", err.Error())
	} else {
		slog.Debug("background job done", "job", j.name)
	}
	p.totalDone.Add(1)
}

type Stats struct {
	TotalSubmitted int64  `json:"totalSubmitted"`
	TotalDone      int64  `json:"totalDone"`
	TotalErrors    int64  `json:"totalErrors"`
	InFlight       int64  `json:"inFlight"`
	LastError      string `json:"lastError,omitempty"`
}

func (p *Pool) Stats() Stats {
	st := Stats{
		TotalSubmitted: p.totalSubmitted.Load(),
		TotalDone:      p.totalDone.Load(),
		TotalErrors:    p.totalErrors.Load(),
		InFlight:       p.inFlight.Load(),
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}
