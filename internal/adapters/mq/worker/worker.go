// Package worker evaluates queued attempts and stores the results.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/types"
	"github.com/okian/speakeval/pkg/logger"
	"github.com/okian/speakeval/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Evaluator scores one attempt.
type Evaluator interface {
	Evaluate(ctx context.Context, a model.Attempt) (types.Evaluation, error)
}

// Store persists finished evaluations.
type Store interface {
	Save(ctx context.Context, e types.Evaluation) error
}

// Queue defines how workers receive attempts.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Attempt
}

// Worker processes attempts until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after the attempt in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing attempts.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	store     Store
	name      string

	shutdownOnce sync.Once
	shutdown     chan struct{}
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, evaluator Evaluator, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		evaluator: evaluator,
		store:     store,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. The dequeue feed is cancelled when Run returns,
// so a stopped worker leaves no goroutine blocked on the queue.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	attempts := w.queue.Dequeue(feedCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case a, ok := <-attempts:
			if !ok {
				return
			}
			if err := w.process(ctx, a); err != nil {
				w.logger.Error(ctx, "error processing attempt", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// process evaluates and stores one attempt.
func (w *InMemoryWorker) process(ctx context.Context, a model.Attempt) error { //nolint:gocritic // hugeParam: value received from channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	eval, err := w.evaluator.Evaluate(ctx, a)
	if err != nil {
		metrics.RecordEvaluationError()
		metrics.RecordWorkerError()
		return fmt.Errorf("evaluate attempt %s: %w", a.AttemptID, err)
	}
	latencyMs := float64(time.Since(start).Microseconds()) / 1000

	if err := w.store.Save(ctx, eval); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("store attempt %s: %w", a.AttemptID, err)
	}

	metrics.RecordEvaluation(string(eval.Task), eval.Overall, latencyMs)
	for _, ts := range []*types.TraitScore{eval.Content, eval.Pronunciation, eval.Fluency, eval.Vocabulary} {
		if ts != nil {
			metrics.RecordTraitBand(ts.Trait, ts.Band)
		}
	}
	w.logger.Debug(ctx, "attempt evaluated",
		logger.String("attempt_id", eval.AttemptID),
		logger.String("task", string(eval.Task)),
		logger.Int("overall", eval.Overall),
		logger.Float64("latency_ms", latencyMs),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one selects
// a multiple of the CPU count.
func NewPool(workerCount int, queue Queue, evaluator Evaluator, store Store, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(queue, evaluator, store,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and lets workers drain what is left. Workers
// still busy when ctx (or the pool timeout) expires are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			w.stop()
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
