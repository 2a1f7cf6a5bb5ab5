// Package service wires the evaluation engine, queue, workers and store
// into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/speakeval/internal/adapters/mq/queue"
	"github.com/okian/speakeval/internal/adapters/mq/worker"
	"github.com/okian/speakeval/internal/adapters/repository"
	"github.com/okian/speakeval/internal/domain/content"
	"github.com/okian/speakeval/internal/domain/dedupe"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/scoring"
	"github.com/okian/speakeval/internal/domain/tone"
	"github.com/okian/speakeval/internal/domain/trait"
	"github.com/okian/speakeval/internal/domain/types"
	"github.com/okian/speakeval/pkg/logger"
	"github.com/okian/speakeval/pkg/metrics"
)

const stopTimeout = 10 * time.Second

// ErrNotStarted is returned by Enqueue before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the evaluation system.
type Service struct {
	mu sync.RWMutex

	// Long-lived components survive restarts.
	store   *repository.ShardedStore
	deduper *dedupe.InMemoryDeduper
	engine  *scoring.Engine

	// Per-run components.
	attempts *queue.InMemoryQueue
	pool     *worker.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	shardCount  int

	pronunciationCuts  []float64
	contentCuts        []float64
	repeatSentenceCuts []float64
	clock              func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the attempt queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of store shards.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBandCuts overrides the pronunciation, open-response content and
// repeat-sentence thresholds. Empty slices keep the defaults.
func WithBandCuts(pronunciation, content, repeatSentence []float64) Option {
	return func(s *Service) {
		s.pronunciationCuts = pronunciation
		s.contentCuts = content
		s.repeatSentenceCuts = repeatSentence
	}
}

// WithClock sets the time source stamped on evaluations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// New constructs a Service. Evaluation and lookups work immediately;
// asynchronous submission needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10_000,
		dedupeSize:  100_000,
		shardCount:  8,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.store = repository.NewShardedStore(repository.WithShardCount(s.shardCount))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.engine = scoring.NewEngine(
		scoring.WithContentScorer(content.New(
			content.WithCompositeCuts(s.contentCuts),
			content.WithRepeatSentenceCuts(s.repeatSentenceCuts),
		)),
		scoring.WithTraitScorer(trait.New(trait.WithPronunciationCuts(s.pronunciationCuts))),
		scoring.WithClock(s.clock),
	)
	return s
}

// Start creates the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting evaluation service...")

	s.attempts = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.attempts, s.engine, s.store,
		worker.WithPoolLogger(s.logger.Named("workers")))
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("shards", s.shardCount),
	)
	return nil
}

// Stop closes the queue and waits for workers to drain it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping evaluation service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "evaluation service stopped")
}

// SeenAndRecord reports whether the attempt ID was already submitted and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordAttemptDuplicate()
	}
	return seen
}

// Unrecord forgets an attempt ID so it can be resubmitted.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the number of remembered attempt IDs.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue submits an attempt for asynchronous evaluation.
func (s *Service) Enqueue(ctx context.Context, a model.Attempt) error { //nolint:gocritic // hugeParam: forwarded by value
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return fmt.Errorf("%w: %w", ErrNotStarted, queue.ErrClosed)
	}
	if err := s.attempts.Enqueue(ctx, a); err != nil {
		return fmt.Errorf("enqueue attempt %s: %w", a.AttemptID, err)
	}
	s.logger.Debug(ctx, "attempt queued",
		logger.String("attempt_id", a.AttemptID),
		logger.String("task", string(a.Expected.Task)),
	)
	return nil
}

// Evaluate scores an attempt synchronously. The result is not stored.
func (s *Service) Evaluate(ctx context.Context, a model.Attempt) (types.Evaluation, error) { //nolint:gocritic // hugeParam: forwarded by value
	start := time.Now()
	ev, err := s.engine.Evaluate(ctx, a)
	if err != nil {
		metrics.RecordEvaluationError()
		return types.Evaluation{}, err
	}
	metrics.RecordEvaluation(string(ev.Task), ev.Overall, float64(time.Since(start).Microseconds())/1000)
	return ev, nil
}

// Evaluation returns a stored evaluation.
func (s *Service) Evaluation(ctx context.Context, attemptID string) (types.Evaluation, error) {
	return s.store.Get(ctx, attemptID)
}

// LearnerEvaluations returns a learner's stored evaluations, newest first.
func (s *Service) LearnerEvaluations(ctx context.Context, learnerID string, limit int) ([]types.Evaluation, error) {
	return s.store.ByLearner(ctx, learnerID, limit)
}

// AnalyzeTone builds a prosody profile of the samples.
func (s *Service) AnalyzeTone(ctx context.Context, samples []float64, sampleRate, frameSize int) (tone.Profile, error) {
	if err := ctx.Err(); err != nil {
		return tone.Profile{}, fmt.Errorf("analyze tone: %w", err)
	}
	p := tone.Analyze(samples, sampleRate, frameSize)
	metrics.RecordToneProfile(p.HasPitchData, p.Frames, p.Voiced)
	return p, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"seenIDs":     s.deduper.Size(),
		"evaluations": s.store.Stats(ctx),
	}
	if s.started {
		stats["queueLength"] = s.attempts.Len()
		metrics.UpdateQueueSize(s.attempts.Len())
	}
	return stats
}
