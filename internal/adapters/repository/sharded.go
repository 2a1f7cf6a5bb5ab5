package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/types"
	"github.com/okian/speakeval/pkg/metrics"
)

const defaultShardCount = 8

type shard struct {
	mu        sync.RWMutex
	byAttempt map[string]types.Evaluation
	byLearner map[string]map[string]struct{}
}

// ShardedStore is an in-memory Store. Attempts are spread over shards by
// a hash of the attempt ID so concurrent workers rarely contend.
type ShardedStore struct {
	shardCount int
	shards     []*shard
	total      atomic.Int64
}

var _ Store = (*ShardedStore)(nil)

// NewShardedStore constructs an empty store.
func NewShardedStore(opts ...Option) *ShardedStore {
	s := &ShardedStore{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{
			byAttempt: make(map[string]types.Evaluation),
			byLearner: make(map[string]map[string]struct{}),
		}
	}
	metrics.UpdateRepositoryShardCount(s.shardCount)
	metrics.UpdateRepositoryRecordsTotal(0)
	return s
}

func (s *ShardedStore) shardFor(attemptID string) *shard {
	return s.shards[xxhash.Sum64String(attemptID)%uint64(len(s.shards))]
}

// Save implements Store.Save.
func (s *ShardedStore) Save(ctx context.Context, e types.Evaluation) error { //nolint:gocritic // hugeParam: stored by value
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save %s: %w", e.AttemptID, err)
	}
	if e.AttemptID == "" {
		return fmt.Errorf("%w: empty attempt id", ErrInvalidEvaluation)
	}

	sh := s.shardFor(e.AttemptID)
	sh.mu.Lock()
	prev, replaced := sh.byAttempt[e.AttemptID]
	if replaced && prev.LearnerID != e.LearnerID {
		sh.unindex(prev.LearnerID, prev.AttemptID)
	}
	sh.byAttempt[e.AttemptID] = e
	if e.LearnerID != "" {
		ids := sh.byLearner[e.LearnerID]
		if ids == nil {
			ids = make(map[string]struct{})
			sh.byLearner[e.LearnerID] = ids
		}
		ids[e.AttemptID] = struct{}{}
	}
	sh.mu.Unlock()

	if !replaced {
		metrics.UpdateRepositoryRecordsTotal(int(s.total.Add(1)))
	}
	return nil
}

func (sh *shard) unindex(learnerID, attemptID string) {
	ids := sh.byLearner[learnerID]
	delete(ids, attemptID)
	if len(ids) == 0 {
		delete(sh.byLearner, learnerID)
	}
}

// Get implements Store.Get.
func (s *ShardedStore) Get(_ context.Context, attemptID string) (types.Evaluation, error) {
	sh := s.shardFor(attemptID)
	sh.mu.RLock()
	e, ok := sh.byAttempt[attemptID]
	sh.mu.RUnlock()
	if !ok {
		return types.Evaluation{}, fmt.Errorf("%w: %s", ErrNotFound, attemptID)
	}
	return e, nil
}

// ByLearner implements Store.ByLearner.
func (s *ShardedStore) ByLearner(_ context.Context, learnerID string, limit int) ([]types.Evaluation, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	var out []types.Evaluation
	for _, sh := range s.shards {
		sh.mu.RLock()
		for id := range sh.byLearner[learnerID] {
			out = append(out, sh.byAttempt[id])
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EvaluatedAt.Equal(out[j].EvaluatedAt) {
			return out[i].EvaluatedAt.After(out[j].EvaluatedAt)
		}
		return out[i].AttemptID < out[j].AttemptID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count implements Store.Count.
func (s *ShardedStore) Count(_ context.Context) int {
	return int(s.total.Load())
}

// Stats implements Store.Stats.
func (s *ShardedStore) Stats(_ context.Context) Stats {
	st := Stats{
		ByTask:  make(map[model.TaskType]TaskStats),
		ByLabel: make(map[string]int),
	}
	sums := make(map[model.TaskType]int)
	learners := make(map[string]struct{})
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.byAttempt {
			st.Total++
			ts := st.ByTask[e.Task]
			ts.Count++
			if e.Overall > ts.BestOverall {
				ts.BestOverall = e.Overall
			}
			st.ByTask[e.Task] = ts
			sums[e.Task] += e.Overall
			st.ByLabel[e.Label]++
		}
		for id := range sh.byLearner {
			learners[id] = struct{}{}
		}
		sh.mu.RUnlock()
	}
	for task, ts := range st.ByTask {
		ts.MeanOverall = float64(sums[task]) / float64(ts.Count)
		st.ByTask[task] = ts
	}
	st.Learners = len(learners)
	return st
}
