// Package repository stores finished evaluations.
package repository

import (
	"context"

	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/types"
)

// TaskStats summarizes stored evaluations of one task type.
type TaskStats struct {
	Count       int     `json:"count"`
	MeanOverall float64 `json:"mean_overall"`
	BestOverall int     `json:"best_overall"`
}

// Stats summarizes the store contents.
type Stats struct {
	Total    int                          `json:"total"`
	Learners int                          `json:"learners"`
	ByTask   map[model.TaskType]TaskStats `json:"by_task"`
	ByLabel  map[string]int               `json:"by_label"`
}

// Store provides read/write access to evaluations.
type Store interface {
	// Save inserts or replaces the evaluation keyed by its attempt ID.
	Save(ctx context.Context, e types.Evaluation) error

	// Get returns the evaluation of one attempt or ErrNotFound.
	Get(ctx context.Context, attemptID string) (types.Evaluation, error)

	// ByLearner returns a learner's evaluations, newest first. A limit of
	// zero returns all of them.
	ByLearner(ctx context.Context, learnerID string, limit int) ([]types.Evaluation, error)

	// Count returns the number of stored evaluations.
	Count(ctx context.Context) int

	// Stats aggregates stored evaluations by task type and label.
	Stats(ctx context.Context) Stats
}
