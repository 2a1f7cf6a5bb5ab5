package testattempts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/scoring"
	"github.com/okian/speakeval/internal/domain/types"
	"github.com/okian/speakeval/pkg/logger"
)

const pollInterval = 100 * time.Millisecond

// ErrVerification is returned when fetched evaluations break an invariant.
var ErrVerification = errors.New("verification failed")

// collectEvaluations polls GET /attempts/{id} for every unique attempt until
// it is found or config.Wait elapses.
func collectEvaluations(ctx context.Context, config *Config, client *httpClient, attempts []model.Attempt) (map[string]types.Evaluation, error) {
	wctx, cancel := context.WithTimeout(ctx, config.Wait)
	defer cancel()

	var mu sync.Mutex
	found := make(map[string]types.Evaluation, len(attempts))
	g, gctx := errgroup.WithContext(wctx)
	g.SetLimit(max(config.Workers, 1))
	for _, a := range uniqueAttempts(attempts) {
		g.Go(func() error {
			ev, err := pollEvaluation(gctx, client, a.AttemptID)
			if err != nil {
				// A timed-out attempt is reported as missing.
				return nil
			}
			mu.Lock()
			found[a.AttemptID] = ev
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return found, nil
}

func pollEvaluation(ctx context.Context, client *httpClient, id string) (types.Evaluation, error) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		var ev types.Evaluation
		status, err := client.get(ctx, "/attempts/"+url.PathEscape(id), &ev)
		switch {
		case err == nil && status == http.StatusOK:
			return ev, nil
		case err == nil && status != http.StatusNotFound:
			return types.Evaluation{}, fmt.Errorf("unexpected status %d", status)
		}
		select {
		case <-ctx.Done():
			return types.Evaluation{}, errNotReady
		case <-t.C:
		}
	}
}

func uniqueAttempts(attempts []model.Attempt) []model.Attempt {
	seen := make(map[string]struct{}, len(attempts))
	out := make([]model.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if _, ok := seen[a.AttemptID]; ok {
			continue
		}
		seen[a.AttemptID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// verifyEvaluations checks each evaluation against the attempt it came from
// and fills the evaluation fields of stats.
func verifyEvaluations(ctx context.Context, attempts []model.Attempt, found map[string]types.Evaluation, stats *Stats) error {
	log := logger.Named("verify")
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var problems []error
	for _, a := range uniqueAttempts(attempts) {
		ev, ok := found[a.AttemptID]
		if !ok {
			stats.Missing++
			continue
		}
		stats.Evaluated++
		if err := checkEvaluation(a, ev); err != nil {
			stats.Invalid++
			problems = append(problems, err)
			log.Warn(ctx, "invalid evaluation", logger.String("attempt_id", a.AttemptID), logger.Error(err))
			continue
		}
		sums[string(ev.Task)] += float64(ev.Overall)
		counts[string(ev.Task)]++
	}
	stats.MeanByTask = make(map[string]float64, len(sums))
	for task, sum := range sums {
		stats.MeanByTask[task] = sum / float64(counts[task])
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(problems...))
	}
	return nil
}

func checkEvaluation(a model.Attempt, ev types.Evaluation) error {
	switch {
	case ev.AttemptID != a.AttemptID:
		return fmt.Errorf("attempt %s: got evaluation for %s", a.AttemptID, ev.AttemptID)
	case ev.Task != a.Expected.Task:
		return fmt.Errorf("attempt %s: task %s, want %s", a.AttemptID, ev.Task, a.Expected.Task)
	case ev.Overall < 0 || ev.Overall > 90:
		return fmt.Errorf("attempt %s: overall %d out of range", a.AttemptID, ev.Overall)
	case ev.Label != scoring.Label(ev.Overall):
		return fmt.Errorf("attempt %s: label %q does not match overall %d", a.AttemptID, ev.Label, ev.Overall)
	case ev.Task == model.AnswerShortQuestion && ev.Vocabulary == nil:
		return fmt.Errorf("attempt %s: missing vocabulary score", a.AttemptID)
	case ev.Task != model.AnswerShortQuestion && ev.Content == nil:
		return fmt.Errorf("attempt %s: missing content score", a.AttemptID)
	}
	for _, ts := range []*types.TraitScore{ev.Content, ev.Pronunciation, ev.Fluency, ev.Vocabulary} {
		if ts == nil {
			continue
		}
		if ts.Raw < 0 || ts.Raw > ts.Max {
			return fmt.Errorf("attempt %s: %s raw %.2f outside [0, %.2f]", a.AttemptID, ts.Trait, ts.Raw, ts.Max)
		}
	}
	return nil
}
