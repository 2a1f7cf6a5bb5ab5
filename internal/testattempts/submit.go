package testattempts

import (
	"context"
	"math/rand/v2"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/pkg/logger"
)

// withDuplicates appends a resubmission of roughly frac of the attempts.
// The service must acknowledge those as duplicates.
func withDuplicates(attempts []model.Attempt, frac float64, seed uint64) []model.Attempt {
	if frac <= 0 || len(attempts) == 0 {
		return attempts
	}
	n := int(float64(len(attempts)) * frac)
	rng := rand.New(rand.NewPCG(seed, ^seed))
	out := make([]model.Attempt, 0, len(attempts)+n)
	out = append(out, attempts...)
	for i := 0; i < n; i++ {
		out = append(out, attempts[rng.IntN(len(attempts))])
	}
	return out
}

// submitAttempts posts every attempt with at most config.Workers requests in
// flight. Per-request failures are counted, not returned.
func submitAttempts(ctx context.Context, config *Config, client *httpClient, attempts []model.Attempt, stats *Stats) error {
	log := logger.Named("submit")
	log.Info(ctx, "submitting attempts", logger.Int("count", len(attempts)), logger.Int("workers", config.Workers))

	var accepted, duplicate, rejected, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for _, a := range attempts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var ack AckResponse
			status, err := client.post(gctx, "/attempts", a, &ack)
			switch classifySubmit(status, ack, err) {
			case resultAccepted:
				accepted.Add(1)
			case resultDuplicate:
				duplicate.Add(1)
			case resultRejected:
				rejected.Add(1)
			default:
				failed.Add(1)
				if config.Verbose {
					log.Warn(gctx, "submit failed", logger.String("attempt_id", a.AttemptID),
						logger.Int("status", status), logger.Error(err))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.Submitted = len(attempts)
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))
	return nil
}
