package testattempts

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/pkg/logger"
)

// Generate builds n attempts spread over the given number of learners.
// Attempt IDs are UUIDs drawn from the seeded source, so a seed replays the
// same run.
func Generate(ctx context.Context, bank *Bank, n, learners int, seed uint64) []model.Attempt {
	if learners < 1 {
		learners = 1
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]model.Attempt, n)
	for i := range out {
		f := bank.Fixtures[rng.IntN(len(bank.Fixtures))]
		u := f.Responses[rng.IntN(len(f.Responses))]
		out[i] = model.Attempt{
			AttemptID: newID(rng),
			LearnerID: fmt.Sprintf("learner-%04d", rng.IntN(learners)),
			Expected:  f.Expected,
			Utterance: u,
		}
	}
	logger.Get().Info(ctx, "generated attempts", logger.Int("count", n), logger.Int("learners", learners))
	return out
}

func newID(rng *rand.Rand) string {
	var b [16]byte
	for i := 0; i < len(b); i += 8 {
		v := rng.Uint64()
		for j := 0; j < 8; j++ {
			b[i+j] = byte(v >> (8 * j))
		}
	}
	id, _ := uuid.FromBytes(b[:])
	// Stamp version 4 and the RFC 4122 variant.
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id.String()
}
