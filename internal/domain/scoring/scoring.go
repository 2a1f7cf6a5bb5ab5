// Package scoring combines content and delivery trait scores into an
// evaluation for one attempt.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/speakeval/internal/domain/align"
	"github.com/okian/speakeval/internal/domain/content"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/trait"
	"github.com/okian/speakeval/internal/domain/types"
)

// Feedback thresholds.
const (
	slowWPM         = 100
	fastWPM         = 180
	lowTimeUsage    = 0.30
	maxAccentNotes  = 3
	lowContentRatio = 0.5
)

// Evaluator turns an attempt into an evaluation.
type Evaluator interface {
	// Evaluate scores the attempt, honoring ctx for cancellation.
	Evaluate(ctx context.Context, a model.Attempt) (types.Evaluation, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithContentScorer sets the content scorer.
func WithContentScorer(s *content.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.content = s
		}
	}
}

// WithTraitScorer sets the pronunciation and fluency scorer.
func WithTraitScorer(s *trait.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.traits = s
		}
	}
}

// WithClock sets the time source used for EvaluatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine implements Evaluator. It holds no per-attempt state and is safe for
// concurrent use.
type Engine struct {
	content *content.Scorer
	traits  *trait.Scorer
	now     func() time.Time
}

// NewEngine creates an engine with default scorers.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		content: content.New(),
		traits:  trait.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores the attempt. Malformed input degrades to zero scores; the
// only error is a cancelled context.
func (e *Engine) Evaluate(ctx context.Context, a model.Attempt) (types.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return types.Evaluation{}, fmt.Errorf("evaluate attempt %q: %w", a.AttemptID, err)
	}

	exp, u := a.Expected, a.Utterance
	ev := types.Evaluation{
		AttemptID:   a.AttemptID,
		LearnerID:   a.LearnerID,
		Task:        exp.Task,
		EvaluatedAt: e.now().UTC(),
	}

	cr := e.content.Score(exp, u)
	if exp.Task == model.AnswerShortQuestion {
		v := trait.Vocabulary(cr)
		ev.Vocabulary = &v
		ev.Overall = Overall(exp.Task, ev.Bundle)
		ev.Label = Label(ev.Overall)
		if v.Raw < 1 && u.WordCount() > 0 {
			ev.Feedback = append(ev.Feedback, "The answer did not match any accepted answer.")
		}
		return ev, nil
	}

	c := cr.TraitScore()
	ev.Content = &c
	if exp.Task == model.ReadAloud {
		ev.ReadAloudErrors = cr.Errors
	}

	pr := e.traits.Pronunciation(referenceTokens(exp), u)
	p := pr.TraitScore
	ev.Pronunciation = &p

	fr := e.traits.Fluency(u, exp.RecordSeconds)
	f := fr.TraitScore
	ev.Fluency = &f

	ev.Overall = Overall(exp.Task, ev.Bundle)
	ev.Label = Label(ev.Overall)
	ev.Feedback = feedback(cr, pr, fr)
	return ev, nil
}

// referenceTokens returns the text the learner was asked to reproduce, or nil
// for open-response tasks.
func referenceTokens(exp model.ExpectedResponse) []string {
	switch exp.Task {
	case model.ReadAloud, model.RepeatSentence:
		return align.Normalize(exp.ReferenceText)
	}
	return nil
}

func feedback(cr content.Result, pr trait.PronunciationResult, fr trait.FluencyResult) []string {
	var out []string
	if fr.Words == 0 {
		return []string{"No speech was recognized."}
	}
	if cr.Raw == 0 {
		out = append(out, "The response did not address the task, so it was not scored.")
	} else if cr.Max > 0 && cr.Raw/cr.Max < lowContentRatio {
		out = append(out, "Cover more of the expected content.")
	}
	if cr.Errors > 0 {
		out = append(out, fmt.Sprintf("%d word errors against the reference text.", cr.Errors))
	}
	for i, s := range pr.Substitutions {
		if i == maxAccentNotes {
			break
		}
		out = append(out, fmt.Sprintf("%q heard as %q: %s.", s.Expected, s.Recognized, s.Description))
	}
	switch {
	case fr.WPM > 0 && fr.WPM < slowWPM:
		out = append(out, fmt.Sprintf("Speaking rate %.0f wpm is slow; aim for 110 to 170.", fr.WPM))
	case fr.WPM > fastWPM:
		out = append(out, fmt.Sprintf("Speaking rate %.0f wpm is fast; aim for 110 to 170.", fr.WPM))
	}
	if fr.LongPauses > 0 {
		out = append(out, fmt.Sprintf("%d long pauses over 3 seconds.", fr.LongPauses))
	}
	if fr.Hesitations > 0 {
		out = append(out, fmt.Sprintf("%d hesitations.", fr.Hesitations))
	}
	if fr.Demoted > 0 && fr.TimeUsage < lowTimeUsage {
		out = append(out, "Use more of the recording time.")
	}
	return out
}
