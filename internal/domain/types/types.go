// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/speakeval/internal/domain/model"
)

// Trait names used in score bundles.
const (
	TraitContent       = "content"
	TraitAppropriacy   = "appropriacy"
	TraitPronunciation = "pronunciation"
	TraitFluency       = "fluency"
	TraitVocabulary    = "vocabulary"
)

// TraitScore is a single rubric trait on its own 0..Max scale.
type TraitScore struct {
	Trait      string  `json:"trait"`
	Raw        float64 `json:"raw"`
	Max        float64 `json:"max"`
	Band       int     `json:"band"`
	Descriptor string  `json:"descriptor"`
}

// Bundle groups the trait scores produced for one attempt.
type Bundle struct {
	Content       *TraitScore `json:"content,omitempty"`
	Pronunciation *TraitScore `json:"pronunciation,omitempty"`
	Fluency       *TraitScore `json:"fluency,omitempty"`
	Vocabulary    *TraitScore `json:"vocabulary,omitempty"`
}

// Evaluation is the full scoring result returned to the presentation layer.
type Evaluation struct {
	AttemptID string         `json:"attempt_id"`
	LearnerID string         `json:"learner_id,omitempty"`
	Task      model.TaskType `json:"task"`
	Bundle
	Overall         int       `json:"overall_score"`
	Label           string    `json:"label"`
	ReadAloudErrors int       `json:"read_aloud_errors,omitempty"`
	Feedback        []string  `json:"feedback,omitempty"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}
