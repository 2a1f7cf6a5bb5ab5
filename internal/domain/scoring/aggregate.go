package scoring

import (
	"math"

	"github.com/okian/speakeval/internal/domain/align"
	"github.com/okian/speakeval/internal/domain/content"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/trait"
	"github.com/okian/speakeval/internal/domain/types"
)

// Reporting scale bounds.
const (
	MinScore = 10
	MaxScore = 90
	span     = MaxScore - MinScore
)

// labelCuts maps an overall score to its band label, highest first.
var labelCuts = []struct {
	min   int
	label string
}{
	{85, "Expert"},
	{76, "Proficient"},
	{59, "Competent"},
	{43, "Developing"},
	{30, "Basic"},
}

const lowestLabel = "Needs Practice"

// TaskScale holds the maximum value of each trait for a task. A zero max
// means the trait is not scored for the task.
type TaskScale struct {
	ContentTrait  string  `json:"content_trait,omitempty"`
	Content       float64 `json:"content"`
	Pronunciation float64 `json:"pronunciation"`
	Fluency       float64 `json:"fluency"`
	Vocabulary    float64 `json:"vocabulary"`
}

// ScaleFor returns the trait maxima for the task of expected. Read-aloud
// content max is the number of reference tokens.
func ScaleFor(expected model.ExpectedResponse) TaskScale {
	delivery := TaskScale{ContentTrait: types.TraitContent, Pronunciation: trait.MaxBand, Fluency: trait.MaxBand}
	switch expected.Task {
	case model.ReadAloud:
		delivery.Content = float64(len(align.Normalize(expected.ReferenceText)))
	case model.RepeatSentence:
		delivery.Content = content.RepeatSentenceMax
	case model.DescribeImage, model.RetellLecture, model.SummarizeGroupDiscussion:
		delivery.Content = content.OpenResponseMax
	case model.RespondToSituation:
		delivery.ContentTrait = types.TraitAppropriacy
		delivery.Content = content.OpenResponseMax
	case model.AnswerShortQuestion:
		return TaskScale{Vocabulary: content.VocabularyMax}
	default:
		return TaskScale{}
	}
	return delivery
}

// Overall combines the trait bundle into the 10..90 reporting scale.
// Short-answer tasks are all or nothing on vocabulary. Every other task
// scores 0 when content is 0, whatever the delivery traits say.
func Overall(task model.TaskType, b types.Bundle) int {
	if task == model.AnswerShortQuestion {
		if b.Vocabulary != nil && b.Vocabulary.Raw >= 1 {
			return MaxScore
		}
		return 0
	}
	if b.Content == nil || !(b.Content.Raw > 0) {
		return 0
	}

	var raw, maxSum float64
	for _, ts := range []*types.TraitScore{b.Content, b.Pronunciation, b.Fluency} {
		if ts == nil || ts.Max <= 0 || math.IsNaN(ts.Raw) {
			continue
		}
		raw += math.Max(0, math.Min(ts.Raw, ts.Max))
		maxSum += ts.Max
	}
	if maxSum <= 0 {
		return 0
	}
	return scale(raw / maxSum)
}

// Label returns the qualitative band label for an overall score.
func Label(score int) string {
	for _, c := range labelCuts {
		if score >= c.min {
			return c.label
		}
	}
	return lowestLabel
}

// BandTo90 shows a single trait band on the 10..90 reporting scale.
func BandTo90(band, maxBand int) int {
	if maxBand <= 0 {
		return 0
	}
	return scale(float64(band) / float64(maxBand))
}

func scale(ratio float64) int {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	ratio = math.Max(0, math.Min(1, ratio))
	return int(math.Round(MinScore + ratio*span))
}
