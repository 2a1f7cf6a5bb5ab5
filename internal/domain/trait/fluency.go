package trait

import (
	"github.com/okian/speakeval/internal/domain/content"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/types"
)

// Gap thresholds between consecutive recognition events, in milliseconds.
const (
	LongPauseMs  = 3000
	HesitationMs = 1500
)

// Recording-time usage below which the fluency band is demoted.
const (
	underUsed      = 0.30
	underUsedFloor = 2
	barelyUsed     = 0.15
	barelyFloor    = 1
)

var fluencyDescriptors = []string{
	"Disfluent",
	"Limited",
	"Intermediate",
	"Good",
	"Advanced",
	"Native-like",
}

// fluencyRule is one row of the fluency decision table. A row matches when
// every bound holds; the first matching row from the top wins.
type fluencyRule struct {
	band           int
	minWPM, maxWPM float64 // maxWPM 0 means unbounded
	maxPauses      int     // -1 means unbounded
	maxHesitations int     // -1 means unbounded
	minAvgWords    float64
}

var fluencyTable = []fluencyRule{
	{band: 5, minWPM: 110, maxWPM: 170, maxPauses: 0, maxHesitations: 0, minAvgWords: 8},
	{band: 4, minWPM: 100, maxWPM: 180, maxPauses: 0, maxHesitations: 1, minAvgWords: 5},
	{band: 3, minWPM: 80, maxWPM: 200, maxPauses: 1, maxHesitations: 3, minAvgWords: 3},
	{band: 2, minWPM: 50, maxPauses: 2, maxHesitations: -1, minAvgWords: 2},
}

// minWordsForBandOne is how many words earn band 1 when no row matches.
const minWordsForBandOne = 3

func (r fluencyRule) matches(m FluencyResult) bool {
	if m.WPM < r.minWPM || (r.maxWPM > 0 && m.WPM > r.maxWPM) {
		return false
	}
	if r.maxPauses >= 0 && m.LongPauses > r.maxPauses {
		return false
	}
	if r.maxHesitations >= 0 && m.Hesitations > r.maxHesitations {
		return false
	}
	return m.AvgWordsPerEvent >= r.minAvgWords
}

// FluencyResult carries the fluency band and the timing metrics behind it.
type FluencyResult struct {
	types.TraitScore
	Words            int     `json:"words"`
	WPM              float64 `json:"wpm"`
	LongPauses       int     `json:"long_pauses"`
	Hesitations      int     `json:"hesitations"`
	AvgWordsPerEvent float64 `json:"avg_words_per_event"`
	TimeUsage        float64 `json:"time_usage"`
	Demoted          int     `json:"demoted,omitempty"`
}

// Fluency bands delivery speed and continuity. recordSeconds is the time
// budget for the task; when it is not positive no under-use demotion applies.
func (s *Scorer) Fluency(u model.Utterance, recordSeconds float64) FluencyResult {
	res := FluencyResult{TraitScore: types.TraitScore{Trait: types.TraitFluency, Max: MaxBand}}
	res.Words = u.WordCount()
	if res.Words == 0 {
		res.Descriptor = fluencyDescriptors[0]
		return res
	}

	elapsed := u.Elapsed()
	if elapsed > 0 {
		res.WPM = float64(res.Words) / elapsed * 60
	}
	res.LongPauses, res.Hesitations = countGaps(u.Events)
	if len(u.Events) > 0 {
		res.AvgWordsPerEvent = float64(res.Words) / float64(len(u.Events))
	} else {
		res.AvgWordsPerEvent = float64(res.Words)
	}

	res.Band = 0
	if res.Words >= minWordsForBandOne {
		res.Band = 1
	}
	for _, rule := range fluencyTable {
		if rule.matches(res) {
			res.Band = rule.band
			break
		}
	}

	if recordSeconds > 0 {
		res.TimeUsage = clamp01(elapsed / recordSeconds)
		before := res.Band
		if res.TimeUsage < underUsed && res.Band > underUsedFloor {
			res.Band--
		}
		if res.TimeUsage < barelyUsed && res.Band > barelyFloor {
			res.Band--
		}
		res.Demoted = before - res.Band
	}

	res.Raw = float64(res.Band)
	res.Descriptor = fluencyDescriptors[res.Band]
	return res
}

// countGaps classifies gaps between consecutive event arrivals. Events are
// expected in arrival order; a negative gap counts as none.
func countGaps(events []model.RecognitionEvent) (pauses, hesitations int) {
	for i := 1; i < len(events); i++ {
		gap := events[i].ArrivalMs - events[i-1].ArrivalMs
		switch {
		case gap > LongPauseMs:
			pauses++
		case gap > HesitationMs:
			hesitations++
		}
	}
	return pauses, hesitations
}

// Vocabulary passes the binary short-answer content result through as the
// vocabulary trait.
func Vocabulary(r content.Result) types.TraitScore {
	ts := r.TraitScore()
	ts.Trait = types.TraitVocabulary
	return ts
}

// Descriptor returns the label for a pronunciation or fluency band.
func Descriptor(trait string, band int) string {
	if band < 0 {
		band = 0
	}
	if band > MaxBand {
		band = MaxBand
	}
	switch trait {
	case types.TraitPronunciation:
		return pronunciationDescriptors[band]
	case types.TraitFluency:
		return fluencyDescriptors[band]
	}
	return ""
}
