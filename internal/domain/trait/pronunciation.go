// Package trait scores the delivery traits of a spoken response:
// pronunciation and oral fluency on 0..5 bands, plus the binary vocabulary
// pass-through for short-answer tasks.
package trait

import (
	"math"

	"github.com/okian/speakeval/internal/domain/accent"
	"github.com/okian/speakeval/internal/domain/align"
	"github.com/okian/speakeval/internal/domain/bands"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/types"
)

// MaxBand is the top band for pronunciation and fluency.
const MaxBand = 5

// Pronunciation blend weights and adjustments.
const (
	seqAccuracyWeight   = 0.35
	confidenceWeight    = 0.30
	interactionWeight   = 0.20
	maxPhoneticBonus    = 0.15
	trivialWordCount    = 3
	overconfidentAbove  = 0.9
	dampenedConfidence  = 0.85
	lowConfidenceBelow  = 0.6
	highAccuracyAtLeast = 0.8
	boostShare          = 0.5
)

// lengthPenalties apply when fewer words than expected were recognized.
var lengthPenalties = []struct {
	below   float64
	penalty float64
}{
	{0.30, 0.30},
	{0.50, 0.15},
	{0.70, 0.05},
}

// DefaultPronunciationCuts map the blended value to bands 5..1.
var DefaultPronunciationCuts = bands.Cuts{0.82, 0.68, 0.52, 0.35, 0.18}

var pronunciationDescriptors = []string{
	"Non-English",
	"Intrusive",
	"Intermediate",
	"Good",
	"Advanced",
	"Native-like",
}

// PronunciationResult carries the band together with the signals behind it.
type PronunciationResult struct {
	types.TraitScore
	SeqAccuracy   float64          `json:"seq_accuracy"`
	Confidence    float64          `json:"confidence"`
	PhoneticBonus float64          `json:"phonetic_bonus"`
	LengthPenalty float64          `json:"length_penalty"`
	Blended       float64          `json:"blended"`
	CloseMatches  []align.Pair     `json:"close_matches,omitempty"`
	Substitutions []accent.Finding `json:"substitutions,omitempty"`
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithPronunciationCuts overrides the pronunciation band thresholds.
func WithPronunciationCuts(c []float64) Option {
	return func(s *Scorer) {
		s.pronunciationCuts = bands.Cuts(c).OrDefault(s.pronunciationCuts)
	}
}

// WithAccentMatcher sets the matcher used to explain substitutions.
func WithAccentMatcher(m *accent.Matcher) Option {
	return func(s *Scorer) {
		if m != nil {
			s.accent = m
		}
	}
}

// Scorer computes pronunciation and fluency bands. It holds no per-call state.
type Scorer struct {
	pronunciationCuts bands.Cuts
	accent            *accent.Matcher
}

// New creates a trait scorer with default thresholds and accent rules.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		pronunciationCuts: DefaultPronunciationCuts,
		accent:            accent.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pronunciation blends sequence accuracy, recognizer confidence, close-match
// credit and a length penalty into a 0..5 band. reference may be empty for
// open-response tasks, in which case only the confidence signal is used.
func (s *Scorer) Pronunciation(reference []string, u model.Utterance) PronunciationResult {
	rec := u.Tokens()
	res := PronunciationResult{TraitScore: types.TraitScore{Trait: types.TraitPronunciation, Max: MaxBand}}
	if len(rec) == 0 {
		res.Descriptor = pronunciationDescriptors[0]
		return res
	}

	conf, hasConf := u.Confidence()

	if len(reference) == 0 {
		if !hasConf {
			conf = 0
		}
		conf = adjustConfidence(conf, conf, len(rec))
		res.SeqAccuracy = conf
		res.Confidence = conf
	} else {
		al := align.Align(reference, rec)
		res.SeqAccuracy = clamp01(1 - float64(al.Omissions+al.Insertions)/float64(len(reference)))
		if !hasConf {
			conf = res.SeqAccuracy
		}
		res.Confidence = adjustConfidence(conf, res.SeqAccuracy, len(rec))

		missed := al.UnmatchedA(reference)
		extra := al.UnmatchedB(rec)
		if len(missed) > 0 {
			res.CloseMatches = align.CloseMatches(missed, extra)
			res.PhoneticBonus = maxPhoneticBonus * float64(len(res.CloseMatches)) / float64(len(missed))
			res.Substitutions = s.accent.Scan(substitutionPairs(missed, extra, res.CloseMatches))
		}
		res.LengthPenalty = lengthPenalty(float64(len(rec)) / float64(len(reference)))
	}

	blended := seqAccuracyWeight*res.SeqAccuracy +
		confidenceWeight*res.Confidence +
		interactionWeight*res.SeqAccuracy*res.Confidence +
		res.PhoneticBonus - res.LengthPenalty
	res.Blended = clamp01(blended)
	res.Band = s.pronunciationCuts.Band(res.Blended, 0)
	res.Raw = float64(res.Band)
	res.Descriptor = pronunciationDescriptors[res.Band]
	return res
}

// adjustConfidence dampens overconfidence on trivial utterances and lifts
// low confidence when the words were nonetheless right.
func adjustConfidence(conf, seqAccuracy float64, words int) float64 {
	conf = clamp01(conf)
	if words <= trivialWordCount && conf > overconfidentAbove {
		conf = dampenedConfidence
	}
	if conf < lowConfidenceBelow && seqAccuracy >= highAccuracyAtLeast {
		conf += (seqAccuracy - conf) * boostShare
	}
	return conf
}

func lengthPenalty(ratio float64) float64 {
	for _, lp := range lengthPenalties {
		if ratio < lp.below {
			return lp.penalty
		}
	}
	return 0
}

// substitutionPairs lists close matches first, then positional pairs of the
// remaining unmatched words, for accent explanation.
func substitutionPairs(missed, extra []string, close []align.Pair) [][2]string {
	pairs := make([][2]string, 0, len(missed))
	usedE := make(map[string]int)
	usedR := make(map[string]int)
	for _, p := range close {
		pairs = append(pairs, [2]string{p.Expected, p.Recognized})
		usedE[p.Expected]++
		usedR[p.Recognized]++
	}
	var restE, restR []string
	for _, w := range missed {
		if usedE[w] > 0 {
			usedE[w]--
			continue
		}
		restE = append(restE, w)
	}
	for _, w := range extra {
		if usedR[w] > 0 {
			usedR[w]--
			continue
		}
		restR = append(restR, w)
	}
	for i := 0; i < len(restE) && i < len(restR); i++ {
		pairs = append(pairs, [2]string{restE[i], restR[i]})
	}
	return pairs
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
