// Package content scores how well a spoken response covers what the task
// asked for. Each task type has its own algorithm and scale.
package content

import (
	"math"
	"strings"

	"github.com/okian/speakeval/internal/domain/align"
	"github.com/okian/speakeval/internal/domain/bands"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/types"
)

// Scale maxima.
const (
	RepeatSentenceMax = 3
	OpenResponseMax   = 6
	VocabularyMax     = 1
)

// Composite weights per task.
const (
	diKeywordWeight    = 0.35
	diDataWeight       = 0.25
	diLengthWeight     = 0.20
	diDiscourseWeight  = 0.20
	rlKeywordWeight    = 0.35
	rlOverlapWeight    = 0.25
	rlLengthWeight     = 0.20
	rlConnectiveWeight = 0.20
	sgdKeywordWeight   = 0.30
	sgdSpeakerWeight   = 0.30
	sgdLengthWeight    = 0.20
	sgdSynthesisWeight = 0.20
	rtsKeywordWeight   = 0.40
	rtsLengthWeight    = 0.30
	rtsPoliteWeight    = 0.30
)

const (
	markerSaturation     = 5 // distinct discourse/connective/synthesis phrases for a full factor
	politenessSaturation = 3
	dataPointCap         = 5 // data labels beyond this many are not required for full coverage
	numericSaturation    = 3
	speakerWordsRequired = 3
	minSpeakerWordLen    = 3
	minWordsForBandOne   = 5
	asqMaxEditDistance   = 2
)

// DefaultCompositeCuts map open-response composites to bands 6..2.
var DefaultCompositeCuts = bands.Cuts{0.80, 0.65, 0.50, 0.35, 0.20}

// DefaultRepeatSentenceCuts map the LCS ratio to bands 3..1.
var DefaultRepeatSentenceCuts = bands.Cuts{0.90, 0.50, 0.15}

// lengthSteps is the word-count step function shared by open responses.
var lengthSteps = []struct {
	minWords int
	factor   float64
}{
	{60, 1.0},
	{40, 0.85},
	{25, 0.65},
	{10, 0.4},
}

const shortResponseFactor = 0.2

// Result is a raw content score on the task's scale.
type Result struct {
	Trait     string  `json:"trait"`
	Scale     Scale   `json:"scale"`
	Raw       float64 `json:"raw"`
	Max       float64 `json:"max"`
	Errors    int     `json:"errors,omitempty"`
	Composite float64 `json:"composite,omitempty"`
}

// TraitScore converts the result into a banded trait score.
func (r Result) TraitScore() types.TraitScore {
	band := int(math.Round(r.Raw))
	return types.TraitScore{
		Trait:      r.Trait,
		Raw:        r.Raw,
		Max:        r.Max,
		Band:       band,
		Descriptor: Descriptor(r.Scale, band, int(r.Max)),
	}
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithCompositeCuts overrides the open-response band thresholds. Cuts that
// are not strictly descending or change the number of bands are ignored.
func WithCompositeCuts(c []float64) Option {
	return func(s *Scorer) {
		s.compositeCuts = bands.Cuts(c).OrDefault(s.compositeCuts)
	}
}

// WithRepeatSentenceCuts overrides the repeat-sentence ratio thresholds.
func WithRepeatSentenceCuts(c []float64) Option {
	return func(s *Scorer) {
		s.repeatCuts = bands.Cuts(c).OrDefault(s.repeatCuts)
	}
}

// Scorer computes task-specific content scores. It holds no per-call state.
type Scorer struct {
	compositeCuts bands.Cuts
	repeatCuts    bands.Cuts
}

// New creates a content scorer with the default thresholds.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		compositeCuts: DefaultCompositeCuts,
		repeatCuts:    DefaultRepeatSentenceCuts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score dispatches on the task type of expected.
func (s *Scorer) Score(expected model.ExpectedResponse, u model.Utterance) Result {
	rec := u.Tokens()
	switch expected.Task {
	case model.ReadAloud:
		return ReadAloud(align.Normalize(expected.ReferenceText), rec)
	case model.RepeatSentence:
		return s.RepeatSentence(align.Normalize(expected.ReferenceText), rec)
	case model.DescribeImage:
		return s.DescribeImage(expected, rec)
	case model.RetellLecture:
		return s.RetellLecture(expected, rec)
	case model.SummarizeGroupDiscussion:
		return s.SummarizeGroupDiscussion(expected, rec)
	case model.RespondToSituation:
		return s.RespondToSituation(expected, rec)
	case model.AnswerShortQuestion:
		return AnswerShortQuestion(expected.AcceptedAnswers, u.Text)
	default:
		return Result{Trait: types.TraitContent}
	}
}

// ReadAloud counts omissions plus insertions against the reference tokens.
func ReadAloud(expected, recognized []string) Result {
	res := Result{Trait: types.TraitContent, Scale: ScaleReadAloud, Max: float64(len(expected))}
	if len(expected) == 0 {
		return res
	}
	lcs := align.LCSLength(expected, recognized)
	res.Errors = (len(expected) - lcs) + (len(recognized) - lcs)
	res.Raw = math.Max(0, res.Max-float64(res.Errors))
	return res
}

// RepeatSentence bands the fraction of the reference reproduced in order.
func (s *Scorer) RepeatSentence(expected, recognized []string) Result {
	res := Result{Trait: types.TraitContent, Scale: ScaleRepeat, Max: RepeatSentenceMax}
	if len(expected) == 0 || len(recognized) == 0 {
		return res
	}
	ratio := float64(align.LCSLength(expected, recognized)) / float64(len(expected))
	res.Composite = ratio
	res.Raw = float64(s.repeatCuts.Band(ratio, 0))
	return res
}

// DescribeImage scores keyword and data coverage, length and organisation.
func (s *Scorer) DescribeImage(expected model.ExpectedResponse, rec []string) Result {
	res := Result{Trait: types.TraitContent, Scale: ScaleOpen, Max: OpenResponseMax}
	if len(expected.Keywords) == 0 || len(rec) == 0 {
		return res
	}
	text := joined(rec)
	res.Composite = diKeywordWeight*KeywordCoverage(expected.Keywords, text) +
		diDataWeight*dataPointCoverage(expected.DataPoints, rec, text) +
		diLengthWeight*LengthFactor(len(rec)) +
		diDiscourseWeight*markerFactor(discourseMarkers, text, markerSaturation)
	res.Raw = float64(s.openBand(res.Composite, len(rec)))
	return res
}

// RetellLecture scores keyword coverage, content-word overlap with the
// lecture, length and use of connectives.
func (s *Scorer) RetellLecture(expected model.ExpectedResponse, rec []string) Result {
	res := Result{Trait: types.TraitContent, Scale: ScaleOpen, Max: OpenResponseMax}
	if (len(expected.Keywords) == 0 && strings.TrimSpace(expected.ReferenceText) == "") || len(rec) == 0 {
		return res
	}
	text := joined(rec)
	res.Composite = rlKeywordWeight*KeywordCoverage(expected.Keywords, text) +
		rlOverlapWeight*ContentOverlap(align.Normalize(expected.ReferenceText), rec) +
		rlLengthWeight*LengthFactor(len(rec)) +
		rlConnectiveWeight*markerFactor(connectives, text, markerSaturation)
	res.Raw = float64(s.openBand(res.Composite, len(rec)))
	return res
}

// SummarizeGroupDiscussion scores keyword coverage, how many speakers are
// represented, length and synthesis language.
func (s *Scorer) SummarizeGroupDiscussion(expected model.ExpectedResponse, rec []string) Result {
	res := Result{Trait: types.TraitContent, Scale: ScaleOpen, Max: OpenResponseMax}
	if (len(expected.Keywords) == 0 && len(expected.SpeakerTurns) == 0) || len(rec) == 0 {
		return res
	}
	text := joined(rec)
	res.Composite = sgdKeywordWeight*KeywordCoverage(expected.Keywords, text) +
		sgdSpeakerWeight*SpeakerCoverage(expected.SpeakerTurns, rec) +
		sgdLengthWeight*LengthFactor(len(rec)) +
		sgdSynthesisWeight*markerFactor(synthesisMarkers, text, markerSaturation)
	res.Raw = float64(s.openBand(res.Composite, len(rec)))
	return res
}

// RespondToSituation scores appropriacy: keywords, length and politeness.
func (s *Scorer) RespondToSituation(expected model.ExpectedResponse, rec []string) Result {
	res := Result{Trait: types.TraitAppropriacy, Scale: ScaleAppropriacy, Max: OpenResponseMax}
	if len(expected.Keywords) == 0 || len(rec) == 0 {
		return res
	}
	text := joined(rec)
	res.Composite = rtsKeywordWeight*KeywordCoverage(expected.Keywords, text) +
		rtsLengthWeight*LengthFactor(len(rec)) +
		rtsPoliteWeight*markerFactor(politenessMarkers, text, politenessSaturation)
	res.Raw = float64(s.openBand(res.Composite, len(rec)))
	return res
}

// AnswerShortQuestion is binary: 1 when the response contains an accepted
// answer or any spoken word is within edit distance 2 of one.
func AnswerShortQuestion(accepted []string, recognized string) Result {
	res := Result{Trait: types.TraitVocabulary, Scale: ScaleBinary, Max: VocabularyMax}
	rec := align.Normalize(recognized)
	if len(rec) == 0 {
		return res
	}
	text := joined(rec)
	for _, a := range accepted {
		ans := joined(align.Normalize(a))
		if ans == "" {
			continue
		}
		if strings.Contains(text, ans) {
			res.Raw = 1
			return res
		}
		for _, w := range rec {
			if align.EditDistance(w, ans) <= asqMaxEditDistance {
				res.Raw = 1
				return res
			}
		}
	}
	return res
}

func (s *Scorer) openBand(composite float64, words int) int {
	floor := 0
	if words >= minWordsForBandOne {
		floor = 1
	}
	band := s.compositeCuts.Band(composite, 1)
	if band == 1 {
		return floor
	}
	return band
}

// KeywordCoverage is the fraction of non-empty keywords found as
// case-insensitive substrings of the normalized response text.
func KeywordCoverage(keywords []string, text string) float64 {
	var total, hit int
	for _, k := range keywords {
		kw := joined(align.Normalize(k))
		if kw == "" {
			continue
		}
		total++
		if strings.Contains(text, kw) {
			hit++
		}
	}
	return ratio(hit, total)
}

// LengthFactor is a step function of the number of words spoken.
func LengthFactor(words int) float64 {
	for _, st := range lengthSteps {
		if words >= st.minWords {
			return st.factor
		}
	}
	return shortResponseFactor
}

// ContentOverlap is the fraction of distinct non-stopword reference words
// that also appear in the response.
func ContentOverlap(reference, rec []string) float64 {
	spoken := set(rec)
	ref := make(map[string]struct{})
	for _, w := range reference {
		if !stopwords[w] {
			ref[w] = struct{}{}
		}
	}
	var hit int
	for w := range ref {
		if _, ok := spoken[w]; ok {
			hit++
		}
	}
	return ratio(hit, len(ref))
}

// SpeakerCoverage is the fraction of distinct speakers for whom at least
// three of their non-trivial words appear in the response.
func SpeakerCoverage(turns []model.SpeakerTurn, rec []string) float64 {
	spoken := set(rec)
	words := make(map[string]map[string]struct{})
	for _, t := range turns {
		name := strings.ToLower(strings.TrimSpace(t.Speaker))
		if name == "" {
			continue
		}
		if words[name] == nil {
			words[name] = make(map[string]struct{})
		}
		for _, w := range align.Normalize(t.Text) {
			if len([]rune(w)) >= minSpeakerWordLen && !stopwords[w] {
				words[name][w] = struct{}{}
			}
		}
	}
	var covered int
	for _, ws := range words {
		var hit int
		for w := range ws {
			if _, ok := spoken[w]; ok {
				hit++
			}
		}
		if hit >= speakerWordsRequired {
			covered++
		}
	}
	return ratio(covered, len(words))
}

// dataPointCoverage measures mention of chart labels and values. Without
// supplied labels it falls back to how many numbers were spoken.
func dataPointCoverage(points []string, rec []string, text string) float64 {
	var total, hit int
	for _, p := range points {
		dp := joined(align.Normalize(p))
		if dp == "" {
			continue
		}
		total++
		if strings.Contains(text, dp) {
			hit++
		}
	}
	if total == 0 {
		var numbers int
		for _, w := range rec {
			if isNumeric(w) {
				numbers++
			}
		}
		return math.Min(1, float64(numbers)/numericSaturation)
	}
	return math.Min(1, float64(hit)/float64(min(total, dataPointCap)))
}

func markerFactor(phrases []string, text string, saturation int) float64 {
	padded := " " + text + " "
	var n int
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			n++
		}
	}
	return math.Min(1, float64(n)/float64(saturation))
}

func isNumeric(w string) bool {
	digits := 0
	for _, r := range w {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > 0
}

func joined(tokens []string) string {
	return strings.Join(tokens, " ")
}

func set(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d)
}
