package tone

import (
	"fmt"
	"math"
	"time"
)

// Pattern classifies how pitch moves across the four quarters of a recording.
type Pattern string

// Intonation patterns.
const (
	PatternUnknown       Pattern = "unknown"
	PatternFlat          Pattern = "flat"
	PatternRising        Pattern = "rising"
	PatternFalling       Pattern = "falling"
	PatternVaried        Pattern = "varied"
	PatternVariedRising  Pattern = "varied-rising"
	PatternVariedFalling Pattern = "varied-falling"
)

// Varied reports whether p is one of the varied classes.
func (p Pattern) Varied() bool {
	return p == PatternVaried || p == PatternVariedRising || p == PatternVariedFalling
}

// Rating is the qualitative verdict on one sub-metric.
type Rating string

// Ratings.
const (
	RatingGood      Rating = "good"
	RatingOK        Rating = "ok"
	RatingNeedsWork Rating = "needs-work"
	RatingCaution   Rating = "caution"
	RatingUnknown   Rating = "unknown"
)

// Assessment is a rating with learner-facing guidance.
type Assessment struct {
	Rating   Rating `json:"rating"`
	Guidance string `json:"guidance"`
}

var unknown = Assessment{Rating: RatingUnknown, Guidance: "Not enough voiced speech to analyse."}

// Profile aggregates the voiced samples of one recording.
type Profile struct {
	HasPitchData bool          `json:"has_pitch_data"`
	Frames       int           `json:"frames"`
	Voiced       int           `json:"voiced"`
	Duration     time.Duration `json:"duration"`

	AvgPitch       float64 `json:"avg_pitch,omitempty"`
	MinPitch       float64 `json:"min_pitch,omitempty"`
	MaxPitch       float64 `json:"max_pitch,omitempty"`
	PitchRange     float64 `json:"pitch_range,omitempty"`
	PitchStdDev    float64 `json:"pitch_stddev,omitempty"`
	PitchVariation float64 `json:"pitch_variation,omitempty"`
	Pattern        Pattern `json:"pattern"`

	AvgVolume    float64 `json:"avg_volume,omitempty"`
	VolumeStdDev float64 `json:"volume_stddev,omitempty"`

	IntonationScore   int `json:"intonation_score"`
	VolumeConsistency int `json:"volume_consistency"`

	Pitch      Assessment `json:"pitch"`
	Variation  Assessment `json:"variation"`
	Intonation Assessment `json:"intonation"`
	Volume     Assessment `json:"volume"`

	Samples []Sample      `json:"samples,omitempty"`
	Levels  []VolumePoint `json:"levels,omitempty"`
}

// Scoring thresholds.
const (
	minVoicedSamples = 3
	scoreBase        = 50

	idealVariationLow   = 0.05
	idealVariationHigh  = 0.25
	okVariationLow      = 0.03
	okVariationHigh     = 0.35
	quarterRise         = 1.05
	quarterFall         = 0.95
	quarterVariedRatio  = 1.1
	loudVolumeDB        = -25.0
	audibleVolumeDB     = -35.0
	steadyVolumeLow     = 2.0
	steadyVolumeHigh    = 8.0
	okVolumeLow         = 1.0
	okVolumeHigh        = 12.0
	goodScore           = 80
	okScore             = 60
	lowComfortablePitch = 85.0
	highComfortable     = 255.0
	highPitchCaution    = 350.0
)

func summarize(samples []Sample, levels []VolumePoint, frames int, dur time.Duration) Profile {
	p := Profile{
		Frames:     frames,
		Voiced:     len(samples),
		Duration:   dur,
		Pattern:    PatternUnknown,
		Pitch:      unknown,
		Variation:  unknown,
		Intonation: unknown,
		Volume:     unknown,
		Samples:    samples,
		Levels:     levels,
	}
	if len(samples) < minVoicedSamples {
		return p
	}
	p.HasPitchData = true

	pitches := make([]float64, len(samples))
	volumes := make([]float64, len(samples))
	for i, s := range samples {
		pitches[i] = s.FrequencyHz
		volumes[i] = s.VolumeDB
	}

	p.AvgPitch, p.PitchStdDev = meanStd(pitches)
	p.MinPitch, p.MaxPitch = pitches[0], pitches[0]
	for _, f := range pitches[1:] {
		p.MinPitch = math.Min(p.MinPitch, f)
		p.MaxPitch = math.Max(p.MaxPitch, f)
	}
	p.PitchRange = p.MaxPitch - p.MinPitch
	if p.AvgPitch > 0 {
		p.PitchVariation = p.PitchStdDev / p.AvgPitch
	}
	p.Pattern = classify(pitches)
	p.AvgVolume, p.VolumeStdDev = meanStd(volumes)

	p.IntonationScore = intonationScore(p.PitchVariation, p.Pattern)
	p.VolumeConsistency = volumeConsistency(p.AvgVolume, p.VolumeStdDev)

	p.Pitch = assessPitch(p.AvgPitch)
	p.Variation = assessVariation(p.PitchVariation)
	p.Intonation = assessIntonation(p.IntonationScore, p.Pattern)
	p.Volume = assessVolume(p.VolumeConsistency, p.AvgVolume)
	return p
}

// classify compares the first and last quarter means for direction and the
// spread of all quarter means for variety.
func classify(pitches []float64) Pattern {
	var sums [4]float64
	var counts [4]int
	n := len(pitches)
	for i, f := range pitches {
		q := i * 4 / n
		sums[q] += f
		counts[q]++
	}
	means := make([]float64, 0, 4)
	for q := range sums {
		if counts[q] > 0 {
			means = append(means, sums[q]/float64(counts[q]))
		}
	}
	if len(means) < 2 {
		return PatternFlat
	}
	first, last := means[0], means[len(means)-1]
	lo, hi := means[0], means[0]
	for _, m := range means[1:] {
		lo = math.Min(lo, m)
		hi = math.Max(hi, m)
	}
	varied := lo > 0 && hi/lo > quarterVariedRatio
	rising := last > first*quarterRise
	falling := last < first*quarterFall

	switch {
	case varied && rising:
		return PatternVariedRising
	case varied && falling:
		return PatternVariedFalling
	case varied:
		return PatternVaried
	case rising:
		return PatternRising
	case falling:
		return PatternFalling
	default:
		return PatternFlat
	}
}

func intonationScore(cv float64, pattern Pattern) int {
	score := scoreBase
	switch {
	case cv >= idealVariationLow && cv <= idealVariationHigh:
		score += 30
	case cv >= okVariationLow && cv <= okVariationHigh:
		score += 15
	case cv < okVariationLow:
		score -= 15
	default:
		score -= 10
	}
	switch {
	case pattern.Varied():
		score += 20
	case pattern == PatternRising || pattern == PatternFalling:
		score += 10
	}
	return clampScore(score)
}

func volumeConsistency(avgDB, stdDB float64) int {
	score := scoreBase
	switch {
	case avgDB > loudVolumeDB:
		score += 20
	case avgDB > audibleVolumeDB:
		score += 10
	default:
		score -= 10
	}
	switch {
	case stdDB >= steadyVolumeLow && stdDB <= steadyVolumeHigh:
		score += 30
	case stdDB >= okVolumeLow && stdDB <= okVolumeHigh:
		score += 15
	case stdDB < okVolumeLow:
		score -= 5
	default:
		score -= 10
	}
	return clampScore(score)
}

func assessPitch(avg float64) Assessment {
	switch {
	case avg >= lowComfortablePitch && avg <= highComfortable:
		return Assessment{RatingGood, fmt.Sprintf("Average pitch %.0f Hz is in a comfortable speaking range.", avg)}
	case avg > highPitchCaution:
		return Assessment{RatingCaution, fmt.Sprintf("Average pitch %.0f Hz is unusually high; check for background noise.", avg)}
	default:
		return Assessment{RatingOK, fmt.Sprintf("Average pitch %.0f Hz is outside the typical range; relax your voice.", avg)}
	}
}

func assessVariation(cv float64) Assessment {
	switch {
	case cv >= idealVariationLow && cv <= idealVariationHigh:
		return Assessment{RatingGood, "Natural pitch movement."}
	case cv >= okVariationLow && cv <= okVariationHigh:
		return Assessment{RatingOK, "Pitch movement is acceptable; stress key words a little more."}
	case cv < okVariationLow:
		return Assessment{RatingNeedsWork, "Speech sounds monotone; vary your pitch on important words."}
	default:
		return Assessment{RatingCaution, "Pitch jumps a lot; aim for smoother movement."}
	}
}

func assessIntonation(score int, pattern Pattern) Assessment {
	switch {
	case score >= goodScore:
		return Assessment{RatingGood, fmt.Sprintf("Expressive intonation (%s).", pattern)}
	case score >= okScore:
		return Assessment{RatingOK, fmt.Sprintf("Intonation is %s; add more rise and fall across sentences.", pattern)}
	default:
		return Assessment{RatingNeedsWork, "Intonation is flat; let pitch rise and fall with meaning."}
	}
}

func assessVolume(score int, avgDB float64) Assessment {
	switch {
	case score >= goodScore:
		return Assessment{RatingGood, "Clear and steady volume."}
	case avgDB <= audibleVolumeDB:
		return Assessment{RatingNeedsWork, "Speak louder or move closer to the microphone."}
	case score >= okScore:
		return Assessment{RatingOK, "Volume is mostly steady."}
	default:
		return Assessment{RatingCaution, "Volume changes a lot; keep a steady distance from the microphone."}
	}
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(xs)))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
