// Package pitch estimates the fundamental frequency of short audio frames by
// autocorrelation and provides the sample helpers the tone profiler needs.
package pitch

import (
	"encoding/binary"
	"math"
)

// Voice band limits in Hz. Detections outside are reported as 0.
const (
	MinFrequency = 75.0
	MaxFrequency = 500.0
)

// Default detector thresholds.
const (
	DefaultSilenceRMS     = 0.01
	DefaultTrimAmplitude  = 0.2
	DefaultMinPeriodicity = 0.3
	minTrimmedPeriods     = 2
	silenceFloorDB        = -100.0
	pcm16Scale            = 32768.0
	oneDecimal            = 10.0
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithSilenceRMS sets the RMS level below which a frame is treated as silence.
func WithSilenceRMS(v float64) Option {
	return func(d *Detector) {
		if v >= 0 {
			d.silenceRMS = v
		}
	}
}

// WithTrimAmplitude sets the amplitude below which leading and trailing
// samples are trimmed before autocorrelation.
func WithTrimAmplitude(v float64) Option {
	return func(d *Detector) {
		if v >= 0 && v < 1 {
			d.trimAmplitude = v
		}
	}
}

// WithMinPeriodicity sets the minimum peak correlation relative to lag 0.
func WithMinPeriodicity(v float64) Option {
	return func(d *Detector) {
		if v > 0 && v < 1 {
			d.minPeriodicity = v
		}
	}
}

// Detector is stateless after construction and safe for concurrent use.
type Detector struct {
	silenceRMS     float64
	trimAmplitude  float64
	minPeriodicity float64
}

// NewDetector creates a detector with default thresholds.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		silenceRMS:     DefaultSilenceRMS,
		trimAmplitude:  DefaultTrimAmplitude,
		minPeriodicity: DefaultMinPeriodicity,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the fundamental frequency of frame in Hz rounded to one
// decimal, or 0 when the frame is silent, aperiodic or outside the voice band.
// Samples are expected in [-1, 1].
func (d *Detector) Detect(frame []float64, sampleRate int) float64 {
	if sampleRate <= 0 || len(frame) < 4 {
		return 0
	}
	if RMS(frame) < d.silenceRMS {
		return 0
	}

	voiced := d.trim(frame, sampleRate)
	corr := autocorrelate(voiced)
	if len(corr) < 3 || corr[0] <= 0 {
		return 0
	}

	// Skip past the zero-lag peak.
	lag := 1
	for lag < len(corr)-1 && corr[lag] > corr[lag+1] {
		lag++
	}
	best, bestVal := -1, math.Inf(-1)
	for i := lag; i < len(corr); i++ {
		if corr[i] > bestVal {
			best, bestVal = i, corr[i]
		}
	}
	if best <= 0 || best >= len(corr)-1 {
		return 0
	}
	if bestVal < d.minPeriodicity*corr[0] {
		return 0
	}

	period := refine(corr, best)
	if period <= 0 {
		return 0
	}
	freq := float64(sampleRate) / period
	if freq < MinFrequency || freq > MaxFrequency {
		return 0
	}
	return math.Round(freq*oneDecimal) / oneDecimal
}

// trim drops quiet leading and trailing samples. It keeps the full frame when
// the voiced span would be too short to hold two periods of the lowest pitch.
func (d *Detector) trim(frame []float64, sampleRate int) []float64 {
	start, end := 0, len(frame)-1
	for start < len(frame) && math.Abs(frame[start]) < d.trimAmplitude {
		start++
	}
	for end > start && math.Abs(frame[end]) < d.trimAmplitude {
		end--
	}
	minLen := int(math.Ceil(minTrimmedPeriods * float64(sampleRate) / MinFrequency))
	if end-start+1 < minLen {
		return frame
	}
	return frame[start : end+1]
}

// autocorrelate returns the autocorrelation for lags 0..len(x)/2.
func autocorrelate(x []float64) []float64 {
	n := len(x)
	maxLag := n / 2
	out := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += x[i] * x[i+lag]
		}
		out[lag] = sum
	}
	return out
}

// refine fits a parabola through the peak and its neighbours.
func refine(corr []float64, i int) float64 {
	x1, x2, x3 := corr[i-1], corr[i], corr[i+1]
	a := (x1 + x3 - 2*x2) / 2
	b := (x3 - x1) / 2
	if a == 0 {
		return float64(i)
	}
	return float64(i) - b/(2*a)
}

// RMS returns the root-mean-square level of frame.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// VolumeDB converts an RMS level to decibels relative to full scale, floored
// at -100 dB.
func VolumeDB(rms float64) float64 {
	if !(rms > 0) {
		return silenceFloorDB
	}
	return math.Max(silenceFloorDB, 20*math.Log10(rms))
}

// FromPCM16LE decodes signed 16-bit little-endian PCM into samples in [-1, 1).
// A trailing odd byte is ignored.
func FromPCM16LE(b []byte) []float64 {
	out := make([]float64, len(b)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(b[2*i:]))) / pcm16Scale
	}
	return out
}

// Frames splits samples into consecutive frames of size samples. A short
// final frame is dropped.
func Frames(samples []float64, size int) [][]float64 {
	if size <= 0 {
		return nil
	}
	out := make([][]float64, 0, len(samples)/size)
	for i := 0; i+size <= len(samples); i += size {
		out = append(out, samples[i:i+size])
	}
	return out
}
