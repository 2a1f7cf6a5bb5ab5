// Package tone accumulates per-frame pitch and volume over one recording
// session and summarizes them into an intonation and volume profile.
//
// A Profiler belongs to a single recording. It may be fed from a capture
// goroutine while another goroutine stops it.
package tone

import (
	"sync"
	"time"

	"github.com/okian/speakeval/internal/domain/pitch"
)

// Sample is one voiced frame.
type Sample struct {
	At          time.Duration `json:"at"`
	FrequencyHz float64       `json:"frequency_hz"`
	VolumeDB    float64       `json:"volume_db"`
}

// VolumePoint is the level of one frame, voiced or not.
type VolumePoint struct {
	At       time.Duration `json:"at"`
	VolumeDB float64       `json:"volume_db"`
}

// Clock returns the current time.
type Clock func() time.Time

// Option applies a configuration option to the Profiler.
type Option func(*Profiler)

// WithClock sets the time source used by Sample.
func WithClock(c Clock) Option {
	return func(p *Profiler) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithDetector sets the pitch detector.
func WithDetector(d *pitch.Detector) Option {
	return func(p *Profiler) {
		if d != nil {
			p.detector = d
		}
	}
}

// Profiler is a recording session: Start, Sample repeatedly, Stop once.
type Profiler struct {
	sampleRate int
	clock      Clock
	detector   *pitch.Detector

	mu      sync.Mutex
	started time.Time
	running bool
	last    time.Duration
	samples []Sample
	levels  []VolumePoint
	result  *Profile
}

// NewProfiler creates a profiler for audio at sampleRate Hz.
func NewProfiler(sampleRate int, opts ...Option) *Profiler {
	p := &Profiler{
		sampleRate: sampleRate,
		clock:      time.Now,
		detector:   pitch.NewDetector(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the session. Starting a stopped profiler has no effect.
func (p *Profiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.result != nil {
		return
	}
	p.started = p.clock()
	p.running = true
}

// Sample analyses one frame timestamped by the clock. Frames outside a
// running session are ignored.
func (p *Profiler) Sample(frame []float64) {
	p.mu.Lock()
	running, started := p.running, p.started
	p.mu.Unlock()
	if !running {
		return
	}
	p.SampleAt(frame, p.clock().Sub(started))
}

// SampleAt analyses one frame with an explicit offset from the session start.
// The returned frequency is 0 when the frame was unvoiced.
func (p *Profiler) SampleAt(frame []float64, at time.Duration) float64 {
	vol := pitch.VolumeDB(pitch.RMS(frame))
	f := p.detector.Detect(frame, p.sampleRate)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	if at < 0 {
		at = 0
	}
	if at > p.last {
		p.last = at
	}
	p.levels = append(p.levels, VolumePoint{At: at, VolumeDB: vol})
	if f > 0 {
		p.samples = append(p.samples, Sample{At: at, FrequencyHz: f, VolumeDB: vol})
	}
	return f
}

// Stop ends the session and returns its profile. Later calls return the
// same profile.
func (p *Profiler) Stop() Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result != nil {
		return *p.result
	}
	p.running = false
	prof := summarize(p.samples, p.levels, len(p.levels), p.last)
	p.result = &prof
	return prof
}

// Analyze runs a whole buffer through a fresh profiler, timestamping frames
// by their position in the buffer.
func Analyze(samples []float64, sampleRate, frameSize int, opts ...Option) Profile {
	p := NewProfiler(sampleRate, opts...)
	p.Start()
	if sampleRate > 0 {
		for i, frame := range pitch.Frames(samples, frameSize) {
			at := time.Duration(i*frameSize) * time.Second / time.Duration(sampleRate)
			p.SampleAt(frame, at)
		}
	}
	return p.Stop()
}
