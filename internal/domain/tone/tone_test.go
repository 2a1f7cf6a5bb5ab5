package tone_test

import (
	"math"
	"testing"
	"time"

	"github.com/okian/speakeval/internal/domain/tone"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	sampleRate = 16000
	frameSize  = 2048
)

func frame(hz, amp float64) []float64 {
	out := make([]float64, frameSize)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*hz*float64(i)/sampleRate)
	}
	return out
}

// buffer concatenates one frame per frequency; 0 means silence.
func buffer(freqs ...float64) []float64 {
	out := make([]float64, 0, len(freqs)*frameSize)
	for _, f := range freqs {
		if f == 0 {
			out = append(out, make([]float64, frameSize)...)
			continue
		}
		out = append(out, frame(f, 0.5)...)
	}
	return out
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestProfiler(t *testing.T) {
	Convey("Given a profiler driven by a fake clock", t, func() {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		p := tone.NewProfiler(sampleRate, tone.WithClock(clock.Now))

		Convey("When frames arrive before Start", func() {
			p.Sample(frame(150, 0.5))
			prof := p.Stop()
			So(prof.Frames, ShouldEqual, 0)
		})

		Convey("When voiced and silent frames are sampled", func() {
			p.Start()
			for _, hz := range []float64{140, 0, 150, 160, 0} {
				clock.now = clock.now.Add(128 * time.Millisecond)
				if hz == 0 {
					p.Sample(make([]float64, frameSize))
					continue
				}
				p.Sample(frame(hz, 0.5))
			}
			prof := p.Stop()

			Convey("Then every frame has a level and only voiced frames a pitch", func() {
				So(prof.Frames, ShouldEqual, 5)
				So(prof.Voiced, ShouldEqual, 3)
				So(prof.HasPitchData, ShouldBeTrue)
				So(prof.Samples[0].At, ShouldEqual, 128*time.Millisecond)
				So(prof.Levels[1].VolumeDB, ShouldEqual, -100)
				So(prof.Duration, ShouldEqual, 640*time.Millisecond)
				So(prof.AvgPitch, ShouldAlmostEqual, 150, 1)
				So(prof.PitchRange, ShouldAlmostEqual, 20, 1)
			})

			Convey("Then stopping again returns the same profile and ignores new frames", func() {
				p.Sample(frame(200, 0.5))
				again := p.Stop()
				So(again.Frames, ShouldEqual, prof.Frames)
				So(again.AvgPitch, ShouldEqual, prof.AvgPitch)
			})
		})

		Convey("When fewer than three voiced frames were collected", func() {
			p.Start()
			p.SampleAt(frame(150, 0.5), 0)
			p.SampleAt(make([]float64, frameSize), time.Second)
			p.SampleAt(frame(160, 0.5), 2*time.Second)
			prof := p.Stop()

			Convey("Then there is no pitch data and every rating is unknown", func() {
				So(prof.HasPitchData, ShouldBeFalse)
				So(prof.Pattern, ShouldEqual, tone.PatternUnknown)
				for _, a := range []tone.Assessment{prof.Pitch, prof.Variation, prof.Intonation, prof.Volume} {
					So(a.Rating, ShouldEqual, tone.RatingUnknown)
				}
			})
		})
	})
}

func TestAnalyze(t *testing.T) {
	Convey("Given whole recordings", t, func() {
		Convey("When comparing a lively series with a flat one of the same length", func() {
			lively := tone.Analyze(buffer(127.5, 172.5, 127.5, 172.5, 127.5, 172.5, 127.5, 172.5), sampleRate, frameSize)
			flat := tone.Analyze(buffer(148.5, 151.5, 148.5, 151.5, 148.5, 151.5, 148.5, 151.5), sampleRate, frameSize)

			Convey("Then the lively series scores strictly higher", func() {
				So(lively.PitchVariation, ShouldAlmostEqual, 0.15, 0.01)
				So(flat.PitchVariation, ShouldAlmostEqual, 0.01, 0.005)
				So(lively.IntonationScore, ShouldBeGreaterThan, flat.IntonationScore)
				So(flat.Variation.Rating, ShouldEqual, tone.RatingNeedsWork)
				So(lively.Variation.Rating, ShouldEqual, tone.RatingGood)
			})
		})

		Convey("When pitch climbs gently", func() {
			prof := tone.Analyze(buffer(140, 142, 144, 146, 148, 150, 152, 154), sampleRate, frameSize)
			So(prof.Pattern, ShouldEqual, tone.PatternRising)
		})

		Convey("When pitch climbs steeply", func() {
			prof := tone.Analyze(buffer(120, 130, 140, 150, 160, 170, 180, 190), sampleRate, frameSize)

			Convey("Then the pattern is varied and rising with a top score", func() {
				So(prof.Pattern, ShouldEqual, tone.PatternVariedRising)
				So(prof.IntonationScore, ShouldEqual, 100)
				So(prof.Intonation.Rating, ShouldEqual, tone.RatingGood)
			})
		})

		Convey("When pitch falls steeply", func() {
			prof := tone.Analyze(buffer(190, 180, 170, 160, 150, 140, 130, 120), sampleRate, frameSize)
			So(prof.Pattern, ShouldEqual, tone.PatternVariedFalling)
		})

		Convey("When the volume is steady and loud", func() {
			prof := tone.Analyze(buffer(150, 150, 150), sampleRate, frameSize)

			Convey("Then volume consistency reflects zero spread", func() {
				So(prof.AvgVolume, ShouldAlmostEqual, -9.03, 0.05)
				So(prof.VolumeStdDev, ShouldAlmostEqual, 0, 1e-9)
				So(prof.VolumeConsistency, ShouldEqual, 65)
				So(prof.Volume.Rating, ShouldEqual, tone.RatingOK)
			})
		})

		Convey("When the recording is silent", func() {
			prof := tone.Analyze(buffer(0, 0, 0, 0), sampleRate, frameSize)
			So(prof.HasPitchData, ShouldBeFalse)
			So(prof.Frames, ShouldEqual, 4)
		})
	})
}
