package pitch_test

import (
	"math"
	"testing"

	"github.com/okian/speakeval/internal/domain/pitch"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleRate = 16000

func sine(hz, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*hz*float64(i)/sampleRate)
	}
	return out
}

func TestDetector_Detect(t *testing.T) {
	Convey("Given a pitch detector", t, func() {
		d := pitch.NewDetector()

		Convey("When the frame is all zeros", func() {
			So(d.Detect(make([]float64, 2048), sampleRate), ShouldEqual, 0)
		})

		Convey("When the frame is a 150 Hz sine", func() {
			f := d.Detect(sine(150, 0.5, 2048), sampleRate)

			Convey("Then the estimate is within 3 percent", func() {
				So(f, ShouldAlmostEqual, 150, 4.5)
			})
		})

		Convey("When the frame holds other voiced pitches", func() {
			So(d.Detect(sine(100, 0.5, 2048), sampleRate), ShouldAlmostEqual, 100, 3)
			So(d.Detect(sine(220, 0.5, 2048), sampleRate), ShouldAlmostEqual, 220, 6.6)
			So(d.Detect(sine(450, 0.5, 2048), sampleRate), ShouldAlmostEqual, 450, 13.5)
		})

		Convey("When the pitch is outside the voice band", func() {
			So(d.Detect(sine(1000, 0.5, 2048), sampleRate), ShouldEqual, 0)
			So(d.Detect(sine(60, 0.5, 2048), sampleRate), ShouldEqual, 0)
		})

		Convey("When the frame is below the silence level", func() {
			So(d.Detect(sine(150, 0.005, 2048), sampleRate), ShouldEqual, 0)
		})

		Convey("When the input is degenerate", func() {
			So(d.Detect(nil, sampleRate), ShouldEqual, 0)
			So(d.Detect(sine(150, 0.5, 2048), 0), ShouldEqual, 0)
		})

		Convey("Then estimates are rounded to one decimal", func() {
			f := d.Detect(sine(150, 0.5, 2048), sampleRate)
			So(math.Round(f*10)/10, ShouldEqual, f)
		})
	})
}

func TestLevels(t *testing.T) {
	Convey("Given level helpers", t, func() {
		So(pitch.RMS(nil), ShouldEqual, 0)
		So(pitch.RMS([]float64{1, -1, 1, -1}), ShouldEqual, 1)
		So(pitch.VolumeDB(1), ShouldEqual, 0)
		So(pitch.VolumeDB(0.1), ShouldAlmostEqual, -20)
		So(pitch.VolumeDB(0), ShouldEqual, -100)
		So(pitch.VolumeDB(1e-9), ShouldEqual, -100)
	})
}

func TestPCM(t *testing.T) {
	Convey("Given 16-bit little-endian PCM", t, func() {
		b := []byte{0x00, 0x40, 0x00, 0xC0, 0xFF, 0x7F, 0x01}
		s := pitch.FromPCM16LE(b)

		Convey("Then samples are scaled into [-1, 1)", func() {
			So(s, ShouldHaveLength, 3)
			So(s[0], ShouldEqual, 0.5)
			So(s[1], ShouldEqual, -0.5)
			So(s[2], ShouldBeLessThan, 1)
		})

		Convey("When splitting into frames", func() {
			frames := pitch.Frames(make([]float64, 10), 4)
			So(frames, ShouldHaveLength, 2)
			So(frames[1], ShouldHaveLength, 4)
			So(pitch.Frames(make([]float64, 10), 0), ShouldBeNil)
		})
	})
}
