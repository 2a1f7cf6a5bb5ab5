package api

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/okian/speakeval/internal/domain/pitch"
)

// ToneHandler analyses posted audio.
type ToneHandler struct {
	deps       Dependencies
	sampleRate int
	frameSize  int
}

// NewToneHandler creates a tone handler with default audio parameters.
func NewToneHandler(deps Dependencies, sampleRate, frameSize int) *ToneHandler {
	return &ToneHandler{deps: deps, sampleRate: sampleRate, frameSize: frameSize}
}

// toneRequest carries mono audio either as base64 16-bit little-endian PCM
// or as float samples in [-1,1].
type toneRequest struct {
	SampleRate     int       `json:"sample_rate"`
	FrameSize      int       `json:"frame_size"`
	PCM16          string    `json:"pcm16_base64"`
	Samples        []float64 `json:"samples"`
	IncludeSamples bool      `json:"include_samples"`
}

func (req toneRequest) audio() ([]float64, error) {
	switch {
	case req.PCM16 != "" && len(req.Samples) > 0:
		return nil, errors.New("send either pcm16_base64 or samples, not both")
	case req.PCM16 != "":
		raw, err := base64.StdEncoding.DecodeString(req.PCM16)
		if err != nil {
			return nil, errors.New("pcm16_base64 is not valid base64")
		}
		if len(raw)%2 != 0 {
			return nil, errors.New("pcm16 data must have an even byte length")
		}
		return pitch.FromPCM16LE(raw), nil
	case len(req.Samples) > 0:
		return req.Samples, nil
	}
	return nil, errors.New("no audio")
}

// HandleTone handles POST /tone.
func (h *ToneHandler) HandleTone(w http.ResponseWriter, r *http.Request) {
	const op = "api.tone"
	var req toneRequest
	if err := decodeJSON(r, maxToneBody, &req); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	samples, err := req.audio()
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	rate, size := req.SampleRate, req.FrameSize
	if rate == 0 {
		rate = h.sampleRate
	}
	if size == 0 {
		size = h.frameSize
	}
	if rate < 0 || size < 0 {
		writeKindError(w, WrapKind(op, ErrBadRequest, errors.New("sample_rate and frame_size must be positive")))
		return
	}

	profile, err := h.deps.AnalyzeTone(r.Context(), samples, rate, size)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if !req.IncludeSamples {
		profile.Samples, profile.Levels = nil, nil
	}
	writeJSON(w, http.StatusOK, profile)
}
