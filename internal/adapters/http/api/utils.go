package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/speakeval/internal/domain/model"
)

// Request body limits.
const (
	maxAttemptBody = 1 << 20
	maxToneBody    = 32 << 20
)

// attemptRequest mirrors model.Attempt with the task given as a string so
// short aliases such as "ra" are accepted.
type attemptRequest struct {
	AttemptID string          `json:"attempt_id"`
	LearnerID string          `json:"learner_id"`
	Task      string          `json:"task"`
	Expected  expectedRequest `json:"expected"`
	Utterance model.Utterance `json:"utterance"`
}

type expectedRequest struct {
	Task            string              `json:"task"`
	ReferenceText   string              `json:"reference_text"`
	Keywords        []string            `json:"keywords"`
	DataPoints      []string            `json:"data_points"`
	AcceptedAnswers []string            `json:"accepted_answers"`
	SpeakerTurns    []model.SpeakerTurn `json:"speaker_turns"`
	PrepSeconds     float64             `json:"prep_seconds"`
	RecordSeconds   float64             `json:"record_seconds"`
}

func decodeJSON(r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// toAttempt validates the request. A missing attempt ID is generated.
func (req attemptRequest) toAttempt() (model.Attempt, error) {
	name := req.Task
	if name == "" {
		name = req.Expected.Task
	}
	if strings.TrimSpace(name) == "" {
		return model.Attempt{}, errors.New("missing task")
	}
	task, ok := model.ParseTaskType(name)
	if !ok {
		return model.Attempt{}, fmt.Errorf("unknown task %q", name)
	}
	// Out-of-range confidences and negative elapsed seconds are clamped by
	// model.Utterance, not rejected.

	id := strings.TrimSpace(req.AttemptID)
	if id == "" {
		id = uuid.NewString()
	}
	exp := req.Expected
	return model.Attempt{
		AttemptID: id,
		LearnerID: strings.TrimSpace(req.LearnerID),
		Expected: model.ExpectedResponse{
			Task:            task,
			ReferenceText:   exp.ReferenceText,
			Keywords:        exp.Keywords,
			DataPoints:      exp.DataPoints,
			AcceptedAnswers: exp.AcceptedAnswers,
			SpeakerTurns:    exp.SpeakerTurns,
			PrepSeconds:     exp.PrepSeconds,
			RecordSeconds:   exp.RecordSeconds,
		},
		Utterance: req.Utterance,
	}, nil
}
