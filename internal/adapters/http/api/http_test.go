package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/speakeval/internal/adapters/http/api"
	"github.com/okian/speakeval/internal/adapters/mq/queue"
	"github.com/okian/speakeval/internal/adapters/repository"
	"github.com/okian/speakeval/internal/domain/dedupe"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/scoring"
	"github.com/okian/speakeval/internal/domain/tone"
	"github.com/okian/speakeval/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	*dedupe.InMemoryDeduper
	engine  *scoring.Engine
	store   *repository.ShardedStore
	mu      sync.Mutex
	queued  []model.Attempt
	enqErr  error
	evalErr error
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		InMemoryDeduper: dedupe.NewInMemoryDeduper(),
		engine:          scoring.NewEngine(),
		store:           repository.NewShardedStore(),
	}
}

func (m *mockDependencies) Enqueue(ctx context.Context, a model.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqErr != nil {
		return m.enqErr
	}
	m.queued = append(m.queued, a)
	return nil
}

func (m *mockDependencies) Evaluate(ctx context.Context, a model.Attempt) (types.Evaluation, error) {
	if m.evalErr != nil {
		return types.Evaluation{}, m.evalErr
	}
	return m.engine.Evaluate(ctx, a)
}

func (m *mockDependencies) Evaluation(ctx context.Context, id string) (types.Evaluation, error) {
	return m.store.Get(ctx, id)
}

func (m *mockDependencies) LearnerEvaluations(ctx context.Context, learnerID string, limit int) ([]types.Evaluation, error) {
	return m.store.ByLearner(ctx, learnerID, limit)
}

func (m *mockDependencies) AnalyzeTone(ctx context.Context, samples []float64, sampleRate, frameSize int) (tone.Profile, error) {
	return tone.Analyze(samples, sampleRate, frameSize), nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const readAloudBody = `{
	"attempt_id": "att-1",
	"learner_id": "learner-1",
	"task": "ra",
	"expected": {"reference_text": "The quick brown fox jumps over the lazy dog."},
	"utterance": {
		"text": "the quick brown fox jumps over the lazy dog",
		"confidences": [0.95],
		"elapsed_seconds": 4,
		"events": [{"arrival_ms": 0, "word_count": 5}, {"arrival_ms": 1200, "word_count": 4}]
	}
}`

func TestServer_Routes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		stats := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
		h := api.NewServer(deps, stats).Handler()

		Convey("When probing health", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("When scraping metrics", func() {
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "speakeval_engine_goroutines")
		})

		Convey("When reading stats", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("When using the wrong method", func() {
			w := do(h, http.MethodGet, "/evaluate", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestEvaluateHandler(t *testing.T) {
	Convey("Given the evaluate endpoint", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}).Handler()

		Convey("When a perfect read-aloud attempt is posted", func() {
			w := do(h, http.MethodPost, "/evaluate", readAloudBody)

			Convey("Then the evaluation is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var ev types.Evaluation
				So(json.Unmarshal(w.Body.Bytes(), &ev), ShouldBeNil)
				So(ev.AttemptID, ShouldEqual, "att-1")
				So(ev.Task, ShouldEqual, model.ReadAloud)
				So(ev.Content, ShouldNotBeNil)
				So(ev.Content.Raw, ShouldEqual, ev.Content.Max)
				So(ev.ReadAloudErrors, ShouldEqual, 0)
				So(ev.Overall, ShouldBeBetweenOrEqual, 10, 90)
			})
		})

		Convey("When the attempt has no ID", func() {
			body := strings.Replace(readAloudBody, `"attempt_id": "att-1",`, "", 1)
			w := do(h, http.MethodPost, "/evaluate", body)

			Convey("Then one is generated", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var ev types.Evaluation
				So(json.Unmarshal(w.Body.Bytes(), &ev), ShouldBeNil)
				So(len(ev.AttemptID), ShouldEqual, 36)
			})
		})

		Convey("When the body is malformed", func() {
			w := do(h, http.MethodPost, "/evaluate", "{not json")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "bad_request")
		})

		Convey("When the task is unknown", func() {
			w := do(h, http.MethodPost, "/evaluate", `{"task": "essay", "utterance": {"text": "hi"}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "essay")
		})

		Convey("When the task is missing", func() {
			w := do(h, http.MethodPost, "/evaluate", `{"utterance": {"text": "hi"}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When confidences and elapsed seconds are out of range", func() {
			outOfRange := strings.NewReplacer(`"confidences": [0.95]`, `"confidences": [1.5]`,
				`"elapsed_seconds": 4`, `"elapsed_seconds": -2`).Replace(readAloudBody)
			clamped := strings.NewReplacer(`"confidences": [0.95]`, `"confidences": [1]`,
				`"elapsed_seconds": 4`, `"elapsed_seconds": 0`).Replace(readAloudBody)
			w := do(h, http.MethodPost, "/evaluate", outOfRange)
			wc := do(h, http.MethodPost, "/evaluate", clamped)

			Convey("Then they are clamped and scored like their bounds", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(wc.Code, ShouldEqual, http.StatusOK)
				var got, want types.Evaluation
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(json.Unmarshal(wc.Body.Bytes(), &want), ShouldBeNil)
				So(got.Overall, ShouldEqual, want.Overall)
				So(got.Pronunciation, ShouldResemble, want.Pronunciation)
				So(got.Fluency, ShouldResemble, want.Fluency)
			})
		})

		Convey("When the task is nested in expected", func() {
			w := do(h, http.MethodPost, "/evaluate",
				`{"expected": {"task": "answer_short_question", "accepted_answers": ["a clock"]}, "utterance": {"text": "a clock"}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"overall_score":90`)
		})

		Convey("When the request is cancelled mid-evaluation", func() {
			deps.evalErr = context.Canceled
			w := do(h, http.MethodPost, "/evaluate", readAloudBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestAttemptsHandler(t *testing.T) {
	Convey("Given the async attempts endpoints", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}).Handler()

		Convey("When a new attempt is posted", func() {
			w := do(h, http.MethodPost, "/attempts", readAloudBody)

			Convey("Then it is accepted and queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"accepted"`)
				So(len(deps.queued), ShouldEqual, 1)
				So(deps.queued[0].SubmittedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And the same attempt is posted again", func() {
				w2 := do(h, http.MethodPost, "/attempts", readAloudBody)

				Convey("Then it is acknowledged as a duplicate and not queued", func() {
					So(w2.Code, ShouldEqual, http.StatusOK)
					So(w2.Body.String(), ShouldContainSubstring, `"duplicate":true`)
					So(len(deps.queued), ShouldEqual, 1)
				})
			})
		})

		Convey("When the queue is full", func() {
			deps.enqErr = queue.ErrFull
			w := do(h, http.MethodPost, "/attempts", readAloudBody)

			Convey("Then backpressure is reported and the ID can be retried", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(deps.Size(), ShouldEqual, 0)

				deps.enqErr = nil
				So(do(h, http.MethodPost, "/attempts", readAloudBody).Code, ShouldEqual, http.StatusAccepted)
			})
		})

		Convey("When the queue is closed", func() {
			deps.enqErr = queue.ErrClosed
			w := do(h, http.MethodPost, "/attempts", readAloudBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "unavailable")
			So(deps.Size(), ShouldEqual, 0)
		})

		Convey("When the service has not been started", func() {
			deps.enqErr = fmt.Errorf("%w: %w", errors.New("service not started"), queue.ErrClosed)
			w := do(h, http.MethodPost, "/attempts", readAloudBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the client gives up while enqueueing", func() {
			deps.enqErr = fmt.Errorf("enqueue attempt: %w", context.Canceled)
			w := do(h, http.MethodPost, "/attempts", readAloudBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When a stored evaluation is fetched", func() {
			ev, err := deps.engine.Evaluate(context.Background(), model.Attempt{
				AttemptID: "stored-1",
				LearnerID: "learner-9",
				Expected:  model.ExpectedResponse{Task: model.RepeatSentence, ReferenceText: "see you soon"},
				Utterance: model.Utterance{Text: "see you soon"},
			})
			So(err, ShouldBeNil)
			So(deps.store.Save(context.Background(), ev), ShouldBeNil)

			w := do(h, http.MethodGet, "/attempts/stored-1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"stored-1"`)

			Convey("And the learner history is listed", func() {
				w := do(h, http.MethodGet, "/learners/learner-9/evaluations?limit=5", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Evaluations []types.Evaluation `json:"evaluations"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(len(body.Evaluations), ShouldEqual, 1)
			})
		})

		Convey("When an unknown attempt is fetched", func() {
			w := do(h, http.MethodGet, "/attempts/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the learner limit is invalid", func() {
			w := do(h, http.MethodGet, "/learners/l1/evaluations?limit=-2", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func pcm16(samples []float64) string {
	var buf bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&buf, binary.LittleEndian, int16(s*32767))
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestToneHandler(t *testing.T) {
	Convey("Given the tone endpoint", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}, api.WithToneDefaults(16000, 2048)).Handler()
		voice := sine(150, 16000, 16000)

		Convey("When float samples of a steady voice are posted", func() {
			body, _ := json.Marshal(map[string]any{"samples": voice})
			w := do(h, http.MethodPost, "/tone", string(body))

			Convey("Then a profile without raw samples is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var p tone.Profile
				So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
				So(p.HasPitchData, ShouldBeTrue)
				So(p.AvgPitch, ShouldAlmostEqual, 150, 2)
				So(p.Samples, ShouldBeEmpty)
			})
		})

		Convey("When PCM16 audio is posted with raw samples requested", func() {
			body, _ := json.Marshal(map[string]any{"pcm16_base64": pcm16(voice), "include_samples": true})
			w := do(h, http.MethodPost, "/tone", string(body))

			Convey("Then the profile carries the pitch track", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var p tone.Profile
				So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
				So(p.HasPitchData, ShouldBeTrue)
				So(p.Samples, ShouldNotBeEmpty)
			})
		})

		Convey("When no audio is sent", func() {
			So(do(h, http.MethodPost, "/tone", `{}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When both encodings are sent", func() {
			So(do(h, http.MethodPost, "/tone", `{"pcm16_base64": "AAA=", "samples": [0.1]}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the PCM data is not base64", func() {
			So(do(h, http.MethodPost, "/tone", `{"pcm16_base64": "%%%"}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestKindErrors(t *testing.T) {
	Convey("Given a wrapped kind error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then a bare kind renders without a cause", func() {
			So(api.NewKind("api.op", api.ErrBackpressure).Error(), ShouldEqual, "api.op: backpressure")
		})
	})
}
