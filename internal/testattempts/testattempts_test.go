package testattempts

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/speakeval/internal/adapters/http/api"
	service "github.com/okian/speakeval/internal/app"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/types"
	"github.com/okian/speakeval/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestBank(t *testing.T) {
	Convey("Given the built-in question bank", t, func() {
		b := DefaultBank()

		Convey("Then every task type is covered", func() {
			tasks := make(map[model.TaskType]bool)
			for _, f := range b.Fixtures {
				tasks[f.Expected.Task] = true
			}
			So(len(tasks), ShouldEqual, 7)
		})

		Convey("Then YAML snake_case keys are decoded", func() {
			So(b.Fixtures[0].Expected.RecordSeconds, ShouldEqual, 40.0)
			So(b.Fixtures[0].Responses[0].Events[1].ArrivalMs, ShouldEqual, int64(2600))
		})
	})

	Convey("Given malformed banks", t, func() {
		_, err := ParseBank([]byte("fixtures: []"))
		So(err, ShouldNotBeNil)

		_, err = ParseBank([]byte("fixtures:\n  - expected: {task: sing}\n    responses: [{text: la}]\n"))
		So(err, ShouldNotBeNil)

		_, err = ParseBank([]byte("fixtures:\n  - expected: {task: asq}\n"))
		So(err, ShouldNotBeNil)

		_, err = LoadBank(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given a seed", t, func() {
		ctx := context.Background()
		a := Generate(ctx, DefaultBank(), 50, 5, 7)
		b := Generate(ctx, DefaultBank(), 50, 5, 7)

		Convey("Then the same attempts are produced", func() {
			So(a, ShouldResemble, b)
		})

		Convey("Then IDs are unique version 4 UUIDs", func() {
			ids := make(map[string]bool)
			for _, at := range a {
				So(len(at.AttemptID), ShouldEqual, 36)
				So(string(at.AttemptID[14]), ShouldEqual, "4")
				ids[at.AttemptID] = true
				So(at.Expected.Task.Valid(), ShouldBeTrue)
			}
			So(len(ids), ShouldEqual, 50)
		})

		Convey("Then a different seed changes the run", func() {
			c := Generate(ctx, DefaultBank(), 50, 5, 8)
			So(c[0].AttemptID, ShouldNotEqual, a[0].AttemptID)
		})
	})

	Convey("Given a duplicate fraction", t, func() {
		attempts := Generate(context.Background(), DefaultBank(), 20, 2, 1)
		out := withDuplicates(attempts, 0.25, 1)
		So(len(out), ShouldEqual, 25)
		So(len(uniqueAttempts(out)), ShouldEqual, 20)
		So(withDuplicates(attempts, 0, 1), ShouldHaveLength, 20)
	})
}

func TestSaveLoadAttempts(t *testing.T) {
	Convey("Given generated attempts written to disk", t, func() {
		path := filepath.Join(t.TempDir(), "out", "attempts.yaml")
		attempts := Generate(context.Background(), DefaultBank(), 5, 2, 3)
		So(SaveAttempts(path, attempts), ShouldBeNil)

		Convey("Then reading them back returns the same attempts", func() {
			got, err := LoadAttempts(path)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 5)
			for i := range got {
				So(got[i].AttemptID, ShouldEqual, attempts[i].AttemptID)
				So(got[i].Expected.Task, ShouldEqual, attempts[i].Expected.Task)
				So(got[i].Utterance.Text, ShouldEqual, attempts[i].Utterance.Text)
			}
		})

		Convey("Then garbage fails to load", func() {
			bad := filepath.Join(t.TempDir(), "bad.yaml")
			So(os.WriteFile(bad, []byte("{not: [yaml"), 0o600), ShouldBeNil)
			_, err := LoadAttempts(bad)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCheckEvaluation(t *testing.T) {
	Convey("Given an attempt and its evaluation", t, func() {
		a := model.Attempt{AttemptID: "a1", Expected: model.ExpectedResponse{Task: model.RepeatSentence}}
		ev := types.Evaluation{
			AttemptID: "a1",
			Task:      model.RepeatSentence,
			Overall:   90,
			Label:     "Expert",
			Bundle:    types.Bundle{Content: &types.TraitScore{Trait: types.TraitContent, Raw: 3, Max: 3}},
		}
		So(checkEvaluation(a, ev), ShouldBeNil)

		Convey("Then a mismatched label is caught", func() {
			ev.Label = "Basic"
			So(checkEvaluation(a, ev), ShouldNotBeNil)
		})

		Convey("Then a raw score above its max is caught", func() {
			ev.Content = &types.TraitScore{Trait: types.TraitContent, Raw: 4, Max: 3}
			So(checkEvaluation(a, ev), ShouldNotBeNil)
		})

		Convey("Then a wrong task is caught", func() {
			ev.Task = model.ReadAloud
			So(checkEvaluation(a, ev), ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(1000))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		ts := httptest.NewServer(api.NewServer(svc, svc).Handler())
		defer ts.Close()

		config := &Config{
			BaseURL:     ts.URL,
			NumAttempts: 60,
			Learners:    4,
			Workers:     8,
			Timeout:     5 * time.Second,
			Wait:        10 * time.Second,
			Duplicates:  0.1,
			Seed:        42,
			OutputFile:  filepath.Join(t.TempDir(), "attempts.yaml"),
		}

		Convey("When the test tool runs against it", func() {
			stats, err := Run(context.Background(), config)

			Convey("Then every attempt is evaluated and verified", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 60)
				So(stats.Submitted, ShouldEqual, 66)
				So(stats.Accepted, ShouldEqual, 60)
				So(stats.Duplicate, ShouldEqual, 6)
				So(stats.Evaluated, ShouldEqual, 60)
				So(stats.Missing, ShouldEqual, 0)
				So(stats.Invalid, ShouldEqual, 0)
				So(len(stats.MeanByTask), ShouldBeGreaterThan, 0)
			})

			Convey("Then the generated attempts were saved", func() {
				got, err := LoadAttempts(config.OutputFile)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 60)
			})
		})
	})

	Convey("Given no service", t, func() {
		config := &Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Wait: time.Second}
		_, err := Run(context.Background(), config)
		So(err, ShouldNotBeNil)
	})
}
