package content_test

import (
	"strings"
	"testing"

	"github.com/okian/speakeval/internal/domain/align"
	"github.com/okian/speakeval/internal/domain/content"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func utter(text string) model.Utterance {
	return model.Utterance{Text: text}
}

func TestReadAloud(t *testing.T) {
	Convey("Given a read-aloud reference", t, func() {
		scorer := content.New()
		expected := model.ExpectedResponse{Task: model.ReadAloud, ReferenceText: "the quick brown fox"}

		Convey("When the recognition is identical", func() {
			res := scorer.Score(expected, utter("The quick brown fox."))

			Convey("Then every word is credited with no errors", func() {
				So(res.Raw, ShouldEqual, 4)
				So(res.Max, ShouldEqual, 4)
				So(res.Errors, ShouldEqual, 0)
				So(res.TraitScore().Descriptor, ShouldEqual, "All words read correctly")
			})
		})

		Convey("When a word is omitted and another inserted", func() {
			res := scorer.Score(expected, utter("the quick uh fox"))

			Convey("Then both count as errors", func() {
				So(res.Errors, ShouldEqual, 2)
				So(res.Raw, ShouldEqual, 2)
			})
		})

		Convey("When the recognition is far longer than the reference", func() {
			res := scorer.Score(expected, utter(strings.Repeat("blah ", 20)))

			Convey("Then the raw score floors at zero", func() {
				So(res.Raw, ShouldEqual, 0)
			})
		})

		Convey("When the reference is missing", func() {
			res := scorer.Score(model.ExpectedResponse{Task: model.ReadAloud}, utter("hello"))
			So(res.Raw, ShouldEqual, 0)
			So(res.Max, ShouldEqual, 0)
		})

		Convey("Then identical input always scores its own length", func() {
			for _, s := range []string{"a", "one two", "we hold these truths to be self-evident"} {
				x := align.Normalize(s)
				res := content.ReadAloud(x, x)
				So(res.Raw, ShouldEqual, len(x))
				So(res.Errors, ShouldEqual, 0)
			}
		})
	})
}

func TestRepeatSentence(t *testing.T) {
	Convey("Given a six-word reference sentence", t, func() {
		scorer := content.New()
		expected := model.ExpectedResponse{Task: model.RepeatSentence, ReferenceText: "students must submit their assignments online"}

		Convey("When half of it is repeated in order", func() {
			res := scorer.Score(expected, utter("students submit online"))

			Convey("Then the band is 2", func() {
				So(res.Raw, ShouldEqual, 2)
				So(res.Max, ShouldEqual, 3)
			})
		})

		Convey("When it is repeated fully", func() {
			res := scorer.Score(expected, utter("Students must submit their assignments online"))
			So(res.Raw, ShouldEqual, 3)
		})

		Convey("When nothing is said", func() {
			So(scorer.Score(expected, utter("")).Raw, ShouldEqual, 0)
		})

		Convey("Then the band never decreases as more words are repeated", func() {
			ref := align.Normalize("a b c d e f g h i j k l m n o p q r s t")
			prev := -1.0
			for n := 0; n <= len(ref); n++ {
				res := scorer.RepeatSentence(ref, ref[:n])
				So(res.Raw, ShouldBeGreaterThanOrEqualTo, prev)
				prev = res.Raw
			}
			So(prev, ShouldEqual, 3)
		})
	})
}

func TestDescribeImage(t *testing.T) {
	Convey("Given a chart description task", t, func() {
		scorer := content.New()
		expected := model.ExpectedResponse{
			Task:       model.DescribeImage,
			Keywords:   []string{"bar chart", "sales", "2019", "increase"},
			DataPoints: []string{"2019", "2020", "north", "south"},
		}

		Convey("When the response is long, organised and complete", func() {
			text := "the bar chart shows sales in the north and south regions between 2019 and 2020 " +
				"first the north region had the highest sales while the south had the lowest " +
				"however there was a large increase in the south in 2020 compared to 2019 " +
				"overall the chart illustrates steady growth for the company across both regions " +
				"and in conclusion the trend is positive"
			res := scorer.Score(expected, utter(text))

			Convey("Then it reaches the top band", func() {
				So(res.Raw, ShouldEqual, 6)
				So(res.Composite, ShouldBeGreaterThanOrEqualTo, 0.8)
				So(res.TraitScore().Descriptor, ShouldEqual, "Full content")
			})
		})

		Convey("When the response is short and off topic", func() {
			res := scorer.Score(expected, utter("i do not know what this is"))

			Convey("Then it only earns the participation band", func() {
				So(res.Raw, ShouldEqual, 1)
			})
		})

		Convey("When fewer than five words are spoken", func() {
			So(scorer.Score(expected, utter("i don't know")).Raw, ShouldEqual, 0)
		})

		Convey("When the question has no keywords", func() {
			res := scorer.Score(model.ExpectedResponse{Task: model.DescribeImage}, utter("the bar chart shows sales"))
			So(res.Raw, ShouldEqual, 0)
		})

		Convey("When custom cuts are supplied", func() {
			lenient := content.New(content.WithCompositeCuts([]float64{0.9, 0.8, 0.7, 0.6, 0.03}))
			ignored := content.New(content.WithCompositeCuts([]float64{0.1, 0.2, 0.3, 0.4, 0.5}))
			res := utter("i do not know what this is")

			Convey("Then valid cuts apply and invalid ones are ignored", func() {
				So(lenient.Score(expected, res).Raw, ShouldEqual, 2)
				So(ignored.Score(expected, res).Raw, ShouldEqual, 1)
			})
		})
	})
}

func TestRetellLecture(t *testing.T) {
	Convey("Given a lecture with reference text", t, func() {
		Convey("When measuring content overlap", func() {
			ref := align.Normalize("the bees pollinate crops and flowers")
			So(content.ContentOverlap(ref, align.Normalize("bees help crops")), ShouldAlmostEqual, 0.5)
			So(content.ContentOverlap(nil, align.Normalize("bees")), ShouldEqual, 0)
		})

		Convey("When scoring a retelling", func() {
			scorer := content.New()
			expected := model.ExpectedResponse{
				Task:          model.RetellLecture,
				ReferenceText: "Bees pollinate crops and flowers, and their decline threatens food security worldwide.",
				Keywords:      []string{"bees", "pollinate", "food security"},
			}
			res := scorer.Score(expected, utter("the lecture explained that bees pollinate crops and flowers "+
				"because of this their decline threatens food security the speaker also mentioned "+
				"that farmers depend on them and in conclusion we must protect bees"))

			Convey("Then a well-covered retelling scores highly", func() {
				So(res.Raw, ShouldBeGreaterThanOrEqualTo, 5)
				So(res.Trait, ShouldEqual, types.TraitContent)
			})
		})
	})
}

func TestSummarizeGroupDiscussion(t *testing.T) {
	Convey("Given a two-speaker discussion", t, func() {
		turns := []model.SpeakerTurn{
			{Speaker: "Anna", Text: "Remote work improves productivity and flexibility for employees."},
			{Speaker: "Ben", Text: "Offices encourage collaboration, mentoring and company culture."},
			{Speaker: "anna", Text: "Commuting wastes hours every week."},
		}

		Convey("When the response reflects only one speaker", func() {
			rec := align.Normalize("remote work improves productivity and flexibility")
			So(content.SpeakerCoverage(turns, rec), ShouldAlmostEqual, 0.5)
		})

		Convey("When the response reflects both speakers", func() {
			rec := align.Normalize("remote work improves productivity while offices encourage collaboration and mentoring")
			So(content.SpeakerCoverage(turns, rec), ShouldAlmostEqual, 1.0)
		})

		Convey("When there are no turns", func() {
			So(content.SpeakerCoverage(nil, []string{"x"}), ShouldEqual, 0)
		})
	})
}

func TestRespondToSituation(t *testing.T) {
	Convey("Given a situational task", t, func() {
		scorer := content.New()
		expected := model.ExpectedResponse{Task: model.RespondToSituation, Keywords: []string{"refund", "receipt"}}

		Convey("When the response is polite and on point", func() {
			res := scorer.Score(expected, utter("Excuse me, could you please help me? I would like a refund. I have my receipt here, thank you."))

			Convey("Then it is scored as appropriacy at the top band", func() {
				So(res.Trait, ShouldEqual, types.TraitAppropriacy)
				So(res.Raw, ShouldEqual, 6)
				So(res.TraitScore().Descriptor, ShouldEqual, "Fully appropriate")
			})
		})

		Convey("When the response is blunt", func() {
			res := scorer.Score(expected, utter("give me my money back now"))
			So(res.Raw, ShouldBeLessThan, 3)
		})
	})
}

func TestAnswerShortQuestion(t *testing.T) {
	Convey("Given accepted answers", t, func() {
		accepted := []string{"pilot"}

		Convey("When the answer is contained in the response", func() {
			So(content.AnswerShortQuestion(accepted, "i think it's pilot").Raw, ShouldEqual, 1)
		})

		Convey("When a word is a near miss", func() {
			So(content.AnswerShortQuestion(accepted, "a pilots").Raw, ShouldEqual, 1)
			So(content.AnswerShortQuestion(accepted, "pylot").Raw, ShouldEqual, 1)
		})

		Convey("When the answer is wrong or missing", func() {
			So(content.AnswerShortQuestion(accepted, "a doctor").Raw, ShouldEqual, 0)
			So(content.AnswerShortQuestion(accepted, "").Raw, ShouldEqual, 0)
			So(content.AnswerShortQuestion(nil, "pilot").Raw, ShouldEqual, 0)
		})

		Convey("When a multi-word answer is spoken", func() {
			res := content.AnswerShortQuestion([]string{"Solar System"}, "it is the solar system")
			So(res.Raw, ShouldEqual, 1)
			So(res.Trait, ShouldEqual, types.TraitVocabulary)
			So(res.TraitScore().Descriptor, ShouldEqual, "Correct")
		})
	})
}

func TestFactors(t *testing.T) {
	Convey("Given the shared factor helpers", t, func() {
		So(content.LengthFactor(0), ShouldEqual, 0.2)
		So(content.LengthFactor(10), ShouldEqual, 0.4)
		So(content.LengthFactor(25), ShouldEqual, 0.65)
		So(content.LengthFactor(40), ShouldEqual, 0.85)
		So(content.LengthFactor(60), ShouldEqual, 1.0)
		So(content.KeywordCoverage([]string{"Bar Chart", "SALES", "  "}, "the bar chart shows sales"), ShouldEqual, 1.0)
		So(content.KeywordCoverage(nil, "anything"), ShouldEqual, 0)
	})
}
