package testattempts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/speakeval/internal/domain/model"
)

// Fixture is one question with a set of plausible learner responses.
type Fixture struct {
	Expected  model.ExpectedResponse `yaml:"expected"`
	Responses []model.Utterance      `yaml:"responses"`
}

// Bank is a YAML question bank.
type Bank struct {
	Fixtures []Fixture `yaml:"fixtures"`
}

// LoadBank reads a question bank from path.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return ParseBank(data)
}

// ParseBank decodes and validates a YAML question bank.
func ParseBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	if len(b.Fixtures) == 0 {
		return nil, fmt.Errorf("question bank has no fixtures")
	}
	for i, f := range b.Fixtures {
		if !f.Expected.Task.Valid() {
			return nil, fmt.Errorf("fixture %d: unknown task %q", i, f.Expected.Task)
		}
		if len(f.Responses) == 0 {
			return nil, fmt.Errorf("fixture %d: no responses", i)
		}
	}
	return &b, nil
}

// DefaultBank returns the built-in question bank.
func DefaultBank() *Bank {
	b, err := ParseBank([]byte(defaultBankYAML))
	if err != nil {
		panic(err)
	}
	return b
}

const defaultBankYAML = `
fixtures:
  - expected:
      task: read_aloud
      reference_text: "Climate scientists have collected ice samples from the polar regions for decades."
      record_seconds: 40
    responses:
      - text: "climate scientists have collected ice samples from the polar regions for decades"
        confidences: [0.94, 0.91]
        elapsed_seconds: 6
        events: [{arrival_ms: 0, word_count: 6}, {arrival_ms: 2600, word_count: 7}]
      - text: "climate scientist have collected ice sample from polar region for decade"
        confidences: [0.71]
        elapsed_seconds: 9
        events: [{arrival_ms: 0, word_count: 5}, {arrival_ms: 4200, word_count: 6}]
  - expected:
      task: repeat_sentence
      reference_text: "The seminar has been moved to the main hall."
    responses:
      - text: "the seminar has been moved to the main hall"
        confidences: [0.9]
        elapsed_seconds: 3
      - text: "the seminar moved to hall"
        confidences: [0.62]
        elapsed_seconds: 4
  - expected:
      task: describe_image
      keywords: [population, growth, city, rural]
      data_points: ["1990", "2020", "60"]
      record_seconds: 40
    responses:
      - text: "the graph shows population growth in the city between 1990 and 2020 while rural areas declined to about 60 percent in conclusion urban growth was strong"
        confidences: [0.88]
        elapsed_seconds: 32
        events: [{arrival_ms: 0, word_count: 9}, {arrival_ms: 2400, word_count: 9}, {arrival_ms: 5000, word_count: 8}]
      - text: "there is a chart"
        confidences: [0.8]
        elapsed_seconds: 5
  - expected:
      task: retell_lecture
      reference_text: "Bees pollinate crops. Without bees many fruits and vegetables would disappear from markets."
      keywords: [bees, pollinate, crops, fruits]
      record_seconds: 40
    responses:
      - text: "the lecture explained that bees pollinate crops and without them many fruits and vegetables would disappear therefore bees matter for food"
        confidences: [0.86]
        elapsed_seconds: 28
  - expected:
      task: summarize_group_discussion
      keywords: [budget, library, hours]
      speaker_turns:
        - {speaker: A, text: "We should extend library hours."}
        - {speaker: B, text: "The budget cannot cover longer hours."}
      record_seconds: 60
    responses:
      - text: "the first speaker wants longer library hours however the second speaker says the budget cannot cover it overall they disagree about hours"
        confidences: [0.84]
        elapsed_seconds: 35
  - expected:
      task: respond_to_situation
      keywords: [sorry, meeting, reschedule]
      record_seconds: 40
    responses:
      - text: "hi professor i am sorry but i cannot attend the meeting could we please reschedule it to thursday thank you"
        confidences: [0.9]
        elapsed_seconds: 12
  - expected:
      task: answer_short_question
      accepted_answers: [thermometer]
    responses:
      - text: "a thermometer"
        confidences: [0.95]
        elapsed_seconds: 2
      - text: "a barometer"
        confidences: [0.9]
        elapsed_seconds: 2
`
