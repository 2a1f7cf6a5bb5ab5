// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
	"unicode"
)

// TaskType identifies the speaking task a question belongs to.
type TaskType string

// Supported task types.
const (
	ReadAloud                TaskType = "read_aloud"
	RepeatSentence           TaskType = "repeat_sentence"
	DescribeImage            TaskType = "describe_image"
	RetellLecture            TaskType = "retell_lecture"
	SummarizeGroupDiscussion TaskType = "summarize_group_discussion"
	RespondToSituation       TaskType = "respond_to_situation"
	AnswerShortQuestion      TaskType = "answer_short_question"
)

var taskAliases = map[string]TaskType{
	"ra":  ReadAloud,
	"rs":  RepeatSentence,
	"di":  DescribeImage,
	"rl":  RetellLecture,
	"sgd": SummarizeGroupDiscussion,
	"rts": RespondToSituation,
	"asq": AnswerShortQuestion,
}

// ParseTaskType resolves a task name or its short alias.
func ParseTaskType(s string) (TaskType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if t, ok := taskAliases[s]; ok {
		return t, true
	}
	t := TaskType(s)
	return t, t.Valid()
}

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case ReadAloud, RepeatSentence, DescribeImage, RetellLecture,
		SummarizeGroupDiscussion, RespondToSituation, AnswerShortQuestion:
		return true
	}
	return false
}

// RecognitionEvent is one finalized recognition segment.
type RecognitionEvent struct {
	ArrivalMs int64 `json:"arrival_ms" yaml:"arrival_ms"`
	WordCount int   `json:"word_count" yaml:"word_count"`
}

// Utterance is the recognizer output for one question attempt.
type Utterance struct {
	Text           string             `json:"text" yaml:"text"`
	Events         []RecognitionEvent `json:"events,omitempty" yaml:"events"`
	Confidences    []float64          `json:"confidences,omitempty" yaml:"confidences"`
	ElapsedSeconds float64            `json:"elapsed_seconds" yaml:"elapsed_seconds"`
}

// Tokens returns the normalized word tokens of the recognized text.
func (u Utterance) Tokens() []string {
	return Tokenize(u.Text)
}

// WordCount returns the number of recognized words.
func (u Utterance) WordCount() int {
	return len(u.Tokens())
}

// Confidence returns the mean recognizer confidence clamped to [0,1].
// ok is false when the recognizer reported no confidence values.
func (u Utterance) Confidence() (conf float64, ok bool) {
	var sum float64
	var n int
	for _, c := range u.Confidences {
		if c != c { // NaN
			continue
		}
		sum += clamp01(c)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Elapsed returns the recording length in seconds, never negative.
func (u Utterance) Elapsed() float64 {
	if u.ElapsedSeconds != u.ElapsedSeconds || u.ElapsedSeconds < 0 {
		return 0
	}
	return u.ElapsedSeconds
}

// SpeakerTurn is one speaker's contribution to a group discussion.
type SpeakerTurn struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Text    string `json:"text" yaml:"text"`
}

// ExpectedResponse is the question-bank side of an attempt.
type ExpectedResponse struct {
	Task            TaskType      `json:"task" yaml:"task"`
	ReferenceText   string        `json:"reference_text,omitempty" yaml:"reference_text"`
	Keywords        []string      `json:"keywords,omitempty" yaml:"keywords"`
	DataPoints      []string      `json:"data_points,omitempty" yaml:"data_points"`
	AcceptedAnswers []string      `json:"accepted_answers,omitempty" yaml:"accepted_answers"`
	SpeakerTurns    []SpeakerTurn `json:"speaker_turns,omitempty" yaml:"speaker_turns"`
	PrepSeconds     float64       `json:"prep_seconds,omitempty" yaml:"prep_seconds"`
	RecordSeconds   float64       `json:"record_seconds,omitempty" yaml:"record_seconds"`
}

// Attempt is a single scored response flowing through the service.
type Attempt struct {
	AttemptID   string           `json:"attempt_id" yaml:"attempt_id"`
	LearnerID   string           `json:"learner_id" yaml:"learner_id"`
	Expected    ExpectedResponse `json:"expected" yaml:"expected"`
	Utterance   Utterance        `json:"utterance" yaml:"utterance"`
	SubmittedAt time.Time        `json:"submitted_at" yaml:"submitted_at"`
}

// Tokenize lowercases text, replaces every rune that is not a letter, digit,
// apostrophe or hyphen with a space and splits on whitespace.
func Tokenize(text string) []string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '\'', r == '-':
			return unicode.ToLower(r)
		case r == '’': // typographic apostrophe
			return '\''
		default:
			return ' '
		}
	}, text)
	return strings.Fields(mapped)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
