package review

import (
	"encoding/json"
	"fmt"

	"github.com/revizorlab/revizor-api/internal/verdict"
)

// Memory kinds. The shape of the persisted blob depends on the stage the
// session is in: while a submission is being revised it holds the extracted
// text and the outstanding deficiencies, once the quiz starts it holds the
// generated questions and the judge's feedback.
const (
	MemoryKindSubmission = "submission"
	MemoryKindQuiz       = "quiz"
)

// SubmissionMemory carries the previously extracted submission text and the
// deficiencies the judge reported for it.
type SubmissionMemory struct {
	Excerpt string   `json:"excerpt"`
	Missing []string `json:"missing"`
}

// QuizMemory carries the comprehension quiz generated for an accepted
// submission together with the judge's free-text feedback.
type QuizMemory struct {
	Feedback  string             `json:"feedback"`
	Questions []verdict.Question `json:"questions"`
}

// Memory is the stage-dependent blob a session keeps between triggers.
// Exactly one of Submission and Quiz is set, selected by Kind; an empty Kind
// means the session has not stored anything yet.
type Memory struct {
	Kind       string            `json:"kind,omitempty"`
	Submission *SubmissionMemory `json:"submission,omitempty"`
	Quiz       *QuizMemory       `json:"quiz,omitempty"`
}

// SubmissionData returns the stored submission memory when present.
func (m Memory) SubmissionData() (SubmissionMemory, bool) {
	if m.Kind != MemoryKindSubmission || m.Submission == nil {
		return SubmissionMemory{}, false
	}
	return *m.Submission, true
}

// QuizData returns the stored quiz memory when present.
func (m Memory) QuizData() (QuizMemory, bool) {
	if m.Kind != MemoryKindQuiz || m.Quiz == nil {
		return QuizMemory{}, false
	}
	return *m.Quiz, true
}

// SubmissionMemoryOf builds a submission-kind memory value.
func SubmissionMemoryOf(excerpt string, missing []string) Memory {
	if missing == nil {
		missing = []string{}
	}
	return Memory{
		Kind:       MemoryKindSubmission,
		Submission: &SubmissionMemory{Excerpt: excerpt, Missing: missing},
	}
}

// QuizMemoryOf builds a quiz-kind memory value.
func QuizMemoryOf(feedback string, questions []verdict.Question) Memory {
	return Memory{
		Kind: MemoryKindQuiz,
		Quiz: &QuizMemory{Feedback: feedback, Questions: questions},
	}
}

// EncodeMemory serialises the memory blob for persistence.
func EncodeMemory(m Memory) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode review memory: %w", err)
	}
	return data, nil
}

// DecodeMemory restores a memory blob from its persisted form. Empty input
// yields an empty memory.
func DecodeMemory(data []byte) (Memory, error) {
	if len(data) == 0 {
		return Memory{}, nil
	}
	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		return Memory{}, fmt.Errorf("decode review memory: %w", err)
	}
	return m, nil
}
