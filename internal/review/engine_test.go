package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/revizorlab/revizor-api/internal/verdict"
	"github.com/revizorlab/revizor-api/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func staticJudge(reply string) ai.Judge {
	return ai.JudgeFunc(func(ctx context.Context, prompt string) (string, error) {
		return reply, nil
	})
}

func failingJudge(err error) ai.Judge {
	return ai.JudgeFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", err
	})
}

func passthroughExtractor(data []byte, filename string) (string, error) {
	return string(data), nil
}

func exactScorer(candidate, reference string) float64 {
	if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(reference)) {
		return 1
	}
	return 0
}

const acceptedVerdict = `{
	"status": "ok",
	"feedback": "well structured report",
	"missing": [],
	"questions": [
		{"q": "What algorithm did you use?", "a": "binary search"},
		{"q": "What is its complexity?", "a": "logarithmic"}
	]
}`

const rejectedVerdict = `{
	"status": "needs_fix",
	"feedback": "the report is incomplete",
	"missing": ["no measurements section", "no conclusions"]
}`

const fixedVerdict = `{
	"fixed": true,
	"missing": [],
	"feedback": "all deficiencies addressed",
	"questions": [
		{"q": "Why did the first version fail?", "a": "missing measurements"}
	]
}`

const notFixedVerdict = `{
	"fixed": false,
	"missing": ["no conclusions"],
	"feedback": "still incomplete"
}`

func dialogueState(questions ...verdict.Question) State {
	return State{
		Stage:  StageDialogue,
		Task:   "write a report",
		Memory: QuizMemoryOf("ok", questions),
	}
}

func TestHandleMessageRequestsUploadInNewStage(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageNew, Task: "write a report"}
	next, reply, err := engine.HandleMessage(context.Background(), st, "hello")
	require.NoError(t, err)
	require.Equal(t, StageNew, next.Stage)
	require.Contains(t, reply, "upload")
}

func TestHandleMessageRequestsReuploadAfterReturn(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageReturnedForRevision, Memory: SubmissionMemoryOf("text", []string{"x"})}
	next, reply, err := engine.HandleMessage(context.Background(), st, "is it done?")
	require.NoError(t, err)
	require.Equal(t, StageReturnedForRevision, next.Stage)
	require.Contains(t, reply, "corrected")
}

func TestHandleMessageAfterFinishIsTerminal(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageFinished}
	next, reply, err := engine.HandleMessage(context.Background(), st, "more?")
	require.NoError(t, err)
	require.Equal(t, StageFinished, next.Stage)
	require.Contains(t, reply, "finished")
}

func TestUploadAcceptedStartsQuiz(t *testing.T) {
	engine := NewEngine(staticJudge(acceptedVerdict), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageNew, Task: "write a report"}
	next, reply, err := engine.HandleUpload(context.Background(), st, "report.txt", []byte("my report text"))
	require.NoError(t, err)
	require.Equal(t, StageDialogue, next.Stage)
	require.Equal(t, 0, next.CurrentQuestion)
	require.Zero(t, next.Score)
	require.Contains(t, reply, "Question 1: What algorithm did you use?")

	quiz, ok := next.Memory.QuizData()
	require.True(t, ok)
	require.Len(t, quiz.Questions, 2)
}

func TestUploadRejectedReturnsForRevision(t *testing.T) {
	engine := NewEngine(staticJudge(rejectedVerdict), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageNew, Task: "write a report"}
	next, reply, err := engine.HandleUpload(context.Background(), st, "report.txt", []byte("thin report"))
	require.NoError(t, err)
	require.Equal(t, StageReturnedForRevision, next.Stage)
	require.Contains(t, reply, "no measurements section")
	require.Contains(t, reply, "no conclusions")

	submission, ok := next.Memory.SubmissionData()
	require.True(t, ok)
	require.Equal(t, "thin report", submission.Excerpt)
	require.Equal(t, []string{"no measurements section", "no conclusions"}, submission.Missing)
}

func TestReuploadFixedStartsQuiz(t *testing.T) {
	engine := NewEngine(staticJudge(fixedVerdict), passthroughExtractor, exactScorer, testLogger())

	st := State{
		Stage:  StageReturnedForRevision,
		Task:   "write a report",
		Memory: SubmissionMemoryOf("old text", []string{"no measurements section"}),
	}
	next, reply, err := engine.HandleUpload(context.Background(), st, "report-v2.txt", []byte("new text"))
	require.NoError(t, err)
	require.Equal(t, StageDialogue, next.Stage)
	require.Contains(t, reply, "Question 1: Why did the first version fail?")
}

func TestReuploadStillBrokenStaysReturned(t *testing.T) {
	engine := NewEngine(staticJudge(notFixedVerdict), passthroughExtractor, exactScorer, testLogger())

	st := State{
		Stage:  StageReturnedForRevision,
		Task:   "write a report",
		Memory: SubmissionMemoryOf("old text", []string{"no conclusions"}),
	}
	next, reply, err := engine.HandleUpload(context.Background(), st, "report-v2.txt", []byte("still thin"))
	require.NoError(t, err)
	require.Equal(t, StageReturnedForRevision, next.Stage)
	require.Contains(t, reply, "no conclusions")

	// The stored excerpt stays the original text so the next revision is
	// still compared against the first accepted baseline.
	submission, ok := next.Memory.SubmissionData()
	require.True(t, ok)
	require.Equal(t, "old text", submission.Excerpt)
}

func TestUploadRejectedInDialogueStage(t *testing.T) {
	engine := NewEngine(staticJudge(acceptedVerdict), passthroughExtractor, exactScorer, testLogger())

	st := dialogueState(verdict.Question{Q: "q", A: "a"})
	next, _, err := engine.HandleUpload(context.Background(), st, "late.txt", []byte("late upload"))
	require.ErrorIs(t, err, ErrInvalidStageForUpload)
	require.Equal(t, st, next)
}

func TestUploadEmptyDocument(t *testing.T) {
	engine := NewEngine(staticJudge(acceptedVerdict), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageNew, Task: "write a report"}
	_, _, err := engine.HandleUpload(context.Background(), st, "report.txt", nil)
	require.ErrorIs(t, err, ErrEmptyDocument)

	// Extraction producing no text fails the same way.
	blank := NewEngine(staticJudge(acceptedVerdict), func(data []byte, filename string) (string, error) {
		return "", nil
	}, exactScorer, testLogger())
	_, _, err = blank.HandleUpload(context.Background(), st, "report.pdf", []byte("binary"))
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestUploadJudgeFailureLeavesStateUntouched(t *testing.T) {
	engine := NewEngine(failingJudge(errors.New("connection refused")), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageNew, Task: "write a report"}
	next, _, err := engine.HandleUpload(context.Background(), st, "report.txt", []byte("my report"))
	require.ErrorIs(t, err, ErrJudgeUnavailable)
	require.Equal(t, st, next)
}

func TestUploadMalformedVerdictLeavesStateUntouched(t *testing.T) {
	engine := NewEngine(staticJudge("I think the report is fine."), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageNew, Task: "write a report"}
	next, _, err := engine.HandleUpload(context.Background(), st, "report.txt", []byte("my report"))
	require.ErrorIs(t, err, verdict.ErrMalformedReply)
	require.Equal(t, st, next)
}

func TestUploadFencedVerdictAccepted(t *testing.T) {
	fenced := "Here is my verdict:\n```json\n" + acceptedVerdict + "\n```"
	engine := NewEngine(staticJudge(fenced), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageNew, Task: "write a report"}
	next, _, err := engine.HandleUpload(context.Background(), st, "report.txt", []byte("my report"))
	require.NoError(t, err)
	require.Equal(t, StageDialogue, next.Stage)
}

func TestGradeCorrectAnswerAdvances(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, exactScorer, testLogger())

	st := dialogueState(
		verdict.Question{Q: "first", A: "alpha"},
		verdict.Question{Q: "second", A: "beta"},
	)
	next, reply, err := engine.HandleMessage(context.Background(), st, "alpha")
	require.NoError(t, err)
	require.Equal(t, StageDialogue, next.Stage)
	require.Equal(t, 1, next.CurrentQuestion)
	require.InDelta(t, 1.0, next.Score, 1e-9)
	require.Contains(t, reply, "Correct!")
	require.Contains(t, reply, "Question 2: second")
}

func TestGradeAlmostAnswerRepeatsQuestion(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, func(candidate, reference string) float64 {
		return 0.6
	}, testLogger())

	st := dialogueState(
		verdict.Question{Q: "first", A: "alpha"},
		verdict.Question{Q: "second", A: "beta"},
	)
	next, reply, err := engine.HandleMessage(context.Background(), st, "alpa")
	require.NoError(t, err)
	require.Equal(t, st, next)
	require.Contains(t, reply, "Almost")
}

func TestGradeIncorrectAnswerRevealsReference(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, exactScorer, testLogger())

	st := dialogueState(
		verdict.Question{Q: "first", A: "alpha"},
		verdict.Question{Q: "second", A: "beta"},
	)
	next, reply, err := engine.HandleMessage(context.Background(), st, "nonsense")
	require.NoError(t, err)
	require.Equal(t, 1, next.CurrentQuestion)
	require.Zero(t, next.Score)
	require.Contains(t, reply, "Incorrect. The reference answer is: alpha")
	require.Contains(t, reply, "Question 2: second")
}

func TestQuizAllCorrectPasses(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, exactScorer, testLogger())

	st := dialogueState(
		verdict.Question{Q: "first", A: "alpha"},
		verdict.Question{Q: "second", A: "beta"},
	)

	next, _, err := engine.HandleMessage(context.Background(), st, "alpha")
	require.NoError(t, err)

	final, reply, err := engine.HandleMessage(context.Background(), next, "beta")
	require.NoError(t, err)
	require.Equal(t, StageFinished, final.Stage)
	require.Contains(t, reply, "Your work is accepted (100%)!")
}

func TestQuizBelowThresholdFails(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, exactScorer, testLogger())

	st := dialogueState(
		verdict.Question{Q: "first", A: "alpha"},
		verdict.Question{Q: "second", A: "beta"},
	)

	next, _, err := engine.HandleMessage(context.Background(), st, "alpha")
	require.NoError(t, err)

	final, reply, err := engine.HandleMessage(context.Background(), next, "nonsense")
	require.NoError(t, err)
	require.Equal(t, StageFinished, final.Stage)
	require.Contains(t, reply, "not accepted (50%)")
}

func TestGradeWithoutQuizIsCorrupt(t *testing.T) {
	engine := NewEngine(staticJudge(""), passthroughExtractor, exactScorer, testLogger())

	st := State{Stage: StageDialogue, Task: "write a report"}
	_, _, err := engine.HandleMessage(context.Background(), st, "alpha")
	require.ErrorIs(t, err, ErrCorruptMemory)
}

func TestMemoryRoundTrip(t *testing.T) {
	original := QuizMemoryOf("good work", []verdict.Question{{Q: "why?", A: "because"}})

	data, err := EncodeMemory(original)
	require.NoError(t, err)

	restored, err := DecodeMemory(data)
	require.NoError(t, err)
	require.Equal(t, original, restored)

	empty, err := DecodeMemory(nil)
	require.NoError(t, err)
	require.Empty(t, empty.Kind)
}

func TestStageHelpers(t *testing.T) {
	require.True(t, StageNew.AwaitsDocument())
	require.True(t, StageReturnedForRevision.AwaitsDocument())
	require.False(t, StageDialogue.AwaitsDocument())
	require.True(t, StageFinished.Terminal())
	require.False(t, StageReview.Terminal())
	require.True(t, StageDialogue.Valid())
	require.False(t, Stage("bogus").Valid())
}
