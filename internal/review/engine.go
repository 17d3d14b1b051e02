// Package review implements the submission review state machine: the
// sequence of stages a student's report passes through, the prompts sent to
// the language-model judge, and the scoring loop of the comprehension quiz.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/revizorlab/revizor-api/internal/grader"
	"github.com/revizorlab/revizor-api/internal/verdict"
	"github.com/revizorlab/revizor-api/pkg/ai"
)

// Grading thresholds and the final pass ratio. An answer above correctScore
// counts as right, one above almostScore is re-asked, anything below counts
// as a used attempt. The whole quiz passes at passRatio of the maximum.
const (
	correctScore = 0.8
	almostScore  = 0.4
	passRatio    = 0.8
)

// ErrInvalidStageForUpload indicates a document arrived while the session was
// not awaiting one.
var ErrInvalidStageForUpload = errors.New("session stage does not accept uploads")

// ErrEmptyDocument indicates an upload with no readable content.
var ErrEmptyDocument = errors.New("uploaded document is empty")

// ErrJudgeUnavailable indicates the judge call failed or timed out; the
// session stays in its pre-call stage so the trigger can be retried.
var ErrJudgeUnavailable = errors.New("judge unavailable")

// ErrCorruptMemory indicates the persisted review memory does not match the
// shape the current stage requires.
var ErrCorruptMemory = errors.New("review memory does not match session stage")

// Extractor converts uploaded document bytes into plain text.
type Extractor func(data []byte, filename string) (string, error)

// Scorer rates a candidate answer against a reference answer in [0,1].
type Scorer func(candidate, reference string) float64

// State is the full mutable review state of one session. Engine methods take
// it by value and return the successor state, so a failed transition never
// leaves partial mutations behind.
type State struct {
	Stage           Stage
	Task            string
	Memory          Memory
	CurrentQuestion int
	Score           float64
}

// QuizLength returns the number of quiz questions currently stored.
func (s State) QuizLength() int {
	quiz, ok := s.Memory.QuizData()
	if !ok {
		return 0
	}
	return len(quiz.Questions)
}

// Engine drives stage transitions. The judge call is the only blocking
// operation inside a transition; at most one judge call happens per trigger.
type Engine struct {
	judge   ai.Judge
	extract Extractor
	score   Scorer
	logger  zerolog.Logger
}

// NewEngine constructs a review engine. A nil scorer falls back to the
// edit-distance grader, a nil extractor is allowed only if no uploads are fed
// through the engine.
func NewEngine(judge ai.Judge, extract Extractor, score Scorer, logger zerolog.Logger) *Engine {
	if score == nil {
		score = grader.Similarity
	}
	return &Engine{
		judge:   judge,
		extract: extract,
		score:   score,
		logger:  logger.With().Str("component", "review_engine").Logger(),
	}
}

// HandleMessage advances the session in response to a plain chat message.
// It returns the successor state and the assistant reply.
func (e *Engine) HandleMessage(ctx context.Context, st State, text string) (State, string, error) {
	switch st.Stage {
	case StageNew:
		return st, msgUploadRequest, nil
	case StageReturnedForRevision:
		return st, msgReuploadRequest, nil
	case StageCheckingSubmission, StageCheckingCorrected:
		return st, msgCheckInProgress, nil
	case StageDialogue:
		return e.gradeAnswer(st, text)
	case StageReview:
		return e.finishReview(st)
	case StageFinished:
		return st, msgSessionFinished, nil
	default:
		return st, "", fmt.Errorf("unknown session stage %q", st.Stage)
	}
}

// HandleUpload consumes a document upload. A first upload runs the initial
// compliance check, a re-upload runs the corrected-submission check against
// the stored deficiencies. On judge or verdict failure the original state is
// returned untouched.
func (e *Engine) HandleUpload(ctx context.Context, st State, filename string, data []byte) (State, string, error) {
	if !st.Stage.AwaitsDocument() {
		return st, "", fmt.Errorf("%w: stage %s", ErrInvalidStageForUpload, st.Stage)
	}
	if len(data) == 0 {
		return st, "", ErrEmptyDocument
	}

	text, err := e.extract(data, filename)
	if err != nil {
		return st, "", err
	}
	if text == "" {
		return st, "", ErrEmptyDocument
	}

	if prior, ok := st.Memory.SubmissionData(); ok {
		return e.checkCorrected(ctx, st, prior, text)
	}
	return e.checkInitial(ctx, st, text)
}

// checkInitial runs the CHECKING_SUBMISSION path.
func (e *Engine) checkInitial(ctx context.Context, st State, text string) (State, string, error) {
	next := st
	next.Stage = StageCheckingSubmission

	reply, err := e.judge.Complete(ctx, initialPrompt(st.Task, text))
	if err != nil {
		return st, "", fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}

	v, err := verdict.ParseInitial(reply)
	if err != nil {
		e.logger.Warn().Err(err).Msg("initial verdict rejected")
		return st, "", err
	}

	if !v.Accepted() {
		next.Stage = StageReturnedForRevision
		next.Memory = SubmissionMemoryOf(text, v.Missing)
		return next, needsFixMessage(v.Feedback, v.Missing), nil
	}

	next.Stage = StageDialogue
	next.Memory = QuizMemoryOf(v.Feedback, v.Questions)
	next.CurrentQuestion = 0
	next.Score = 0
	return next, acceptedMessage(v.Feedback, firstQuestionOf(v.Questions)), nil
}

// checkCorrected runs the CHECKING_CORRECTED_SUBMISSION path.
func (e *Engine) checkCorrected(ctx context.Context, st State, prior SubmissionMemory, text string) (State, string, error) {
	next := st
	next.Stage = StageCheckingCorrected

	reply, err := e.judge.Complete(ctx, revisionPrompt(st.Task, prior.Missing, prior.Excerpt, text))
	if err != nil {
		return st, "", fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}

	v, err := verdict.ParseRevision(reply)
	if err != nil {
		e.logger.Warn().Err(err).Msg("revision verdict rejected")
		return st, "", err
	}

	if !v.Fixed {
		next.Stage = StageReturnedForRevision
		next.Memory = SubmissionMemoryOf(prior.Excerpt, v.Missing)
		return next, stillMissingMessage(v.Missing), nil
	}

	next.Stage = StageDialogue
	next.Memory = QuizMemoryOf(v.Feedback, v.Questions)
	next.CurrentQuestion = 0
	next.Score = 0
	return next, fixedMessage(v.Feedback, firstQuestionOf(v.Questions)), nil
}

// gradeAnswer applies the quiz grading policy to a submitted answer.
func (e *Engine) gradeAnswer(st State, answer string) (State, string, error) {
	quiz, ok := st.Memory.QuizData()
	if !ok || len(quiz.Questions) == 0 {
		return st, "", fmt.Errorf("%w: dialogue stage without quiz", ErrCorruptMemory)
	}
	if st.CurrentQuestion < 0 || st.CurrentQuestion >= len(quiz.Questions) {
		return st, "", fmt.Errorf("%w: question index %d of %d", ErrCorruptMemory, st.CurrentQuestion, len(quiz.Questions))
	}

	question := quiz.Questions[st.CurrentQuestion]
	score := e.score(answer, question.A)

	var feedback string
	next := st
	switch {
	case score > correctScore:
		feedback = msgCorrect
		next.Score += score
		next.CurrentQuestion++
	case score > almostScore:
		// Re-ask the same question; the interim attempt leaves no trace.
		return st, msgAlmost, nil
	default:
		feedback = incorrectMessage(question.A)
		next.Score += score
		next.CurrentQuestion++
	}

	if next.CurrentQuestion == len(quiz.Questions) {
		next.Stage = StageReview
		final, result, err := e.finishReview(next)
		if err != nil {
			return st, "", err
		}
		return final, feedback + "\n\n" + result, nil
	}

	upcoming := quiz.Questions[next.CurrentQuestion]
	return next, feedback + questionMessage(next.CurrentQuestion+1, upcoming.Q), nil
}

// finishReview computes the final ratio and closes the session.
func (e *Engine) finishReview(st State) (State, string, error) {
	quiz, ok := st.Memory.QuizData()
	if !ok || len(quiz.Questions) == 0 {
		return st, "", fmt.Errorf("%w: review stage without quiz", ErrCorruptMemory)
	}

	ratio := st.Score / float64(len(quiz.Questions))
	next := st
	next.Stage = StageFinished

	if ratio >= passRatio {
		return next, passMessage(ratio), nil
	}
	return next, failMessage(ratio), nil
}
