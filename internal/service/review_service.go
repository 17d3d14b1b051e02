package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/revizorlab/revizor-api/internal/dto"
	"github.com/revizorlab/revizor-api/internal/models"
	"github.com/revizorlab/revizor-api/internal/observability"
	"github.com/revizorlab/revizor-api/internal/repository"
	"github.com/revizorlab/revizor-api/internal/review"
	"github.com/revizorlab/revizor-api/pkg/ai"
)

// ErrSessionNotFound indicates the review session cannot be located.
var ErrSessionNotFound = errors.New("review session not found")

// ErrAssignmentNotFound indicates the assignment behind a session is gone.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrStudentNotFound indicates the student behind a session is gone.
var ErrStudentNotFound = errors.New("student not found")

// DocumentArchiver stores a copy of an uploaded submission file. Archival is
// best-effort; a failure never blocks the review transition.
type DocumentArchiver interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ReviewService exposes review session operations. Triggers against the same
// session are serialized; the whole transition is applied or not at all.
type ReviewService interface {
	StartSession(ctx context.Context, payload dto.SessionStartRequest) (dto.SessionResponse, error)
	GetSession(ctx context.Context, id uint) (dto.SessionResponse, error)
	HandleMessage(ctx context.Context, sessionID uint, payload dto.SessionMessageRequest) (dto.ReviewReply, error)
	HandleUpload(ctx context.Context, sessionID uint, filename string, data []byte) (dto.ReviewReply, error)
}

type reviewService struct {
	sessions    repository.SessionRepository
	messages    repository.MessageRepository
	assignments AssignmentService
	students    repository.StudentRepository
	engine      *review.Engine
	judge       ai.Judge
	judgeWait   time.Duration
	events      StagePublisher
	archiver    DocumentArchiver
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer

	mu    sync.Mutex
	locks map[uint]*sessionLock
}

// sessionLock serializes triggers for one session. The holder count lets the
// entry be evicted as soon as no trigger is using it, so the map stays bounded
// by in-flight triggers rather than by every session ever touched.
type sessionLock struct {
	mu      sync.Mutex
	holders int
}

// NewReviewService constructs the review orchestrator.
func NewReviewService(
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	assignments AssignmentService,
	students repository.StudentRepository,
	engine *review.Engine,
	judge ai.Judge,
	judgeWait time.Duration,
	events StagePublisher,
	archiver DocumentArchiver,
	validate *validator.Validate,
	logger zerolog.Logger,
) ReviewService {
	if judgeWait <= 0 {
		judgeWait = 90 * time.Second
	}
	return &reviewService{
		sessions:    sessions,
		messages:    messages,
		assignments: assignments,
		students:    students,
		engine:      engine,
		judge:       judge,
		judgeWait:   judgeWait,
		events:      events,
		archiver:    archiver,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "review_service").Logger(),
		tracer:      otel.Tracer("github.com/revizorlab/revizor-api/internal/service/review"),
		locks:       map[uint]*sessionLock{},
	}
}

// lockSession acquires the per-session trigger lock. Two concurrent triggers
// must not both read the old stage and independently decide a transition, so
// the lock is held for the whole trigger.
func (s *reviewService) lockSession(id uint) *sessionLock {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sessionLock{}
		s.locks[id] = lock
	}
	lock.holders++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *reviewService) unlockSession(id uint, lock *sessionLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.holders--
	if lock.holders == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}

func (s *reviewService) StartSession(ctx context.Context, payload dto.SessionStartRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	mode := payload.Mode
	if mode == "" {
		mode = models.SessionModeReview
	}

	if _, err := s.assignments.Get(ctx, payload.AssignmentID); err != nil {
		return dto.SessionResponse{}, err
	}
	if _, err := s.students.GetByID(ctx, payload.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrStudentNotFound
		}
		return dto.SessionResponse{}, err
	}

	if existing, err := s.sessions.FindOpen(ctx, payload.AssignmentID, payload.StudentID, mode); err == nil {
		history, err := s.messages.ListBySession(ctx, existing.ID)
		if err != nil {
			return dto.SessionResponse{}, err
		}
		return dto.NewSessionResponse(existing, history), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SessionResponse{}, err
	}

	session := models.ReviewSession{
		AssignmentID: payload.AssignmentID,
		StudentID:    payload.StudentID,
		Mode:         mode,
		Stage:        string(review.StageNew),
	}
	if err := s.sessions.Create(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().
		Uint("session_id", session.ID).
		Uint("assignment_id", session.AssignmentID).
		Uint("student_id", session.StudentID).
		Str("mode", mode).
		Msg("review session started")

	return dto.NewSessionResponse(session, nil), nil
}

func (s *reviewService) GetSession(ctx context.Context, id uint) (dto.SessionResponse, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	history, err := s.messages.ListBySession(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	return dto.NewSessionResponse(session, history), nil
}

func (s *reviewService) HandleMessage(ctx context.Context, sessionID uint, payload dto.SessionMessageRequest) (dto.ReviewReply, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReviewReply{}, err
	}

	ctx, span := s.tracer.Start(ctx, "review.message", trace.WithAttributes(
		attribute.Int64("review.session_id", int64(sessionID)),
	))
	defer span.End()

	lock := s.lockSession(sessionID)
	defer s.unlockSession(sessionID, lock)

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewReply{}, ErrSessionNotFound
		}
		return dto.ReviewReply{}, err
	}

	text := s.sanitizer.Sanitize(strings.TrimSpace(payload.Text))

	if session.Mode == models.SessionModeHelp {
		return s.handleHelpMessage(ctx, session, text)
	}

	state, err := s.sessionState(ctx, session)
	if err != nil {
		span.RecordError(err)
		return dto.ReviewReply{}, err
	}

	next, reply, err := s.engine.HandleMessage(ctx, state, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		return dto.ReviewReply{}, err
	}

	if err := s.commit(ctx, &session, state, next, text, reply, ""); err != nil {
		span.RecordError(err)
		return dto.ReviewReply{}, err
	}

	return dto.ReviewReply{SessionID: session.ID, Stage: session.Stage, Reply: reply}, nil
}

func (s *reviewService) HandleUpload(ctx context.Context, sessionID uint, filename string, data []byte) (dto.ReviewReply, error) {
	ctx, span := s.tracer.Start(ctx, "review.upload", trace.WithAttributes(
		attribute.Int64("review.session_id", int64(sessionID)),
		attribute.String("review.document_name", filename),
		attribute.Int("review.document_bytes", len(data)),
	))
	defer span.End()

	lock := s.lockSession(sessionID)
	defer s.unlockSession(sessionID, lock)

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewReply{}, ErrSessionNotFound
		}
		return dto.ReviewReply{}, err
	}

	// Help sessions are pure question relay; only review sessions run the
	// submission machine.
	if session.Mode == models.SessionModeHelp {
		return dto.ReviewReply{}, fmt.Errorf("%w: help sessions do not accept documents", review.ErrInvalidStageForUpload)
	}

	if len(data) > 0 {
		span.SetAttributes(attribute.String("review.document_mime", mimetype.Detect(data).String()))
	}
	observability.ReviewUploadBytes().Observe(float64(len(data)))

	state, err := s.sessionState(ctx, session)
	if err != nil {
		span.RecordError(err)
		return dto.ReviewReply{}, err
	}

	next, reply, err := s.engine.HandleUpload(ctx, state, filename, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload transition failed")
		return dto.ReviewReply{}, err
	}

	session.DocumentName = filename
	session.DocumentData = data
	s.archiveDocument(ctx, &session, filename, data)

	trigger := fmt.Sprintf("[uploaded %s]", filename)
	if err := s.commit(ctx, &session, state, next, trigger, reply, filename); err != nil {
		span.RecordError(err)
		return dto.ReviewReply{}, err
	}

	return dto.ReviewReply{
		SessionID:    session.ID,
		Stage:        session.Stage,
		Reply:        reply,
		DocumentName: filename,
	}, nil
}

// handleHelpMessage relays the message to the judge with no review state
// involved and persists the exchange.
func (s *reviewService) handleHelpMessage(ctx context.Context, session models.ReviewSession, text string) (dto.ReviewReply, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.judgeWait)
	defer cancel()

	reply, err := s.judge.Complete(callCtx, text)
	if err != nil {
		return dto.ReviewReply{}, fmt.Errorf("%w: %v", review.ErrJudgeUnavailable, err)
	}

	if err := s.persistExchange(ctx, session.ID, text, reply); err != nil {
		return dto.ReviewReply{}, err
	}

	return dto.ReviewReply{SessionID: session.ID, Stage: session.Stage, Reply: reply}, nil
}

// sessionState assembles the engine state from the persisted session and the
// assignment's (cached) task description.
func (s *reviewService) sessionState(ctx context.Context, session models.ReviewSession) (review.State, error) {
	task, err := s.assignments.Task(ctx, session.AssignmentID)
	if err != nil {
		return review.State{}, err
	}

	memory, err := review.DecodeMemory(session.Memory)
	if err != nil {
		return review.State{}, err
	}

	stage := review.Stage(session.Stage)
	if !stage.Valid() {
		return review.State{}, fmt.Errorf("session %d has unknown stage %q", session.ID, session.Stage)
	}

	return review.State{
		Stage:           stage,
		Task:            task,
		Memory:          memory,
		CurrentQuestion: session.CurrentQuestion,
		Score:           session.Score,
	}, nil
}

// commit writes the fully computed successor state and the chat exchange,
// then publishes the stage transition. The session row is written exactly
// once per trigger.
func (s *reviewService) commit(ctx context.Context, session *models.ReviewSession, prev, next review.State, trigger, reply, documentName string) error {
	encoded, err := review.EncodeMemory(next.Memory)
	if err != nil {
		return err
	}

	session.Stage = string(next.Stage)
	session.Memory = datatypes.JSON(encoded)
	session.CurrentQuestion = next.CurrentQuestion
	session.Score = next.Score

	if err := s.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	if err := s.persistExchange(ctx, session.ID, trigger, reply); err != nil {
		return err
	}

	if prev.Stage != next.Stage {
		observability.ReviewTransitions().WithLabelValues(string(prev.Stage), string(next.Stage)).Inc()
		if s.events != nil {
			s.events.PublishStageChange(ctx, StageEvent{
				SessionID:    session.ID,
				From:         string(prev.Stage),
				To:           string(next.Stage),
				DocumentName: documentName,
				At:           time.Now().UTC(),
			})
		}
	}

	return nil
}

func (s *reviewService) persistExchange(ctx context.Context, sessionID uint, trigger, reply string) error {
	studentMessage := &models.ReviewMessage{
		SessionID: sessionID,
		Sender:    models.SenderStudent,
		Content:   trigger,
	}
	assistantMessage := &models.ReviewMessage{
		SessionID: sessionID,
		Sender:    models.SenderAssistant,
		Content:   reply,
	}
	if err := s.messages.CreatePair(ctx, studentMessage, assistantMessage); err != nil {
		return fmt.Errorf("persist messages: %w", err)
	}
	return nil
}

func (s *reviewService) archiveDocument(ctx context.Context, session *models.ReviewSession, filename string, data []byte) {
	if s.archiver == nil {
		return
	}

	url, err := s.archiver.Upload(ctx, fmt.Sprintf("session-%d-%s", session.ID, filename), bytes.NewReader(data))
	if err != nil {
		s.logger.Warn().Err(err).Uint("session_id", session.ID).Msg("document archival failed")
		return
	}
	session.DocumentURL = url
}
