package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/revizorlab/revizor-api/internal/dto"
	"github.com/revizorlab/revizor-api/internal/models"
	"github.com/revizorlab/revizor-api/internal/repository"
)

// AssignmentService exposes assignment operations. Task descriptions are
// read on every review trigger, so they are cached with a TTL.
type AssignmentService interface {
	List(ctx context.Context, search string) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Task(ctx context.Context, id uint) (string, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint) error
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssignmentService constructs an assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, cache *redis.Client, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &assignmentService{
		repo:      repo,
		cache:     cache,
		cacheTTL:  ttl,
		validator: validate,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
	}
}

func taskCacheKey(id uint) string {
	return fmt.Sprintf("assignment:task:%d", id)
}

func (s *assignmentService) List(ctx context.Context, search string) ([]dto.AssignmentResponse, error) {
	assignments, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

// Task returns the assignment's task description, from cache when possible.
func (s *assignmentService) Task(ctx context.Context, id uint) (string, error) {
	key := taskCacheKey(id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			return cached, nil
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read task cache")
		}
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAssignmentNotFound
		}
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, assignment.Task, s.cacheTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to store task cache")
		}
	}

	return assignment.Task, nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Title: payload.Title,
		Task:  payload.Task,
	}
	if payload.DueDate != "" {
		due, err := time.Parse(time.RFC3339, payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
		}
		assignment.DueDate = due
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Task != nil {
		assignment.Task = *payload.Task
	}
	if payload.DueDate != nil {
		due, err := time.Parse(time.RFC3339, *payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
		}
		assignment.DueDate = due
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.invalidateTask(ctx, id)

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.invalidateTask(ctx, id)
	return nil
}

func (s *assignmentService) invalidateTask(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, taskCacheKey(id)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", id).Msg("failed to invalidate task cache")
	}
}
