package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/revizorlab/revizor-api/internal/dto"
	"github.com/revizorlab/revizor-api/internal/models"
	"github.com/revizorlab/revizor-api/internal/repository"
)

// ErrLoginTaken indicates the requested login is already registered.
var ErrLoginTaken = errors.New("login already taken")

// StudentService exposes roster operations.
type StudentService interface {
	List(ctx context.Context) ([]dto.StudentResponse, error)
	Get(ctx context.Context, id uint) (dto.StudentResponse, error)
	Create(ctx context.Context, payload dto.StudentCreateRequest) (dto.StudentResponse, error)
}

type studentService struct {
	repo      repository.StudentRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStudentService constructs a student service.
func NewStudentService(repo repository.StudentRepository, validate *validator.Validate, logger zerolog.Logger) StudentService {
	return &studentService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) List(ctx context.Context) ([]dto.StudentResponse, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewStudentResponseSlice(students), nil
}

func (s *studentService) Get(ctx context.Context, id uint) (dto.StudentResponse, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Create(ctx context.Context, payload dto.StudentCreateRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StudentResponse{}, err
	}

	if _, err := s.repo.GetByLogin(ctx, payload.Login); err == nil {
		return dto.StudentResponse{}, ErrLoginTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.StudentResponse{}, err
	}

	student := models.Student{
		Name:      payload.Name,
		Login:     payload.Login,
		GroupName: payload.GroupName,
	}
	if err := s.repo.Create(ctx, &student); err != nil {
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student), nil
}
