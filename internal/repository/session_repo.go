package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/revizorlab/revizor-api/internal/models"
)

// SessionRepository defines persistence operations for review sessions. A
// session row is the only shared mutable resource the review core touches;
// Update writes the fully computed successor state in one statement.
type SessionRepository interface {
	GetByID(ctx context.Context, id uint) (models.ReviewSession, error)
	FindOpen(ctx context.Context, assignmentID, studentID uint, mode string) (models.ReviewSession, error)
	Create(ctx context.Context, session *models.ReviewSession) error
	Update(ctx context.Context, session *models.ReviewSession) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates the repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.ReviewSession, error) {
	var session models.ReviewSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.ReviewSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) FindOpen(ctx context.Context, assignmentID, studentID uint, mode string) (models.ReviewSession, error) {
	var session models.ReviewSession
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		Where("mode = ?", mode).
		Where("stage <> ?", "finished").
		Order("created_at DESC").
		First(&session).Error; err != nil {
		return models.ReviewSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *models.ReviewSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) Update(ctx context.Context, session *models.ReviewSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}
