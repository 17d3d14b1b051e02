package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/revizorlab/revizor-api/internal/models"
)

// MessageRepository defines persistence operations for session chat history.
type MessageRepository interface {
	ListBySession(ctx context.Context, sessionID uint) ([]models.ReviewMessage, error)
	Create(ctx context.Context, message *models.ReviewMessage) error
	CreatePair(ctx context.Context, trigger, reply *models.ReviewMessage) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository instantiates the repository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.ReviewMessage, error) {
	var messages []models.ReviewMessage
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) Create(ctx context.Context, message *models.ReviewMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// CreatePair stores the trigger and the assistant reply atomically so a
// half-recorded interaction never becomes visible.
func (r *messageRepository) CreatePair(ctx context.Context, trigger, reply *models.ReviewMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trigger).Error; err != nil {
			return err
		}
		return tx.Create(reply).Error
	})
}
