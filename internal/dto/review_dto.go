package dto

import (
	"time"

	"github.com/revizorlab/revizor-api/internal/models"
)

// SessionStartRequest describes the payload for opening a review session.
type SessionStartRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required"`
	StudentID    uint   `json:"student_id" validate:"required"`
	Mode         string `json:"mode" validate:"omitempty,oneof=review help"`
}

// SessionMessageRequest carries a chat message trigger.
type SessionMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=8000"`
}

// ReviewMessageResponse is a single chat entry.
type ReviewMessageResponse struct {
	ID        uint      `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse is the serialized session state with its chat history.
type SessionResponse struct {
	ID              uint                    `json:"id"`
	AssignmentID    uint                    `json:"assignment_id"`
	StudentID       uint                    `json:"student_id"`
	Mode            string                  `json:"mode"`
	Stage           string                  `json:"stage"`
	DocumentName    string                  `json:"document_name,omitempty"`
	CurrentQuestion int                     `json:"current_question"`
	Score           float64                 `json:"score"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	Messages        []ReviewMessageResponse `json:"messages,omitempty"`
}

// ReviewReply is the outcome of a single trigger: the assistant reply text
// plus the stage the session ended up in.
type ReviewReply struct {
	SessionID    uint   `json:"session_id"`
	Stage        string `json:"stage"`
	Reply        string `json:"reply"`
	DocumentName string `json:"document_name,omitempty"`
}

// NewReviewMessageResponse converts a message model into a DTO.
func NewReviewMessageResponse(model models.ReviewMessage) ReviewMessageResponse {
	return ReviewMessageResponse{
		ID:        model.ID,
		Sender:    model.Sender,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
}

// NewSessionResponse converts a session model into a DTO.
func NewSessionResponse(model models.ReviewSession, messages []models.ReviewMessage) SessionResponse {
	history := make([]ReviewMessageResponse, 0, len(messages))
	for _, message := range messages {
		history = append(history, NewReviewMessageResponse(message))
	}

	return SessionResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		StudentID:       model.StudentID,
		Mode:            model.Mode,
		Stage:           model.Stage,
		DocumentName:    model.DocumentName,
		CurrentQuestion: model.CurrentQuestion,
		Score:           model.Score,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
		Messages:        history,
	}
}
