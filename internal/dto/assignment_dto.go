package dto

import (
	"time"

	"github.com/revizorlab/revizor-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title   string `json:"title" validate:"required,min=3"`
	Task    string `json:"task" validate:"required,min=10"`
	DueDate string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=3"`
	Task    *string `json:"task" validate:"omitempty,min=10"`
	DueDate *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Task      string    `json:"task"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:        model.ID,
		Title:     model.Title,
		Task:      model.Task,
		DueDate:   model.DueDate,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
