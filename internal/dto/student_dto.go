package dto

import (
	"time"

	"github.com/revizorlab/revizor-api/internal/models"
)

// StudentCreateRequest describes the payload for registering a student.
type StudentCreateRequest struct {
	Name      string `json:"name" validate:"required,min=2"`
	Login     string `json:"login" validate:"required,min=3,max=64"`
	GroupName string `json:"group_name" validate:"omitempty,max=64"`
}

// StudentResponse is the serialized student representation.
type StudentResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Login     string    `json:"login"`
	GroupName string    `json:"group_name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStudentResponse converts a model into a DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:        model.ID,
		Name:      model.Name,
		Login:     model.Login,
		GroupName: model.GroupName,
		CreatedAt: model.CreatedAt,
	}
}

// NewStudentResponseSlice converts a slice of models into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}

	return responses
}
