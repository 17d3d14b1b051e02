package models

import (
	"time"

	"gorm.io/datatypes"
)

// Session modes. Review mode drives the submission state machine, help mode
// relays messages to the judge as free-form tutoring questions.
const (
	SessionModeReview = "review"
	SessionModeHelp   = "help"
)

// ReviewSession owns all review state for one student attempting one
// assignment. The stage, question cursor and accumulated score are mutated
// exclusively by the review service; once finished the record is immutable
// and can only be superseded by a fresh session.
type ReviewSession struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	AssignmentID    uint           `gorm:"not null;index" json:"assignment_id"`
	StudentID       uint           `gorm:"not null;index" json:"student_id"`
	Mode            string         `gorm:"size:32;not null;default:review" json:"mode"`
	Stage           string         `gorm:"size:64;not null" json:"stage"`
	DocumentName    string         `gorm:"size:255" json:"document_name"`
	DocumentData    []byte         `gorm:"type:bytea" json:"-"`
	DocumentURL     string         `gorm:"size:512" json:"document_url,omitempty"`
	Memory          datatypes.JSON `gorm:"type:json" json:"-"`
	CurrentQuestion int            `gorm:"not null;default:0" json:"current_question"`
	Score           float64        `gorm:"not null;default:0" json:"score"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Assignment      Assignment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student         Student        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Messages        []ReviewMessage `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HasDocument reports whether a submission file has been uploaded.
func (s ReviewSession) HasDocument() bool {
	return len(s.DocumentData) > 0 && s.DocumentName != ""
}
