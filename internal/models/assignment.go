package models

import "time"

// Assignment represents a piece of coursework whose task description drives
// the judge prompts during review.
type Assignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Task      string    `gorm:"type:text;not null" json:"task"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Sessions  []ReviewSession
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return !a.DueDate.IsZero() && reference.After(a.DueDate)
}
