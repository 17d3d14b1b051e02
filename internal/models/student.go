package models

import "time"

// Student represents a learner whose submissions go through review sessions.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Login     string    `gorm:"size:64;uniqueIndex;not null" json:"login"`
	GroupName string    `gorm:"size:64" json:"group_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
