package models

import "time"

// Message senders.
const (
	SenderStudent   = "student"
	SenderAssistant = "assistant"
)

// ReviewMessage is a single chat entry inside a review session: the trigger
// text sent by the student or the reply produced by the assistant.
type ReviewMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	Sender    string    `gorm:"size:32;not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
