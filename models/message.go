package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the coaching conversation. The coach loop loads
// the most recent few per user to give the model short-term memory.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index"`
	Role      string    `gorm:"size:12"` // "user" | "assistant"
	Body      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}
