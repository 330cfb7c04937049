package models

import (
	"time"

	"gorm.io/gorm"
)

type WorkoutStatus string

const (
	WorkoutScheduled   WorkoutStatus = "scheduled"
	WorkoutRescheduled WorkoutStatus = "rescheduled"
	WorkoutCompleted   WorkoutStatus = "completed"
	WorkoutSkipped     WorkoutStatus = "skipped"
	WorkoutCancelled   WorkoutStatus = "cancelled"
)

// Terminal reports whether the workout can still be moved or completed.
func (s WorkoutStatus) Terminal() bool {
	return s == WorkoutCompleted || s == WorkoutSkipped || s == WorkoutCancelled
}

type ScheduledWorkout struct {
	gorm.Model
	UserID    uint   `gorm:"index;not null"`
	BlockName string `gorm:"size:60"`

	StartTime time.Time `gorm:"index;not null"`
	EndTime   time.Time `gorm:"not null"`

	// Empty when the booking was never mirrored to an external calendar
	// (stub mode).
	CalendarEventID string `gorm:"size:128"`

	Status       WorkoutStatus `gorm:"size:20;default:scheduled;index"`
	ReminderSent bool          // flips once, gates the reminder ticker
}
