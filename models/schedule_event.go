package models

import "time"

// ScheduleEvent kinds, as they appear on the dashboard feed.
const (
	EventWorkoutBooked      = "workout.booked"
	EventWorkoutRescheduled = "workout.rescheduled"
	EventWorkoutCancelled   = "workout.cancelled"
	EventWorkoutCompleted   = "workout.completed"
	EventWorkoutSkipped     = "workout.skipped"
	EventWeekScheduled      = "week.scheduled"
	EventReminderSent       = "reminder.sent"
	EventCalendarReconnect  = "calendar.reconnect_needed"
)

type ScheduleEvent struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index"`
	Kind      string    `gorm:"size:40"`
	Message   string    `gorm:"type:text"`
	CreatedAt time.Time
}
