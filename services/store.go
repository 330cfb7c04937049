package services

import (
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"
)

// UserStore loads and mutates coaching profiles.
type UserStore interface {
	ByID(id uint) (*models.User, error)
	ByPhone(phone string) (*models.User, error)
	Create(u *models.User) error
	Save(u *models.User) error
	// AdvanceOnboarding moves the step cursor from one value to another,
	// writing any extra columns in the same statement. False means the
	// cursor was no longer at from: a lost race, reread and reprocess.
	AdvanceOnboarding(userID uint, from, to models.OnboardingStep, set map[string]any) (bool, error)
	SaveGoogleTokens(userID uint, access, refresh string, expiry time.Time) error
}

// WorkoutStore persists scheduled sessions and their status transitions.
type WorkoutStore interface {
	Create(w *models.ScheduledWorkout) error
	ByID(id uint) (*models.ScheduledWorkout, error)
	// Upcoming lists non-terminal workouts starting at or after from,
	// ordered by start time. limit <= 0 means no limit.
	Upcoming(userID uint, from time.Time, limit int) ([]models.ScheduledWorkout, error)
	// InWindow lists non-terminal workouts overlapping [from, to).
	InWindow(userID uint, from, to time.Time) ([]models.ScheduledWorkout, error)
	Save(w *models.ScheduledWorkout) error
	// SetStatus transitions the row only while its status is still one of
	// from. False means the row moved on under us.
	SetStatus(id uint, from []models.WorkoutStatus, to models.WorkoutStatus) (bool, error)
	// Reschedule rewrites times, mirror id and status in one conditional
	// update, and rearms the reminder latch. False means the row moved on
	// under us.
	Reschedule(id uint, from []models.WorkoutStatus, start, end time.Time, eventID string) (bool, error)
	DueForReminder(from, to time.Time) ([]models.ScheduledWorkout, error)
	// MarkReminderSent flips the one-shot latch; false when already sent.
	MarkReminderSent(id uint) (bool, error)
}

// MessageStore keeps the rolling conversation transcript.
type MessageStore interface {
	Append(userID uint, role, body string) error
	// Recent returns the latest messages in chronological order.
	Recent(userID uint, limit int) ([]models.Message, error)
}

// EventStore records the dashboard activity feed.
type EventStore interface {
	Append(e *models.ScheduleEvent) error
	Recent(userID uint, limit int) ([]models.ScheduleEvent, error)
}
