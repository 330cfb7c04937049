package services

import "errors"

// Sentinel failures shared across services. Callers branch with errors.Is;
// anything needing context wraps with fmt.Errorf("...: %w", err).
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrWorkoutNotFound     = errors.New("workout not found")
	ErrNoSlotAvailable     = errors.New("no free slot available")
	ErrCalendarAuthExpired = errors.New("calendar authorization expired")
	ErrChatUnavailable     = errors.New("chat backend unavailable")
)
