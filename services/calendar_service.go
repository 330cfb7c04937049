package services

import (
	"context"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"
)

// CalendarEvent is the outbound event shape for create/update calls.
type CalendarEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// CalendarProvider is the external calendar boundary. ListEvents returns
// busy intervals; CreateEvent returns the provider's event id, or an empty
// string when the provider keeps no mirror (stub mode). Implementations
// must return ErrCalendarAuthExpired, not a generic error, when the user's
// grant is no longer valid, so callers can start a reconnect flow.
type CalendarProvider interface {
	ListEvents(ctx context.Context, user *models.User, from, to time.Time) ([]TimeSlot, error)
	CreateEvent(ctx context.Context, user *models.User, ev CalendarEvent) (string, error)
	UpdateEvent(ctx context.Context, user *models.User, eventID string, ev CalendarEvent) error
	DeleteEvent(ctx context.Context, user *models.User, eventID string) error
}

// StubCalendar serves users who never connected a calendar. There is no
// external mirror: nothing is busy, created events have no id, updates and
// deletes have nothing to touch. Conflict checks for these users rest
// entirely on persisted workouts.
type StubCalendar struct{}

func NewStubCalendar() *StubCalendar { return &StubCalendar{} }

func (s *StubCalendar) ListEvents(ctx context.Context, user *models.User, from, to time.Time) ([]TimeSlot, error) {
	return nil, nil
}

func (s *StubCalendar) CreateEvent(ctx context.Context, user *models.User, ev CalendarEvent) (string, error) {
	return "", nil
}

func (s *StubCalendar) UpdateEvent(ctx context.Context, user *models.User, eventID string, ev CalendarEvent) error {
	return nil
}

func (s *StubCalendar) DeleteEvent(ctx context.Context, user *models.User, eventID string) error {
	return nil
}

// CalendarService routes each call to the real provider or the stub based
// on whether the user holds a refresh token.
type CalendarService struct {
	google CalendarProvider
	stub   CalendarProvider
}

func NewCalendarService(google CalendarProvider) *CalendarService {
	return &CalendarService{google: google, stub: NewStubCalendar()}
}

func (s *CalendarService) providerFor(user *models.User) CalendarProvider {
	if user.CalendarConnected() {
		return s.google
	}
	return s.stub
}

func (s *CalendarService) ListEvents(ctx context.Context, user *models.User, from, to time.Time) ([]TimeSlot, error) {
	return s.providerFor(user).ListEvents(ctx, user, from, to)
}

func (s *CalendarService) CreateEvent(ctx context.Context, user *models.User, ev CalendarEvent) (string, error) {
	return s.providerFor(user).CreateEvent(ctx, user, ev)
}

func (s *CalendarService) UpdateEvent(ctx context.Context, user *models.User, eventID string, ev CalendarEvent) error {
	return s.providerFor(user).UpdateEvent(ctx, user, eventID, ev)
}

func (s *CalendarService) DeleteEvent(ctx context.Context, user *models.User, eventID string) error {
	return s.providerFor(user).DeleteEvent(ctx, user, eventID)
}
