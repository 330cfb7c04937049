package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"

	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

// testMonday is a fixed Monday so weekday math stays stable.
var testMonday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
}

// withEventBus points the package-global bus at a fresh store for one test.
func withEventBus(t *testing.T) *memEventStore {
	t.Helper()
	events := newMemEventStore()
	prev := _events
	InitEventBus(events, nil)
	t.Cleanup(func() { _events = prev })
	return events
}

// ---------- in-memory user store ----------

type memUserStore struct {
	mu    sync.Mutex
	seq   uint
	users map[uint]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uint]models.User)}
}

func (s *memUserStore) add(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.seq++
		u.ID = s.seq
	}
	s.users[u.ID] = u
	out := u
	return &out
}

func (s *memUserStore) ByID(id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := u
	return &out, nil
}

func (s *memUserStore) ByPhone(phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone {
			out := u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memUserStore) Create(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u.ID = s.seq
	s.users[u.ID] = *u
	return nil
}

func (s *memUserStore) Save(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *memUserStore) AdvanceOnboarding(userID uint, from, to models.OnboardingStep, set map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.OnboardingStep != from {
		return false, nil
	}
	u.OnboardingStep = to
	for k, v := range set {
		switch k {
		case "preferred_days":
			u.PreferredDays = v.(string)
		case "days_per_week":
			u.DaysPerWeek = v.(int)
		case "time_preference":
			u.TimePreference = v.(string)
		}
	}
	s.users[userID] = u
	return true, nil
}

func (s *memUserStore) SaveGoogleTokens(userID uint, access, refresh string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.GoogleAccessToken = access
	u.GoogleRefreshToken = refresh
	u.GoogleTokenExpiry = expiry
	s.users[userID] = u
	return nil
}

// ---------- in-memory workout store ----------

type memWorkoutStore struct {
	mu   sync.Mutex
	seq  uint
	rows map[uint]models.ScheduledWorkout
}

func newMemWorkoutStore() *memWorkoutStore {
	return &memWorkoutStore{rows: make(map[uint]models.ScheduledWorkout)}
}

func (s *memWorkoutStore) add(w models.ScheduledWorkout) *models.ScheduledWorkout {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == 0 {
		s.seq++
		w.ID = s.seq
	}
	if w.Status == "" {
		w.Status = models.WorkoutScheduled
	}
	s.rows[w.ID] = w
	out := w
	return &out
}

func (s *memWorkoutStore) Create(w *models.ScheduledWorkout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	w.ID = s.seq
	s.rows[w.ID] = *w
	return nil
}

func (s *memWorkoutStore) ByID(id uint) (*models.ScheduledWorkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.rows[id]
	if !ok {
		return nil, ErrWorkoutNotFound
	}
	out := w
	return &out, nil
}

func (s *memWorkoutStore) sorted(keep func(models.ScheduledWorkout) bool) []models.ScheduledWorkout {
	var out []models.ScheduledWorkout
	for _, w := range s.rows {
		if keep(w) {
			out = append(out, w)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartTime.Before(out[j-1].StartTime); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (s *memWorkoutStore) Upcoming(userID uint, from time.Time, limit int) ([]models.ScheduledWorkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted(func(w models.ScheduledWorkout) bool {
		return w.UserID == userID && !w.Status.Terminal() && !w.StartTime.Before(from)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memWorkoutStore) InWindow(userID uint, from, to time.Time) ([]models.ScheduledWorkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(w models.ScheduledWorkout) bool {
		return w.UserID == userID && !w.Status.Terminal() &&
			w.StartTime.Before(to) && w.EndTime.After(from)
	}), nil
}

func (s *memWorkoutStore) Save(w *models.ScheduledWorkout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[w.ID] = *w
	return nil
}

func (s *memWorkoutStore) SetStatus(id uint, from []models.WorkoutStatus, to models.WorkoutStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.rows[id]
	if !ok || !statusIn(w.Status, from) {
		return false, nil
	}
	w.Status = to
	s.rows[id] = w
	return true, nil
}

func (s *memWorkoutStore) Reschedule(id uint, from []models.WorkoutStatus, start, end time.Time, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.rows[id]
	if !ok || !statusIn(w.Status, from) {
		return false, nil
	}
	w.StartTime = start
	w.EndTime = end
	w.CalendarEventID = eventID
	w.Status = models.WorkoutRescheduled
	w.ReminderSent = false
	s.rows[id] = w
	return true, nil
}

func (s *memWorkoutStore) DueForReminder(from, to time.Time) ([]models.ScheduledWorkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(w models.ScheduledWorkout) bool {
		return !w.Status.Terminal() && !w.ReminderSent &&
			!w.StartTime.Before(from) && w.StartTime.Before(to)
	}), nil
}

func (s *memWorkoutStore) MarkReminderSent(id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.rows[id]
	if !ok || w.ReminderSent {
		return false, nil
	}
	w.ReminderSent = true
	s.rows[id] = w
	return true, nil
}

func statusIn(status models.WorkoutStatus, set []models.WorkoutStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// ---------- in-memory message store ----------

type memMessageStore struct {
	mu   sync.Mutex
	seq  uint
	msgs []models.Message
}

func newMemMessageStore() *memMessageStore { return &memMessageStore{} }

func (s *memMessageStore) Append(userID uint, role, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.msgs = append(s.msgs, models.Message{
		ID: s.seq, UserID: userID, Role: role, Body: body, CreatedAt: time.Now(),
	})
	return nil
}

func (s *memMessageStore) Recent(userID uint, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.msgs {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ---------- in-memory event store ----------

type memEventStore struct {
	mu     sync.Mutex
	events []models.ScheduleEvent
}

func newMemEventStore() *memEventStore { return &memEventStore{} }

func (s *memEventStore) Append(e *models.ScheduleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

func (s *memEventStore) Recent(userID uint, limit int) ([]models.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduleEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].UserID == userID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *memEventStore) kinds(userID uint) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e.Kind)
		}
	}
	return out
}

// ---------- fake calendar provider ----------

type fakeCalendar struct {
	mu      sync.Mutex
	busy    []TimeSlot
	stub    bool // created events carry no id
	seq     int
	created []CalendarEvent
	updated map[string]CalendarEvent
	deleted []string

	listErr   error
	createErr error
	updateErr error
	deleteErr error
}

func newFakeCalendar(busy ...TimeSlot) *fakeCalendar {
	return &fakeCalendar{busy: busy, updated: make(map[string]CalendarEvent)}
}

func (c *fakeCalendar) ListEvents(ctx context.Context, user *models.User, from, to time.Time) ([]TimeSlot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	window := TimeSlot{Start: from, End: to}
	var out []TimeSlot
	for _, b := range c.busy {
		if b.Overlaps(window) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, user *models.User, ev CalendarEvent) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return "", c.createErr
	}
	c.created = append(c.created, ev)
	if c.stub {
		return "", nil
	}
	c.seq++
	return fmt.Sprintf("ev-%d", c.seq), nil
}

func (c *fakeCalendar) UpdateEvent(ctx context.Context, user *models.User, eventID string, ev CalendarEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return c.updateErr
	}
	c.updated[eventID] = ev
	return nil
}

func (c *fakeCalendar) DeleteEvent(ctx context.Context, user *models.User, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, eventID)
	return nil
}

// ---------- scripted chat client ----------

type fakeChat struct {
	turns []ChatTurn
	err   error
	calls [][]ChatMessage
}

func (f *fakeChat) Complete(ctx context.Context, msgs []ChatMessage, tools []ChatToolSpec) (*ChatTurn, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.calls)
	snapshot := make([]ChatMessage, len(msgs))
	copy(snapshot, msgs)
	f.calls = append(f.calls, snapshot)
	if idx >= len(f.turns) {
		return &ChatTurn{}, nil
	}
	turn := f.turns[idx]
	return &turn, nil
}

// ---------- recording message sender ----------

type sentText struct {
	Phone string
	Body  string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentText
	err  error
}

func (f *fakeSender) SendText(ctx context.Context, phone, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentText{Phone: phone, Body: body})
	return nil
}
