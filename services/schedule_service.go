package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"

	"go.uber.org/zap"
)

// rescheduleWindowDays bounds the forward scan of RescheduleOne: today plus
// the next four days.
const rescheduleWindowDays = 5

// WeekResult is the outcome of one scheduling pass.
type WeekResult struct {
	ScheduledCount int             `json:"scheduled_count"`
	Details        []BookingDetail `json:"details"`
}

// BookingDetail reports what happened on one target date. Booked=false means
// the date had no viable opening and was skipped.
type BookingDetail struct {
	Date      time.Time `json:"date"`
	BlockName string    `json:"block"`
	Booked    bool      `json:"booked"`
	WorkoutID uint      `json:"workout_id,omitempty"`
	Start     time.Time `json:"start,omitempty"`
	End       time.Time `json:"end,omitempty"`
}

// ScheduleService owns every write path that books, moves or releases a
// session. The onboarding pass and the chat tools all come through here, so
// conflict checking lives in exactly one place.
type ScheduleService struct {
	workouts WorkoutStore
	calendar CalendarProvider
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewScheduleService(workouts WorkoutStore, calendar CalendarProvider, log *zap.SugaredLogger) *ScheduleService {
	return &ScheduleService{
		workouts: workouts,
		calendar: calendar,
		log:      log,
		now:      time.Now,
	}
}

// busyBetween merges the user's external calendar events with persisted
// non-terminal workouts overlapping [from, to). Stub-calendar users have no
// external mirror, so the persisted rows are the whole busy picture for
// them; for connected users a booking may appear twice, which is harmless
// for overlap checks. exceptID skips the workout being moved.
func (s *ScheduleService) busyBetween(ctx context.Context, user *models.User, from, to time.Time, exceptID uint) ([]TimeSlot, error) {
	busy, err := s.calendar.ListEvents(ctx, user, from, to)
	if err != nil {
		return nil, err
	}
	rows, err := s.workouts.InWindow(user.ID, from, to)
	if err != nil {
		return nil, err
	}
	for _, w := range rows {
		if w.ID == exceptID {
			continue
		}
		busy = append(busy, TimeSlot{Start: w.StartTime, End: w.EndTime})
	}
	return busy, nil
}

// ScheduleWeek books one pass of the user's plan: one block per target
// date, first come first served against the busy set. Dates with no opening
// are skipped, not failed, and nothing already booked in the pass is rolled
// back. Slots claimed earlier in the pass count as busy for later dates.
func (s *ScheduleService) ScheduleWeek(ctx context.Context, user *models.User, plan models.WorkoutPlan) (*WeekResult, error) {
	now := s.now()
	dates := TargetDates(user, now)
	if len(dates) == 0 {
		return &WeekResult{}, nil
	}

	travel := user.TravelDuration()
	spanFrom := dates[0].Add(-travel)
	spanTo := dates[len(dates)-1].AddDate(0, 0, 1).Add(travel)
	busy, err := s.busyBetween(ctx, user, spanFrom, spanTo, 0)
	if err != nil {
		return nil, fmt.Errorf("listing busy intervals: %w", err)
	}

	result := &WeekResult{}
	for i, date := range dates {
		block := plan.BlockForSession(i)
		detail := BookingDetail{Date: date, BlockName: block.Name}

		free := FindFreeSlots(date, busy, travel, DefaultDayWindow)
		slot := PickSlot(free, user.TimePreference)
		if slot == nil {
			s.log.Infow("no opening on target date, skipping",
				"user_id", user.ID, "date", date.Format("2006-01-02"), "block", block.Name)
			result.Details = append(result.Details, detail)
			continue
		}

		w, err := s.commitSlot(ctx, user, block, *slot)
		if err != nil {
			return result, err
		}

		busy = append(busy, *slot)
		detail.Booked = true
		detail.WorkoutID = w.ID
		detail.Start = w.StartTime
		detail.End = w.EndTime
		result.ScheduledCount++
		result.Details = append(result.Details, detail)
	}

	s.log.Infow("scheduling pass finished",
		"user_id", user.ID, "scheduled", result.ScheduledCount, "targets", len(dates))
	EmitScheduleEvent(user.ID, models.EventWeekScheduled,
		fmt.Sprintf("Booked %d of %d sessions for the week.", result.ScheduledCount, len(dates)))
	return result, nil
}

// commitSlot mirrors the slot to the external calendar and persists the
// row. A persist failure unwinds the just-created event so the mirror does
// not drift from the store.
func (s *ScheduleService) commitSlot(ctx context.Context, user *models.User, block models.WorkoutBlock, slot TimeSlot) (*models.ScheduledWorkout, error) {
	eventID, err := s.calendar.CreateEvent(ctx, user, calendarEventFor(block, slot))
	if err != nil {
		return nil, fmt.Errorf("creating calendar event: %w", err)
	}

	w := &models.ScheduledWorkout{
		UserID:          user.ID,
		BlockName:       block.Name,
		StartTime:       slot.Start,
		EndTime:         slot.End,
		CalendarEventID: eventID,
		Status:          models.WorkoutScheduled,
	}
	if err := s.workouts.Create(w); err != nil {
		if eventID != "" {
			_ = s.calendar.DeleteEvent(ctx, user, eventID)
		}
		return nil, fmt.Errorf("persisting workout: %w", err)
	}

	EmitScheduleEvent(user.ID, models.EventWorkoutBooked,
		fmt.Sprintf("%s booked for %s.", block.Name, slot.Start.Format("Mon Jan 2 15:04")))
	return w, nil
}

// BookAt books one session at an exact start time, shared by the initial
// confirmation flow and the schedule_workout tool. The requested interval,
// inflated by travel, must clear every busy interval or the call fails with
// ErrNoSlotAvailable.
func (s *ScheduleService) BookAt(ctx context.Context, user *models.User, name string, start time.Time, duration time.Duration) (*models.ScheduledWorkout, error) {
	if duration <= 0 {
		duration = SessionLength
	}
	slot := TimeSlot{Start: start, End: start.Add(duration)}
	travel := user.TravelDuration()

	inflated := slot.Inflate(travel)
	busy, err := s.busyBetween(ctx, user, inflated.Start, inflated.End, 0)
	if err != nil {
		return nil, fmt.Errorf("listing busy intervals: %w", err)
	}
	if SlotConflicts(slot, busy, travel) {
		return nil, ErrNoSlotAvailable
	}

	block := models.WorkoutBlock{Name: name}
	if name == "" {
		block.Name = "Workout"
	}
	return s.commitSlot(ctx, user, block, slot)
}

// Rebook moves an existing workout to an exact new start time, keeping the
// external mirror in step. Ownership must already be verified. The moved
// workout itself does not count as busy.
func (s *ScheduleService) Rebook(ctx context.Context, user *models.User, w *models.ScheduledWorkout, start time.Time) (*models.ScheduledWorkout, error) {
	slot := TimeSlot{Start: start, End: start.Add(w.EndTime.Sub(w.StartTime))}
	travel := user.TravelDuration()

	inflated := slot.Inflate(travel)
	busy, err := s.busyBetween(ctx, user, inflated.Start, inflated.End, w.ID)
	if err != nil {
		return nil, fmt.Errorf("listing busy intervals: %w", err)
	}
	if SlotConflicts(slot, busy, travel) {
		return nil, ErrNoSlotAvailable
	}

	block := models.WorkoutBlock{Name: w.BlockName}
	eventID := w.CalendarEventID
	if eventID != "" {
		if err := s.calendar.UpdateEvent(ctx, user, eventID, calendarEventFor(block, slot)); err != nil {
			return nil, fmt.Errorf("moving calendar event: %w", err)
		}
	} else {
		eventID, err = s.calendar.CreateEvent(ctx, user, calendarEventFor(block, slot))
		if err != nil {
			return nil, fmt.Errorf("creating calendar event: %w", err)
		}
	}

	ok, err := s.workouts.Reschedule(w.ID, nonTerminalStatuses, slot.Start, slot.End, eventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// the row moved on under us; reread and report the fresh state
		fresh, err := s.workouts.ByID(w.ID)
		if err != nil {
			return nil, err
		}
		if fresh.Status.Terminal() {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("workout %d changed while rescheduling", w.ID)
	}

	w.StartTime = slot.Start
	w.EndTime = slot.End
	w.CalendarEventID = eventID
	w.Status = models.WorkoutRescheduled
	w.ReminderSent = false

	EmitScheduleEvent(user.ID, models.EventWorkoutRescheduled,
		fmt.Sprintf("%s moved to %s.", w.BlockName, slot.Start.Format("Mon Jan 2 15:04")))
	return w, nil
}

// RescheduleOne finds the workout a new home: the first strictly-future
// free slot within the scan window, honoring the user's preference. Success
// updates the row in place. An exhausted window cancels the workout and
// returns nil, the designed fallback, not an error.
func (s *ScheduleService) RescheduleOne(ctx context.Context, user *models.User, workoutID uint) (*TimeSlot, error) {
	w, err := s.workouts.ByID(workoutID)
	if err != nil {
		return nil, err
	}
	if w.UserID != user.ID || w.Status.Terminal() {
		return nil, ErrWorkoutNotFound
	}

	if w.CalendarEventID != "" {
		if err := s.calendar.DeleteEvent(ctx, user, w.CalendarEventID); err != nil {
			return nil, fmt.Errorf("removing prior calendar event: %w", err)
		}
	}

	now := s.now()
	travel := user.TravelDuration()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	scanTo := today.AddDate(0, 0, rescheduleWindowDays).Add(travel)

	busy, err := s.busyBetween(ctx, user, today.Add(-travel), scanTo, w.ID)
	if err != nil {
		return nil, fmt.Errorf("listing busy intervals: %w", err)
	}

	duration := w.EndTime.Sub(w.StartTime)
	if duration <= 0 {
		duration = SessionLength
	}
	earliest := now.Add(travel)

	for d := 0; d < rescheduleWindowDays; d++ {
		day := today.AddDate(0, 0, d)
		var future []TimeSlot
		for _, cand := range FindFreeSlots(day, busy, travel, DefaultDayWindow) {
			if cand.Start.After(earliest) {
				future = append(future, cand)
			}
		}
		slot := PickSlot(future, user.TimePreference)
		if slot == nil {
			continue
		}
		slot.End = slot.Start.Add(duration)

		eventID, err := s.calendar.CreateEvent(ctx, user, calendarEventFor(models.WorkoutBlock{Name: w.BlockName}, *slot))
		if err != nil {
			return nil, fmt.Errorf("creating calendar event: %w", err)
		}
		ok, err := s.workouts.Reschedule(w.ID, nonTerminalStatuses, slot.Start, slot.End, eventID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrWorkoutNotFound
		}

		s.log.Infow("workout rescheduled",
			"user_id", user.ID, "workout_id", w.ID, "start", slot.Start)
		EmitScheduleEvent(user.ID, models.EventWorkoutRescheduled,
			fmt.Sprintf("%s moved to %s.", w.BlockName, slot.Start.Format("Mon Jan 2 15:04")))
		return slot, nil
	}

	// nothing viable in the window: release the slot instead of guessing
	if _, err := s.workouts.SetStatus(w.ID, nonTerminalStatuses, models.WorkoutCancelled); err != nil {
		return nil, err
	}
	s.log.Infow("no slot in reschedule window, workout cancelled",
		"user_id", user.ID, "workout_id", w.ID)
	EmitScheduleEvent(user.ID, models.EventWorkoutCancelled,
		fmt.Sprintf("%s cancelled: no free slot in the next %d days.", w.BlockName, rescheduleWindowDays))
	return nil, nil
}

// Cancel releases a non-terminal workout and removes its mirror.
func (s *ScheduleService) Cancel(ctx context.Context, user *models.User, workoutID uint) error {
	w, err := s.workouts.ByID(workoutID)
	if err != nil {
		return err
	}
	if w.UserID != user.ID || w.Status.Terminal() {
		return ErrWorkoutNotFound
	}

	if w.CalendarEventID != "" {
		if err := s.calendar.DeleteEvent(ctx, user, w.CalendarEventID); err != nil {
			return fmt.Errorf("removing calendar event: %w", err)
		}
	}
	ok, err := s.workouts.SetStatus(w.ID, nonTerminalStatuses, models.WorkoutCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWorkoutNotFound
	}

	EmitScheduleEvent(user.ID, models.EventWorkoutCancelled,
		fmt.Sprintf("%s on %s cancelled.", w.BlockName, w.StartTime.Format("Mon Jan 2")))
	return nil
}

// RecordOutcome finalizes a session as completed or skipped. The calendar
// mirror stays: the slot was spent either way.
func (s *ScheduleService) RecordOutcome(user *models.User, workoutID uint, outcome models.WorkoutStatus) error {
	if outcome != models.WorkoutCompleted && outcome != models.WorkoutSkipped {
		return fmt.Errorf("invalid outcome %q", outcome)
	}
	w, err := s.workouts.ByID(workoutID)
	if err != nil {
		return err
	}
	if w.UserID != user.ID || w.Status.Terminal() {
		return ErrWorkoutNotFound
	}

	ok, err := s.workouts.SetStatus(w.ID, nonTerminalStatuses, outcome)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWorkoutNotFound
	}

	kind := models.EventWorkoutCompleted
	verb := "completed"
	if outcome == models.WorkoutSkipped {
		kind = models.EventWorkoutSkipped
		verb = "skipped"
	}
	EmitScheduleEvent(user.ID, kind,
		fmt.Sprintf("%s on %s %s.", w.BlockName, w.StartTime.Format("Mon Jan 2"), verb))
	return nil
}

func calendarEventFor(block models.WorkoutBlock, slot TimeSlot) CalendarEvent {
	var b strings.Builder
	if block.Focus != "" {
		fmt.Fprintf(&b, "Focus: %s\n", block.Focus)
	}
	for _, ex := range block.Exercises {
		fmt.Fprintf(&b, "- %s %dx%s\n", ex.Name, ex.Sets, ex.Reps)
	}
	return CalendarEvent{
		Title:       block.Name + " (GymBuddy)",
		Description: strings.TrimRight(b.String(), "\n"),
		Start:       slot.Start,
		End:         slot.End,
	}
}
