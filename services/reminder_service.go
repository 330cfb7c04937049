package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"

	"go.uber.org/zap"
)

const (
	// reminderLead is how far before the start time the nudge goes out.
	reminderLead = time.Hour

	defaultSweepInterval = 5 * time.Minute
)

// ReminderService sweeps for workouts starting within the lead window and
// texts a one-shot nudge for each. The sent latch flips before the text
// goes out, so a workout is reminded at most once even with overlapping
// sweeps; a crash between latch and send costs one reminder, never a
// duplicate.
type ReminderService struct {
	workouts WorkoutStore
	users    UserStore
	sender   MessageSender
	log      *zap.SugaredLogger
	interval time.Duration
	now      func() time.Time
}

func NewReminderService(workouts WorkoutStore, users UserStore, sender MessageSender, log *zap.SugaredLogger) *ReminderService {
	return &ReminderService{
		workouts: workouts,
		users:    users,
		sender:   sender,
		log:      log,
		interval: defaultSweepInterval,
		now:      time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *ReminderService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.log.Infow("reminder loop started", "interval", s.interval)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("reminder loop stopped")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep runs one pass. Exported so a sweep can be driven directly without
// the ticker.
func (s *ReminderService) Sweep(ctx context.Context) {
	now := s.now()
	due, err := s.workouts.DueForReminder(now, now.Add(reminderLead))
	if err != nil {
		s.log.Errorw("reminder sweep query failed", "error", err)
		return
	}

	for i := range due {
		w := &due[i]
		ok, err := s.workouts.MarkReminderSent(w.ID)
		if err != nil {
			s.log.Errorw("reminder latch failed", "workout_id", w.ID, "error", err)
			continue
		}
		if !ok {
			continue // another sweep got here first
		}

		user, err := s.users.ByID(w.UserID)
		if err != nil {
			s.log.Errorw("reminder user lookup failed", "workout_id", w.ID, "user_id", w.UserID, "error", err)
			continue
		}
		if err := s.sender.SendText(ctx, user.Phone, reminderBody(user, w)); err != nil {
			s.log.Errorw("reminder send failed", "workout_id", w.ID, "user_id", w.UserID, "error", err)
			continue
		}
		EmitScheduleEvent(w.UserID, models.EventReminderSent,
			fmt.Sprintf("Reminder sent for %s at %s.", w.BlockName, w.StartTime.Format("15:04")))
		s.log.Infow("reminder sent", "workout_id", w.ID, "user_id", w.UserID, "starts_at", w.StartTime)
	}
}

func reminderBody(user *models.User, w *models.ScheduledWorkout) string {
	if user.TravelMinutes > 0 {
		leaveBy := w.StartTime.Add(-user.TravelDuration())
		return fmt.Sprintf("%s starts at %s. Leave by %s to beat your %d-minute commute. Let's go!",
			w.BlockName, w.StartTime.Format("15:04"), leaveBy.Format("15:04"), user.TravelMinutes)
	}
	return fmt.Sprintf("%s starts at %s. Let's go!", w.BlockName, w.StartTime.Format("15:04"))
}
