package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"
	"github.com/ethan-ignatius/gymbuddy/utils"

	"go.uber.org/zap"
)

const (
	// maxToolRounds caps chat calls per inbound message. The model gets
	// results fed back after each round except the last; a tool-call
	// response on the final round is dropped unread rather than executed
	// blind.
	maxToolRounds = 5

	contextWorkouts = 20
	historyMessages = 10

	noReplyFallback = "Sorry, I don't have a reply for that right now. Could you try rephrasing?"
	ceilingFallback = "I got a bit tangled up there. Could you tell me again what you'd like to change?"
)

// completeWindow bounds auto-selection for mark_workout_complete: the
// soonest non-terminal workout starting within this span of now.
const completeWindow = 3 * time.Hour

// CoachService drives the conversation once onboarding is complete. Each
// inbound message becomes a chat session loaded with the live schedule and
// the fixed tool menu; model-requested tool calls run against the schedule
// service and their results feed the next round.
type CoachService struct {
	workouts WorkoutStore
	messages MessageStore
	chat     ChatClient
	sched    *ScheduleService
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewCoachService(workouts WorkoutStore, messages MessageStore, chat ChatClient, sched *ScheduleService, log *zap.SugaredLogger) *CoachService {
	return &CoachService{
		workouts: workouts,
		messages: messages,
		chat:     chat,
		sched:    sched,
		log:      log,
		now:      time.Now,
	}
}

// Handle runs one conversational turn to completion: bounded tool rounds,
// then exactly one reply. Chat transport failures propagate unchanged so
// the boundary can fall back; everything a handler can reject becomes a
// structured tool result the model sees and can recover from.
func (s *CoachService) Handle(ctx context.Context, user *models.User, text string) (string, error) {
	msgs, err := s.openingMessages(ctx, user, text)
	if err != nil {
		return "", err
	}
	if err := s.messages.Append(user.ID, models.RoleUser, text); err != nil {
		s.log.Warnw("failed to persist inbound message", "user_id", user.ID, "error", err)
	}

	var lastText string
	for round := 1; round <= maxToolRounds; round++ {
		turn, err := s.chat.Complete(ctx, msgs, coachTools)
		if err != nil {
			return "", err
		}

		if len(turn.ToolCalls) == 0 {
			reply := turn.Text
			if reply == "" {
				reply = noReplyFallback
			}
			s.remember(user.ID, reply)
			return reply, nil
		}

		if turn.Text != "" {
			lastText = turn.Text
		}
		if round == maxToolRounds {
			s.log.Warnw("tool round ceiling hit", "user_id", user.ID, "rounds", round)
			break
		}

		msgs = append(msgs, ChatMessage{Role: ChatRoleAssistant, Content: turn.Text, ToolCalls: turn.ToolCalls})
		for _, call := range turn.ToolCalls {
			result, err := s.runTool(ctx, user, call)
			if err != nil {
				return "", err
			}
			payload, _ := json.Marshal(result)
			msgs = append(msgs, ChatMessage{Role: ChatRoleTool, Content: string(payload), ToolCallID: call.ID})
			s.log.Infow("tool call executed",
				"user_id", user.ID, "tool", call.Name, "success", result.Success, "round", round)
		}
	}

	reply := lastText
	if reply == "" {
		reply = ceilingFallback
	}
	s.remember(user.ID, reply)
	return reply, nil
}

func (s *CoachService) remember(userID uint, reply string) {
	if err := s.messages.Append(userID, models.RoleAssistant, reply); err != nil {
		s.log.Warnw("failed to persist reply", "user_id", userID, "error", err)
	}
}

// openingMessages assembles the system context, recent transcript and the
// new inbound message.
func (s *CoachService) openingMessages(ctx context.Context, user *models.User, text string) ([]ChatMessage, error) {
	now := s.now()
	upcoming, err := s.workouts.Upcoming(user.ID, now.Add(-2*time.Hour), contextWorkouts)
	if err != nil {
		return nil, fmt.Errorf("loading upcoming workouts: %w", err)
	}
	history, err := s.messages.Recent(user.ID, historyMessages)
	if err != nil {
		return nil, fmt.Errorf("loading conversation history: %w", err)
	}

	msgs := make([]ChatMessage, 0, len(history)+2)
	msgs = append(msgs, ChatMessage{Role: ChatRoleSystem, Content: buildCoachContext(user, upcoming, now)})
	for _, m := range history {
		role := ChatRoleUser
		if m.Role == models.RoleAssistant {
			role = ChatRoleAssistant
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: m.Body})
	}
	return append(msgs, ChatMessage{Role: ChatRoleUser, Content: text}), nil
}

const coachPersona = `You are GymBuddy, a motivational and knowledgeable fitness coach. You manage the user's workout schedule over text message.

Rules:
- Use the tools to change the schedule. Never claim a change you did not make through a tool.
- Dates are YYYY-MM-DD, times are 24-hour HH:MM, both in the user's local time.
- workout_id values come from the upcoming list below. Never invent ids.
- If a tool reports a conflict, suggest a nearby alternative instead of giving up.
- Keep replies SHORT and friendly. This is SMS: 1-3 sentences, no markdown.`

func buildCoachContext(user *models.User, upcoming []models.ScheduledWorkout, now time.Time) string {
	var b strings.Builder
	b.WriteString(coachPersona)
	b.WriteString("\n\n[Profile]\n")
	fmt.Fprintf(&b, "Name: %s\n", user.FullName)
	fmt.Fprintf(&b, "Goal: %s\n", strings.ReplaceAll(string(user.Goal), "_", " "))
	if bmi := utils.BMISummary(user.HeightCm, user.WeightKg); bmi != "" {
		fmt.Fprintf(&b, "Height/weight: %.0f cm, %.0f kg, BMI %s\n", user.HeightCm, user.WeightKg, bmi)
	}
	fmt.Fprintf(&b, "Travel to gym: %d min each way (sessions need this buffer on both sides)\n", user.TravelMinutes)
	if user.PreferredDays != "" {
		fmt.Fprintf(&b, "Preferred days: %s\n", user.PreferredDays)
	}
	if user.DaysPerWeek > 0 {
		fmt.Fprintf(&b, "Sessions per week: %d\n", user.DaysPerWeek)
	}
	if user.TimePreference != "" {
		fmt.Fprintf(&b, "Preferred time: %s\n", user.TimePreference)
	}
	fmt.Fprintf(&b, "Calendar connected: %t\n", user.CalendarConnected())
	fmt.Fprintf(&b, "Now: %s\n", now.Format("Mon 2006-01-02 15:04"))

	b.WriteString("\n[Upcoming workouts]\n")
	if len(upcoming) == 0 {
		b.WriteString("none\n")
	}
	for _, w := range upcoming {
		fmt.Fprintf(&b, "workout_id=%d %s %s %s-%s (%s)\n",
			w.ID, w.BlockName,
			w.StartTime.Format("2006-01-02"), w.StartTime.Format("15:04"), w.EndTime.Format("15:04"),
			w.Status)
	}

	plan := models.PlanForGoal(user.Goal)
	b.WriteString("\n[Weekly plan rotation]\n")
	for _, block := range plan.Blocks {
		names := make([]string, 0, len(block.Exercises))
		for _, ex := range block.Exercises {
			names = append(names, fmt.Sprintf("%s %dx%s", ex.Name, ex.Sets, ex.Reps))
		}
		fmt.Fprintf(&b, "%s (%s): %s\n", block.Name, block.Focus, strings.Join(names, ", "))
	}
	return b.String()
}

// ---------- tool menu ----------

var coachTools = []ChatToolSpec{
	{
		Name:        "schedule_workout",
		Description: "Book a new workout session at an exact date and time. Fails if the time conflicts with the user's calendar once travel time is counted.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date":             map[string]any{"type": "string", "description": "Session date, YYYY-MM-DD."},
				"time":             map[string]any{"type": "string", "description": "Start time, 24-hour HH:MM."},
				"duration_minutes": map[string]any{"type": "integer", "description": "Length in minutes. Defaults to 60."},
				"name":             map[string]any{"type": "string", "description": "Session name, e.g. a plan block. Defaults to the generic workout."},
			},
			"required": []string{"date", "time"},
		},
	},
	{
		Name:        "reschedule_workout",
		Description: "Move an existing workout to a new date and time. Fails if the workout is unknown or the new time conflicts.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workout_id": map[string]any{"type": "integer", "description": "Id from the upcoming list."},
				"new_date":   map[string]any{"type": "string", "description": "New date, YYYY-MM-DD."},
				"new_time":   map[string]any{"type": "string", "description": "New start time, 24-hour HH:MM."},
			},
			"required": []string{"workout_id", "new_date", "new_time"},
		},
	},
	{
		Name:        "cancel_workout",
		Description: "Cancel an upcoming workout and release its calendar slot.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workout_id": map[string]any{"type": "integer", "description": "Id from the upcoming list."},
			},
			"required": []string{"workout_id"},
		},
	},
	{
		Name:        "mark_workout_complete",
		Description: "Log a workout as completed. Omit workout_id to log the session closest to now (within 3 hours).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workout_id": map[string]any{"type": "integer", "description": "Id from the upcoming list. Optional."},
			},
		},
	},
}

// ToolResult is what the model reads back after each call. Failures are
// data, not errors: the model explains them and may retry within the same
// turn.
type ToolResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func toolOK(format string, args ...any) ToolResult {
	return ToolResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func toolFail(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// flexID tolerates both 12 and "12"; chat models emit either.
type flexID uint

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid workout id %q", s)
	}
	*f = flexID(v)
	return nil
}

// toolRequest is the closed set of operations the model may invoke.
// Dispatch is an exhaustive type switch, so adding or removing a tool is a
// compile-time change, not a stringly-typed one.
type toolRequest interface{ isToolRequest() }

type scheduleWorkoutRequest struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Name            string `json:"name"`
}

type rescheduleWorkoutRequest struct {
	WorkoutID flexID `json:"workout_id"`
	NewDate   string `json:"new_date"`
	NewTime   string `json:"new_time"`
}

type cancelWorkoutRequest struct {
	WorkoutID flexID `json:"workout_id"`
}

type markCompleteRequest struct {
	WorkoutID flexID `json:"workout_id"`
}

func (scheduleWorkoutRequest) isToolRequest()   {}
func (rescheduleWorkoutRequest) isToolRequest() {}
func (cancelWorkoutRequest) isToolRequest()     {}
func (markCompleteRequest) isToolRequest()      {}

func parseToolRequest(name, rawArgs string) (toolRequest, error) {
	if strings.TrimSpace(rawArgs) == "" {
		rawArgs = "{}"
	}
	decode := func(dst toolRequest) (toolRequest, error) {
		if err := json.Unmarshal([]byte(rawArgs), dst); err != nil {
			return nil, fmt.Errorf("malformed arguments for %s: %w", name, err)
		}
		return dst, nil
	}
	switch name {
	case "schedule_workout":
		return decode(&scheduleWorkoutRequest{})
	case "reschedule_workout":
		return decode(&rescheduleWorkoutRequest{})
	case "cancel_workout":
		return decode(&cancelWorkoutRequest{})
	case "mark_workout_complete":
		return decode(&markCompleteRequest{})
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// runTool parses and executes one call. Parse failures and rejections come
// back as failed results; only boundary conditions (expired calendar auth,
// transport faults) abort the turn as real errors.
func (s *CoachService) runTool(ctx context.Context, user *models.User, call ChatToolCall) (ToolResult, error) {
	req, err := parseToolRequest(call.Name, call.Arguments)
	if err != nil {
		return toolFail("%v", err), nil
	}

	switch r := req.(type) {
	case *scheduleWorkoutRequest:
		return s.toolSchedule(ctx, user, r)
	case *rescheduleWorkoutRequest:
		return s.toolReschedule(ctx, user, r)
	case *cancelWorkoutRequest:
		return s.toolCancel(ctx, user, r)
	case *markCompleteRequest:
		return s.toolComplete(ctx, user, r)
	default:
		return toolFail("unknown tool %q", call.Name), nil
	}
}

func (s *CoachService) toolSchedule(ctx context.Context, user *models.User, r *scheduleWorkoutRequest) (ToolResult, error) {
	start, err := parseDateTime(r.Date, r.Time)
	if err != nil {
		return toolFail("Could not parse the time. Use date YYYY-MM-DD and time HH:MM (24h)."), nil
	}
	duration := time.Duration(r.DurationMinutes) * time.Minute

	w, err := s.sched.BookAt(ctx, user, r.Name, start, duration)
	switch {
	case err == nil:
		return toolOK("Booked %s for %s (workout_id=%d).",
			w.BlockName, w.StartTime.Format("Mon Jan 2 at 15:04"), w.ID), nil
	case errors.Is(err, ErrNoSlotAvailable):
		return toolFail("That time conflicts with another commitment once the %d-minute travel buffer is counted. Try a different time.",
			user.TravelMinutes), nil
	default:
		return ToolResult{}, err
	}
}

func (s *CoachService) toolReschedule(ctx context.Context, user *models.User, r *rescheduleWorkoutRequest) (ToolResult, error) {
	w, res, err := s.ownWorkout(user, uint(r.WorkoutID))
	if err != nil || !res.Success {
		return res, err
	}
	start, err := parseDateTime(r.NewDate, r.NewTime)
	if err != nil {
		return toolFail("Could not parse the new time. Use date YYYY-MM-DD and time HH:MM (24h)."), nil
	}

	moved, err := s.sched.Rebook(ctx, user, w, start)
	switch {
	case err == nil:
		return toolOK("Moved %s to %s.", moved.BlockName, moved.StartTime.Format("Mon Jan 2 at 15:04")), nil
	case errors.Is(err, ErrNoSlotAvailable):
		return toolFail("The new time conflicts with another commitment once travel time is counted. Try a different time."), nil
	case errors.Is(err, ErrWorkoutNotFound):
		return toolFail("Workout not found."), nil
	default:
		return ToolResult{}, err
	}
}

func (s *CoachService) toolCancel(ctx context.Context, user *models.User, r *cancelWorkoutRequest) (ToolResult, error) {
	w, res, err := s.ownWorkout(user, uint(r.WorkoutID))
	if err != nil || !res.Success {
		return res, err
	}
	if err := s.sched.Cancel(ctx, user, w.ID); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			return toolFail("Workout not found."), nil
		}
		return ToolResult{}, err
	}
	return toolOK("Cancelled %s on %s.", w.BlockName, w.StartTime.Format("Mon Jan 2")), nil
}

func (s *CoachService) toolComplete(ctx context.Context, user *models.User, r *markCompleteRequest) (ToolResult, error) {
	var w *models.ScheduledWorkout
	if r.WorkoutID != 0 {
		var res ToolResult
		var err error
		w, res, err = s.ownWorkout(user, uint(r.WorkoutID))
		if err != nil || !res.Success {
			return res, err
		}
	} else {
		// no id given: the session nearest now, never a guess beyond that
		now := s.now()
		candidates, err := s.workouts.Upcoming(user.ID, now.Add(-completeWindow), 0)
		if err != nil {
			return ToolResult{}, err
		}
		for i := range candidates {
			if candidates[i].StartTime.Before(now.Add(completeWindow)) {
				w = &candidates[i]
				break
			}
		}
		if w == nil {
			return toolFail("No workout starting within 3 hours of now. Give me the workout_id to log a different one."), nil
		}
	}

	err := s.sched.RecordOutcome(user, w.ID, models.WorkoutCompleted)
	switch {
	case err == nil:
		return toolOK("Logged %s as complete. Nice work!", w.BlockName), nil
	case errors.Is(err, ErrWorkoutNotFound):
		return toolFail("That workout is already finished or cancelled."), nil
	default:
		return ToolResult{}, err
	}
}

// ownWorkout resolves an id to one of the user's live workouts. Unknown,
// foreign and deleted ids all read as not found; finished ones get their
// own message so the model does not retry them.
func (s *CoachService) ownWorkout(user *models.User, id uint) (*models.ScheduledWorkout, ToolResult, error) {
	if id == 0 {
		return nil, toolFail("Workout not found."), nil
	}
	w, err := s.workouts.ByID(id)
	if errors.Is(err, ErrWorkoutNotFound) {
		return nil, toolFail("Workout not found."), nil
	}
	if err != nil {
		return nil, ToolResult{}, err
	}
	if w.UserID != user.ID {
		return nil, toolFail("Workout not found."), nil
	}
	if w.Status.Terminal() {
		return nil, toolFail("That workout is already finished or cancelled."), nil
	}
	return w, ToolResult{Success: true}, nil
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3 PM", "3:04PM", "3PM"}

func parseDateTime(date, clock string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.Local)
	if err != nil {
		return time.Time{}, err
	}
	clock = strings.ToUpper(strings.TrimSpace(clock))
	for _, layout := range clockLayouts {
		if t, err := time.ParseInLocation(layout, clock, time.Local); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", clock)
}
