package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"
	"github.com/ethan-ignatius/gymbuddy/services"

	"github.com/gin-gonic/gin"
)

type ScheduleController struct {
	Users    services.UserStore
	Workouts services.WorkoutStore
	Sched    *services.ScheduleService
}

func NewScheduleController(users services.UserStore, workouts services.WorkoutStore, sched *services.ScheduleService) *ScheduleController {
	return &ScheduleController{Users: users, Workouts: workouts, Sched: sched}
}

// GET /api/users/:id/schedule
func (s *ScheduleController) GetSchedule(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}

	// include sessions already underway
	from := time.Now().Add(-2 * time.Hour)
	workouts, err := s.Workouts.Upcoming(user.ID, from, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workouts": workouts})
}

// POST /api/users/:id/schedule-week
func (s *ScheduleController) ScheduleWeek(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}
	if user.OnboardingStep != models.StepComplete {
		c.JSON(http.StatusConflict, gin.H{"error": "onboarding not complete"})
		return
	}

	result, err := s.Sched.ScheduleWeek(c.Request.Context(), user, models.PlanForGoal(user.Goal))
	if err != nil {
		s.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scheduled": result.ScheduledCount,
		"details":   result.Details,
	})
}

// POST /api/workouts/:id/reschedule
func (s *ScheduleController) RescheduleWorkout(c *gin.Context) {
	user, workoutID, ok := s.loadWorkoutOwner(c)
	if !ok {
		return
	}

	slot, err := s.Sched.RescheduleOne(c.Request.Context(), user, workoutID)
	if err != nil {
		s.scheduleError(c, err)
		return
	}
	if slot == nil {
		// window exhausted: the slot was released instead
		c.JSON(http.StatusOK, gin.H{"rescheduled": false, "status": models.WorkoutCancelled})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rescheduled": true,
		"start":       slot.Start,
		"end":         slot.End,
	})
}

type outcomeInput struct {
	Outcome string `json:"outcome" binding:"required"`
}

// PATCH /api/workouts/:id/outcome
func (s *ScheduleController) RecordOutcome(c *gin.Context) {
	user, workoutID, ok := s.loadWorkoutOwner(c)
	if !ok {
		return
	}

	var input outcomeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome := models.WorkoutStatus(input.Outcome)
	if outcome != models.WorkoutCompleted && outcome != models.WorkoutSkipped {
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be completed or skipped"})
		return
	}

	if err := s.Sched.RecordOutcome(user, workoutID, outcome); err != nil {
		s.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": outcome})
}

// GET /api/users/:id/plan
func (s *ScheduleController) GetPlan(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": models.PlanForGoal(user.Goal)})
}

func (s *ScheduleController) loadUser(c *gin.Context) (*models.User, bool) {
	id, ok := parseIDParam(c)
	if !ok {
		return nil, false
	}
	user, err := s.Users.ByID(id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return user, true
}

// loadWorkoutOwner resolves :id as a workout id plus the user who owns it.
func (s *ScheduleController) loadWorkoutOwner(c *gin.Context) (*models.User, uint, bool) {
	id, ok := parseIDParam(c)
	if !ok {
		return nil, 0, false
	}
	w, err := s.Workouts.ByID(id)
	if err != nil {
		if errors.Is(err, services.ErrWorkoutNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workout not found"})
			return nil, 0, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	user, err := s.Users.ByID(w.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	return user, w.ID, true
}

func (s *ScheduleController) scheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrWorkoutNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "workout not found"})
	case errors.Is(err, services.ErrCalendarAuthExpired):
		c.JSON(http.StatusConflict, gin.H{"error": "calendar authorization expired, reconnect required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
