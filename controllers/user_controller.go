package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethan-ignatius/gymbuddy/models"
	"github.com/ethan-ignatius/gymbuddy/services"
	"github.com/ethan-ignatius/gymbuddy/utils"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	Users services.UserStore
	SMS   services.MessageSender
}

func NewUserController(users services.UserStore, sms services.MessageSender) *UserController {
	return &UserController{Users: users, SMS: sms}
}

type createUserInput struct {
	Email         string  `json:"email" binding:"required,email"`
	Phone         string  `json:"phone" binding:"required"`
	FullName      string  `json:"full_name"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	Goal          string  `json:"goal"`
	TravelMinutes int     `json:"travel_minutes"`
}

// POST /api/users
func (u *UserController) Create(c *gin.Context) {
	var input createUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	goal, ok := parseGoal(input.Goal)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "goal must be build_muscle, lose_weight or general_fitness"})
		return
	}
	if input.TravelMinutes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "travel_minutes must be >= 0"})
		return
	}

	user := &models.User{
		Email:          input.Email,
		Phone:          input.Phone,
		FullName:       input.FullName,
		HeightCm:       input.HeightCm,
		WeightKg:       input.WeightKg,
		Goal:           goal,
		TravelMinutes:  input.TravelMinutes,
		OnboardingStep: models.StepAwaitingDays,
	}
	if err := u.Users.Create(user); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "could not create user: " + err.Error()})
		return
	}

	// best effort: a failed welcome text must not fail provisioning, the
	// user can always text first
	smsErr := u.SMS.SendText(c.Request.Context(), user.Phone, services.WelcomeMessage(user))

	c.JSON(http.StatusCreated, gin.H{
		"user":         user,
		"welcome_sent": smsErr == nil,
	})
}

// GET /api/users/:id
func (u *UserController) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	user, err := u.Users.ByID(id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"user": user}
	if bmi := utils.BMISummary(user.HeightCm, user.WeightKg); bmi != "" {
		resp["bmi"] = bmi
	}
	c.JSON(http.StatusOK, resp)
}

type updateUserInput struct {
	FullName       *string  `json:"full_name"`
	HeightCm       *float64 `json:"height_cm"`
	WeightKg       *float64 `json:"weight_kg"`
	Goal           *string  `json:"goal"`
	TravelMinutes  *int     `json:"travel_minutes"`
	DaysPerWeek    *int     `json:"days_per_week"`
	TimePreference *string  `json:"time_preference"`
}

// PUT /api/users/:id
func (u *UserController) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	user, err := u.Users.ByID(id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var input updateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.HeightCm != nil {
		user.HeightCm = *input.HeightCm
	}
	if input.WeightKg != nil {
		user.WeightKg = *input.WeightKg
	}
	if input.Goal != nil {
		goal, ok := parseGoal(*input.Goal)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "goal must be build_muscle, lose_weight or general_fitness"})
			return
		}
		user.Goal = goal
	}
	if input.TravelMinutes != nil {
		if *input.TravelMinutes < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "travel_minutes must be >= 0"})
			return
		}
		user.TravelMinutes = *input.TravelMinutes
	}
	if input.DaysPerWeek != nil {
		user.DaysPerWeek = *input.DaysPerWeek
	}
	if input.TimePreference != nil {
		user.TimePreference = *input.TimePreference
	}

	if err := u.Users.Save(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func parseGoal(s string) (models.Goal, bool) {
	switch models.Goal(s) {
	case models.GoalBuildMuscle, models.GoalLoseWeight, models.GoalGeneralFitness:
		return models.Goal(s), true
	case "":
		return models.GoalGeneralFitness, true
	default:
		return "", false
	}
}

// parseIDParam reads the :id path segment, replying 400 itself on garbage.
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
