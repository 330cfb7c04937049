package controllers

import (
	"errors"
	"net/http"

	"github.com/ethan-ignatius/gymbuddy/services"
	"github.com/ethan-ignatius/gymbuddy/utils"

	"github.com/gin-gonic/gin"
)

type CalendarController struct {
	Users  services.UserStore
	Google *services.GoogleCalendarService
}

func NewCalendarController(users services.UserStore, google *services.GoogleCalendarService) *CalendarController {
	return &CalendarController{Users: users, Google: google}
}

// GET /calendar/connect?user_id=N
//
// Starts the consent flow. The signed state token carries the user id
// through Google and back, so the callback cannot be replayed onto another
// account.
func (cc *CalendarController) Connect(c *gin.Context) {
	var query struct {
		UserID uint `form:"user_id" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if _, err := cc.Users.ByID(query.UserID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	state, err := utils.GenerateStateToken(query.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create state token"})
		return
	}
	c.Redirect(http.StatusFound, cc.Google.AuthURL(state))
}

const calendarConnectedHTML = `<!DOCTYPE html>
<html><head><title>GymBuddy</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Calendar connected!</h1>
<p>GymBuddy will now book workouts straight into your Google Calendar.<br>
You can close this tab and go back to texting.</p>
</body></html>`

const calendarDeclinedHTML = `<!DOCTYPE html>
<html><head><title>GymBuddy</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>No problem.</h1>
<p>GymBuddy will keep scheduling without calendar access.<br>
You can connect any time from your profile.</p>
</body></html>`

// GET /calendar/callback
func (cc *CalendarController) Callback(c *gin.Context) {
	if c.Query("error") != "" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(calendarDeclinedHTML))
		return
	}

	userID, err := utils.ParseStateToken(c.Query("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	access, refresh, expiry, err := cc.Google.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "token exchange failed"})
		return
	}
	if err := cc.Users.SaveGoogleTokens(userID, access, refresh, expiry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credentials"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(calendarConnectedHTML))
}
