package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethan-ignatius/gymbuddy/services"

	"github.com/gin-gonic/gin"
)

type EventController struct {
	Users  services.UserStore
	Events services.EventStore
}

func NewEventController(users services.UserStore, events services.EventStore) *EventController {
	return &EventController{Users: users, Events: events}
}

// GET /api/users/:id/events?limit=50
func (e *EventController) ListEvents(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if _, err := e.Users.ByID(id); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	limit := 50
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	events, err := e.Events.Recent(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
