package routes

import (
	"github.com/ethan-ignatius/gymbuddy/controllers"
	"github.com/ethan-ignatius/gymbuddy/middlewares"

	"github.com/gin-gonic/gin"
)

// RouterDeps carries the wired controllers into route registration.
type RouterDeps struct {
	Webhook  *controllers.WebhookController
	Users    *controllers.UserController
	Schedule *controllers.ScheduleController
	Calendar *controllers.CalendarController
	Events   *controllers.EventController
	Realtime *controllers.RealtimeController
	Dev      *controllers.DevController
}

func SetupRouter(d RouterDeps) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// SMS gateway callbacks, guarded by the shared webhook secret
	hooks := r.Group("/webhooks")
	hooks.Use(middlewares.WebhookAuthMiddleware())
	{
		hooks.POST("/sms", d.Webhook.InboundSMS)
	}

	// Google consent flow; Google redirects here, so no API key
	calendar := r.Group("/calendar")
	{
		calendar.GET("/connect", d.Calendar.Connect)
		calendar.GET("/callback", d.Calendar.Callback)
	}

	// Dashboard API
	api := r.Group("/api")
	api.Use(middlewares.APIKeyMiddleware())
	{
		api.POST("/users", d.Users.Create)
		api.GET("/users/:id", d.Users.Get)
		api.PUT("/users/:id", d.Users.Update)

		api.GET("/users/:id/schedule", d.Schedule.GetSchedule)
		api.POST("/users/:id/schedule-week", d.Schedule.ScheduleWeek)
		api.GET("/users/:id/plan", d.Schedule.GetPlan)
		api.GET("/users/:id/events", d.Events.ListEvents)

		api.POST("/workouts/:id/reschedule", d.Schedule.RescheduleWorkout)
		api.PATCH("/workouts/:id/outcome", d.Schedule.RecordOutcome)
	}

	// Live schedule feed for dashboards
	r.GET("/ws/schedule", d.Realtime.ScheduleWS)

	// Dev-only helpers, same shared secret as the hooks
	dev := r.Group("/dev")
	dev.Use(middlewares.WebhookAuthMiddleware())
	{
		dev.POST("/simulate-inbound", d.Dev.SimulateInbound)
	}

	return r
}
