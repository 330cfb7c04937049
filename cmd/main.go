package main

import (
	"context"

	"github.com/ethan-ignatius/gymbuddy/config"
	"github.com/ethan-ignatius/gymbuddy/controllers"
	"github.com/ethan-ignatius/gymbuddy/routes"
	"github.com/ethan-ignatius/gymbuddy/services"
	"github.com/ethan-ignatius/gymbuddy/utils"
)

func main() {
	config.InitLogger()
	config.InitDB()
	utils.InitS3()

	users := services.NewGormUserStore(config.DB)
	workouts := services.NewGormWorkoutStore(config.DB)
	messages := services.NewGormMessageStore(config.DB)
	events := services.NewGormEventStore(config.DB)

	hub := services.NewRealtimeHub()
	services.InitEventBus(events, hub)

	google := services.NewGoogleCalendarService(users)
	calendar := services.NewCalendarService(google)

	sms, err := services.NewSMSService()
	if err != nil {
		config.Log.Fatalw("failed to init SMS service", "error", err)
	}
	chat := services.NewOpenAIService()

	sched := services.NewScheduleService(workouts, calendar, config.Log)
	onboarding := services.NewOnboardingService(users, sched, services.ICSExporter{}, services.SESMailer{}, config.Log)
	coach := services.NewCoachService(workouts, messages, chat, sched, config.Log)
	conv := services.NewConversationService(users, onboarding, coach, config.Log)

	reminders := services.NewReminderService(workouts, users, sms, config.Log)
	reminders.Start(context.Background())

	r := routes.SetupRouter(routes.RouterDeps{
		Webhook:  controllers.NewWebhookController(conv, sms),
		Users:    controllers.NewUserController(users, sms),
		Schedule: controllers.NewScheduleController(users, workouts, sched),
		Calendar: controllers.NewCalendarController(users, google),
		Events:   controllers.NewEventController(users, events),
		Realtime: controllers.NewRealtimeController(hub),
		Dev:      controllers.NewDevController(conv),
	})

	config.Log.Info("gymbuddy listening on :8080")
	if err := r.Run(":8080"); err != nil {
		config.Log.Fatalw("server exited", "error", err)
	}
}
