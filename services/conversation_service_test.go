package services

import (
	"context"
	"testing"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conversationFixture struct {
	users    *memUserStore
	workouts *memWorkoutStore
	cal      *fakeCalendar
	chat     *fakeChat
	svc      *ConversationService
}

func newConversationFixture(turns ...ChatTurn) *conversationFixture {
	users := newMemUserStore()
	workouts := newMemWorkoutStore()
	messages := newMemMessageStore()
	cal := newFakeCalendar()
	chat := &fakeChat{turns: turns}

	sched := NewScheduleService(workouts, cal, testLogger())
	sched.now = func() time.Time { return at(testMonday, 8, 0) }
	onboarding := NewOnboardingService(users, sched, nil, nil, testLogger())
	coach := NewCoachService(workouts, messages, chat, sched, testLogger())
	coach.now = func() time.Time { return at(testMonday, 8, 0) }

	return &conversationFixture{
		users:    users,
		workouts: workouts,
		cal:      cal,
		chat:     chat,
		svc:      NewConversationService(users, onboarding, coach, testLogger()),
	}
}

func TestConversationUnknownNumber(t *testing.T) {
	f := newConversationFixture()

	reply := f.svc.HandleInbound(context.Background(), "+19999999999", "hi")

	assert.Equal(t, unknownUserReply, reply)
}

func TestConversationRoutesByOnboardingStep(t *testing.T) {
	f := newConversationFixture(ChatTurn{Text: "Looking strong this week!"})
	f.users.add(models.User{
		Phone:          "+15550001111",
		Email:          "new@example.com",
		OnboardingStep: models.StepAwaitingDays,
	})
	f.users.add(models.User{
		Phone:          "+15550002222",
		Email:          "done@example.com",
		OnboardingStep: models.StepComplete,
	})

	reply := f.svc.HandleInbound(context.Background(), "+15550001111", "what's up")
	assert.Equal(t, promptDays, reply, "incomplete users stay in the onboarding machine")

	reply = f.svc.HandleInbound(context.Background(), "+15550002222", "what's up")
	assert.Equal(t, "Looking strong this week!", reply, "complete users reach the coach")
	assert.Len(t, f.chat.calls, 1, "onboarding turns never touch the chat backend")
}

func TestConversationChatOutageFallsBack(t *testing.T) {
	f := newConversationFixture()
	f.chat.err = ErrChatUnavailable
	f.users.add(models.User{
		Phone:          "+15550002222",
		Email:          "done@example.com",
		OnboardingStep: models.StepComplete,
	})

	reply := f.svc.HandleInbound(context.Background(), "+15550002222", "hello")

	assert.Equal(t, fallbackReply, reply)
}

func TestConversationCalendarExpiryAsksToReconnect(t *testing.T) {
	events := withEventBus(t)
	f := newConversationFixture(ChatTurn{ToolCalls: []ChatToolCall{
		toolCall("c1", "schedule_workout", `{"date":"2026-03-10","time":"18:00"}`),
	}})
	f.cal.listErr = ErrCalendarAuthExpired
	user := f.users.add(models.User{
		Phone:              "+15550002222",
		Email:              "done@example.com",
		OnboardingStep:     models.StepComplete,
		GoogleRefreshToken: "rt",
	})

	reply := f.svc.HandleInbound(context.Background(), "+15550002222", "book tuesday 6pm")

	assert.Equal(t, reconnectReply, reply)
	assert.Contains(t, events.kinds(user.ID), models.EventCalendarReconnect)
}

func TestConversationOnboardingTurnEndToEnd(t *testing.T) {
	f := newConversationFixture()
	f.users.add(models.User{
		Phone:          "+15550001111",
		Email:          "new@example.com",
		OnboardingStep: models.StepAwaitingDays,
	})

	reply := f.svc.HandleInbound(context.Background(), "+15550001111", "mon wed fri")
	assert.Equal(t, promptTimePref, reply)

	stored, err := f.users.ByPhone("+15550001111")
	require.NoError(t, err)
	assert.Equal(t, models.StepAwaitingTimePref, stored.OnboardingStep)
	assert.Equal(t, "mon,wed,fri", stored.PreferredDays)
}
