package services

import (
	"context"
	"errors"

	"github.com/ethan-ignatius/gymbuddy/models"

	"go.uber.org/zap"
)

const (
	unknownUserReply = "Hi! I don't recognize this number yet. Create your GymBuddy account first and I'll take it from there."
	reconnectReply   = "I've lost access to your Google Calendar, so I can't touch your schedule right now. Open your calendar connect link to re-authorize, then text me again."
	fallbackReply    = "Sorry, I'm having trouble on my end right now. Give me a few minutes and try again."
)

// ConversationService routes each inbound text to the onboarding machine or
// the coach, depending on where the sender stands. It always produces a
// reply string; internal failures degrade to static copy rather than
// surfacing errors to a phone.
type ConversationService struct {
	users      UserStore
	onboarding *OnboardingService
	coach      *CoachService
	log        *zap.SugaredLogger
}

func NewConversationService(users UserStore, onboarding *OnboardingService, coach *CoachService, log *zap.SugaredLogger) *ConversationService {
	return &ConversationService{users: users, onboarding: onboarding, coach: coach, log: log}
}

func (s *ConversationService) HandleInbound(ctx context.Context, phone, body string) string {
	user, err := s.users.ByPhone(phone)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.log.Infow("inbound from unknown number", "phone", phone)
			return unknownUserReply
		}
		s.log.Errorw("user lookup failed", "phone", phone, "error", err)
		return fallbackReply
	}

	var reply string
	if user.OnboardingStep != models.StepComplete {
		reply, err = s.onboarding.Handle(ctx, user, body)
	} else {
		reply, err = s.coach.Handle(ctx, user, body)
	}

	switch {
	case err == nil:
		return reply
	case errors.Is(err, ErrCalendarAuthExpired):
		EmitScheduleEvent(user.ID, models.EventCalendarReconnect, "Google Calendar authorization expired; user asked to reconnect.")
		s.log.Warnw("calendar auth expired", "user_id", user.ID)
		return reconnectReply
	case errors.Is(err, ErrChatUnavailable):
		s.log.Warnw("chat backend unavailable", "user_id", user.ID)
		return fallbackReply
	default:
		s.log.Errorw("conversation turn failed",
			"user_id", user.ID, "step", user.OnboardingStep, "error", err)
		return fallbackReply
	}
}
