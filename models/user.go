package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Goal string

const (
	GoalBuildMuscle    Goal = "build_muscle"
	GoalLoseWeight     Goal = "lose_weight"
	GoalGeneralFitness Goal = "general_fitness"
)

// OnboardingStep only moves forward, or resets to StepAwaitingDays when the
// user rejects the confirmation summary. It never skips StepAwaitingConfirm.
type OnboardingStep string

const (
	StepAwaitingDays     OnboardingStep = "awaiting_days"
	StepAwaitingTimePref OnboardingStep = "awaiting_time_pref"
	StepAwaitingConfirm  OnboardingStep = "awaiting_confirm"
	StepComplete         OnboardingStep = "complete"
	StepVoiceOnboarding  OnboardingStep = "voice_onboarding" // an outbound call owns the conversation
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Phone    string `gorm:"uniqueIndex;not null"`
	FullName string

	HeightCm float64
	WeightKg float64
	Goal     Goal `gorm:"size:30;default:general_fitness"`

	TravelMinutes  int    // one-way travel to the gym
	PreferredDays  string `gorm:"size:60"` // csv of short weekday tokens, e.g. "mon,wed,fri"
	DaysPerWeek    int
	TimePreference string `gorm:"size:20"` // "morning" | "afternoon" | "evening"

	OnboardingStep OnboardingStep `gorm:"size:30;default:awaiting_days;not null"`

	// Google credential pair. Empty refresh token means the user never
	// connected a calendar and scheduling runs in stub mode. Never
	// serialized.
	GoogleAccessToken  string    `json:"-"`
	GoogleRefreshToken string    `json:"-"`
	GoogleTokenExpiry  time.Time `json:"-"`
}

func (u *User) CalendarConnected() bool {
	return u.GoogleRefreshToken != ""
}

func (u *User) TravelDuration() time.Duration {
	return time.Duration(u.TravelMinutes) * time.Minute
}

var weekdayTokens = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// PreferredWeekdays decodes the PreferredDays csv. Unknown tokens are
// dropped rather than erroring; the column is only ever written by the
// onboarding parser, which emits canonical tokens.
func (u *User) PreferredWeekdays() []time.Weekday {
	if u.PreferredDays == "" {
		return nil
	}
	var days []time.Weekday
	for _, tok := range strings.Split(u.PreferredDays, ",") {
		if d, ok := weekdayTokens[strings.TrimSpace(tok)]; ok {
			days = append(days, d)
		}
	}
	return days
}
