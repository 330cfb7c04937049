package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	url   string
	err   error
	calls int
}

func (f *fakeExporter) PublishWeek(user *models.User, details []BookingDetail) (string, error) {
	f.calls++
	return f.url, f.err
}

type fakeMailer struct {
	sent int
	err  error
}

func (f *fakeMailer) SendWeekSummary(user *models.User, details []BookingDetail) error {
	f.sent++
	return f.err
}

type onboardingFixture struct {
	users    *memUserStore
	workouts *memWorkoutStore
	cal      *fakeCalendar
	exporter *fakeExporter
	mailer   *fakeMailer
	svc      *OnboardingService
}

func newOnboardingFixture(busy ...TimeSlot) *onboardingFixture {
	users := newMemUserStore()
	workouts := newMemWorkoutStore()
	cal := newFakeCalendar(busy...)
	sched := NewScheduleService(workouts, cal, testLogger())
	sched.now = func() time.Time { return at(testMonday, 8, 0) }
	exporter := &fakeExporter{url: "https://cdn.example.com/week.ics"}
	mailer := &fakeMailer{}
	return &onboardingFixture{
		users:    users,
		workouts: workouts,
		cal:      cal,
		exporter: exporter,
		mailer:   mailer,
		svc:      NewOnboardingService(users, sched, exporter, mailer, testLogger()),
	}
}

func (f *onboardingFixture) addUser(mutate ...func(*models.User)) *models.User {
	u := models.User{
		Email:          "sam@example.com",
		Phone:          "+15550001111",
		FullName:       "Sam",
		Goal:           models.GoalGeneralFitness,
		OnboardingStep: models.StepAwaitingDays,
	}
	for _, m := range mutate {
		m(&u)
	}
	return f.users.add(u)
}

func TestOnboardingEveryStateAnswersGarbage(t *testing.T) {
	tests := []struct {
		step      models.OnboardingStep
		wantReply string
	}{
		{models.StepAwaitingDays, promptDays},
		{models.StepAwaitingTimePref, promptTimePref},
		{models.StepVoiceOnboarding, voiceBusyReply},
		{models.StepComplete, alreadySetupNote},
	}
	for _, tt := range tests {
		t.Run(string(tt.step), func(t *testing.T) {
			f := newOnboardingFixture()
			user := f.addUser(func(u *models.User) { u.OnboardingStep = tt.step })

			reply, err := f.svc.Handle(context.Background(), user, "qwerty zxcvb 99")

			require.NoError(t, err)
			assert.Equal(t, tt.wantReply, reply)
			stored, _ := f.users.ByID(user.ID)
			assert.Equal(t, tt.step, stored.OnboardingStep, "a re-prompt must not move the cursor")
		})
	}
}

func TestOnboardingDaysAndCountTogether(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser()

	reply, err := f.svc.Handle(context.Background(), user, "Mon Wed Fri mornings, 4 days")

	require.NoError(t, err)
	assert.Equal(t, promptTimePref, reply)

	stored, _ := f.users.ByID(user.ID)
	assert.Equal(t, models.StepAwaitingTimePref, stored.OnboardingStep)
	assert.Equal(t, "mon,wed,fri", stored.PreferredDays)
	assert.Equal(t, 4, stored.DaysPerWeek)
}

func TestOnboardingCountAloneThenDays(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser()

	reply, err := f.svc.Handle(context.Background(), user, "3 days a week")
	require.NoError(t, err)
	assert.Contains(t, reply, "Got it, 3 days a week.")

	stored, _ := f.users.ByID(user.ID)
	assert.Equal(t, models.StepAwaitingDays, stored.OnboardingStep, "a bare count is not enough to advance")
	assert.Equal(t, 3, stored.DaysPerWeek)

	reply, err = f.svc.Handle(context.Background(), user, "tuesday and thursday work")
	require.NoError(t, err)
	assert.Equal(t, promptTimePref, reply)

	stored, _ = f.users.ByID(user.ID)
	assert.Equal(t, "tue,thu", stored.PreferredDays)
	assert.Equal(t, 3, stored.DaysPerWeek, "the earlier count survives the day pick")
}

func TestOnboardingFlexibleDays(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser()

	reply, err := f.svc.Handle(context.Background(), user, "any days are fine, you pick")

	require.NoError(t, err)
	assert.Equal(t, promptTimePref, reply)

	stored, _ := f.users.ByID(user.ID)
	assert.Equal(t, models.StepAwaitingTimePref, stored.OnboardingStep)
	assert.Empty(t, stored.PreferredDays)
	assert.Equal(t, 3, stored.DaysPerWeek, "flexible with no count defaults to three")
}

func TestOnboardingTimePrefAndSummary(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser(func(u *models.User) {
		u.OnboardingStep = models.StepAwaitingTimePref
		u.PreferredDays = "mon,wed,fri"
		u.DaysPerWeek = 3
	})

	reply, err := f.svc.Handle(context.Background(), user, "evenings after work")

	require.NoError(t, err)
	assert.Contains(t, reply, "Here's your plan:")
	assert.Contains(t, reply, "Mon, Wed, Fri (3x/week)")
	assert.Contains(t, reply, "evenings")
	assert.Contains(t, reply, "general fitness")
	assert.Contains(t, reply, "Reply YES to confirm")

	stored, _ := f.users.ByID(user.ID)
	assert.Equal(t, models.StepAwaitingConfirm, stored.OnboardingStep)
	assert.Equal(t, "evening", stored.TimePreference)
}

func TestOnboardingRejectedSummaryResets(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser(func(u *models.User) {
		u.OnboardingStep = models.StepAwaitingConfirm
		u.PreferredDays = "mon,wed"
		u.DaysPerWeek = 2
		u.TimePreference = "morning"
	})

	reply, err := f.svc.Handle(context.Background(), user, "Nope, start over")

	require.NoError(t, err)
	assert.Equal(t, promptRestart, reply)

	stored, _ := f.users.ByID(user.ID)
	assert.Equal(t, models.StepAwaitingDays, stored.OnboardingStep)
	assert.Equal(t, "mon,wed", stored.PreferredDays, "declared preferences stay until overwritten")
	assert.Empty(t, f.workouts.rows, "a rejected summary books nothing")
}

func TestOnboardingConfirmBooksWeek(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser(func(u *models.User) {
		u.OnboardingStep = models.StepAwaitingConfirm
		u.PreferredDays = "wed,fri"
		u.DaysPerWeek = 2
		u.TimePreference = "evening"
	})

	reply, err := f.svc.Handle(context.Background(), user, "YES")

	require.NoError(t, err)
	assert.Contains(t, reply, "You're in! I booked 2 sessions:")
	assert.Contains(t, reply, "- Full Body A: Wed Mar 4, 17:00")
	assert.Contains(t, reply, "- Full Body B: Fri Mar 6, 17:00")
	assert.Contains(t, reply, "Add them to your calendar: https://cdn.example.com/week.ics")
	assert.Contains(t, reply, "Text me anytime to reschedule, cancel, or log a workout.")

	stored, _ := f.users.ByID(user.ID)
	assert.Equal(t, models.StepComplete, stored.OnboardingStep)
	assert.Equal(t, 1, f.exporter.calls)
	assert.Equal(t, 1, f.mailer.sent)

	rows, _ := f.workouts.Upcoming(user.ID, time.Time{}, 0)
	assert.Len(t, rows, 2)

	// once complete, the machine only points at the coach loop
	reply, err = f.svc.Handle(context.Background(), user, "hi again")
	require.NoError(t, err)
	assert.Equal(t, alreadySetupNote, reply)
	rows, _ = f.workouts.Upcoming(user.ID, time.Time{}, 0)
	assert.Len(t, rows, 2, "the scheduling pass must run exactly once")
}

func TestOnboardingUnclearConfirmStillBooks(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser(func(u *models.User) {
		u.OnboardingStep = models.StepAwaitingConfirm
		u.DaysPerWeek = 3
		u.TimePreference = "morning"
	})

	reply, err := f.svc.Handle(context.Background(), user, "sounds great, let's do it")

	require.NoError(t, err)
	assert.Contains(t, reply, "You're in!")
	stored, _ := f.users.ByID(user.ID)
	assert.Equal(t, models.StepComplete, stored.OnboardingStep)
}

func TestOnboardingConnectedUserGetsNoExportLink(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser(func(u *models.User) {
		u.OnboardingStep = models.StepAwaitingConfirm
		u.DaysPerWeek = 3
		u.TimePreference = "morning"
		u.GoogleRefreshToken = "rt"
	})

	reply, err := f.svc.Handle(context.Background(), user, "yes")

	require.NoError(t, err)
	assert.NotContains(t, reply, "Add them to your calendar")
	assert.Zero(t, f.exporter.calls, "connected calendars already mirror the bookings")
}

func TestOnboardingConfirmWithNoOpenings(t *testing.T) {
	wed := testMonday.AddDate(0, 0, 2)
	f := newOnboardingFixture(TimeSlot{Start: at(wed, 6, 0), End: at(wed, 22, 0)})
	user := f.addUser(func(u *models.User) {
		u.OnboardingStep = models.StepAwaitingConfirm
		u.PreferredDays = "wed"
		u.DaysPerWeek = 1
		u.TimePreference = "morning"
	})

	reply, err := f.svc.Handle(context.Background(), user, "yes")

	require.NoError(t, err)
	assert.Contains(t, reply, "couldn't find any open slots")
	stored, _ := f.users.ByID(user.ID)
	assert.Equal(t, models.StepComplete, stored.OnboardingStep, "the user still finishes onboarding")
	assert.Zero(t, f.mailer.sent)
}

func TestOnboardingPartialWeekReportsSkips(t *testing.T) {
	fri := testMonday.AddDate(0, 0, 4)
	f := newOnboardingFixture(TimeSlot{Start: at(fri, 6, 0), End: at(fri, 22, 0)})
	user := f.addUser(func(u *models.User) {
		u.OnboardingStep = models.StepAwaitingConfirm
		u.PreferredDays = "wed,fri"
		u.DaysPerWeek = 2
		u.TimePreference = "morning"
	})

	reply, err := f.svc.Handle(context.Background(), user, "yes")

	require.NoError(t, err)
	assert.Contains(t, reply, "I booked 1 session:")
	assert.Contains(t, reply, "had no opening, skipped")
}

func TestOnboardingMailerFailureIsBestEffort(t *testing.T) {
	f := newOnboardingFixture()
	f.mailer.err = assert.AnError
	user := f.addUser(func(u *models.User) {
		u.OnboardingStep = models.StepAwaitingConfirm
		u.DaysPerWeek = 3
		u.TimePreference = "morning"
	})

	reply, err := f.svc.Handle(context.Background(), user, "yes")

	require.NoError(t, err)
	assert.Contains(t, reply, "You're in!")
}

func TestOnboardingLostRaceRereadsAndReprocesses(t *testing.T) {
	f := newOnboardingFixture()
	user := f.addUser()

	// another delivery of the same conversation already advanced the row;
	// this handler still holds the stale step
	_, err := f.users.AdvanceOnboarding(user.ID, models.StepAwaitingDays, models.StepAwaitingTimePref,
		map[string]any{"preferred_days": "mon,wed", "days_per_week": 2})
	require.NoError(t, err)

	reply, err := f.svc.Handle(context.Background(), user, "mon wed")

	require.NoError(t, err)
	assert.Equal(t, promptTimePref, reply, "the reread lands on the time question")
	assert.Equal(t, models.StepAwaitingTimePref, user.OnboardingStep, "the in-memory user is refreshed")
}

func TestWelcomeMessage(t *testing.T) {
	named := &models.User{FullName: "Sam"}
	assert.Contains(t, WelcomeMessage(named), "Hey Sam, I'm GymBuddy")
	assert.Contains(t, WelcomeMessage(named), "Which days of the week")

	anon := &models.User{}
	assert.Contains(t, WelcomeMessage(anon), "Hey, I'm GymBuddy")
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Mon Wed Fri", []string{"mon", "wed", "fri"}},
		{"Mondays and Wednesdays", []string{"mon", "wed"}},
		{"tuesday, thursday", []string{"tue", "thu"}},
		{"tues and thurs", []string{"tue", "thu"}},
		{"Saturday + Sunday", []string{"sat", "sun"}},
		{"fri then mon", []string{"mon", "fri"}}, // canonical Monday-first order
		{"whenever", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseWeekdays(tt.in))
		})
	}
}

func TestParseDayCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3 days a week", 3},
		{"three times a week", 3},
		{"twice a week", 2},
		{"4x", 4},
		{"I'll do 5", 5},
		{"once a week", 1},
		{"around 4 pm", 0}, // clock digits are not counts
		{"at 6 am", 0},
		{"9 days", 0}, // out of range
		{"no numbers here", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDayCount(tt.in))
		})
	}
}

func TestClassifyTimePref(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mornings", "morning"},
		{"early, before work", "morning"},
		{"6 am", "morning"},
		{"around noon", "afternoon"},
		{"lunchtime", "afternoon"},
		{"evenings", "evening"},
		{"after work", "evening"},
		{"7 pm", "evening"},
		{"late", "evening"},
		{"mon wed fri", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTimePref(tt.in))
		})
	}
}

func TestConfirmPatterns(t *testing.T) {
	for _, s := range []string{"no", "Nope!", "nah", "restart", "start over", "that's wrong", "cancel"} {
		assert.True(t, negativeRe.MatchString(s), "%q should read as a rejection", s)
	}
	for _, s := range []string{"yes", "yep", "sure", "sounds good", "know what, fine"} {
		assert.False(t, negativeRe.MatchString(s), "%q should not read as a rejection", s)
	}

	for _, s := range []string{"any days", "anytime", "whenever", "flexible", "no preference", "you pick", "doesn't matter"} {
		assert.True(t, noPreferenceRe.MatchString(s), "%q should read as flexible", s)
	}
	assert.False(t, noPreferenceRe.MatchString("mon and wed"))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "mon  wed   fri 3x don't", normalizeText("Mon, Wed & Fri 3x DON'T"))
	assert.Equal(t, []string{"3", "days"}, strings.Fields(normalizeText("3 DAYS!!")))
}
