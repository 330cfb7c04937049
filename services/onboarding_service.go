package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethan-ignatius/gymbuddy/models"

	"go.uber.org/zap"
)

// Replies the state machine hands back. Every reachable state answers every
// input, worst case with its own re-prompt.
const (
	promptDays = "Let's get you set up! Which days of the week do you want to train? " +
		"You can name days (\"Mon Wed Fri\"), a count (\"3 days a week\"), or both."
	promptDaysAfterCount = "Which days work best for you? Name them (\"Mon Wed Fri\") " +
		"or say \"any days\" and I'll space them out."
	promptTimePref   = "Do you prefer morning, afternoon, or evening workouts?"
	promptRestart    = "No problem, let's start over. Which days of the week do you want to train?"
	voiceBusyReply   = "We're on a call right now. Let's finish setting up there!"
	alreadySetupNote = "You're all set up! Text me to schedule, reschedule, cancel, or log a workout."
)

// ScheduleExporter publishes a booked week as a shareable calendar file.
// Stub-calendar users get the link since nothing external mirrors their
// bookings.
type ScheduleExporter interface {
	PublishWeek(user *models.User, details []BookingDetail) (string, error)
}

// WeekMailer emails the booked week after a successful pass.
type WeekMailer interface {
	SendWeekSummary(user *models.User, details []BookingDetail) error
}

// OnboardingService walks a new user to a confirmed weekly schedule:
// awaiting_days, awaiting_time_pref, awaiting_confirm, then complete. The
// step cursor only moves forward, except the explicit reset on a rejected
// summary. Cursor writes are conditional on the step the message was read
// under; losing that race means reread and reprocess, never an error reply.
type OnboardingService struct {
	users    UserStore
	sched    *ScheduleService
	exporter ScheduleExporter
	mailer   WeekMailer
	log      *zap.SugaredLogger
}

func NewOnboardingService(users UserStore, sched *ScheduleService, exporter ScheduleExporter, mailer WeekMailer, log *zap.SugaredLogger) *OnboardingService {
	return &OnboardingService{users: users, sched: sched, exporter: exporter, mailer: mailer, log: log}
}

// WelcomeMessage greets a freshly provisioned user and asks the first
// onboarding question.
func WelcomeMessage(user *models.User) string {
	if user.FullName != "" {
		return fmt.Sprintf("Hey %s, I'm GymBuddy, your training sidekick! %s", user.FullName, promptDays)
	}
	return "Hey, I'm GymBuddy, your training sidekick! " + promptDays
}

// Handle runs one inbound message through the machine and returns the
// single outbound reply.
func (s *OnboardingService) Handle(ctx context.Context, user *models.User, text string) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		reply, lostRace, err := s.step(ctx, user, text)
		if err != nil {
			return "", err
		}
		if !lostRace {
			return reply, nil
		}
		fresh, err := s.users.ByID(user.ID)
		if err != nil {
			return "", err
		}
		*user = *fresh
	}
	return s.promptFor(user.OnboardingStep), nil
}

func (s *OnboardingService) step(ctx context.Context, user *models.User, text string) (reply string, lostRace bool, err error) {
	switch user.OnboardingStep {
	case models.StepAwaitingDays:
		return s.stepDays(user, text)
	case models.StepAwaitingTimePref:
		return s.stepTimePref(user, text)
	case models.StepAwaitingConfirm:
		return s.stepConfirm(ctx, user, text)
	case models.StepVoiceOnboarding:
		// an outbound call owns the conversation; texts get deflected
		return voiceBusyReply, false, nil
	default: // StepComplete: the router diverts these to the coach loop
		return alreadySetupNote, false, nil
	}
}

func (s *OnboardingService) promptFor(step models.OnboardingStep) string {
	switch step {
	case models.StepAwaitingTimePref:
		return promptTimePref
	case models.StepAwaitingConfirm:
		return promptTimePref // summary needs fresh prefs; re-ask is the safe re-prompt
	case models.StepComplete:
		return alreadySetupNote
	default:
		return promptDays
	}
}

func (s *OnboardingService) stepDays(user *models.User, text string) (string, bool, error) {
	days := parseWeekdays(text)
	count := parseDayCount(text)
	flexible := noPreferenceRe.MatchString(text)

	advance := func(set map[string]any) (string, bool, error) {
		ok, err := s.users.AdvanceOnboarding(user.ID, models.StepAwaitingDays, models.StepAwaitingTimePref, set)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", true, nil
		}
		user.OnboardingStep = models.StepAwaitingTimePref
		return promptTimePref, false, nil
	}

	switch {
	case len(days) > 0:
		if count == 0 {
			// keep a count declared on an earlier turn
			count = user.DaysPerWeek
		}
		if count == 0 {
			count = len(days)
		}
		csv := strings.Join(days, ",")
		user.PreferredDays = csv
		user.DaysPerWeek = count
		return advance(map[string]any{"preferred_days": csv, "days_per_week": count})

	case flexible:
		if count == 0 {
			count = user.DaysPerWeek
		}
		if count == 0 {
			count = 3
		}
		user.PreferredDays = ""
		user.DaysPerWeek = count
		return advance(map[string]any{"preferred_days": "", "days_per_week": count})

	case count > 0:
		// a count alone is progress but not enough to place sessions
		ok, err := s.users.AdvanceOnboarding(user.ID, models.StepAwaitingDays, models.StepAwaitingDays,
			map[string]any{"days_per_week": count})
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", true, nil
		}
		user.DaysPerWeek = count
		return fmt.Sprintf("Got it, %d days a week. %s", count, promptDaysAfterCount), false, nil

	default:
		return promptDays, false, nil
	}
}

func (s *OnboardingService) stepTimePref(user *models.User, text string) (string, bool, error) {
	pref := classifyTimePref(text)
	if pref == "" {
		return promptTimePref, false, nil
	}

	ok, err := s.users.AdvanceOnboarding(user.ID, models.StepAwaitingTimePref, models.StepAwaitingConfirm,
		map[string]any{"time_preference": pref})
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", true, nil
	}
	user.TimePreference = pref
	user.OnboardingStep = models.StepAwaitingConfirm
	return confirmSummary(user), false, nil
}

func (s *OnboardingService) stepConfirm(ctx context.Context, user *models.User, text string) (string, bool, error) {
	if negativeRe.MatchString(text) {
		// reset to the first step; already-declared preferences stay until
		// the user overwrites them
		ok, err := s.users.AdvanceOnboarding(user.ID, models.StepAwaitingConfirm, models.StepAwaitingDays, nil)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", true, nil
		}
		user.OnboardingStep = models.StepAwaitingDays
		return promptRestart, false, nil
	}

	// anything that is not a clear rejection confirms; only the CAS winner
	// runs the scheduling pass
	ok, err := s.users.AdvanceOnboarding(user.ID, models.StepAwaitingConfirm, models.StepComplete, nil)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", true, nil
	}
	user.OnboardingStep = models.StepComplete

	result, err := s.sched.ScheduleWeek(ctx, user, models.PlanForGoal(user.Goal))
	if err != nil {
		return "", false, err
	}
	return s.bookingReport(user, result), false, nil
}

// bookingReport turns a pass result into the confirmation text, attaching
// the calendar file link for stub-mode users and mailing the summary when a
// mailer is wired. Both extras are best effort.
func (s *OnboardingService) bookingReport(user *models.User, result *WeekResult) string {
	if result.ScheduledCount == 0 {
		return "You're all set up, but I couldn't find any open slots around your calendar this week. " +
			"Sorry about that! Text me a day and time and I'll fit a session in."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You're in! I booked %d session", result.ScheduledCount)
	if result.ScheduledCount != 1 {
		b.WriteString("s")
	}
	b.WriteString(":\n")
	for _, d := range result.Details {
		if !d.Booked {
			fmt.Fprintf(&b, "- %s: %s had no opening, skipped\n", d.BlockName, d.Date.Format("Mon Jan 2"))
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", d.BlockName, d.Start.Format("Mon Jan 2, 15:04"))
	}

	if s.exporter != nil && !user.CalendarConnected() {
		if url, err := s.exporter.PublishWeek(user, result.Details); err != nil {
			s.log.Warnw("schedule export failed", "user_id", user.ID, "error", err)
		} else if url != "" {
			fmt.Fprintf(&b, "Add them to your calendar: %s\n", url)
		}
	}
	if s.mailer != nil && user.Email != "" {
		if err := s.mailer.SendWeekSummary(user, result.Details); err != nil {
			s.log.Warnw("summary email failed", "user_id", user.ID, "error", err)
		}
	}

	b.WriteString("Text me anytime to reschedule, cancel, or log a workout.")
	return b.String()
}

func confirmSummary(user *models.User) string {
	var days string
	if user.PreferredDays != "" {
		days = fmt.Sprintf("%s (%dx/week)", prettyDays(user.PreferredDays), user.DaysPerWeek)
	} else {
		days = fmt.Sprintf("%dx/week, spaced out for you", user.DaysPerWeek)
	}
	goal := strings.ReplaceAll(string(user.Goal), "_", " ")
	return fmt.Sprintf(
		"Here's your plan:\n- Days: %s\n- Time: %ss\n- Goal: %s\nReply YES to confirm and I'll book your week, or NO to start over.",
		days, user.TimePreference, goal)
}

func prettyDays(csv string) string {
	parts := strings.Split(csv, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, ", ")
}

// ---------- free-text parsers ----------
//
// Keyword rules over normalized text, one pattern per meaning. Parse
// failures never surface; the machine re-prompts instead.

var weekdayRules = []struct {
	token string
	re    *regexp.Regexp
}{
	{"mon", regexp.MustCompile(`(?i)\bmon(day)?s?\b`)},
	{"tue", regexp.MustCompile(`(?i)\btue(s|sday)?s?\b`)},
	{"wed", regexp.MustCompile(`(?i)\bwed(nesday)?s?\b`)},
	{"thu", regexp.MustCompile(`(?i)\bthu(r|rs|rsday)?s?\b`)},
	{"fri", regexp.MustCompile(`(?i)\bfri(day)?s?\b`)},
	{"sat", regexp.MustCompile(`(?i)\bsat(urday)?s?\b`)},
	{"sun", regexp.MustCompile(`(?i)\bsun(day)?s?\b`)},
}

// parseWeekdays extracts named weekdays as canonical csv tokens in
// Monday-first order.
func parseWeekdays(text string) []string {
	var out []string
	for _, rule := range weekdayRules {
		if rule.re.MatchString(text) {
			out = append(out, rule.token)
		}
	}
	return out
}

var countWords = map[string]int{
	"one": 1, "once": 1,
	"two": 2, "twice": 2,
	"three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
}

// parseDayCount finds a per-week session count between 1 and 7. Digits
// attached to a clock context ("4 pm") do not count.
func parseDayCount(text string) int {
	fields := strings.Fields(normalizeText(text))
	for i, f := range fields {
		n := countWords[f]
		if n == 0 && len(f) == 1 && f[0] >= '1' && f[0] <= '7' {
			n = int(f[0] - '0')
		}
		if n == 0 && len(f) == 2 && f[1] == 'x' && f[0] >= '1' && f[0] <= '7' {
			n = int(f[0] - '0')
		}
		if n == 0 {
			continue
		}
		if i+1 < len(fields) && (fields[i+1] == "am" || fields[i+1] == "pm" || fields[i+1] == "oclock") {
			continue
		}
		return n
	}
	return 0
}

var timePrefRules = []struct {
	pref string
	re   *regexp.Regexp
}{
	{"morning", regexp.MustCompile(`(?i)\b(morning|mornings|sunrise|dawn|early|before\s*work)\b|[0-9]\s*a\.?m\b|\bam\b`)},
	{"afternoon", regexp.MustCompile(`(?i)\b(afternoon|afternoons|noon|midday|mid\s*day|lunch|lunchtime)\b`)},
	{"evening", regexp.MustCompile(`(?i)\b(evening|evenings|night|nights|tonight|late|after\s*work)\b|[0-9]\s*p\.?m\b|\bpm\b`)},
}

// classifyTimePref maps free text onto the closed preference set, or ""
// when nothing matches.
func classifyTimePref(text string) string {
	for _, rule := range timePrefRules {
		if rule.re.MatchString(text) {
			return rule.pref
		}
	}
	return ""
}

var (
	negativeRe     = regexp.MustCompile(`(?i)\b(no|nope|nah|wrong|incorrect|restart|start\s*over|redo|change|cancel|don'?t|stop)\b`)
	noPreferenceRe = regexp.MustCompile(`(?i)\b(any\s+days?|anytime|any\s+time|whenever|flexible|no\s*preference|you\s*(pick|choose|decide)|doesn'?t\s*matter|surprise\s*me|skip)\b`)
)

// normalizeText lowercases and flattens punctuation so token scans see
// clean word boundaries.
func normalizeText(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			return r
		default:
			return ' '
		}
	}, text)
}
