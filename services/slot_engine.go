package services

import (
	"sort"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"
)

// Sessions are a fixed hour, offered on a half-hour grid.
const (
	SessionLength = 60 * time.Minute
	slotGrid      = 30 * time.Minute
)

// TimeSlot is a half-open interval [Start, End). It doubles as a busy
// interval: a real calendar event, a persisted workout, or a slot already
// claimed earlier in the same scheduling pass.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && s.End.After(o.Start)
}

// Inflate widens the slot by the travel buffer on both ends.
func (s TimeSlot) Inflate(travel time.Duration) TimeSlot {
	if travel <= 0 {
		return s
	}
	return TimeSlot{Start: s.Start.Add(-travel), End: s.End.Add(travel)}
}

// DayWindow bounds the bookable hours of a single day, [StartHour, EndHour)
// in the day's own location.
type DayWindow struct {
	StartHour int
	EndHour   int
}

var DefaultDayWindow = DayWindow{StartHour: 6, EndHour: 21}

// FindFreeSlots enumerates session candidates inside the window on the
// half-hour grid and keeps those whose travel-inflated interval overlaps no
// busy interval. Output is chronological. An empty result is a valid
// answer, not an error: a fully booked day simply has no openings.
func FindFreeSlots(day time.Time, busy []TimeSlot, travel time.Duration, window DayWindow) []TimeSlot {
	if window.EndHour <= window.StartHour {
		window = DefaultDayWindow
	}
	year, month, dom := day.Date()
	loc := day.Location()
	first := time.Date(year, month, dom, window.StartHour, 0, 0, 0, loc)
	last := time.Date(year, month, dom, window.EndHour, 0, 0, 0, loc)

	var free []TimeSlot
	for start := first; !start.Add(SessionLength).After(last); start = start.Add(slotGrid) {
		cand := TimeSlot{Start: start, End: start.Add(SessionLength)}
		if !SlotConflicts(cand, busy, travel) {
			free = append(free, cand)
		}
	}
	return free
}

// SlotConflicts reports whether the travel-inflated slot overlaps any busy
// interval. Both the onboarding pass and the chat tools go through this
// one check.
func SlotConflicts(slot TimeSlot, busy []TimeSlot, travel time.Duration) bool {
	inflated := slot.Inflate(travel)
	for _, b := range busy {
		if inflated.Overlaps(b) {
			return true
		}
	}
	return false
}

// Hour bands for slot selection, [from, to) on the candidate's start hour.
var prefBands = map[string][2]int{
	"morning":   {6, 12},
	"afternoon": {12, 17},
	"evening":   {17, 21},
}

// PickSlot chooses one candidate. The user's declared time preference wins
// when any candidate starts inside its band; otherwise selection falls back
// to the fixed tie-break bands (mid-morning, then late afternoon, then the
// first candidate overall). Nil means no candidates were offered.
func PickSlot(candidates []TimeSlot, timePref string) *TimeSlot {
	if len(candidates) == 0 {
		return nil
	}
	if band, ok := prefBands[timePref]; ok {
		if s := firstInBand(candidates, band[0], band[1]); s != nil {
			return s
		}
	}
	if s := firstInBand(candidates, 9, 11); s != nil {
		return s
	}
	if s := firstInBand(candidates, 16, 19); s != nil {
		return s
	}
	out := candidates[0]
	return &out
}

func firstInBand(candidates []TimeSlot, fromHour, toHour int) *TimeSlot {
	for _, c := range candidates {
		if h := c.Start.Hour(); h >= fromHour && h < toHour {
			out := c
			return &out
		}
	}
	return nil
}

// TargetDates resolves the dates of one weekly pass, midnight-anchored and
// sorted. Declared weekdays map to their next occurrence strictly after
// now's date. Without declared days the pass spreads DaysPerWeek sessions
// from next Monday, 7/DaysPerWeek days apart.
func TargetDates(user *models.User, now time.Time) []time.Time {
	if days := user.PreferredWeekdays(); len(days) > 0 {
		dates := make([]time.Time, 0, len(days))
		for _, wd := range days {
			dates = append(dates, nextWeekday(now, wd))
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		return dates
	}

	n := user.DaysPerWeek
	if n <= 0 {
		n = 3
	}
	if n > 7 {
		n = 7
	}
	stride := 7 / n
	if stride < 1 {
		stride = 1
	}
	start := nextWeekday(now, time.Monday)
	dates := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, start.AddDate(0, 0, i*stride))
	}
	return dates
}

// nextWeekday returns the next occurrence of wd strictly after now's date,
// at local midnight.
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	delta := (int(wd) - int(today.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}
