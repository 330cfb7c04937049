package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildICS(t *testing.T) {
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	events := []ICSEvent{
		{Title: "Push Day (GymBuddy)", Description: "Focus: chest\n- Bench 4x8", Start: start, End: start.Add(time.Hour)},
		{Title: "Pull Day (GymBuddy)", Start: start.AddDate(0, 0, 2), End: start.AddDate(0, 0, 2).Add(time.Hour)},
	}

	ics := BuildICS("GymBuddy Schedule", events)

	lines := strings.Split(ics, "\r\n")
	require.Greater(t, len(lines), 10, "every line ends with CRLF")
	assert.Equal(t, "BEGIN:VCALENDAR", lines[0])
	assert.Equal(t, "", lines[len(lines)-1], "document ends with a final CRLF")
	assert.Equal(t, "END:VCALENDAR", lines[len(lines)-2])

	assert.Equal(t, 2, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(ics, "END:VEVENT"))
	assert.Equal(t, 2, strings.Count(ics, "@gymbuddy"))

	assert.Contains(t, ics, "X-WR-CALNAME:GymBuddy Schedule")
	assert.Contains(t, ics, "DTSTART:20260309T090000Z")
	assert.Contains(t, ics, "DTEND:20260309T100000Z")
	assert.Contains(t, ics, "SUMMARY:Push Day (GymBuddy)")
	assert.Contains(t, ics, `DESCRIPTION:Focus: chest\n- Bench 4x8`)

	// UIDs are fresh per call
	again := BuildICS("GymBuddy Schedule", events[:1])
	uidOf := func(doc string) string {
		for _, l := range strings.Split(doc, "\r\n") {
			if strings.HasPrefix(l, "UID:") {
				return l
			}
		}
		return ""
	}
	assert.NotEqual(t, uidOf(ics), uidOf(again))
	assert.NotEmpty(t, uidOf(ics))
}

func TestBuildICSEscapesText(t *testing.T) {
	ev := ICSEvent{
		Title: "Legs; heavy, maybe",
		Start: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
	}

	ics := BuildICS("cal", []ICSEvent{ev})

	assert.Contains(t, ics, `SUMMARY:Legs\; heavy\, maybe`)
}

func TestEscapeICSText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a;b", `a\;b`},
		{"a,b", `a\,b`},
		{"a\nb", `a\nb`},
		{"a\r\nb", `a\nb`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeICSText(tt.in))
	}
}
