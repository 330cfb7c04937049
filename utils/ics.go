package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ICSEvent is one VEVENT worth of data for an iCalendar export.
type ICSEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

const icsStampLayout = "20060102T150405Z"

// BuildICS renders an RFC 5545 calendar document for the given events.
// Importing apps key on UID for dedup, so every call mints fresh ones; the
// export is a snapshot, not a sync feed.
func BuildICS(calendarName string, events []ICSEvent) string {
	stamp := time.Now().UTC().Format(icsStampLayout)

	var b strings.Builder
	writeICSLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	writeICSLine("BEGIN:VCALENDAR")
	writeICSLine("VERSION:2.0")
	writeICSLine("PRODID:-//GymBuddy//Schedule Export//EN")
	writeICSLine("CALSCALE:GREGORIAN")
	writeICSLine("METHOD:PUBLISH")
	writeICSLine("X-WR-CALNAME:" + escapeICSText(calendarName))

	for _, ev := range events {
		writeICSLine("BEGIN:VEVENT")
		writeICSLine("UID:" + uuid.NewString() + "@gymbuddy")
		writeICSLine("DTSTAMP:" + stamp)
		writeICSLine("DTSTART:" + ev.Start.UTC().Format(icsStampLayout))
		writeICSLine("DTEND:" + ev.End.UTC().Format(icsStampLayout))
		writeICSLine("SUMMARY:" + escapeICSText(ev.Title))
		if ev.Description != "" {
			writeICSLine("DESCRIPTION:" + escapeICSText(ev.Description))
		}
		writeICSLine("END:VEVENT")
	}

	writeICSLine("END:VCALENDAR")
	return b.String()
}

// escapeICSText applies RFC 5545 TEXT escaping.
func escapeICSText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\r\n", `\n`,
		"\n", `\n`,
	)
	return r.Replace(s)
}
