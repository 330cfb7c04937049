package services

import (
	"fmt"
	"strings"

	"github.com/ethan-ignatius/gymbuddy/models"
	"github.com/ethan-ignatius/gymbuddy/utils"

	"github.com/google/uuid"
)

// ICSExporter publishes a booked week as a downloadable .ics file. It is
// the stub-calendar counterpart of the Google mirror: users without a
// connected calendar still get something they can import.
type ICSExporter struct{}

func (ICSExporter) PublishWeek(user *models.User, details []BookingDetail) (string, error) {
	events := make([]utils.ICSEvent, 0, len(details))
	for _, d := range details {
		if !d.Booked {
			continue
		}
		events = append(events, utils.ICSEvent{
			Title:       d.BlockName + " (GymBuddy)",
			Description: "Booked by your GymBuddy coach.",
			Start:       d.Start,
			End:         d.End,
		})
	}
	if len(events) == 0 {
		return "", fmt.Errorf("no booked sessions to export")
	}

	body := utils.BuildICS("GymBuddy Workouts", events)
	key := fmt.Sprintf("schedules/user-%d-%s.ics", user.ID, uuid.NewString())
	url, err := utils.UploadTextObject(key, body, "text/calendar")
	if err != nil {
		return "", fmt.Errorf("failed to publish schedule export: %w", err)
	}
	return url, nil
}

// SESMailer sends the booked week as a plain-text summary email.
type SESMailer struct{}

func (SESMailer) SendWeekSummary(user *models.User, details []BookingDetail) error {
	var b strings.Builder
	for _, d := range details {
		if d.Booked {
			fmt.Fprintf(&b, "- %s: %s %s-%s\n",
				d.BlockName, d.Start.Format("Mon Jan 2"), d.Start.Format("15:04"), d.End.Format("15:04"))
		} else {
			fmt.Fprintf(&b, "- %s: skipped, no free slot\n", d.Date.Format("Mon Jan 2"))
		}
	}
	return utils.SendScheduleEmail(user.Email, user.FullName, b.String())
}
