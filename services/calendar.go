package services

import (
	"fmt"
	"strings"
	"time"

	"court_flow_app_go/models"
)

// DefaultHearingDuration is the calendar slot given to a hearing invitation
const DefaultHearingDuration = 2 * time.Hour

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// GenerateHearingICS renders an iCalendar invitation for a scheduled hearing
func GenerateHearingICS(h *models.Hearing, p *models.Process, courtName, courtEmail string) ([]byte, error) {
	if h.Status != models.HearingStatusScheduled {
		return nil, invalidStateError("hearing %s is %s, only scheduled hearings have an invitation", h.ID, strings.ToLower(h.Status))
	}

	// ICS dates are UTC (YYYYMMDDTHHMMSSZ)
	dateFormat := "20060102T150405Z"
	dtStamp := time.Now().UTC().Format(dateFormat)
	dtStart := h.ScheduledAt.UTC().Format(dateFormat)
	dtEnd := h.ScheduledAt.Add(DefaultHearingDuration).UTC().Format(dateFormat)

	summary := fmt.Sprintf("Audiencia %s - %s", strings.ToLower(h.Type), p.CaseReference)
	description := fmt.Sprintf("Proceso %s (%s)", p.CaseReference, p.SubjectMatter)
	location := ""
	if h.MeetingURL != nil {
		location = *h.MeetingURL
		description += "\n" + *h.MeetingURL
	} else if h.Location != nil {
		location = *h.Location
	}

	const icsTemplate = "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//CourtFlow//Hearing//ES\r\n" +
		"CALSCALE:GREGORIAN\r\n" +
		"METHOD:REQUEST\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:%s\r\n" +
		"DTSTAMP:%s\r\n" +
		"DTSTART:%s\r\n" +
		"DTEND:%s\r\n" +
		"SUMMARY:%s\r\n" +
		"DESCRIPTION:%s\r\n" +
		"LOCATION:%s\r\n" +
		"ORGANIZER;CN=\"%s\":mailto:%s\r\n" +
		"STATUS:CONFIRMED\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	icsContent := fmt.Sprintf(icsTemplate,
		h.ID,
		dtStamp,
		dtStart,
		dtEnd,
		icsEscaper.Replace(summary),
		icsEscaper.Replace(description),
		icsEscaper.Replace(location),
		courtName,
		courtEmail,
	)
	return []byte(icsContent), nil
}
