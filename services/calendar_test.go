package services

import (
	"strings"
	"testing"
	"time"

	"court_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHearingICS(t *testing.T) {
	scheduled := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	link := "https://meet.example.com/room-1"
	h := &models.Hearing{
		ID:          "hearing-1",
		Type:        models.HearingTypePreliminary,
		Modality:    models.HearingModalityVirtual,
		MeetingURL:  &link,
		ScheduledAt: scheduled,
		Status:      models.HearingStatusScheduled,
	}
	p := &models.Process{CaseReference: "JCC01-2026-00001", SubjectMatter: "contrato, arrendamiento"}

	icsBytes, err := GenerateHearingICS(h, p, "Juzgado 1 Civil", "juzgado1@example.com")
	require.NoError(t, err)

	ics := string(icsBytes)
	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR"))
	assert.Contains(t, ics, "UID:hearing-1")
	assert.Contains(t, ics, "DTSTART:20260309T140000Z")
	assert.Contains(t, ics, "DTEND:20260309T160000Z")
	assert.Contains(t, ics, "SUMMARY:Audiencia preliminary - JCC01-2026-00001")
	assert.Contains(t, ics, `DESCRIPTION:Proceso JCC01-2026-00001 (contrato\, arrendamiento)\nhttps://meet.example.com/room-1`)
	assert.Contains(t, ics, "LOCATION:https://meet.example.com/room-1")
	assert.Contains(t, ics, `ORGANIZER;CN="Juzgado 1 Civil":mailto:juzgado1@example.com`)
	assert.True(t, strings.HasSuffix(ics, "END:VCALENDAR\r\n"))
}

func TestGenerateHearingICSRequiresScheduledHearing(t *testing.T) {
	h := &models.Hearing{ID: "hearing-2", Status: models.HearingStatusSuspended}
	_, err := GenerateHearingICS(h, &models.Process{}, "Court", "court@example.com")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
