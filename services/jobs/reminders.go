package jobs

import (
	"fmt"
	"log"
	"strings"
	"time"

	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"gorm.io/gorm"
)

// SendHearingReminders notifies the participants of scheduled hearings that
// take place tomorrow in loc. Each hearing is reminded once.
func SendHearingReminders(database *gorm.DB, notifier *services.NotificationDispatcher, loc *time.Location, now time.Time) (int, error) {
	local := now.In(loc)
	tomorrowStart := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	tomorrowEnd := tomorrowStart.AddDate(0, 0, 1)

	var hearings []models.Hearing
	err := database.
		Where("status = ?", models.HearingStatusScheduled).
		Where("scheduled_at >= ? AND scheduled_at < ?", tomorrowStart.UTC(), tomorrowEnd.UTC()).
		Where("reminder_sent_at IS NULL").
		Order("scheduled_at ASC").
		Find(&hearings).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list hearings for reminders: %w", err)
	}

	log.Printf("[JOB] Found %d hearings to remind", len(hearings))

	sent := 0
	for _, h := range hearings {
		claimed := false
		err := database.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Hearing{}).
				Where("id = ? AND reminder_sent_at IS NULL", h.ID).
				Update("reminder_sent_at", now)
			if res.Error != nil || res.RowsAffected == 0 {
				return res.Error
			}
			claimed = true

			var p models.Process
			if err := tx.First(&p, "id = ?", h.ProcessID).Error; err != nil {
				return err
			}
			return notifier.Enqueue(tx, services.NotificationRequest{
				ProcessID:  p.ID,
				Recipients: append(p.RepresentativeIDs(), p.PresidingOfficerID),
				Category:   models.NotificationCategoryHearing,
				TitleKey:   "notifications.hearing.reminder.title",
				MessageKey: "notifications.hearing.reminder.message",
				Params: map[string]interface{}{
					"case_reference": p.CaseReference,
					"scheduled_at":   h.ScheduledAt.In(loc).Format("2006-01-02 15:04"),
					"modality":       strings.ToLower(h.Modality),
				},
				ActionRef: "/processes/" + p.ID,
			})
		})
		if err != nil {
			log.Printf("[JOB] Failed to remind hearing %s: %v", h.ID, err)
			continue
		}
		if claimed {
			sent++
		}
	}

	if sent > 0 {
		notifier.Kick()
	}
	log.Printf("[JOB] Hearing reminder job completed (%d sent)", sent)
	return sent, nil
}
