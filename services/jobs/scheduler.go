package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"court_flow_app_go/config"
	"court_flow_app_go/services"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Default schedules, in the court's time zone
const (
	OutboxDrainSpec     = "*/5 * * * *"
	SessionCleanupSpec  = "0 * * * *"
	HolidayReloadSpec   = "30 0 * * *"
	HearingReminderSpec = "0 7 * * *"
)

// StartScheduler registers the periodic jobs and starts the cron runner.
// The caller stops it on shutdown.
func StartScheduler(database *gorm.DB, cfg *config.Config, wf *services.Workflow) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(wf.Calendar.Location()))

	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{cfg.DeadlineSweepCron, "deadline sweep", func() { SweepDeadlines(wf, time.Now()) }},
		{OutboxDrainSpec, "outbox drain", func() { DrainOutbox(wf) }},
		{SessionCleanupSpec, "session cleanup", func() { CleanupSessions(database) }},
		{HolidayReloadSpec, "holiday reload", func() { ReloadHolidays(database, wf.Calendar) }},
		{HearingReminderSpec, "hearing reminders", func() {
			if _, err := SendHearingReminders(database, wf.Notifier, wf.Calendar.Location(), time.Now()); err != nil {
				log.Printf("[JOB] Hearing reminders failed: %v", err)
			}
		}},
	}
	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(job.spec, func() {
			log.Printf("[CRON] Running %s", job.name)
			job.run()
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	c.Start()
	log.Printf("[CRON] Scheduler started with %d jobs (%s)", len(jobs), wf.Calendar.Location())
	return c, nil
}

// SweepDeadlines flags terms that lapsed before asOf
func SweepDeadlines(wf *services.Workflow, asOf time.Time) int {
	n, err := wf.Deadlines.Sweep(context.Background(), asOf)
	if err != nil {
		log.Printf("[JOB] Deadline sweep failed: %v", err)
		return 0
	}
	log.Printf("[JOB] Deadline sweep flagged %d terms", n)
	return n
}

// DrainOutbox delivers notification jobs the worker has not picked up
func DrainOutbox(wf *services.Workflow) int {
	n, err := wf.Notifier.Drain(context.Background())
	if err != nil {
		log.Printf("[JOB] Outbox drain failed: %v", err)
	}
	return n
}

// CleanupSessions removes expired sessions
func CleanupSessions(database *gorm.DB) {
	if err := services.CleanupExpiredSessions(database); err != nil {
		log.Printf("[JOB] Session cleanup failed: %v", err)
	}
}

// ReloadHolidays picks up holidays added to the court_holidays table
func ReloadHolidays(database *gorm.DB, calendar *services.BusinessCalendar) {
	n, err := calendar.LoadHolidays(database)
	if err != nil {
		log.Printf("[JOB] Holiday reload failed: %v", err)
		return
	}
	log.Printf("[JOB] Loaded %d court holidays", n)
}
