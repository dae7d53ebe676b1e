package jobs

import (
	"testing"
	"time"

	"court_flow_app_go/config"
	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepDeadlinesAndDrain(t *testing.T) {
	database := setupJobsTestDB(t)
	calendar := services.NewBusinessCalendar(time.UTC, nil)
	wf := services.NewWorkflow(database, calendar)
	p := seedJobsProcess(t, database)

	d := models.Deadline{
		ProcessID:    p.ID,
		Category:     models.DeadlineCategoryJudgment,
		StartDate:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ExpiresOn:    time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC),
		BusinessDays: 20,
		Assignee:     models.AssigneePresidingOfficer,
		Status:       models.DeadlineStatusActive,
	}
	require.NoError(t, database.Create(&d).Error)

	assert.Equal(t, 0, SweepDeadlines(wf, time.Date(2026, 3, 30, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, SweepDeadlines(wf, time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, 1, DrainOutbox(wf))
	var n models.Notification
	require.NoError(t, database.Where("user_id = ?", p.PresidingOfficerID).First(&n).Error)
	assert.Equal(t, models.NotificationCategoryDeadline, n.Category)
	assert.Contains(t, n.Message, p.CaseReference)
}

func TestReloadHolidays(t *testing.T) {
	database := setupJobsTestDB(t)
	calendar := services.NewBusinessCalendar(time.UTC, nil)
	require.NoError(t, database.Create(&models.CourtHoliday{Date: time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC), Description: "San José"}).Error)

	ReloadHolidays(database, calendar)
	assert.Equal(t, []string{"2026-03-23"}, calendar.Holidays())
	assert.False(t, calendar.IsBusinessDay(time.Date(2026, 3, 23, 12, 0, 0, 0, time.UTC)))
}

func TestStartSchedulerRejectsInvalidSpec(t *testing.T) {
	database := setupJobsTestDB(t)
	wf := services.NewWorkflow(database, services.NewBusinessCalendar(time.UTC, nil))

	_, err := StartScheduler(database, &config.Config{DeadlineSweepCron: "not a cron"}, wf)
	assert.Error(t, err)

	c, err := StartScheduler(database, &config.Config{DeadlineSweepCron: "0 1 * * *"}, wf)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 5)
	c.Stop()
}
