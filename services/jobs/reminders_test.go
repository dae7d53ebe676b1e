package jobs

import (
	"testing"
	"time"

	appdb "court_flow_app_go/db"
	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupJobsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, appdb.AutoMigrate(database))
	t.Cleanup(func() { _ = appdb.Close(database) })
	return database
}

func seedJobsProcess(t *testing.T, database *gorm.DB) models.Process {
	t.Helper()
	officer := models.User{Name: "Juez", Email: uuid.NewString() + "@court.test", Password: "x", Role: models.RolePresidingOfficer, IsActive: true}
	filer := models.User{Name: "Abogada", Email: uuid.NewString() + "@bar.test", Password: "x", Role: models.RoleFiler, IsActive: true, Language: "en"}
	require.NoError(t, database.Create(&officer).Error)
	require.NoError(t, database.Create(&filer).Error)

	p := models.Process{
		CaseReference:         "JC01-2026-" + uuid.NewString()[:5],
		Stage:                 models.StagePreliminaryHearing,
		FilingPartyID:         "CC 123",
		FilerRepresentativeID: filer.ID,
		RespondingPartyID:     "NIT 900",
		PresidingOfficerID:    officer.ID,
		CourtID:               "JC01",
		SubjectMatter:         "contract",
		ProcessType:           "verbal",
	}
	require.NoError(t, database.Create(&p).Error)
	return p
}

func TestSendHearingReminders(t *testing.T) {
	database := setupJobsTestDB(t)
	notifier := services.NewNotificationDispatcher(database, nil, "http://test.local")
	p := seedJobsProcess(t, database)

	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	newHearing := func(at time.Time, status string) models.Hearing {
		h := models.Hearing{
			ProcessID:     p.ID,
			Type:          models.HearingTypePreliminary,
			Modality:      models.HearingModalityInPerson,
			ScheduledAt:   at,
			Status:        status,
			ScheduledByID: p.PresidingOfficerID,
		}
		require.NoError(t, database.Create(&h).Error)
		return h
	}

	tomorrow := newHearing(now.Add(20*time.Hour), models.HearingStatusScheduled)
	later := newHearing(now.Add(72*time.Hour), models.HearingStatusScheduled)
	suspended := newHearing(now.Add(21*time.Hour), models.HearingStatusSuspended)

	sent, err := SendHearingReminders(database, notifier, time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	reminderSent := func(id string) bool {
		var h models.Hearing
		require.NoError(t, database.First(&h, "id = ?", id).Error)
		return h.ReminderSentAt != nil
	}
	assert.True(t, reminderSent(tomorrow.ID))
	assert.False(t, reminderSent(later.ID))
	assert.False(t, reminderSent(suspended.ID))

	var job models.NotificationJob
	require.NoError(t, database.First(&job).Error)
	assert.Equal(t, "notifications.hearing.reminder.title", job.TitleKey)
	assert.ElementsMatch(t, []string{p.FilerRepresentativeID, p.PresidingOfficerID}, []string(job.Recipients))

	// a second run reminds nobody
	sent, err = SendHearingReminders(database, notifier, time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}
