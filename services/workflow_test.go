package services

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	appdb "court_flow_app_go/db"
	"court_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupFileDB opens a file database so concurrent writers contend on a real lock
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "court.db")
	testDB, err := gorm.Open(sqlite.Open(appdb.SQLiteDSN(path)), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, appdb.AutoMigrate(testDB))
	t.Cleanup(func() { _ = appdb.Close(testDB) })
	return testDB
}

func TestFullProcessLifecycle(t *testing.T) {
	// San José is a court holiday in this calendar
	f := newFixtureOn(t, setupTestDB(t), NewBusinessCalendar(time.UTC, []time.Time{day(2026, 3, 23)}))

	p, term := f.cited()
	assert.Equal(t, "2026-04-14", term.ExpiresOn.Format(dateLayout), "the holiday extends the response term")

	f.transition(f.responderActor(), p.ID, models.EventSubmitResponse, TransitionPayload{Response: ordinaryResponse()})
	h, err := f.wf.Hearings.Schedule(f.ctx, f.officerActor(), p.ID, f.inPerson(24*time.Hour))
	require.NoError(t, err)
	f.start(h.ID)
	res, err := f.wf.Hearings.Close(f.ctx, f.officerActor(), h.ID, HearingClosure{
		SubjectMatterStatement: "Se fija el litigio",
		ScheduleFollowUp:       &HearingSchedule{ScheduledAt: f.clock.Now().Add(48 * time.Hour)},
	})
	require.NoError(t, err)
	f.start(res.FollowUp.ID)
	closed, err := f.wf.Hearings.Close(f.ctx, f.officerActor(), res.FollowUp.ID, HearingClosure{Minutes: "Alegatos"})
	require.NoError(t, err)
	require.NotNil(t, closed.Deadline)
	assert.Equal(t, "2026-03-31", closed.Deadline.ExpiresOn.Format(dateLayout))

	judgment, err := f.wf.Judgments.IssueJudgment(f.ctx, f.officerActor(), p.ID, sampleJudgment())
	require.NoError(t, err)
	assert.Equal(t, "2026-03-24", judgment.Appeal.ExpiresOn.Format(dateLayout))

	f.clock.Set(day(2026, 3, 25))
	f.transition(f.officerActor(), p.ID, models.EventDeclareFinal, TransitionPayload{})
	f.transition(f.officerActor(), p.ID, models.EventArchive, TransitionPayload{Notes: "Archivo definitivo"})

	detail, err := f.wf.Processes.GetProcess(f.filerActor(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageArchived, detail.Process.Stage)
	assert.Empty(t, detail.Allowed)

	var events []models.Event
	for i, tr := range detail.Transitions {
		events = append(events, tr.Event)
		assert.Equal(t, i+2, tr.Version, "every accepted change bumps the version once")
		if i > 0 {
			assert.Equal(t, detail.Transitions[i-1].ToStage, tr.FromStage)
		}
	}
	assert.Equal(t, []models.Event{
		models.EventFile,
		models.EventAdmit,
		models.EventCitationSucceeded,
		models.EventSubmitResponse,
		models.EventHearingScheduled,
		models.EventSupplementaryScheduled,
		models.EventEnterJudgmentPhase,
		models.EventJudgmentIssued,
		models.EventDeclareFinal,
		models.EventArchive,
	}, events)

	for _, doc := range detail.Documents {
		assert.True(t, doc.IsSealed(), "%s document", doc.Kind)
		_, err := f.wf.Sealer.VerifyDocument(f.officerActor(), doc.ID)
		assert.NoError(t, err, "%s document", doc.Kind)
	}
	for _, hearing := range detail.Hearings {
		_, err := f.wf.Hearings.VerifyRecord(f.officerActor(), hearing.ID)
		assert.NoError(t, err, "hearing %s", hearing.ID)
	}

	for _, d := range detail.Deadlines {
		assert.NotEqual(t, models.DeadlineStatusActive, d.Status, "%s term is closed", d.Category)
	}
}

func TestCitationAfterFailedAttemptsAndTimelyResponse(t *testing.T) {
	f := newFixture(t)
	p := f.admitted()
	c, err := f.wf.Citations.OrderCitation(f.ctx, f.officerActor(), p.ID, models.CitationMethodPersonal, "")
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		res, err := f.wf.Citations.RegisterFailedAttempt(f.ctx, f.officerActor(), c.ID, failedAttempt(monday))
		require.NoError(t, err)
		assert.False(t, res.EscalationAdvised, "attempt %d", i)
	}
	res, err := f.wf.Citations.RegisterFailedAttempt(f.ctx, f.officerActor(), c.ID, failedAttempt(monday))
	require.NoError(t, err)
	assert.True(t, res.EscalationAdvised)
	assert.Equal(t, 3, res.FailedAttempts)

	f.clock.Set(time.Date(2026, 3, 13, 10, 0, 0, 0, time.UTC))
	served, term, err := f.wf.Citations.MarkSuccessful(f.ctx, f.officerActor(), c.ID, f.clock.Now(), "Notificado en su lugar de trabajo")
	require.NoError(t, err)
	assert.Equal(t, models.CitationStatusSuccessful, served.Status)
	assert.Equal(t, 30, term.BusinessDays)
	assert.Equal(t, "2026-04-24", term.ExpiresOn.Format(dateLayout))
	assert.Equal(t, models.StageCited, f.reload(p.ID).Stage)

	f.clock.Set(time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC))
	answered := f.transition(f.responderActor(), p.ID, models.EventSubmitResponse, TransitionPayload{Response: ordinaryResponse()})
	assert.Equal(t, models.StageAnswered, answered.Stage)

	var stored models.Deadline
	require.NoError(t, f.db.First(&stored, "id = ?", term.ID).Error)
	assert.Equal(t, models.DeadlineStatusFulfilled, stored.Status)
	require.NotNil(t, stored.FulfilledAt)
}

func TestConcurrentRulingsOnlyOneWins(t *testing.T) {
	f := newFixtureOn(t, setupFileDB(t), NewBusinessCalendar(time.UTC, nil))
	p := f.filed()

	events := []models.Event{models.EventAdmit, models.EventReject, models.EventAdmit, models.EventReject}
	errs := make([]error, len(events))
	var g errgroup.Group
	for i, event := range events {
		i, event := i, event
		g.Go(func() error {
			_, errs[i] = f.wf.Machine.RequestTransition(f.ctx, f.officerActor(), p.ID, event, TransitionPayload{Grounds: "Calificación"})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var winner models.Event
	wins := 0
	for i, err := range errs {
		if err == nil {
			wins++
			winner = events[i]
			continue
		}
		assert.True(t, errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrPersistenceConflict), "unexpected error: %v", err)
	}
	require.Equal(t, 1, wins, "exactly one ruling is accepted")

	final := f.reload(p.ID)
	want, _ := NextStage(models.StageFiled, winner)
	assert.Equal(t, want, final.Stage)
	assert.Equal(t, 3, final.Version)

	var history int64
	require.NoError(t, f.db.Model(&models.ProcessTransition{}).Where("process_id = ?", p.ID).Count(&history).Error)
	assert.Equal(t, int64(2), history)

	var rulings int64
	require.NoError(t, f.db.Model(&models.LegalDocument{}).Where("process_id = ? AND kind = ?", p.ID, models.DocumentKindRuling).Count(&rulings).Error)
	assert.Equal(t, int64(1), rulings, "a refused ruling leaves no document behind")
}

func TestConcurrentServiceOpensOneResponseTerm(t *testing.T) {
	f := newFixtureOn(t, setupFileDB(t), NewBusinessCalendar(time.UTC, nil))
	p := f.admitted()
	c, err := f.wf.Citations.OrderCitation(f.ctx, f.officerActor(), p.ID, models.CitationMethodPersonal, "")
	require.NoError(t, err)

	var g errgroup.Group
	results := make([]error, 3)
	for i := range results {
		i := i
		g.Go(func() error {
			_, _, results[i] = f.wf.Citations.MarkSuccessful(f.ctx, f.officerActor(), c.ID, monday, "")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	var terms int64
	require.NoError(t, f.db.Model(&models.Deadline{}).Where("process_id = ? AND category = ?", p.ID, models.DeadlineCategoryResponse).Count(&terms).Error)
	assert.Equal(t, int64(1), terms)
	assert.Equal(t, models.StageCited, f.reload(p.ID).Stage)
}
