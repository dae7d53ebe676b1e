package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appdb "court_flow_app_go/db"
	"court_flow_app_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// monday is the default fixture time, 2026-03-02 14:00 UTC
var monday = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use unique shared memory name to isolate tests
	dsn := "file:svc_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, appdb.AutoMigrate(testDB))
	t.Cleanup(func() { _ = appdb.Close(testDB) })
	return testDB
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []*Email
	fail bool
}

func (m *recordingMailer) Send(email *Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	clock  *testClock
	mailer *recordingMailer
	wf     *Workflow

	officer   models.User
	filer     models.User
	responder models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, setupTestDB(t), NewBusinessCalendar(time.UTC, nil))
}

func newFixtureOn(t *testing.T, testDB *gorm.DB, calendar *BusinessCalendar) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		db:     testDB,
		clock:  &testClock{now: monday},
		mailer: &recordingMailer{},
	}
	f.wf = NewWorkflow(testDB, calendar,
		WithClock(f.clock.Now),
		WithMailer(f.mailer),
		WithStorage(NewLocalStorage(t.TempDir())),
		WithAppURL("https://court.test"),
	)
	f.officer = f.createUser(models.RolePresidingOfficer, "es")
	f.filer = f.createUser(models.RoleFiler, "en")
	f.responder = f.createUser(models.RoleFiler, "es")
	return f
}

func (f *fixture) createUser(role, lang string) models.User {
	f.t.Helper()
	user := models.User{
		Name:     "Usuario " + role,
		Email:    uuid.NewString() + "@court.test",
		Password: "not-a-real-hash",
		Role:     role,
		Language: lang,
		IsActive: true,
	}
	if role == models.RolePresidingOfficer {
		court := "jc-01"
		user.CourtID = &court
	}
	require.NoError(f.t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) officerActor() Actor   { return ActorFromUser(&f.officer) }
func (f *fixture) filerActor() Actor     { return ActorFromUser(&f.filer) }
func (f *fixture) responderActor() Actor { return ActorFromUser(&f.responder) }

func completeFiling() FilingContent {
	return FilingContent{
		Claims:               "Que se declare el incumplimiento del contrato",
		Facts:                "El demandado no pagó las cuotas pactadas",
		LegalGrounds:         "Código Civil, artículo 1546",
		NotificationsAddress: "Calle 10 # 5-20, Bogotá",
	}
}

func (f *fixture) newProcessInput() NewProcess {
	return NewProcess{
		FilingPartyID:      "CC 1020304050",
		RespondingPartyID:  "NIT 900123456",
		PresidingOfficerID: f.officer.ID,
		CourtID:            "jc-01",
		SubjectMatter:      "Incumplimiento de contrato de arrendamiento",
		ProcessType:        "verbal",
		ClaimValue:         25000000,
		Filing:             completeFiling(),
	}
}

func (f *fixture) draft() *models.Process {
	f.t.Helper()
	p, err := f.wf.Processes.CreateProcess(f.filerActor(), f.newProcessInput())
	require.NoError(f.t, err)
	return p
}

func (f *fixture) transition(actor Actor, processID string, event models.Event, payload TransitionPayload) *models.Process {
	f.t.Helper()
	p, err := f.wf.Machine.RequestTransition(f.ctx, actor, processID, event, payload)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) filed() *models.Process {
	f.t.Helper()
	p := f.draft()
	return f.transition(f.filerActor(), p.ID, models.EventFile, TransitionPayload{})
}

func (f *fixture) admitted() *models.Process {
	f.t.Helper()
	p := f.filed()
	return f.transition(f.officerActor(), p.ID, models.EventAdmit, TransitionPayload{Grounds: "Reúne los requisitos formales"})
}

// cited serves the responding party personally at the current time
func (f *fixture) cited() (*models.Process, *models.Deadline) {
	f.t.Helper()
	p := f.admitted()
	c, err := f.wf.Citations.OrderCitation(f.ctx, f.officerActor(), p.ID, models.CitationMethodPersonal, "")
	require.NoError(f.t, err)
	_, deadline, err := f.wf.Citations.MarkSuccessful(f.ctx, f.officerActor(), c.ID, f.clock.Now(), "Notificado en su domicilio")
	require.NoError(f.t, err)
	return f.reload(p.ID), deadline
}

func ordinaryResponse() OrdinaryResponse {
	return OrdinaryResponse{Facts: "Se niegan los hechos segundo y tercero", Defenses: "Pago total de la obligación"}
}

func (f *fixture) answered() *models.Process {
	f.t.Helper()
	p, _ := f.cited()
	return f.transition(f.responderActor(), p.ID, models.EventSubmitResponse, TransitionPayload{Response: ordinaryResponse()})
}

func (f *fixture) inPerson(after time.Duration) HearingSchedule {
	return HearingSchedule{
		Modality:    models.HearingModalityInPerson,
		Location:    "Sala 3, Palacio de Justicia",
		ScheduledAt: f.clock.Now().Add(after),
	}
}

// preliminary schedules the preliminary hearing of an answered process and starts it
func (f *fixture) preliminary() (*models.Process, *models.Hearing) {
	f.t.Helper()
	p := f.answered()
	h, err := f.wf.Hearings.Schedule(f.ctx, f.officerActor(), p.ID, f.inPerson(24*time.Hour))
	require.NoError(f.t, err)
	h = f.start(h.ID)
	return f.reload(p.ID), h
}

func (f *fixture) start(hearingID string) *models.Hearing {
	f.t.Helper()
	h, err := f.wf.Hearings.Start(f.ctx, f.officerActor(), hearingID, []models.Attendee{
		{UserID: f.filer.ID, Name: "Ana Gómez", Role: "filer", Present: true},
		{UserID: f.responder.ID, Name: "Luis Pérez", Role: "responder", Present: true},
	})
	require.NoError(f.t, err)
	return h
}

// awaitingJudgment runs both hearings and closes the supplementary one
func (f *fixture) awaitingJudgment() *models.Process {
	f.t.Helper()
	p, h := f.preliminary()
	res, err := f.wf.Hearings.Close(f.ctx, f.officerActor(), h.ID, HearingClosure{
		SubjectMatterStatement: "Se fija el litigio sobre el pago de los cánones",
		ScheduleFollowUp:       &HearingSchedule{Modality: models.HearingModalityInPerson, ScheduledAt: f.clock.Now().Add(72 * time.Hour)},
	})
	require.NoError(f.t, err)
	f.start(res.FollowUp.ID)
	_, err = f.wf.Hearings.Close(f.ctx, f.officerActor(), res.FollowUp.ID, HearingClosure{Minutes: "Se escucharon los alegatos de conclusión"})
	require.NoError(f.t, err)
	return f.reload(p.ID)
}

func sampleJudgment() JudgmentContent {
	return JudgmentContent{
		Background:     "La demandante reclama los cánones adeudados",
		Considerations: "Está probado el incumplimiento",
		Decision:       "Se condena al demandado al pago",
	}
}

func (f *fixture) judged() (*models.Process, *JudgmentResult) {
	f.t.Helper()
	p := f.awaitingJudgment()
	res, err := f.wf.Judgments.IssueJudgment(f.ctx, f.officerActor(), p.ID, sampleJudgment())
	require.NoError(f.t, err)
	return res.Process, res
}

func (f *fixture) reload(processID string) *models.Process {
	f.t.Helper()
	var p models.Process
	require.NoError(f.t, f.db.First(&p, "id = ?", processID).Error)
	return &p
}

func (f *fixture) drain() int {
	f.t.Helper()
	n, err := f.wf.Notifier.Drain(f.ctx)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) notificationsFor(userID string) []models.Notification {
	f.t.Helper()
	var rows []models.Notification
	require.NoError(f.t, f.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error)
	return rows
}
