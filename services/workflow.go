package services

import (
	"time"

	"gorm.io/gorm"
)

// Workflow wires the process components around one database handle
type Workflow struct {
	DB        *gorm.DB
	Calendar  *BusinessCalendar
	Notifier  *NotificationDispatcher
	Deadlines *DeadlineService
	Sealer    *DocumentSealer
	Machine   *ProcessStateMachine
	Processes *ProcessService
	Citations *CitationService
	Hearings  *HearingService
	Judgments *JudgmentService
	Docket    *DocketExporter
	Metrics   *Metrics
}

// WorkflowOption customizes NewWorkflow
type WorkflowOption func(*workflowOptions)

type workflowOptions struct {
	mailer  Mailer
	storage StorageProvider
	metrics *Metrics
	appURL  string
	now     func() time.Time
}

// WithMailer sets the e-mail channel of notifications
func WithMailer(m Mailer) WorkflowOption {
	return func(o *workflowOptions) { o.mailer = m }
}

// WithStorage sets where sealed payloads are written
func WithStorage(s StorageProvider) WorkflowOption {
	return func(o *workflowOptions) { o.storage = s }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *Metrics) WorkflowOption {
	return func(o *workflowOptions) { o.metrics = m }
}

// WithAppURL sets the base URL of links in e-mails
func WithAppURL(url string) WorkflowOption {
	return func(o *workflowOptions) { o.appURL = url }
}

// WithClock replaces time.Now in every component
func WithClock(now func() time.Time) WorkflowOption {
	return func(o *workflowOptions) { o.now = now }
}

// NewWorkflow builds every component on db and calendar
func NewWorkflow(db *gorm.DB, calendar *BusinessCalendar, opts ...WorkflowOption) *Workflow {
	o := &workflowOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	notifier := NewNotificationDispatcher(db, o.mailer, o.appURL)
	notifier.Metrics = o.metrics
	notifier.Now = o.now

	deadlines := NewDeadlineService(db, calendar, notifier)
	deadlines.Metrics = o.metrics
	deadlines.Now = o.now

	sealer := NewDocumentSealer(db, o.storage)
	sealer.Metrics = o.metrics
	sealer.Now = o.now

	machine := NewProcessStateMachine(db, deadlines, notifier, sealer)
	machine.Metrics = o.metrics
	machine.Now = o.now

	processes := NewProcessService(db)
	processes.Now = o.now

	citations := NewCitationService(db, machine, deadlines, notifier)
	citations.Metrics = o.metrics
	citations.Now = o.now

	hearings := NewHearingService(db, machine, deadlines, sealer, notifier, calendar.Location())
	hearings.Now = o.now

	return &Workflow{
		DB:        db,
		Calendar:  calendar,
		Notifier:  notifier,
		Deadlines: deadlines,
		Sealer:    sealer,
		Machine:   machine,
		Processes: processes,
		Citations: citations,
		Hearings:  hearings,
		Judgments: NewJudgmentService(db, machine, deadlines, sealer, notifier),
		Docket:    NewDocketExporter(db, deadlines),
		Metrics:   o.metrics,
	}
}
