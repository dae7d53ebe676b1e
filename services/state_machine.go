package services

import (
	"context"
	"log"
	"time"

	"court_flow_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transitionKey struct {
	From  models.Stage
	Event models.Event
}

// transitions is the complete stage graph. No other code writes Process.Stage.
var transitions = map[transitionKey]models.Stage{
	{models.StageDraft, models.EventFile}:                                         models.StageFiled,
	{models.StageFiled, models.EventRequireCorrection}:                            models.StageUnderCorrection,
	{models.StageFiled, models.EventReject}:                                       models.StageRejected,
	{models.StageFiled, models.EventAdmit}:                                        models.StageAdmitted,
	{models.StageUnderCorrection, models.EventResubmit}:                           models.StageFiled,
	{models.StageUnderCorrection, models.EventReject}:                             models.StageRejected,
	{models.StageAdmitted, models.EventCitationSucceeded}:                         models.StageCited,
	{models.StageCited, models.EventSubmitResponse}:                               models.StageAnswered,
	{models.StageCited, models.EventHearingScheduled}:                             models.StagePreliminaryHearing,
	{models.StageAnswered, models.EventHearingScheduled}:                          models.StagePreliminaryHearing,
	{models.StagePreliminaryHearing, models.EventConciliationReached}:             models.StageConciliated,
	{models.StagePreliminaryHearing, models.EventSupplementaryScheduled}:          models.StageSupplementaryHearing,
	{models.StagePreliminaryHearing, models.EventEnterJudgmentPhase}:              models.StageAwaitingJudgment,
	{models.StageSupplementaryHearing, models.EventConciliationReached}:           models.StageConciliated,
	{models.StageSupplementaryHearing, models.EventSupplementaryScheduled}:        models.StageSupplementaryHearing,
	{models.StageSupplementaryHearing, models.EventEnterJudgmentPhase}:            models.StageAwaitingJudgment,
	{models.StageAwaitingJudgment, models.EventJudgmentIssued}:                    models.StageJudged,
	{models.StageJudged, models.EventAppeal}:                                      models.StageAppealed,
	{models.StageJudged, models.EventDeclareFinal}:                                models.StageFinalAndBinding,
	{models.StageAppealed, models.EventResolveAppeal}:                             models.StageFinalAndBinding,
	{models.StageRejected, models.EventArchive}:                                   models.StageArchived,
	{models.StageConciliated, models.EventArchive}:                                models.StageArchived,
	{models.StageFinalAndBinding, models.EventArchive}:                            models.StageArchived,
}

// componentEvents are raised only by the component that owns the side
// effects; RequestTransition refuses them.
var componentEvents = map[models.Event]string{
	models.EventCitationSucceeded:      "citation",
	models.EventHearingScheduled:       "hearing scheduling",
	models.EventConciliationReached:    "hearing closure",
	models.EventSupplementaryScheduled: "hearing closure",
	models.EventJudgmentIssued:         "judgment sealing",
}

// NextStage returns the stage event leads to from stage
func NextStage(from models.Stage, event models.Event) (models.Stage, bool) {
	to, ok := transitions[transitionKey{from, event}]
	return to, ok
}

// AllowedEvents lists the events accepted from stage in declaration order
func AllowedEvents(from models.Stage) []models.Event {
	var events []models.Event
	for _, e := range models.AllEvents {
		if _, ok := transitions[transitionKey{from, e}]; ok {
			events = append(events, e)
		}
	}
	return events
}

// IsComponentEvent reports whether event may only be raised by its owning component
func IsComponentEvent(event models.Event) bool {
	_, ok := componentEvents[event]
	return ok
}

// StageChange is one requested transition applied by ProcessStateMachine.Apply
type StageChange struct {
	Event models.Event
	Actor Actor
	Notes string
	// Notice replaces the default transition notice to both representatives
	Notice *NotificationRequest
	// Quiet skips the notice; the caller enqueues its own in the same transaction
	Quiet bool
}

// ProcessStateMachine owns the process stage and validates every transition
type ProcessStateMachine struct {
	DB        *gorm.DB
	Deadlines *DeadlineService
	Notifier  *NotificationDispatcher
	Sealer    *DocumentSealer
	Metrics   *Metrics
	Now       func() time.Time
}

func NewProcessStateMachine(db *gorm.DB, deadlines *DeadlineService, notifier *NotificationDispatcher, sealer *DocumentSealer) *ProcessStateMachine {
	return &ProcessStateMachine{DB: db, Deadlines: deadlines, Notifier: notifier, Sealer: sealer, Now: time.Now}
}

// loadProcessForUpdate reads the process inside tx, locking the row on
// drivers that support it.
func loadProcessForUpdate(tx *gorm.DB, processID string) (*models.Process, error) {
	var p models.Process
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", processID).Error; err != nil {
		return nil, lookupError(err, "process", processID)
	}
	return &p, nil
}

// Apply validates change against p's current stage and writes the new stage
// inside tx. p must have been read in the same transaction. The write is
// conditional on the version read, so a concurrent writer causes
// ErrPersistenceConflict instead of a lost update.
func (m *ProcessStateMachine) Apply(tx *gorm.DB, p *models.Process, change StageChange) error {
	from := p.Stage
	to, ok := NextStage(from, change.Event)
	if !ok {
		m.Metrics.transitionRejected(string(change.Event))
		return &TransitionError{Stage: from, Event: change.Event}
	}

	now := m.Now()
	updates := map[string]interface{}{
		"stage":            to,
		"version":          gorm.Expr("version + 1"),
		"stage_changed_at": now,
		"updated_at":       now,
	}
	if to == models.StageArchived {
		updates["archived_at"] = now
	}
	res := tx.Model(&models.Process{}).
		Where("id = ? AND version = ? AND stage = ?", p.ID, p.Version, from).
		Updates(updates)
	if res.Error != nil {
		return storageError("failed to write process stage", res.Error)
	}
	if res.RowsAffected == 0 {
		m.Metrics.transitionRejected(string(change.Event))
		return ErrPersistenceConflict
	}

	p.Stage = to
	p.Version++
	p.StageChangedAt = &now
	p.UpdatedAt = now
	if to == models.StageArchived {
		p.ArchivedAt = &now
	}

	history := models.ProcessTransition{
		ProcessID:  p.ID,
		FromStage:  from,
		ToStage:    to,
		Event:      change.Event,
		ActorID:    change.Actor.UserID,
		ActorRole:  change.Actor.Role,
		Notes:      sanitizePlain(change.Notes),
		Version:    p.Version,
		OccurredAt: now,
	}
	if err := tx.Create(&history).Error; err != nil {
		return storageError("failed to record transition", err)
	}

	if err := m.onEnter(tx, p, from, change); err != nil {
		return err
	}

	if !change.Quiet {
		notice := change.Notice
		if notice == nil {
			notice = m.transitionNotice(p, change.Event)
		}
		if err := m.Notifier.Enqueue(tx, *notice); err != nil {
			return err
		}
	}

	m.Metrics.transitionAccepted(string(change.Event))
	log.Printf("[PROCESS] %s: %s --%s--> %s (actor: %s/%s)", p.CaseReference, from, change.Event, to, change.Actor.Role, change.Actor.UserID)
	return nil
}

// onEnter runs the side effects owned by the target stage
func (m *ProcessStateMachine) onEnter(tx *gorm.DB, p *models.Process, from models.Stage, change StageChange) error {
	switch p.Stage {
	case models.StageAwaitingJudgment:
		_, err := m.Deadlines.Open(tx, p, models.DeadlineCategoryJudgment, m.Now(), JudgmentTermDays, models.AssigneePresidingOfficer, "")
		return err
	}
	return nil
}

// transitionNotice is the default notice to both representatives
func (m *ProcessStateMachine) transitionNotice(p *models.Process, event models.Event) *NotificationRequest {
	return &NotificationRequest{
		ProcessID:  p.ID,
		Recipients: p.RepresentativeIDs(),
		Category:   models.NotificationCategoryProcess,
		TitleKey:   "notifications.transition." + string(event) + ".title",
		MessageKey: "notifications.transition." + string(event) + ".message",
		Params: map[string]interface{}{
			"case_reference": p.CaseReference,
			"stage":          string(p.Stage),
		},
		ActionRef: processActionRef(p.ID),
	}
}

// TransitionPayload carries the attributes that change together with the stage
type TransitionPayload struct {
	Notes string
	// Grounds and Defects are recorded in the ruling issued on admit,
	// reject and require_correction
	Grounds string
	Defects []string
	// Filing replaces the filing content on resubmit
	Filing *FilingContent
	// Response is required by submit_response
	Response ResponseContent
}

// RequestTransition applies an event requested by a caller. Events owned by
// other components are refused with ErrValidation. Unknown events fail like
// any other illegal transition.
func (m *ProcessStateMachine) RequestTransition(ctx context.Context, actor Actor, processID string, event models.Event, payload TransitionPayload) (*models.Process, error) {
	start := time.Now()
	defer m.Metrics.observe("state_machine", start)

	if owner, ok := componentEvents[event]; ok {
		return nil, validationError("event %q is raised by %s and cannot be requested directly", event, owner)
	}
	if actor.Role == models.RoleNone {
		return nil, unauthorizedError("caller has no role")
	}

	var process *models.Process
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProcessForUpdate(tx, processID)
		if err != nil {
			return err
		}
		if !isKnownEvent(event) {
			m.Metrics.transitionRejected(string(event))
			return &TransitionError{Stage: p.Stage, Event: event, Reason: "unknown event"}
		}
		if err := authorizeEvent(actor, p, event); err != nil {
			return err
		}
		if _, ok := NextStage(p.Stage, event); !ok {
			m.Metrics.transitionRejected(string(event))
			return &TransitionError{Stage: p.Stage, Event: event}
		}

		if err := m.beforeTransition(ctx, tx, p, actor, event, payload); err != nil {
			return err
		}
		if err := m.Apply(tx, p, StageChange{Event: event, Actor: actor, Notes: payload.Notes}); err != nil {
			return err
		}
		process = p
		return nil
	})
	if err != nil {
		if !isTypedError(err) {
			log.Printf("[PROCESS] Transition %s on process %s failed: %v", event, processID, err)
		}
		return nil, storageError("transition failed", err)
	}

	m.Notifier.Kick()
	return process, nil
}

// authorizeEvent checks the caller against the role that owns event
func authorizeEvent(actor Actor, p *models.Process, event models.Event) error {
	switch event {
	case models.EventFile, models.EventResubmit:
		return requireFilerRepresentative(actor, p)
	case models.EventSubmitResponse:
		return requireResponderRepresentative(actor, p)
	case models.EventAppeal:
		return requirePartyRepresentative(actor, p)
	default:
		return requireOfficer(actor, p)
	}
}

// beforeTransition performs the attribute mutations validated together with the stage change
func (m *ProcessStateMachine) beforeTransition(ctx context.Context, tx *gorm.DB, p *models.Process, actor Actor, event models.Event, payload TransitionPayload) error {
	now := m.Now()
	switch event {
	case models.EventFile:
		filing, err := activeDocument(tx, p.ID, models.DocumentKindFiling)
		if err != nil {
			return err
		}
		if filing == nil {
			return validationError("process %s has no filing to submit", p.CaseReference)
		}
		if err := validateFilingSections(filing.Sections); err != nil {
			return err
		}
		return m.Sealer.Seal(ctx, tx, filing)

	case models.EventResubmit:
		if payload.Filing == nil {
			return validationError("resubmit requires the amended filing")
		}
		return m.supersedeFiling(ctx, tx, p, actor, *payload.Filing)

	case models.EventRequireCorrection:
		if len(payload.Defects) == 0 {
			return validationError("require_correction must list the defects to correct")
		}
		_, err := m.Sealer.issueRuling(ctx, tx, p, actor, string(event), joinLines(payload.Defects), payload.Grounds)
		return err

	case models.EventAdmit, models.EventReject:
		_, err := m.Sealer.issueRuling(ctx, tx, p, actor, string(event), string(event), payload.Grounds)
		return err

	case models.EventSubmitResponse:
		return m.submitResponse(ctx, tx, p, actor, payload.Response, now)

	case models.EventAppeal:
		term, err := m.Deadlines.ActiveDeadline(tx, p.ID, models.DeadlineCategoryAppeal)
		if err != nil {
			return err
		}
		if term == nil || m.Deadlines.IsLapsed(term, now) {
			return &TransitionError{Stage: p.Stage, Event: event, Reason: "the appeal term has expired"}
		}
		_, err = m.Deadlines.Fulfill(tx, p.ID, models.DeadlineCategoryAppeal, now)
		return err

	case models.EventDeclareFinal:
		term, err := m.Deadlines.ActiveDeadline(tx, p.ID, models.DeadlineCategoryAppeal)
		if err != nil {
			return err
		}
		if term != nil && !m.Deadlines.IsLapsed(term, now) {
			return &TransitionError{Stage: p.Stage, Event: event, Reason: "the appeal term is still running until " + term.ExpiresOn.Format(dateLayout)}
		}
		if term != nil {
			if err := tx.Model(&models.Deadline{}).Where("id = ? AND status = ?", term.ID, models.DeadlineStatusActive).
				Updates(map[string]interface{}{"status": models.DeadlineStatusExpired, "expired_at": now}).Error; err != nil {
				return storageError("failed to close appeal term", err)
			}
		}
		return nil

	case models.EventEnterJudgmentPhase:
		var active int64
		if err := tx.Model(&models.Hearing{}).
			Where("process_id = ? AND (status = ? OR (status = ? AND closed_at IS NULL))", p.ID, models.HearingStatusScheduled, models.HearingStatusHeld).
			Count(&active).Error; err != nil {
			return storageError("failed to check hearings", err)
		}
		if active > 0 {
			return &TransitionError{Stage: p.Stage, Event: event, Reason: "a hearing is still pending"}
		}
		return nil
	}
	return nil
}

// submitResponse files the response, fulfils the response term and records the responder
func (m *ProcessStateMachine) submitResponse(ctx context.Context, tx *gorm.DB, p *models.Process, actor Actor, content ResponseContent, now time.Time) error {
	if content == nil {
		return validationError("submit_response requires a response")
	}
	if err := content.Validate(); err != nil {
		return err
	}

	term, err := m.Deadlines.LatestDeadline(tx, p.ID, models.DeadlineCategoryResponse)
	if err != nil {
		return err
	}
	if term != nil && (term.Status == models.DeadlineStatusExpired || (term.Status == models.DeadlineStatusActive && m.Deadlines.IsLapsed(term, now))) {
		return &TransitionError{Stage: p.Stage, Event: models.EventSubmitResponse, Reason: "the response term expired on " + term.ExpiresOn.Format(dateLayout)}
	}

	doc, err := newDocument(tx, p.ID, models.DocumentKindResponse, actor, content.Sections())
	if err != nil {
		return err
	}
	doc.ResponseVariant = string(content.Variant())
	if err := tx.Model(doc).Update("response_variant", doc.ResponseVariant).Error; err != nil {
		return storageError("failed to record response variant", err)
	}
	if err := m.Sealer.Seal(ctx, tx, doc); err != nil {
		return err
	}
	if _, err := m.Deadlines.Fulfill(tx, p.ID, models.DeadlineCategoryResponse, now); err != nil {
		return err
	}

	if p.ResponderRepresentativeID == nil || *p.ResponderRepresentativeID == "" {
		responder := actor.UserID
		if err := tx.Model(&models.Process{}).Where("id = ?", p.ID).Update("responder_representative_id", responder).Error; err != nil {
			return storageError("failed to record responder representative", err)
		}
		p.ResponderRepresentativeID = &responder
	}
	return nil
}

// supersedeFiling seals an amended filing that replaces the current one
func (m *ProcessStateMachine) supersedeFiling(ctx context.Context, tx *gorm.DB, p *models.Process, actor Actor, content FilingContent) error {
	if err := content.Validate(); err != nil {
		return err
	}
	previous, err := activeDocument(tx, p.ID, models.DocumentKindFiling)
	if err != nil {
		return err
	}
	if previous != nil {
		if err := tx.Model(&models.LegalDocument{}).Where("id = ?", previous.ID).
			Updates(map[string]interface{}{"singleton_key": nil, "status": models.DocumentStatusSuperseded}).Error; err != nil {
			return storageError("failed to supersede filing", err)
		}
	}

	doc, err := newDocument(tx, p.ID, models.DocumentKindFiling, actor, content.Sections())
	if err != nil {
		return err
	}
	if previous != nil {
		prevID := previous.ID
		doc.SupersedesID = &prevID
		if err := tx.Model(doc).Update("supersedes_id", prevID).Error; err != nil {
			return storageError("failed to link amended filing", err)
		}
	}
	return m.Sealer.Seal(ctx, tx, doc)
}

// History returns the accepted transitions of a process in order
func (m *ProcessStateMachine) History(processID string) ([]models.ProcessTransition, error) {
	var rows []models.ProcessTransition
	err := m.DB.Where("process_id = ?", processID).Order("occurred_at ASC, version ASC").Find(&rows).Error
	return rows, err
}

func isKnownEvent(event models.Event) bool {
	for _, e := range models.AllEvents {
		if e == event {
			return true
		}
	}
	return false
}
