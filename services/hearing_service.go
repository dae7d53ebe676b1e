package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"court_flow_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const hearingTimeLayout = "2006-01-02 15:04"

// HearingSchedule is the time and place of a hearing
type HearingSchedule struct {
	Modality    string    `json:"modality"`
	MeetingURL  string    `json:"meeting_url,omitempty"`
	Location    string    `json:"location,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// EvidenceRuling is the officer's ruling on one evidence request
type EvidenceRuling struct {
	Type               string `json:"type"`
	Description        string `json:"description"`
	OfferedBy          string `json:"offered_by,omitempty"`
	Admitted           bool   `json:"admitted"`
	RejectionRationale string `json:"rejection_rationale,omitempty"`
}

// HearingClosure is what the officer records when closing a held hearing
type HearingClosure struct {
	ConciliationReached    bool             `json:"conciliation_reached"`
	AgreementText          string           `json:"agreement_text,omitempty"`
	SubjectMatterStatement string           `json:"subject_matter_statement,omitempty"`
	Minutes                string           `json:"minutes,omitempty"`
	Evidence               []EvidenceRuling `json:"evidence,omitempty"`
	// ScheduleFollowUp requests a supplementary hearing in the same modality
	ScheduleFollowUp *HearingSchedule `json:"schedule_follow_up,omitempty"`
}

// ClosureResult reports the branch a closure took
type ClosureResult struct {
	Hearing  *models.Hearing  `json:"hearing"`
	Outcome  string           `json:"outcome"`
	Stage    models.Stage     `json:"stage"`
	FollowUp *models.Hearing  `json:"follow_up,omitempty"`
	Deadline *models.Deadline `json:"deadline,omitempty"`
}

// HearingService runs hearings from scheduling to the sealed closure record
type HearingService struct {
	DB        *gorm.DB
	Machine   *ProcessStateMachine
	Deadlines *DeadlineService
	Sealer    *DocumentSealer
	Notifier  *NotificationDispatcher
	Location  *time.Location
	Now       func() time.Time
}

func NewHearingService(db *gorm.DB, machine *ProcessStateMachine, deadlines *DeadlineService, sealer *DocumentSealer, notifier *NotificationDispatcher, loc *time.Location) *HearingService {
	if loc == nil {
		loc = time.UTC
	}
	return &HearingService{DB: db, Machine: machine, Deadlines: deadlines, Sealer: sealer, Notifier: notifier, Location: loc, Now: time.Now}
}

// now is truncated to the second so that sealed timestamps survive every driver's precision
func (s *HearingService) now() time.Time {
	return s.Now().UTC().Truncate(time.Second)
}

func (s *HearingService) validateSchedule(in HearingSchedule) error {
	if !models.IsValidHearingModality(in.Modality) {
		return validationError("invalid hearing modality %q", in.Modality)
	}
	if in.Modality == models.HearingModalityVirtual {
		if isBlank(in.MeetingURL) {
			return validationError("a virtual hearing requires a meeting link")
		}
		u, err := url.Parse(strings.TrimSpace(in.MeetingURL))
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return validationError("meeting link %q is not a valid URL", in.MeetingURL)
		}
	}
	if in.ScheduledAt.IsZero() {
		return validationError("hearing time is required")
	}
	if !in.ScheduledAt.After(s.Now()) {
		return validationError("hearing time %s is not in the future", in.ScheduledAt.Format(time.RFC3339))
	}
	return nil
}

func newHearing(p *models.Process, hearingType string, in HearingSchedule, actor Actor) *models.Hearing {
	h := &models.Hearing{
		ProcessID:     p.ID,
		Type:          hearingType,
		Modality:      in.Modality,
		ScheduledAt:   in.ScheduledAt.UTC().Truncate(time.Second),
		Status:        models.HearingStatusScheduled,
		Attendance:    models.AttendanceRoll{},
		ScheduledByID: actor.UserID,
	}
	if in.Modality == models.HearingModalityVirtual {
		link := strings.TrimSpace(in.MeetingURL)
		h.MeetingURL = &link
	}
	if loc := sanitizePlain(in.Location); loc != "" {
		h.Location = &loc
	}
	return h
}

// Schedule sets the preliminary hearing of a cited process and moves it to
// PreliminaryHearing. In a hearing stage without an active hearing it
// schedules the hearing of that stage without a stage change.
func (s *HearingService) Schedule(ctx context.Context, actor Actor, processID string, in HearingSchedule) (*models.Hearing, error) {
	if err := s.validateSchedule(in); err != nil {
		return nil, err
	}

	var hearing *models.Hearing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProcessForUpdate(tx, processID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if err := requireNoActiveHearing(tx, p); err != nil {
			return err
		}

		var raise bool
		var hearingType string
		switch p.Stage {
		case models.StageCited, models.StageAnswered:
			raise, hearingType = true, models.HearingTypePreliminary
		case models.StagePreliminaryHearing:
			hearingType = models.HearingTypePreliminary
		case models.StageSupplementaryHearing:
			hearingType = models.HearingTypeSupplementary
		default:
			return &TransitionError{Stage: p.Stage, Event: models.EventHearingScheduled}
		}

		h := newHearing(p, hearingType, in, actor)
		if err := tx.Create(h).Error; err != nil {
			return storageError("failed to create hearing", err)
		}
		notice := s.hearingNotice(p, "scheduled", map[string]interface{}{
			"scheduled_at": s.formatTime(h.ScheduledAt),
			"modality":     strings.ToLower(h.Modality),
		})
		if raise {
			if err := s.Machine.Apply(tx, p, StageChange{Event: models.EventHearingScheduled, Actor: actor, Notice: &notice}); err != nil {
				return err
			}
		} else if err := s.Notifier.Enqueue(tx, notice); err != nil {
			return err
		}
		hearing = h
		return nil
	})
	if err != nil {
		return nil, storageError("failed to schedule hearing", err)
	}

	s.Notifier.Kick()
	log.Printf("[HEARING] Scheduled %s hearing %s for process %s at %s", hearing.Type, hearing.ID, processID, s.formatTime(hearing.ScheduledAt))
	return hearing, nil
}

// Start opens a scheduled hearing with its attendance roll
func (s *HearingService) Start(ctx context.Context, actor Actor, hearingID string, roll []models.Attendee) (*models.Hearing, error) {
	if len(roll) == 0 {
		return nil, validationError("the attendance roll is required to start a hearing")
	}
	attendance := make(models.AttendanceRoll, 0, len(roll))
	for i, a := range roll {
		a.Name = sanitizePlain(a.Name)
		a.Role = sanitizePlain(a.Role)
		if a.Name == "" || a.Role == "" {
			return nil, validationError("attendee %d needs a name and a role", i+1)
		}
		attendance = append(attendance, a)
	}

	var hearing *models.Hearing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, p, err := s.loadHearing(tx, hearingID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if h.Status != models.HearingStatusScheduled {
			return invalidStateError("hearing %s is %s, only a scheduled hearing can start", h.ID, strings.ToLower(h.Status))
		}
		now := s.now()
		res := tx.Model(&models.Hearing{}).
			Where("id = ? AND status = ?", h.ID, models.HearingStatusScheduled).
			Updates(map[string]interface{}{
				"status":     models.HearingStatusHeld,
				"started_at": now,
				"attendance": attendance,
				"updated_at": now,
			})
		if res.Error != nil {
			return storageError("failed to start hearing", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPersistenceConflict
		}
		h.Status = models.HearingStatusHeld
		h.StartedAt = &now
		h.Attendance = attendance
		hearing = h
		return nil
	})
	if err != nil {
		return nil, storageError("failed to start hearing", err)
	}
	log.Printf("[HEARING] Hearing %s started with %d attendees", hearingID, len(attendance))
	return hearing, nil
}

// Close records the closure of a held hearing. The branches are evaluated
// in order: conciliation, missing subject matter on a preliminary hearing,
// follow-up hearing, supplementary hearing to judgment, otherwise the
// process waits at its stage. The hearing update, sealed record, stage
// change, new hearing or deadline and the notices commit together.
func (s *HearingService) Close(ctx context.Context, actor Actor, hearingID string, closure HearingClosure) (*ClosureResult, error) {
	var result *ClosureResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, p, err := s.loadHearing(tx, hearingID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if h.Status != models.HearingStatusHeld || h.IsClosed() {
			return invalidStateError("hearing %s is %s, closure requires a started hearing", h.ID, strings.ToLower(h.Status))
		}
		evidence, err := validateEvidence(h, closure.Evidence)
		if err != nil {
			return err
		}

		r, err := s.branch(h, closure)
		if err != nil {
			return err
		}

		now := s.now()
		h.ClosedAt = &now
		h.ClosedByID = actor.UserID
		h.ConciliationReached = closure.ConciliationReached
		h.AgreementText = sanitizePlain(closure.AgreementText)
		h.SubjectMatterStatement = sanitizePlain(closure.SubjectMatterStatement)
		h.Minutes = sanitizeSection(closure.Minutes)
		h.Outcome = r.Outcome
		if !h.ConciliationReached {
			h.AgreementText = ""
		}

		for i := range evidence {
			evidence[i].HearingID = h.ID
			if err := tx.Create(&evidence[i]).Error; err != nil {
				return storageError("failed to record evidence", err)
			}
		}
		h.Evidence = evidence

		if closure.ScheduleFollowUp != nil && r.Outcome == models.HearingOutcomeFollowUp {
			follow := newHearing(p, models.HearingTypeSupplementary, *closure.ScheduleFollowUp, actor)
			parent := h.ID
			follow.ParentHearingID = &parent
			if err := tx.Create(follow).Error; err != nil {
				return storageError("failed to schedule follow-up hearing", err)
			}
			r.FollowUp = follow
		}

		sealed, err := s.Sealer.sealRecord(ctx, RecordKindHearing, p.ID, actor.UserID, hearingRecordSections(h, r.FollowUp))
		if err != nil {
			return err
		}
		h.SealedRecordHash = sealed.Hash
		h.SealedRecordLocator = sealed.Locator

		res := tx.Model(&models.Hearing{}).
			Where("id = ? AND status = ? AND closed_at IS NULL", h.ID, models.HearingStatusHeld).
			Updates(map[string]interface{}{
				"closed_at":                now,
				"closed_by_id":             h.ClosedByID,
				"conciliation_reached":     h.ConciliationReached,
				"agreement_text":           h.AgreementText,
				"subject_matter_statement": h.SubjectMatterStatement,
				"minutes":                  h.Minutes,
				"outcome":                  h.Outcome,
				"sealed_record_hash":       h.SealedRecordHash,
				"sealed_record_locator":    h.SealedRecordLocator,
				"updated_at":               now,
			})
		if res.Error != nil {
			return storageError("failed to close hearing", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPersistenceConflict
		}

		if err := s.applyOutcome(tx, p, actor, r); err != nil {
			return err
		}
		r.Hearing = h
		r.Stage = p.Stage
		result = r
		return nil
	})
	if err != nil {
		return nil, storageError("failed to close hearing", err)
	}

	s.Notifier.Kick()
	log.Printf("[HEARING] Hearing %s closed: %s (stage %s)", hearingID, result.Outcome, result.Stage)
	return result, nil
}

// branch selects the closure outcome without touching state
func (s *HearingService) branch(h *models.Hearing, closure HearingClosure) (*ClosureResult, error) {
	switch {
	case closure.ConciliationReached:
		if isBlank(closure.AgreementText) {
			return nil, validationError("a conciliation requires the agreement text")
		}
		return &ClosureResult{Outcome: models.HearingOutcomeConciliated}, nil

	case h.Type == models.HearingTypePreliminary && isBlank(closure.SubjectMatterStatement):
		return nil, fmt.Errorf("%w: a preliminary hearing without conciliation must fix the subject matter", ErrIncompleteClosure)

	case closure.ScheduleFollowUp != nil:
		follow := *closure.ScheduleFollowUp
		if follow.Modality == "" {
			follow.Modality = h.Modality
		}
		if follow.Modality != h.Modality {
			return nil, validationError("the follow-up hearing keeps the %s modality", strings.ToLower(h.Modality))
		}
		if err := s.validateSchedule(follow); err != nil {
			return nil, err
		}
		closure.ScheduleFollowUp.Modality = follow.Modality
		return &ClosureResult{Outcome: models.HearingOutcomeFollowUp}, nil

	case h.Type == models.HearingTypeSupplementary:
		return &ClosureResult{Outcome: models.HearingOutcomeJudgmentPhase}, nil
	}
	return &ClosureResult{Outcome: models.HearingOutcomeAwaiting}, nil
}

// applyOutcome raises the stage event of the branch with its notice
func (s *HearingService) applyOutcome(tx *gorm.DB, p *models.Process, actor Actor, r *ClosureResult) error {
	switch r.Outcome {
	case models.HearingOutcomeConciliated:
		notice := s.hearingNotice(p, "closed.conciliated", nil)
		return s.Machine.Apply(tx, p, StageChange{Event: models.EventConciliationReached, Actor: actor, Notice: &notice})

	case models.HearingOutcomeFollowUp:
		notice := s.hearingNotice(p, "closed.follow_up", map[string]interface{}{
			"scheduled_at": s.formatTime(r.FollowUp.ScheduledAt),
		})
		return s.Machine.Apply(tx, p, StageChange{Event: models.EventSupplementaryScheduled, Actor: actor, Notice: &notice})

	case models.HearingOutcomeJudgmentPhase:
		// the judgment term is opened on entry, so its notice follows Apply
		if err := s.Machine.Apply(tx, p, StageChange{Event: models.EventEnterJudgmentPhase, Actor: actor, Quiet: true}); err != nil {
			return err
		}
		d, err := s.Deadlines.ActiveDeadline(tx, p.ID, models.DeadlineCategoryJudgment)
		if err != nil {
			return err
		}
		r.Deadline = d
		params := map[string]interface{}{}
		if d != nil {
			params["expires_on"] = d.ExpiresOn.Format(dateLayout)
		}
		return s.Notifier.Enqueue(tx, s.hearingNotice(p, "closed.judgment_phase", params))
	}
	return s.Notifier.Enqueue(tx, s.hearingNotice(p, "closed.awaiting", nil))
}

// Suspend suspends a scheduled hearing. The process stage is unchanged.
func (s *HearingService) Suspend(ctx context.Context, actor Actor, hearingID, reason string) (*models.Hearing, error) {
	return s.withdraw(ctx, actor, hearingID, reason, models.HearingStatusSuspended)
}

// Cancel cancels a scheduled hearing. The process stage is unchanged.
func (s *HearingService) Cancel(ctx context.Context, actor Actor, hearingID, reason string) (*models.Hearing, error) {
	return s.withdraw(ctx, actor, hearingID, reason, models.HearingStatusCancelled)
}

func (s *HearingService) withdraw(ctx context.Context, actor Actor, hearingID, reason, status string) (*models.Hearing, error) {
	reason = sanitizePlain(reason)
	if reason == "" {
		return nil, validationError("a reason is required to %s a hearing", verbFor(status))
	}

	var hearing *models.Hearing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, p, err := s.loadHearing(tx, hearingID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if h.Status != models.HearingStatusScheduled {
			return invalidStateError("hearing %s is %s, only a scheduled hearing can be %s", h.ID, strings.ToLower(h.Status), strings.ToLower(status))
		}

		updates := map[string]interface{}{"status": status, "updated_at": s.now()}
		key := "suspended"
		if status == models.HearingStatusSuspended {
			updates["suspension_reason"] = reason
			h.SuspensionReason = reason
		} else {
			updates["cancellation_reason"] = reason
			h.CancellationReason = reason
			key = "cancelled"
		}
		res := tx.Model(&models.Hearing{}).Where("id = ? AND status = ?", h.ID, models.HearingStatusScheduled).Updates(updates)
		if res.Error != nil {
			return storageError("failed to update hearing", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPersistenceConflict
		}
		h.Status = status
		hearing = h
		return s.Notifier.Enqueue(tx, s.hearingNotice(p, key, map[string]interface{}{"reason": reason}))
	})
	if err != nil {
		return nil, storageError("failed to "+verbFor(status)+" hearing", err)
	}

	s.Notifier.Kick()
	log.Printf("[HEARING] Hearing %s %s: %s", hearingID, strings.ToLower(status), reason)
	return hearing, nil
}

// Reschedule creates the replacement of a suspended hearing, linked to it
func (s *HearingService) Reschedule(ctx context.Context, actor Actor, hearingID string, in HearingSchedule) (*models.Hearing, error) {
	var replacement *models.Hearing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, p, err := s.loadHearing(tx, hearingID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if h.Status != models.HearingStatusSuspended {
			return invalidStateError("hearing %s is %s, only a suspended hearing can be rescheduled", h.ID, strings.ToLower(h.Status))
		}
		var replaced int64
		if err := tx.Model(&models.Hearing{}).Where("parent_hearing_id = ?", h.ID).Count(&replaced).Error; err != nil {
			return storageError("failed to check replacement", err)
		}
		if replaced > 0 {
			return fmt.Errorf("%w: hearing %s was already rescheduled", ErrAlreadyExists, h.ID)
		}
		if err := requireNoActiveHearing(tx, p); err != nil {
			return err
		}
		if in.Modality == "" {
			in.Modality = h.Modality
			if h.MeetingURL != nil && in.MeetingURL == "" {
				in.MeetingURL = *h.MeetingURL
			}
		}
		if err := s.validateSchedule(in); err != nil {
			return err
		}

		r := newHearing(p, h.Type, in, actor)
		parent := h.ID
		r.ParentHearingID = &parent
		if err := tx.Create(r).Error; err != nil {
			return storageError("failed to create replacement hearing", err)
		}
		replacement = r
		return s.Notifier.Enqueue(tx, s.hearingNotice(p, "rescheduled", map[string]interface{}{
			"scheduled_at": s.formatTime(r.ScheduledAt),
		}))
	})
	if err != nil {
		return nil, storageError("failed to reschedule hearing", err)
	}

	s.Notifier.Kick()
	log.Printf("[HEARING] Hearing %s rescheduled as %s", hearingID, replacement.ID)
	return replacement, nil
}

// VerifyRecord recomputes the fingerprint of a closed hearing from its stored content
func (s *HearingService) VerifyRecord(actor Actor, hearingID string) (*models.Hearing, error) {
	h, p, err := s.loadHearing(s.DB, hearingID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(actor, p); err != nil {
		return nil, err
	}
	if !h.IsClosed() || h.SealedRecordHash == "" {
		return h, invalidStateError("hearing %s has no sealed record", h.ID)
	}

	var followUp *models.Hearing
	if h.Outcome == models.HearingOutcomeFollowUp {
		var child models.Hearing
		if err := s.DB.Where("parent_hearing_id = ?", h.ID).Order("created_at ASC").First(&child).Error; err != nil {
			return h, lookupError(err, "follow-up hearing of", h.ID)
		}
		followUp = &child
	}

	payload, err := CanonicalPayload(RecordKindHearing, p.ID, h.ClosedByID, hearingRecordSections(h, followUp))
	if err != nil {
		return h, err
	}
	if computed := HashPayload(payload); computed != h.SealedRecordHash {
		log.Printf("[SEAL] Content mismatch on hearing record %s: recorded %s, computed %s", h.ID, h.SealedRecordHash, computed)
		return h, fmt.Errorf("%w: hearing %s recorded %s but content hashes to %s", ErrContentMismatch, h.ID, h.SealedRecordHash, computed)
	}
	return h, nil
}

// Get returns a hearing with its evidence when actor participates in the process
func (s *HearingService) Get(actor Actor, hearingID string) (*models.Hearing, error) {
	h, p, err := s.loadHearing(s.DB, hearingID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(actor, p); err != nil {
		return nil, err
	}
	return h, nil
}

// loadHearing reads a hearing with its evidence and its process. Inside a
// transaction the process row is locked first.
func (s *HearingService) loadHearing(tx *gorm.DB, hearingID string) (*models.Hearing, *models.Process, error) {
	var h models.Hearing
	if err := tx.First(&h, "id = ?", hearingID).Error; err != nil {
		return nil, nil, lookupError(err, "hearing", hearingID)
	}
	p, err := loadProcessForUpdate(tx, h.ProcessID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Evidence").First(&h, "id = ?", hearingID).Error; err != nil {
		return nil, nil, lookupError(err, "hearing", hearingID)
	}
	return &h, p, nil
}

func (s *HearingService) hearingNotice(p *models.Process, key string, params map[string]interface{}) NotificationRequest {
	if params == nil {
		params = map[string]interface{}{}
	}
	params["case_reference"] = p.CaseReference
	return NotificationRequest{
		ProcessID:  p.ID,
		Recipients: p.RepresentativeIDs(),
		Category:   models.NotificationCategoryHearing,
		TitleKey:   "notifications.hearing." + key + ".title",
		MessageKey: "notifications.hearing." + key + ".message",
		Params:     params,
		ActionRef:  processActionRef(p.ID),
	}
}

func (s *HearingService) formatTime(t time.Time) string {
	return t.In(s.Location).Format(hearingTimeLayout)
}

// requireNoActiveHearing allows one scheduled or running hearing per process
func requireNoActiveHearing(tx *gorm.DB, p *models.Process) error {
	var active int64
	err := tx.Model(&models.Hearing{}).
		Where("process_id = ? AND (status = ? OR (status = ? AND closed_at IS NULL))", p.ID, models.HearingStatusScheduled, models.HearingStatusHeld).
		Count(&active).Error
	if err != nil {
		return storageError("failed to check hearings", err)
	}
	if active > 0 {
		return fmt.Errorf("%w: process %s already has an active hearing", ErrAlreadyExists, p.CaseReference)
	}
	return nil
}

// validateEvidence checks the evidence rulings of a closure
func validateEvidence(h *models.Hearing, rulings []EvidenceRuling) ([]models.EvidenceItem, error) {
	if len(rulings) == 0 {
		return nil, nil
	}
	if h.Type != models.HearingTypePreliminary {
		return nil, validationError("evidence is only ruled on at a preliminary hearing")
	}
	items := make([]models.EvidenceItem, 0, len(rulings))
	for i, r := range rulings {
		item := models.EvidenceItem{
			Type:               sanitizePlain(r.Type),
			Description:        sanitizePlain(r.Description),
			OfferedBy:          sanitizePlain(r.OfferedBy),
			Admitted:           r.Admitted,
			RejectionRationale: sanitizePlain(r.RejectionRationale),
		}
		if item.Type == "" || item.Description == "" {
			return nil, validationError("evidence item %d needs a type and a description", i+1)
		}
		if !item.Admitted && item.RejectionRationale == "" {
			return nil, validationError("rejected evidence item %d needs a rationale", i+1)
		}
		if item.Admitted {
			item.RejectionRationale = ""
		}
		items = append(items, item)
	}
	return items, nil
}

// hearingRecordSections renders the closure content that the record seal covers
func hearingRecordSections(h *models.Hearing, followUp *models.Hearing) map[string]string {
	attendance, _ := json.Marshal(h.Attendance)

	evidence := make([]string, 0, len(h.Evidence))
	for _, e := range h.Evidence {
		b, _ := json.Marshal(map[string]interface{}{
			"type":                e.Type,
			"description":         e.Description,
			"offered_by":          e.OfferedBy,
			"admitted":            e.Admitted,
			"rejection_rationale": e.RejectionRationale,
		})
		evidence = append(evidence, string(b))
	}
	sort.Strings(evidence)

	sections := map[string]string{
		"hearing_id":               h.ID,
		"type":                     h.Type,
		"modality":                 h.Modality,
		"started_at":               formatSealTime(h.StartedAt),
		"closed_at":                formatSealTime(h.ClosedAt),
		"attendance":               string(attendance),
		"conciliation_reached":     strconv.FormatBool(h.ConciliationReached),
		"agreement_text":           h.AgreementText,
		"subject_matter_statement": h.SubjectMatterStatement,
		"evidence":                 "[" + strings.Join(evidence, ",") + "]",
		"outcome":                  h.Outcome,
		"minutes":                  h.Minutes,
	}
	if followUp != nil {
		sections["follow_up"] = formatSealTime(&followUp.ScheduledAt)
	}
	return sections
}

func formatSealTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func verbFor(status string) string {
	if status == models.HearingStatusSuspended {
		return "suspend"
	}
	return "cancel"
}
