package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"court_flow_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var attemptTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// CitationAttemptInput is one failed service attempt
type CitationAttemptInput struct {
	Date   time.Time `json:"date"`
	Time   string    `json:"time"` // HH:MM
	Reason string    `json:"reason"`
}

// AttemptResult reports the citation after an attempt and whether re-ordering
// by public edict is advised. The advisory never changes the citation.
type AttemptResult struct {
	Citation          *models.Citation `json:"citation"`
	FailedAttempts    int              `json:"failed_attempts"`
	EscalationAdvised bool             `json:"escalation_advised"`
}

// CitationService tracks service of process on the responding party
type CitationService struct {
	DB        *gorm.DB
	Machine   *ProcessStateMachine
	Deadlines *DeadlineService
	Notifier  *NotificationDispatcher
	Metrics   *Metrics
	Now       func() time.Time
}

func NewCitationService(db *gorm.DB, machine *ProcessStateMachine, deadlines *DeadlineService, notifier *NotificationDispatcher) *CitationService {
	return &CitationService{DB: db, Machine: machine, Deadlines: deadlines, Notifier: notifier, Now: time.Now}
}

// OrderCitation orders service by method. A still-open earlier citation is
// closed as failed so that only one effort is open at a time.
func (s *CitationService) OrderCitation(ctx context.Context, actor Actor, processID, method, notes string) (*models.Citation, error) {
	if !models.IsValidCitationMethod(method) {
		return nil, validationError("invalid citation method %q", method)
	}

	var citation *models.Citation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProcessForUpdate(tx, processID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if p.Stage != models.StageAdmitted {
			return invalidStateError("citation can only be ordered on an admitted process, %s is %s", p.CaseReference, p.Stage)
		}

		now := s.Now()
		if err := closeOpenCitations(tx, p.ID, now, "superseded by a new citation order"); err != nil {
			return err
		}
		seq, err := nextCitationSequence(tx, p.ID)
		if err != nil {
			return err
		}
		citation = &models.Citation{
			ProcessID:   p.ID,
			Sequence:    seq,
			Method:      method,
			Status:      models.CitationStatusPending,
			Notes:       sanitizePlain(notes),
			OrderedByID: actor.UserID,
		}
		if err := tx.Create(citation).Error; err != nil {
			return storageError("failed to create citation", err)
		}
		return s.Notifier.Enqueue(tx, NotificationRequest{
			ProcessID:  p.ID,
			Recipients: []string{p.FilerRepresentativeID},
			Category:   models.NotificationCategoryCitation,
			TitleKey:   "notifications.citation.ordered.title",
			MessageKey: "notifications.citation.ordered.message",
			Params:     map[string]interface{}{"case_reference": p.CaseReference, "method": strings.ToLower(method)},
			ActionRef:  processActionRef(p.ID),
		})
	})
	if err != nil {
		return nil, storageError("failed to order citation", err)
	}

	s.Notifier.Kick()
	log.Printf("[CITATION] Ordered citation #%d by %s for process %s", citation.Sequence, method, processID)
	return citation, nil
}

// RegisterFailedAttempt appends a failed attempt. From the third attempt on
// the result advises re-ordering by public edict.
func (s *CitationService) RegisterFailedAttempt(ctx context.Context, actor Actor, citationID string, in CitationAttemptInput) (*AttemptResult, error) {
	if in.Date.IsZero() {
		return nil, validationError("attempt date is required")
	}
	if !attemptTimePattern.MatchString(in.Time) {
		return nil, validationError("attempt time must be HH:MM, got %q", in.Time)
	}
	if isBlank(in.Reason) {
		return nil, validationError("a failed attempt requires its reason")
	}

	var result *AttemptResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, p, err := s.loadCitation(tx, citationID)
		if err != nil {
			return err
		}
		if err := requireCitationActor(actor, p); err != nil {
			return err
		}
		if c.IsTerminal() {
			return invalidStateError("citation #%d is already %s", c.Sequence, strings.ToLower(c.Status))
		}
		if s.Deadlines.Calendar.DateOf(in.Date).After(s.Deadlines.Calendar.DateOf(s.Now())) {
			return validationError("attempt date %s is in the future", in.Date.Format(dateLayout))
		}

		attempt := models.CitationAttempt{
			CitationID:  c.ID,
			Sequence:    len(c.Attempts) + 1,
			AttemptedOn: s.Deadlines.Calendar.DateOf(in.Date),
			AttemptTime: in.Time,
			Reason:      sanitizePlain(in.Reason),
			RecordedBy:  actor.UserID,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return storageError("failed to record attempt", err)
		}
		c.Attempts = append(c.Attempts, attempt)

		if c.Status == models.CitationStatusPending {
			if err := tx.Model(&models.Citation{}).Where("id = ?", c.ID).
				Update("status", models.CitationStatusInProgress).Error; err != nil {
				return storageError("failed to update citation", err)
			}
			c.Status = models.CitationStatusInProgress
		}

		result = &AttemptResult{Citation: c, FailedAttempts: len(c.Attempts), EscalationAdvised: c.EscalationAdvised()}
		if result.EscalationAdvised && result.FailedAttempts == models.EscalationAttemptThreshold {
			s.Metrics.escalationAdvised()
			return s.Notifier.Enqueue(tx, NotificationRequest{
				ProcessID:  p.ID,
				Recipients: []string{p.FilerRepresentativeID, p.PresidingOfficerID},
				Category:   models.NotificationCategoryCitation,
				TitleKey:   "notifications.citation.escalation_advised.title",
				MessageKey: "notifications.citation.escalation_advised.message",
				Params:     map[string]interface{}{"case_reference": p.CaseReference, "attempts": result.FailedAttempts},
				ActionRef:  processActionRef(p.ID),
			})
		}
		return nil
	})
	if err != nil {
		return nil, storageError("failed to register attempt", err)
	}

	if result.EscalationAdvised {
		s.Notifier.Kick()
		log.Printf("[CITATION] Citation %s has %d failed attempts, public edict advised", citationID, result.FailedAttempts)
	}
	return result, nil
}

// MarkSuccessful records effective service at the given time, opens the
// response term and moves the process to Cited in one transaction.
func (s *CitationService) MarkSuccessful(ctx context.Context, actor Actor, citationID string, at time.Time, notes string) (*models.Citation, *models.Deadline, error) {
	if at.IsZero() {
		return nil, nil, validationError("service time is required")
	}
	if at.After(s.Now()) {
		return nil, nil, validationError("service time %s is in the future", at.Format(time.RFC3339))
	}

	var (
		citation *models.Citation
		deadline *models.Deadline
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, p, err := s.loadCitation(tx, citationID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if c.IsTerminal() {
			return invalidStateError("citation #%d is already %s", c.Sequence, strings.ToLower(c.Status))
		}

		res := tx.Model(&models.Citation{}).
			Where("id = ? AND status IN ?", c.ID, []string{models.CitationStatusPending, models.CitationStatusInProgress}).
			Updates(map[string]interface{}{
				"status":       models.CitationStatusSuccessful,
				"succeeded_at": at,
				"notes":        appendNotes(c.Notes, notes),
			})
		if res.Error != nil {
			return storageError("failed to update citation", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPersistenceConflict
		}
		c.Status = models.CitationStatusSuccessful
		c.SucceededAt = &at
		c.Notes = appendNotes(c.Notes, notes)

		deadline, err = s.serve(tx, p, actor, c, at)
		if err != nil {
			return err
		}
		citation = c
		return nil
	})
	if err != nil {
		return nil, nil, storageError("failed to mark citation successful", err)
	}

	s.Notifier.Kick()
	log.Printf("[CITATION] Citation %s successful (%s), response term expires %s", citationID, citation.Method, deadline.ExpiresOn.Format(dateLayout))
	return citation, deadline, nil
}

// MarkFailed closes an open citation without service. The officer must
// order a new citation to continue.
func (s *CitationService) MarkFailed(ctx context.Context, actor Actor, citationID, notes string) (*models.Citation, error) {
	var citation *models.Citation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, p, err := s.loadCitation(tx, citationID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if c.IsTerminal() {
			return invalidStateError("citation #%d is already %s", c.Sequence, strings.ToLower(c.Status))
		}
		now := s.Now()
		c.Notes = appendNotes(c.Notes, notes)
		if err := tx.Model(&models.Citation{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
			"status":    models.CitationStatusFailed,
			"failed_at": now,
			"notes":     c.Notes,
		}).Error; err != nil {
			return storageError("failed to update citation", err)
		}
		c.Status = models.CitationStatusFailed
		c.FailedAt = &now
		citation = c
		return nil
	})
	if err != nil {
		return nil, storageError("failed to mark citation failed", err)
	}
	log.Printf("[CITATION] Citation %s marked failed", citationID)
	return citation, nil
}

// RegisterTacit records constructive service from the responding party's
// appearance. It behaves as a successful personal citation.
func (s *CitationService) RegisterTacit(ctx context.Context, actor Actor, processID string, appearedAt time.Time, notes string) (*models.Citation, *models.Deadline, error) {
	if appearedAt.IsZero() {
		return nil, nil, validationError("appearance time is required")
	}
	if appearedAt.After(s.Now()) {
		return nil, nil, validationError("appearance time %s is in the future", appearedAt.Format(time.RFC3339))
	}

	var (
		citation *models.Citation
		deadline *models.Deadline
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProcessForUpdate(tx, processID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if p.Stage != models.StageAdmitted {
			return &TransitionError{Stage: p.Stage, Event: models.EventCitationSucceeded, Reason: "tacit citation requires an admitted process"}
		}
		if err := closeOpenCitations(tx, p.ID, s.Now(), "superseded by tacit citation"); err != nil {
			return err
		}
		seq, err := nextCitationSequence(tx, p.ID)
		if err != nil {
			return err
		}
		c := &models.Citation{
			ProcessID:   p.ID,
			Sequence:    seq,
			Method:      models.CitationMethodTacit,
			Status:      models.CitationStatusTacit,
			SucceededAt: &appearedAt,
			Notes:       sanitizePlain(notes),
			OrderedByID: actor.UserID,
		}
		if err := tx.Create(c).Error; err != nil {
			return storageError("failed to create citation", err)
		}
		deadline, err = s.serve(tx, p, actor, c, appearedAt)
		if err != nil {
			return err
		}
		citation = c
		return nil
	})
	if err != nil {
		return nil, nil, storageError("failed to register tacit citation", err)
	}

	s.Notifier.Kick()
	log.Printf("[CITATION] Tacit citation registered for process %s", processID)
	return citation, deadline, nil
}

// serve opens the response term and raises citation_succeeded
func (s *CitationService) serve(tx *gorm.DB, p *models.Process, actor Actor, c *models.Citation, at time.Time) (*models.Deadline, error) {
	if p.Stage != models.StageAdmitted {
		return nil, &TransitionError{Stage: p.Stage, Event: models.EventCitationSucceeded}
	}
	deadline, err := s.Deadlines.Open(tx, p, models.DeadlineCategoryResponse, at, ResponseTermFor(c.Method), models.AssigneeResponder, c.ID)
	if err != nil {
		return nil, err
	}
	notice := &NotificationRequest{
		ProcessID:  p.ID,
		Recipients: p.RepresentativeIDs(),
		Category:   models.NotificationCategoryCitation,
		TitleKey:   "notifications.citation.succeeded.title",
		MessageKey: "notifications.citation.succeeded.message",
		Params: map[string]interface{}{
			"case_reference": p.CaseReference,
			"expires_on":     deadline.ExpiresOn.Format(dateLayout),
		},
		ActionRef: processActionRef(p.ID),
	}
	if err := s.Machine.Apply(tx, p, StageChange{Event: models.EventCitationSucceeded, Actor: actor, Notice: notice}); err != nil {
		return nil, err
	}
	return deadline, nil
}

// ListForProcess returns the citations of a process with their attempts
func (s *CitationService) ListForProcess(actor Actor, processID string) ([]models.Citation, error) {
	var p models.Process
	if err := s.DB.First(&p, "id = ?", processID).Error; err != nil {
		return nil, lookupError(err, "process", processID)
	}
	if err := requireParticipant(actor, &p); err != nil {
		return nil, err
	}
	var citations []models.Citation
	err := s.DB.Preload("Attempts", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).Where("process_id = ?", processID).Order("sequence ASC").Find(&citations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list citations: %w", err)
	}
	return citations, nil
}

// loadCitation reads a citation with its attempts and locks its process
func (s *CitationService) loadCitation(tx *gorm.DB, citationID string) (*models.Citation, *models.Process, error) {
	var c models.Citation
	if err := tx.First(&c, "id = ?", citationID).Error; err != nil {
		return nil, nil, lookupError(err, "citation", citationID)
	}
	p, err := loadProcessForUpdate(tx, c.ProcessID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", citationID).Error; err != nil {
		return nil, nil, lookupError(err, "citation", citationID)
	}
	if err := tx.Where("citation_id = ?", c.ID).Order("sequence ASC").Find(&c.Attempts).Error; err != nil {
		return nil, nil, storageError("failed to load attempts", err)
	}
	return &c, p, nil
}

// requireCitationActor allows the assigned officer or the filer's representative,
// who carries out service
func requireCitationActor(actor Actor, p *models.Process) error {
	if actor.IsOfficer() {
		return requireOfficer(actor, p)
	}
	return requireFilerRepresentative(actor, p)
}

func closeOpenCitations(tx *gorm.DB, processID string, at time.Time, reason string) error {
	err := tx.Model(&models.Citation{}).
		Where("process_id = ? AND status IN ?", processID, []string{models.CitationStatusPending, models.CitationStatusInProgress}).
		Updates(map[string]interface{}{
			"status":    models.CitationStatusFailed,
			"failed_at": at,
			"notes":     gorm.Expr("TRIM(COALESCE(notes, '') || ' ' || ?)", "["+reason+"]"),
		}).Error
	if err != nil {
		return storageError("failed to close open citations", err)
	}
	return nil
}

func nextCitationSequence(tx *gorm.DB, processID string) (int, error) {
	var last models.Citation
	err := tx.Where("process_id = ?", processID).Order("sequence DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, storageError("failed to read citation sequence", err)
	}
	return last.Sequence + 1, nil
}

func appendNotes(existing, extra string) string {
	extra = sanitizePlain(extra)
	switch {
	case extra == "":
		return existing
	case existing == "":
		return extra
	}
	return existing + "\n" + extra
}
