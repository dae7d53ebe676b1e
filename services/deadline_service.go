package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"court_flow_app_go/models"

	"gorm.io/gorm"
)

// Statutory term lengths in business days
const (
	ResponseTermDays      = 30
	ResponseTermEdictDays = 20
	JudgmentTermDays      = 20
	AppealTermDays        = 15
)

// ResponseTermFor returns the response term that a citation by method opens
func ResponseTermFor(method string) int {
	if method == models.CitationMethodEdict {
		return ResponseTermEdictDays
	}
	return ResponseTermDays
}

// DeadlineService opens, resolves and reports statutory terms
type DeadlineService struct {
	DB       *gorm.DB
	Calendar Calendar
	Notifier *NotificationDispatcher
	Metrics  *Metrics
	Now      func() time.Time
}

func NewDeadlineService(db *gorm.DB, calendar Calendar, notifier *NotificationDispatcher) *DeadlineService {
	return &DeadlineService{DB: db, Calendar: calendar, Notifier: notifier, Now: time.Now}
}

// DeadlineView is a deadline with its status evaluated at a point in time
type DeadlineView struct {
	models.Deadline
	EffectiveStatus string `json:"effective_status"`
	// RemainingDays is negative once the term has lapsed
	RemainingDays int `json:"remaining_days"`
	// DisplayDays is RemainingDays clamped at zero
	DisplayDays int `json:"display_days"`
}

// Open creates an active term inside tx. Expiry is the nth business day after start.
func (s *DeadlineService) Open(tx *gorm.DB, p *models.Process, category string, start time.Time, businessDays int, assignee string, sourceID string) (*models.Deadline, error) {
	if businessDays <= 0 {
		return nil, validationError("a term needs a positive number of business days, got %d", businessDays)
	}
	d := &models.Deadline{
		ProcessID:    p.ID,
		Category:     category,
		StartDate:    start,
		ExpiresOn:    s.Calendar.AddBusinessDays(start, businessDays),
		BusinessDays: businessDays,
		Assignee:     assignee,
		Status:       models.DeadlineStatusActive,
		SourceID:     sourceID,
	}
	if userID := assigneeUser(p, assignee); userID != "" {
		d.AssigneeUserID = &userID
	}
	if err := tx.Create(d).Error; err != nil {
		return nil, storageError("failed to open deadline", err)
	}
	log.Printf("[DEADLINE] Opened %s term for process %s: %d business days from %s, expires %s",
		category, p.CaseReference, businessDays, start.Format(dateLayout), d.ExpiresOn.Format(dateLayout))
	return d, nil
}

// Fulfill marks the most recent active term of category fulfilled.
// It returns nil without error when no term is active.
func (s *DeadlineService) Fulfill(tx *gorm.DB, processID, category string, at time.Time) (*models.Deadline, error) {
	d, err := s.ActiveDeadline(tx, processID, category)
	if err != nil || d == nil {
		return nil, err
	}
	res := tx.Model(&models.Deadline{}).
		Where("id = ? AND status = ?", d.ID, models.DeadlineStatusActive).
		Updates(map[string]interface{}{
			"status":       models.DeadlineStatusFulfilled,
			"fulfilled_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return nil, storageError("failed to fulfill deadline", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	d.Status = models.DeadlineStatusFulfilled
	d.FulfilledAt = &at
	return d, nil
}

// ActiveDeadline returns the most recent active term of category, or nil
func (s *DeadlineService) ActiveDeadline(tx *gorm.DB, processID, category string) (*models.Deadline, error) {
	return s.findDeadline(tx, processID, category, models.DeadlineStatusActive)
}

// LatestDeadline returns the most recent term of category in any status, or nil
func (s *DeadlineService) LatestDeadline(tx *gorm.DB, processID, category string) (*models.Deadline, error) {
	return s.findDeadline(tx, processID, category, "")
}

func (s *DeadlineService) findDeadline(tx *gorm.DB, processID, category, status string) (*models.Deadline, error) {
	q := tx.Where("process_id = ? AND category = ?", processID, category)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var d models.Deadline
	err := q.Order("start_date DESC, created_at DESC").First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("failed to load deadline", err)
	}
	return &d, nil
}

// IsLapsed reports whether asOf falls after the expiry date
func (s *DeadlineService) IsLapsed(d *models.Deadline, asOf time.Time) bool {
	return s.Calendar.DateOf(asOf).After(s.Calendar.DateOf(d.ExpiresOn))
}

// RemainingDays counts business days left until expiry. The value is
// signed: an expired term always reports a negative count.
func (s *DeadlineService) RemainingDays(d *models.Deadline, asOf time.Time) int {
	n := s.Calendar.BusinessDaysBetween(asOf, d.ExpiresOn)
	if s.IsLapsed(d, asOf) && n >= 0 {
		n = -1
	}
	return n
}

// DisplayRemainingDays is RemainingDays clamped at zero for display
func (s *DeadlineService) DisplayRemainingDays(d *models.Deadline, asOf time.Time) int {
	if n := s.RemainingDays(d, asOf); n > 0 {
		return n
	}
	return 0
}

// EffectiveStatus evaluates expiry on read. A fulfilled term stays fulfilled.
func (s *DeadlineService) EffectiveStatus(d *models.Deadline, asOf time.Time) string {
	if d.Status == models.DeadlineStatusActive && s.IsLapsed(d, asOf) {
		return models.DeadlineStatusExpired
	}
	return d.Status
}

// View evaluates d at asOf
func (s *DeadlineService) View(d models.Deadline, asOf time.Time) DeadlineView {
	v := DeadlineView{Deadline: d, EffectiveStatus: s.EffectiveStatus(&d, asOf)}
	if d.Status == models.DeadlineStatusActive || d.Status == models.DeadlineStatusExpired {
		v.RemainingDays = s.RemainingDays(&d, asOf)
		v.DisplayDays = s.DisplayRemainingDays(&d, asOf)
	}
	return v
}

// ListForProcess returns the process's terms ordered by start date, evaluated now
func (s *DeadlineService) ListForProcess(actor Actor, processID string) ([]DeadlineView, error) {
	var p models.Process
	if err := s.DB.First(&p, "id = ?", processID).Error; err != nil {
		return nil, lookupError(err, "process", processID)
	}
	if err := requireParticipant(actor, &p); err != nil {
		return nil, err
	}

	var rows []models.Deadline
	if err := s.DB.Where("process_id = ?", processID).Order("start_date ASC, created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list deadlines: %w", err)
	}

	now := s.Now()
	views := make([]DeadlineView, 0, len(rows))
	for _, d := range rows {
		views = append(views, s.View(d, now))
	}
	return views, nil
}

// errSweepSkipped rolls back a sweep step whose term was already closed
var errSweepSkipped = errors.New("deadline no longer active")

// Sweep flags active terms that lapsed before asOf and notifies their assignees.
// Each term is flagged in its own transaction.
func (s *DeadlineService) Sweep(ctx context.Context, asOf time.Time) (int, error) {
	start := time.Now()
	defer s.Metrics.observe("deadline_sweep", start)

	var candidates []models.Deadline
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND expires_on < ?", models.DeadlineStatusActive, s.Calendar.DateOf(asOf)).
		Order("expires_on ASC").
		Find(&candidates).Error; err != nil {
		return 0, fmt.Errorf("failed to list active deadlines: %w", err)
	}

	expired := 0
	for i := range candidates {
		d := candidates[i]
		if !s.IsLapsed(&d, asOf) {
			continue
		}
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Deadline{}).
				Where("id = ? AND status = ?", d.ID, models.DeadlineStatusActive).
				Updates(map[string]interface{}{
					"status":     models.DeadlineStatusExpired,
					"expired_at": asOf,
					"updated_at": asOf,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errSweepSkipped
			}

			var p models.Process
			if err := tx.First(&p, "id = ?", d.ProcessID).Error; err != nil {
				return err
			}
			if s.Notifier == nil {
				return nil
			}
			return s.Notifier.Enqueue(tx, NotificationRequest{
				ProcessID:  p.ID,
				Recipients: deadlineRecipients(&p, &d),
				Category:   models.NotificationCategoryDeadline,
				TitleKey:   "notifications.deadline.expired." + strings.ToLower(d.Category) + ".title",
				MessageKey: "notifications.deadline.expired." + strings.ToLower(d.Category) + ".message",
				Params: map[string]interface{}{
					"case_reference": p.CaseReference,
					"expires_on":     s.Calendar.DateOf(d.ExpiresOn).Format(dateLayout),
				},
				ActionRef: processActionRef(p.ID),
			})
		})
		switch {
		case err == nil:
			expired++
		case errors.Is(err, errSweepSkipped):
		default:
			log.Printf("[DEADLINE] Failed to flag deadline %s as expired: %v", d.ID, err)
		}
	}

	if expired > 0 {
		s.Metrics.deadlinesExpired(expired)
		if s.Notifier != nil {
			s.Notifier.Kick()
		}
		log.Printf("[DEADLINE] Sweep flagged %d expired deadlines", expired)
	}
	return expired, nil
}

func assigneeUser(p *models.Process, assignee string) string {
	switch assignee {
	case models.AssigneeFiler:
		return p.FilerRepresentativeID
	case models.AssigneeResponder:
		if p.ResponderRepresentativeID != nil {
			return *p.ResponderRepresentativeID
		}
	case models.AssigneePresidingOfficer:
		return p.PresidingOfficerID
	}
	return ""
}

func deadlineRecipients(p *models.Process, d *models.Deadline) []string {
	switch d.Assignee {
	case models.AssigneeBothParties:
		return p.RepresentativeIDs()
	case models.AssigneePresidingOfficer:
		return []string{p.PresidingOfficerID}
	}
	if d.AssigneeUserID != nil {
		return []string{*d.AssigneeUserID}
	}
	return p.RepresentativeIDs()
}
