package services

import (
	"context"
	"log"
	"time"

	"court_flow_app_go/models"

	"gorm.io/gorm"
)

// JudgmentContent is the body of a judgment (sentencia)
type JudgmentContent struct {
	Background     string `json:"background"`
	Considerations string `json:"considerations"`
	Decision       string `json:"decision"`
	Costs          string `json:"costs,omitempty"`
}

func (j JudgmentContent) Sections() map[string]string {
	return map[string]string{
		"background":     j.Background,
		"considerations": j.Considerations,
		"decision":       j.Decision,
		"costs":          j.Costs,
	}
}

func (j JudgmentContent) Validate() error {
	if isBlank(j.Considerations) {
		return validationError("a judgment requires its considerations")
	}
	if isBlank(j.Decision) {
		return validationError("a judgment requires its decision")
	}
	return nil
}

// JudgmentResult is the sealed judgment with the appeal term it opened
type JudgmentResult struct {
	Document *models.LegalDocument `json:"document"`
	Process  *models.Process       `json:"process"`
	Appeal   *models.Deadline      `json:"appeal_deadline"`
}

// JudgmentService seals judgments. Sealing moves the process to Judged and
// opens the appeal term from the notification time.
type JudgmentService struct {
	DB        *gorm.DB
	Machine   *ProcessStateMachine
	Deadlines *DeadlineService
	Sealer    *DocumentSealer
	Notifier  *NotificationDispatcher
}

func NewJudgmentService(db *gorm.DB, machine *ProcessStateMachine, deadlines *DeadlineService, sealer *DocumentSealer, notifier *NotificationDispatcher) *JudgmentService {
	return &JudgmentService{DB: db, Machine: machine, Deadlines: deadlines, Sealer: sealer, Notifier: notifier}
}

// IssueJudgment creates, seals and notifies the judgment of a process awaiting it
func (s *JudgmentService) IssueJudgment(ctx context.Context, actor Actor, processID string, content JudgmentContent) (*JudgmentResult, error) {
	if err := content.Validate(); err != nil {
		return nil, err
	}

	var result *JudgmentResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProcessForUpdate(tx, processID)
		if err != nil {
			return err
		}
		if err := requireOfficer(actor, p); err != nil {
			return err
		}
		if _, ok := NextStage(p.Stage, models.EventJudgmentIssued); !ok {
			return &TransitionError{Stage: p.Stage, Event: models.EventJudgmentIssued}
		}

		doc, err := newDocument(tx, p.ID, models.DocumentKindJudgment, actor, content.Sections())
		if err != nil {
			return err
		}
		if err := s.Sealer.Seal(ctx, tx, doc); err != nil {
			return err
		}
		if err := s.Machine.Apply(tx, p, StageChange{Event: models.EventJudgmentIssued, Actor: actor, Quiet: true}); err != nil {
			return err
		}

		notifiedAt := *doc.NotifiedAt
		if _, err := s.Deadlines.Fulfill(tx, p.ID, models.DeadlineCategoryJudgment, notifiedAt); err != nil {
			return err
		}
		appeal, err := s.Deadlines.Open(tx, p, models.DeadlineCategoryAppeal, notifiedAt, AppealTermDays, models.AssigneeBothParties, doc.ID)
		if err != nil {
			return err
		}

		if err := s.Notifier.Enqueue(tx, NotificationRequest{
			ProcessID:  p.ID,
			Recipients: p.RepresentativeIDs(),
			Category:   models.NotificationCategoryJudgment,
			TitleKey:   "notifications.judgment.issued.title",
			MessageKey: "notifications.judgment.issued.message",
			Params: map[string]interface{}{
				"case_reference": p.CaseReference,
				"expires_on":     appeal.ExpiresOn.Format(dateLayout),
			},
			ActionRef: processActionRef(p.ID),
		}); err != nil {
			return err
		}

		result = &JudgmentResult{Document: doc, Process: p, Appeal: appeal}
		return nil
	})
	if err != nil {
		return nil, storageError("failed to issue judgment", err)
	}

	s.Notifier.Kick()
	log.Printf("[SEAL] Judgment %s issued for %s, appeal term expires %s",
		result.Document.ID, result.Process.CaseReference, result.Appeal.ExpiresOn.Format(dateLayout))
	return result, nil
}

// AppealWindow reports the appeal term of a judged process evaluated at asOf
func (s *JudgmentService) AppealWindow(processID string, asOf time.Time) (*DeadlineView, error) {
	d, err := s.Deadlines.ActiveDeadline(s.DB, processID, models.DeadlineCategoryAppeal)
	if err != nil || d == nil {
		return nil, err
	}
	v := s.Deadlines.View(*d, asOf)
	return &v, nil
}
