package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"court_flow_app_go/models"

	"gorm.io/gorm"
)

const caseReferenceRetries = 10

var courtCodeCleaner = regexp.MustCompile(`[^A-Z0-9]+`)

// NewProcess is the input for opening a process in Draft
type NewProcess struct {
	FilingPartyID             string        `json:"filing_party_id"`
	RespondingPartyID         string        `json:"responding_party_id"`
	ResponderRepresentativeID string        `json:"responder_representative_id,omitempty"`
	PresidingOfficerID        string        `json:"presiding_officer_id"`
	CourtID                   string        `json:"court_id"`
	SubjectMatter             string        `json:"subject_matter"`
	ProcessType               string        `json:"process_type"`
	ClaimValue                int64         `json:"claim_value"`
	Filing                    FilingContent `json:"filing"`
}

// FilingContent is the structured body of the claim (demanda)
type FilingContent struct {
	Claims               string `json:"claims"`
	Facts                string `json:"facts"`
	LegalGrounds         string `json:"legal_grounds"`
	Evidence             string `json:"evidence,omitempty"`
	ClaimValueStatement  string `json:"claim_value_statement,omitempty"`
	NotificationsAddress string `json:"notifications_address"`
}

// Sections renders the filing as document sections
func (f FilingContent) Sections() map[string]string {
	return map[string]string{
		"claims":                f.Claims,
		"facts":                 f.Facts,
		"legal_grounds":         f.LegalGrounds,
		"evidence":              f.Evidence,
		"claim_value_statement": f.ClaimValueStatement,
		"notifications_address": f.NotificationsAddress,
	}
}

// Validate checks the sections a filing cannot be submitted without
func (f FilingContent) Validate() error {
	return validateFilingSections(f.Sections())
}

var requiredFilingSections = []string{"claims", "facts", "legal_grounds", "notifications_address"}

func validateFilingSections(sections map[string]string) error {
	var missing []string
	for _, key := range requiredFilingSections {
		if isBlank(sections[key]) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return validationError("filing is missing required sections: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ProcessService opens processes and edits the draft filing
type ProcessService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewProcessService(db *gorm.DB) *ProcessService {
	return &ProcessService{DB: db, Now: time.Now}
}

// ProcessDetail is a process with everything attached to it
type ProcessDetail struct {
	Process     models.Process             `json:"process"`
	Documents   []models.LegalDocument     `json:"documents"`
	Citations   []models.Citation          `json:"citations"`
	Hearings    []models.Hearing           `json:"hearings"`
	Deadlines   []models.Deadline          `json:"deadlines"`
	Transitions []models.ProcessTransition `json:"transitions"`
	Allowed     []models.Event             `json:"allowed_events"`
}

// CreateProcess opens a Draft process represented by actor with a draft filing.
// The filing may be incomplete until it is submitted.
func (s *ProcessService) CreateProcess(actor Actor, in NewProcess) (*models.Process, error) {
	if !actor.IsFiler() {
		return nil, unauthorizedError("only a party representative may open a process")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var process *models.Process
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireUserRole(tx, in.PresidingOfficerID, models.RolePresidingOfficer); err != nil {
			return err
		}
		if in.ResponderRepresentativeID != "" {
			if in.ResponderRepresentativeID == actor.UserID {
				return validationError("the responding party cannot be represented by the filer's representative")
			}
			if err := requireUserRole(tx, in.ResponderRepresentativeID, models.RoleFiler); err != nil {
				return err
			}
		}

		p := &models.Process{
			Stage:                 models.StageDraft,
			FilingPartyID:         sanitizePlain(in.FilingPartyID),
			FilerRepresentativeID: actor.UserID,
			RespondingPartyID:     sanitizePlain(in.RespondingPartyID),
			PresidingOfficerID:    in.PresidingOfficerID,
			CourtID:               strings.TrimSpace(in.CourtID),
			SubjectMatter:         sanitizePlain(in.SubjectMatter),
			ProcessType:           sanitizePlain(in.ProcessType),
			ClaimValue:            in.ClaimValue,
		}
		if in.ResponderRepresentativeID != "" {
			rep := in.ResponderRepresentativeID
			p.ResponderRepresentativeID = &rep
		}
		if err := s.createWithReference(tx, p); err != nil {
			return err
		}
		if _, err := newDocument(tx, p.ID, models.DocumentKindFiling, actor, in.Filing.Sections()); err != nil {
			return err
		}
		process = p
		return nil
	})
	if err != nil {
		return nil, storageError("failed to create process", err)
	}

	log.Printf("[PROCESS] Created %s (court: %s, filer representative: %s)", process.CaseReference, process.CourtID, actor.UserID)
	return process, nil
}

func (in NewProcess) validate() error {
	switch {
	case isBlank(in.FilingPartyID):
		return validationError("filing party is required")
	case isBlank(in.RespondingPartyID):
		return validationError("responding party is required")
	case isBlank(in.PresidingOfficerID):
		return validationError("presiding officer is required")
	case isBlank(in.CourtID):
		return validationError("court is required")
	case isBlank(in.SubjectMatter):
		return validationError("subject matter is required")
	case isBlank(in.ProcessType):
		return validationError("process type is required")
	case in.ClaimValue < 0:
		return validationError("claim value cannot be negative")
	}
	return nil
}

// createWithReference inserts p under the next free case reference, retrying on collisions
func (s *ProcessService) createWithReference(tx *gorm.DB, p *models.Process) error {
	for i := 0; i < caseReferenceRetries; i++ {
		ref, err := nextCaseReference(tx, p.CourtID, s.Now().Year())
		if err != nil {
			return err
		}
		p.CaseReference = ref
		err = tx.Transaction(func(inner *gorm.DB) error {
			return inner.Create(p).Error
		})
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return storageError("failed to create process", err)
		}
		p.ID = ""
	}
	return fmt.Errorf("failed to generate unique case reference after %d attempts", caseReferenceRetries)
}

// CourtCode normalizes a court identifier for use in case references
func CourtCode(courtID string) string {
	code := courtCodeCleaner.ReplaceAllString(strings.ToUpper(courtID), "")
	if code == "" {
		return "COURT"
	}
	return code
}

// nextCaseReference returns <COURT>-<YEAR>-<SEQ> following the highest sequence of the year
func nextCaseReference(tx *gorm.DB, courtID string, year int) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", CourtCode(courtID), year)

	var last models.Process
	err := tx.Where("case_reference LIKE ?", prefix+"%").
		Order("case_reference DESC").
		First(&last).Error

	sequence := 1
	if err == nil {
		var parsed int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(last.CaseReference, prefix), "%d", &parsed); scanErr == nil {
			sequence = parsed + 1
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to query last case reference: %w", err)
	}

	return fmt.Sprintf("%s%05d", prefix, sequence), nil
}

// UpdateFiling replaces the draft filing content. A filing that has been
// submitted is sealed and can only be amended through resubmit.
func (s *ProcessService) UpdateFiling(actor Actor, processID string, content FilingContent) (*models.LegalDocument, error) {
	var doc *models.LegalDocument
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		p, err := loadProcessForUpdate(tx, processID)
		if err != nil {
			return err
		}
		if err := requireFilerRepresentative(actor, p); err != nil {
			return err
		}
		filing, err := activeDocument(tx, p.ID, models.DocumentKindFiling)
		if err != nil {
			return err
		}
		if filing == nil {
			return notFoundError("filing of process", p.ID)
		}
		if filing.IsSealed() {
			return fmt.Errorf("%w: the filing of %s was submitted and can only be amended by resubmitting", ErrDocumentAlreadySealed, p.CaseReference)
		}
		sections := content.Sections()
		if err := validateSections(models.DocumentKindFiling, sections); err != nil {
			return err
		}
		filing.Sections = models.DocumentSections(sanitizeSections(sections))
		res := tx.Model(&models.LegalDocument{}).
			Where("id = ? AND notified_at IS NULL", filing.ID).
			Updates(map[string]interface{}{"sections": filing.Sections, "updated_at": s.Now()})
		if res.Error != nil {
			return storageError("failed to update filing", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: filing %s", ErrDocumentAlreadySealed, filing.ID)
		}
		doc = filing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetProcess returns the process and its attachments when actor participates in it
func (s *ProcessService) GetProcess(actor Actor, processID string) (*ProcessDetail, error) {
	var p models.Process
	if err := s.DB.First(&p, "id = ?", processID).Error; err != nil {
		return nil, lookupError(err, "process", processID)
	}
	if err := requireParticipant(actor, &p); err != nil {
		return nil, err
	}

	detail := &ProcessDetail{Process: p, Allowed: AllowedEvents(p.Stage)}
	if err := s.DB.Where("process_id = ?", p.ID).Order("created_at ASC").Find(&detail.Documents).Error; err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	if err := s.DB.Preload("Attempts", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).Where("process_id = ?", p.ID).Order("sequence ASC").Find(&detail.Citations).Error; err != nil {
		return nil, fmt.Errorf("failed to load citations: %w", err)
	}
	if err := s.DB.Preload("Evidence").Where("process_id = ?", p.ID).Order("scheduled_at ASC").Find(&detail.Hearings).Error; err != nil {
		return nil, fmt.Errorf("failed to load hearings: %w", err)
	}
	if err := s.DB.Where("process_id = ?", p.ID).Order("start_date ASC, created_at ASC").Find(&detail.Deadlines).Error; err != nil {
		return nil, fmt.Errorf("failed to load deadlines: %w", err)
	}
	if err := s.DB.Where("process_id = ?", p.ID).Order("occurred_at ASC, version ASC").Find(&detail.Transitions).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return detail, nil
}

// ListProcesses returns the processes actor participates in, newest first
func (s *ProcessService) ListProcesses(actor Actor, stage models.Stage) ([]models.Process, error) {
	query := s.DB.Model(&models.Process{})
	switch {
	case actor.IsOfficer():
		query = query.Where("presiding_officer_id = ?", actor.UserID)
	case actor.IsFiler():
		query = query.Where("filer_representative_id = ? OR responder_representative_id = ?", actor.UserID, actor.UserID)
	default:
		return nil, unauthorizedError("caller has no role")
	}
	if stage != "" {
		query = query.Where("stage = ?", stage)
	}
	var processes []models.Process
	if err := query.Order("created_at DESC").Find(&processes).Error; err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	return processes, nil
}

// requireUserRole checks that userID is an active user with role
func requireUserRole(tx *gorm.DB, userID, role string) error {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		return lookupError(err, "user", userID)
	}
	if !user.IsActive || user.Role != role {
		return validationError("user %s is not an active %s", userID, role)
	}
	return nil
}
