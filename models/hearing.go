package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hearing types
const (
	HearingTypePreliminary   = "PRELIMINARY"   // audiencia inicial
	HearingTypeSupplementary = "SUPPLEMENTARY" // audiencia de instrucción y juzgamiento
)

// Hearing modalities
const (
	HearingModalityInPerson = "IN_PERSON"
	HearingModalityVirtual  = "VIRTUAL"
)

// Hearing status constants
const (
	HearingStatusScheduled = "SCHEDULED"
	HearingStatusHeld      = "HELD"
	HearingStatusSuspended = "SUSPENDED"
	HearingStatusCancelled = "CANCELLED"
)

// Hearing is a scheduled session before the presiding officer
type Hearing struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProcessID string `gorm:"type:uuid;not null;index" json:"process_id"`
	Type      string `gorm:"not null" json:"type"`
	Modality  string `gorm:"not null" json:"modality"`
	// MeetingURL is required for virtual hearings
	MeetingURL  *string   `json:"meeting_url,omitempty"`
	Location    *string   `json:"location,omitempty"`
	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`
	Status      string    `gorm:"not null;default:SCHEDULED;index" json:"status"`

	StartedAt  *time.Time     `json:"started_at,omitempty"`
	ClosedAt   *time.Time     `json:"closed_at,omitempty"`
	Attendance AttendanceRoll `gorm:"type:text" json:"attendance"`

	// Closure
	ConciliationReached    bool   `gorm:"not null;default:false" json:"conciliation_reached"`
	AgreementText          string `gorm:"type:text" json:"agreement_text,omitempty"`
	SubjectMatterStatement string `gorm:"type:text" json:"subject_matter_statement,omitempty"`
	Minutes                string `gorm:"type:text" json:"minutes,omitempty"`
	Outcome                string `json:"outcome,omitempty"`
	SealedRecordLocator    string `json:"sealed_record_locator,omitempty"`
	SealedRecordHash       string `json:"sealed_record_hash,omitempty"`

	SuspensionReason   string  `gorm:"type:text" json:"suspension_reason,omitempty"`
	CancellationReason string  `gorm:"type:text" json:"cancellation_reason,omitempty"`
	ParentHearingID    *string `gorm:"type:uuid;index" json:"parent_hearing_id,omitempty"` // closure or suspension that spawned it
	ScheduledByID      string  `gorm:"type:uuid;not null" json:"scheduled_by_id"`
	ClosedByID         string  `gorm:"type:uuid" json:"closed_by_id,omitempty"`

	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`

	Evidence []EvidenceItem `gorm:"foreignKey:HearingID" json:"evidence,omitempty"`
}

// BeforeCreate hook to generate UUID
func (h *Hearing) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Status == "" {
		h.Status = HearingStatusScheduled
	}
	return nil
}

func (Hearing) TableName() string {
	return "hearings"
}

// IsClosed reports whether the hearing has been closed after being held
func (h *Hearing) IsClosed() bool {
	return h.ClosedAt != nil
}

// IsActive reports whether the hearing still occupies the process calendar
func (h *Hearing) IsActive() bool {
	return h.Status == HearingStatusScheduled || (h.Status == HearingStatusHeld && h.ClosedAt == nil)
}

// IsValidHearingModality checks the modality value
func IsValidHearingModality(modality string) bool {
	return modality == HearingModalityInPerson || modality == HearingModalityVirtual
}

// Hearing closure outcomes
const (
	HearingOutcomeConciliated   = "CONCILIATED"
	HearingOutcomeFollowUp      = "FOLLOW_UP_SCHEDULED"
	HearingOutcomeJudgmentPhase = "JUDGMENT_PHASE"
	HearingOutcomeAwaiting      = "AWAITING_FURTHER_ACTION"
)

// Attendee is one entry of the attendance roll
type Attendee struct {
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name"`
	Role    string `json:"role"` // filer, responder, officer, witness, expert, party
	Present bool   `json:"present"`
}

// AttendanceRoll stores the attendance list as JSON
type AttendanceRoll []Attendee

func (r AttendanceRoll) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *AttendanceRoll) Scan(value interface{}) error {
	if value == nil {
		*r = AttendanceRoll{}
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, r)
}

// EvidenceItem is an evidence request ruled on at a preliminary hearing
type EvidenceItem struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	HearingID          string `gorm:"type:uuid;not null;index" json:"hearing_id"`
	Type               string `gorm:"not null" json:"type"` // documentary, testimonial, expert, inspection, ...
	Description        string `gorm:"type:text;not null" json:"description"`
	OfferedBy          string `json:"offered_by,omitempty"`
	Admitted           bool   `gorm:"not null" json:"admitted"`
	RejectionRationale string `gorm:"type:text" json:"rejection_rationale,omitempty"`
}

// BeforeCreate hook to generate UUID
func (e *EvidenceItem) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

func (EvidenceItem) TableName() string {
	return "evidence_items"
}
