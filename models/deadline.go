package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deadline categories
const (
	DeadlineCategoryResponse = "RESPONSE" // traslado de la demanda
	DeadlineCategoryJudgment = "JUDGMENT" // término para dictar sentencia
	DeadlineCategoryAppeal   = "APPEAL"   // término de apelación
)

// Deadline status constants
const (
	DeadlineStatusActive    = "ACTIVE"
	DeadlineStatusFulfilled = "FULFILLED"
	DeadlineStatusExpired   = "EXPIRED"
)

// Deadline assignees
const (
	AssigneeFiler            = "FILER"
	AssigneeResponder        = "RESPONDER"
	AssigneeBothParties      = "BOTH_PARTIES"
	AssigneePresidingOfficer = "PRESIDING_OFFICER"
)

// Deadline (plazo) is a statutory term attached to a process
type Deadline struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProcessID    string    `gorm:"type:uuid;not null;index:idx_deadline_process_category" json:"process_id"`
	Category     string    `gorm:"not null;index:idx_deadline_process_category" json:"category"`
	StartDate    time.Time `gorm:"not null" json:"start_date"`
	ExpiresOn    time.Time `gorm:"not null;index" json:"expires_on"` // last business day of the term
	BusinessDays int       `gorm:"not null" json:"business_days"`

	Assignee       string  `gorm:"not null" json:"assignee"`
	AssigneeUserID *string `gorm:"type:uuid" json:"assignee_user_id,omitempty"`

	Status      string     `gorm:"not null;default:ACTIVE;index" json:"status"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`

	// SourceID references the citation, hearing or judgment that opened the term
	SourceID string `gorm:"type:uuid" json:"source_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (d *Deadline) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Status == "" {
		d.Status = DeadlineStatusActive
	}
	return nil
}

func (Deadline) TableName() string {
	return "deadlines"
}

// IsActive checks whether the term is still running in storage
func (d *Deadline) IsActive() bool {
	return d.Status == DeadlineStatusActive
}

// CourtHoliday is a non-business day observed by the court calendar
type CourtHoliday struct {
	ID          string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Date        time.Time `gorm:"not null;uniqueIndex" json:"date"`
	Description string    `json:"description"`
}

// BeforeCreate hook to generate UUID
func (h *CourtHoliday) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

func (CourtHoliday) TableName() string {
	return "court_holidays"
}
