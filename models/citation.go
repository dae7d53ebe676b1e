package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Citation methods
const (
	CitationMethodPersonal = "PERSONAL" // in-person service
	CitationMethodNotice   = "NOTICE"   // notice left at domicile (aviso)
	CitationMethodEdict    = "EDICT"    // public edict (emplazamiento)
	CitationMethodTacit    = "TACIT"    // constructive service (conducta concluyente)
)

// Citation status constants
const (
	CitationStatusPending    = "PENDING"
	CitationStatusInProgress = "IN_PROGRESS"
	CitationStatusSuccessful = "SUCCESSFUL"
	CitationStatusFailed     = "FAILED"
	CitationStatusTacit      = "TACIT"
)

// EscalationAttemptThreshold is the failed-attempt count that raises the edict advisory
const EscalationAttemptThreshold = 3

// Citation is one service-of-process effort for a process
type Citation struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProcessID string `gorm:"type:uuid;not null;uniqueIndex:idx_citation_process_seq" json:"process_id"`
	Sequence  int    `gorm:"not null;uniqueIndex:idx_citation_process_seq" json:"sequence"`

	Method      string     `gorm:"not null" json:"method"`
	Status      string     `gorm:"not null;default:PENDING;index" json:"status"`
	SucceededAt *time.Time `json:"succeeded_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	OrderedByID string     `gorm:"type:uuid;not null" json:"ordered_by_id"`

	Attempts []CitationAttempt `gorm:"foreignKey:CitationID" json:"attempts,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Citation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (Citation) TableName() string {
	return "citations"
}

// IsTerminal reports whether the citation accepts no further attempts or outcomes
func (c *Citation) IsTerminal() bool {
	return c.Status == CitationStatusSuccessful || c.Status == CitationStatusTacit || c.Status == CitationStatusFailed
}

// IsOpen reports whether the citation is still being served
func (c *Citation) IsOpen() bool {
	return c.Status == CitationStatusPending || c.Status == CitationStatusInProgress
}

// EscalationAdvised reports whether the failed attempts warrant re-ordering by public edict
func (c *Citation) EscalationAdvised() bool {
	return c.Method != CitationMethodEdict && len(c.Attempts) >= EscalationAttemptThreshold
}

// IsValidCitationMethod checks methods that may be ordered explicitly
func IsValidCitationMethod(method string) bool {
	switch method {
	case CitationMethodPersonal, CitationMethodNotice, CitationMethodEdict:
		return true
	}
	return false
}

// CitationAttempt records one failed service attempt
type CitationAttempt struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CitationID  string    `gorm:"type:uuid;not null;index" json:"citation_id"`
	Sequence    int       `gorm:"not null" json:"sequence"`
	AttemptedOn time.Time `gorm:"not null" json:"attempted_on"`
	AttemptTime string    `gorm:"size:5;not null" json:"attempt_time"` // HH:MM
	Reason      string    `gorm:"type:text;not null" json:"reason"`
	RecordedBy  string    `gorm:"type:uuid" json:"recorded_by"`
}

// BeforeCreate hook to generate UUID
func (a *CitationAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (CitationAttempt) TableName() string {
	return "citation_attempts"
}
