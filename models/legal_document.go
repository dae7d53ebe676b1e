package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document kinds
const (
	DocumentKindFiling   = "FILING"   // demanda
	DocumentKindResponse = "RESPONSE" // contestación
	DocumentKindJudgment = "JUDGMENT" // sentencia
	DocumentKindRuling   = "RULING"   // auto
)

// Document status constants
const (
	DocumentStatusDraft      = "DRAFT"
	DocumentStatusSealed     = "SEALED"
	DocumentStatusSuperseded = "SUPERSEDED"
)

// LegalDocument is a filing, response, judgment or ruling attached to a process.
// Content is read-only once NotifiedAt is set.
type LegalDocument struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProcessID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_document_singleton" json:"process_id"`
	Kind      string `gorm:"not null;index" json:"kind"`
	// SingletonKey equals Kind for documents a process may hold only once
	// (active filing, response, judgment) and is NULL otherwise.
	SingletonKey *string `gorm:"uniqueIndex:idx_document_singleton" json:"-"`
	Status       string  `gorm:"not null;default:DRAFT" json:"status"`

	ResponseVariant string           `json:"response_variant,omitempty"`
	Sections        DocumentSections `gorm:"type:text" json:"sections"`

	// Seal
	ContentHash    string     `json:"content_hash,omitempty"`
	StorageLocator string     `json:"storage_locator,omitempty"`
	EmittedAt      *time.Time `json:"emitted_at,omitempty"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`

	IssuerID     string  `gorm:"type:uuid;not null" json:"issuer_id"`
	IssuerRole   string  `gorm:"not null" json:"issuer_role"`
	SupersedesID *string `gorm:"type:uuid" json:"supersedes_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (d *LegalDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (LegalDocument) TableName() string {
	return "legal_documents"
}

// IsSealed reports whether the document content is frozen
func (d *LegalDocument) IsSealed() bool {
	return d.NotifiedAt != nil
}

// IsSingletonKind reports whether a process may hold at most one active document of kind
func IsSingletonKind(kind string) bool {
	return kind == DocumentKindFiling || kind == DocumentKindResponse || kind == DocumentKindJudgment
}

// DocumentSections stores named free-text sections as JSON
type DocumentSections map[string]string

func (s DocumentSections) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *DocumentSections) Scan(value interface{}) error {
	if value == nil {
		*s = DocumentSections{}
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, s)
}
