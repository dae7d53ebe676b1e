package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"court_flow_app_go/models"

	"github.com/gowebpki/jcs"
	"gorm.io/gorm"
)

// RecordKindHearing is the sealing kind for hearing closure records
const RecordKindHearing = "HEARING_RECORD"

// sectionKeys fixes the sections that enter the canonical payload of each kind
var sectionKeys = map[string][]string{
	models.DocumentKindFiling:   {"claims", "facts", "legal_grounds", "evidence", "claim_value_statement", "notifications_address"},
	models.DocumentKindResponse: {"variant", "facts", "defenses", "statement", "objections", "grounds", "counterclaim", "counterclaim_value"},
	models.DocumentKindJudgment: {"background", "considerations", "decision", "costs"},
	models.DocumentKindRuling:   {"ruling_type", "decision", "grounds"},
	RecordKindHearing: {
		"hearing_id", "type", "modality", "started_at", "closed_at", "attendance",
		"conciliation_reached", "agreement_text", "subject_matter_statement",
		"evidence", "follow_up", "outcome", "minutes",
	},
}

// SectionKeys returns the canonical section keys of kind
func SectionKeys(kind string) []string {
	return sectionKeys[kind]
}

// validateSections rejects sections that the canonical payload of kind would drop
func validateSections(kind string, sections map[string]string) error {
	allowed := make(map[string]bool, len(sectionKeys[kind]))
	for _, k := range sectionKeys[kind] {
		allowed[k] = true
	}
	for k := range sections {
		if !allowed[k] {
			return validationError("section %q is not part of a %s document", k, kind)
		}
	}
	return nil
}

// CanonicalPayload serializes a sealable record as RFC 8785 JSON. Every
// section key of the kind is present; absent sections render as "".
func CanonicalPayload(kind, processID, issuerID string, sections map[string]string) ([]byte, error) {
	keys, ok := sectionKeys[kind]
	if !ok {
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	fixed := make(map[string]string, len(keys))
	for _, k := range keys {
		fixed[k] = sections[k]
	}

	raw, err := json.Marshal(map[string]interface{}{
		"kind":       kind,
		"process_id": processID,
		"issuer_id":  issuerID,
		"sections":   fixed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	return canonical, nil
}

// HashPayload returns the SHA-256 hex digest of a canonical payload
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// SealLocator is the content-addressed storage key of a sealed payload
func SealLocator(processID, kind, hash string) string {
	return fmt.Sprintf("processes/%s/%s/%s.json", processID, kind, hash)
}

// DocumentContentHash recomputes the fingerprint of a document's current content
func DocumentContentHash(doc *models.LegalDocument) (string, error) {
	payload, err := CanonicalPayload(doc.Kind, doc.ProcessID, doc.IssuerID, doc.Sections)
	if err != nil {
		return "", err
	}
	return HashPayload(payload), nil
}

// DocumentSealer fingerprints legal documents and hearing records and makes them read-only
type DocumentSealer struct {
	DB      *gorm.DB
	Storage StorageProvider
	Metrics *Metrics
	Now     func() time.Time
}

func NewDocumentSealer(db *gorm.DB, storage StorageProvider) *DocumentSealer {
	return &DocumentSealer{DB: db, Storage: storage, Now: time.Now}
}

// SealedPayload is the result of sealing a record
type SealedPayload struct {
	Hash    string
	Locator string
	Payload []byte
}

// sealRecord hashes a payload and stores it under its locator
func (s *DocumentSealer) sealRecord(ctx context.Context, kind, processID, issuerID string, sections map[string]string) (*SealedPayload, error) {
	payload, err := CanonicalPayload(kind, processID, issuerID, sections)
	if err != nil {
		return nil, err
	}
	hash := HashPayload(payload)
	locator := SealLocator(processID, kind, hash)

	// Written before the caller commits. A rollback can leave the blob behind,
	// and the content-addressed key makes a retry of the same content reuse it.
	if s.Storage != nil {
		if _, err := s.Storage.Put(ctx, locator, payload, "application/json"); err != nil {
			return nil, fmt.Errorf("failed to store sealed payload: %w", err)
		}
	}

	s.Metrics.documentSealed(kind)
	return &SealedPayload{Hash: hash, Locator: locator, Payload: payload}, nil
}

// Seal freezes doc inside tx. The document must already be persisted.
// A second call, or a call on a notified document, fails with ErrDocumentAlreadySealed.
func (s *DocumentSealer) Seal(ctx context.Context, tx *gorm.DB, doc *models.LegalDocument) error {
	if doc.IsSealed() {
		return fmt.Errorf("%w: %s document %s was notified at %s", ErrDocumentAlreadySealed, doc.Kind, doc.ID, doc.NotifiedAt.Format(time.RFC3339))
	}
	if doc.ID == "" {
		return fmt.Errorf("cannot seal an unsaved document")
	}

	sealed, err := s.sealRecord(ctx, doc.Kind, doc.ProcessID, doc.IssuerID, doc.Sections)
	if err != nil {
		return err
	}

	now := s.Now()
	result := tx.Model(&models.LegalDocument{}).
		Where("id = ? AND notified_at IS NULL", doc.ID).
		Updates(map[string]interface{}{
			"content_hash":    sealed.Hash,
			"storage_locator": sealed.Locator,
			"emitted_at":      now,
			"notified_at":     now,
			"status":          models.DocumentStatusSealed,
			"updated_at":      now,
		})
	if result.Error != nil {
		return storageError("failed to seal document", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s document %s", ErrDocumentAlreadySealed, doc.Kind, doc.ID)
	}

	doc.ContentHash = sealed.Hash
	doc.StorageLocator = sealed.Locator
	doc.EmittedAt = &now
	doc.NotifiedAt = &now
	doc.Status = models.DocumentStatusSealed
	log.Printf("[SEAL] %s document %s sealed for process %s (hash: %s)", doc.Kind, doc.ID, doc.ProcessID, sealed.Hash)
	return nil
}

// Verify recomputes the fingerprint from the stored content. A mismatch is
// reported, never corrected.
func (s *DocumentSealer) Verify(doc *models.LegalDocument) error {
	if doc.ContentHash == "" {
		return invalidStateError("%s document %s has not been sealed", doc.Kind, doc.ID)
	}
	computed, err := DocumentContentHash(doc)
	if err != nil {
		return err
	}
	if computed != doc.ContentHash {
		log.Printf("[SEAL] Content mismatch on %s document %s: recorded %s, computed %s", doc.Kind, doc.ID, doc.ContentHash, computed)
		return fmt.Errorf("%w: %s document %s recorded %s but content hashes to %s", ErrContentMismatch, doc.Kind, doc.ID, doc.ContentHash, computed)
	}
	return nil
}

// VerifyDocument loads a document visible to actor and verifies it
func (s *DocumentSealer) VerifyDocument(actor Actor, documentID string) (*models.LegalDocument, error) {
	var doc models.LegalDocument
	if err := s.DB.First(&doc, "id = ?", documentID).Error; err != nil {
		return nil, lookupError(err, "document", documentID)
	}
	var process models.Process
	if err := s.DB.First(&process, "id = ?", doc.ProcessID).Error; err != nil {
		return nil, lookupError(err, "process", doc.ProcessID)
	}
	if err := requireParticipant(actor, &process); err != nil {
		return nil, err
	}
	return &doc, s.Verify(&doc)
}

// newDocument builds and persists an unsealed document. Singleton kinds are
// guarded by a unique index so a duplicate returns ErrAlreadyExists.
func newDocument(tx *gorm.DB, processID, kind string, actor Actor, sections map[string]string) (*models.LegalDocument, error) {
	if err := validateSections(kind, sections); err != nil {
		return nil, err
	}
	doc := &models.LegalDocument{
		ProcessID:  processID,
		Kind:       kind,
		Status:     models.DocumentStatusDraft,
		Sections:   models.DocumentSections(sanitizeSections(sections)),
		IssuerID:   actor.UserID,
		IssuerRole: actor.Role,
	}
	if models.IsSingletonKind(kind) {
		key := kind
		doc.SingletonKey = &key
	}
	if err := tx.Create(doc).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: process %s already has a %s document", ErrAlreadyExists, processID, kind)
		}
		return nil, storageError("failed to create document", err)
	}
	return doc, nil
}

// activeDocument returns the current singleton document of kind, or nil
func activeDocument(tx *gorm.DB, processID, kind string) (*models.LegalDocument, error) {
	var doc models.LegalDocument
	err := tx.Where("process_id = ? AND singleton_key = ?", processID, kind).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("failed to load document", err)
	}
	return &doc, nil
}

// issueRuling creates and seals an officer ruling (auto)
func (s *DocumentSealer) issueRuling(ctx context.Context, tx *gorm.DB, p *models.Process, actor Actor, rulingType, decision, grounds string) (*models.LegalDocument, error) {
	doc, err := newDocument(tx, p.ID, models.DocumentKindRuling, actor, map[string]string{
		"ruling_type": rulingType,
		"decision":    decision,
		"grounds":     grounds,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Seal(ctx, tx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
