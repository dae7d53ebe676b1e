package services

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"court_flow_app_go/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCanonicalPayload(t *testing.T) {
	payload, err := CanonicalPayload(models.DocumentKindRuling, "p-1", "u-1", map[string]string{
		"grounds":     "Artículo 90",
		"ruling_type": "admit",
	})
	require.NoError(t, err)

	// Keys are sorted and absent sections render empty
	assert.Equal(t,
		`{"issuer_id":"u-1","kind":"RULING","process_id":"p-1","sections":{"decision":"","grounds":"Artículo 90","ruling_type":"admit"}}`,
		string(payload))
	assert.Len(t, HashPayload(payload), 64)

	_, err = CanonicalPayload("MEMO", "p-1", "u-1", nil)
	assert.Error(t, err)
}

func TestCanonicalPayloadIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	keys := SectionKeys(models.DocumentKindJudgment)
	properties.Property("section insertion order never changes the hash", prop.ForAll(
		func(values []string) bool {
			forward := map[string]string{}
			backward := map[string]string{}
			for i, k := range keys {
				if i < len(values) {
					forward[k] = values[i]
				}
			}
			for i := len(keys) - 1; i >= 0; i-- {
				if i < len(values) {
					backward[keys[i]] = values[i]
				}
			}
			a, errA := CanonicalPayload(models.DocumentKindJudgment, "p", "u", forward)
			b, errB := CanonicalPayload(models.DocumentKindJudgment, "p", "u", backward)
			return errA == nil && errB == nil && HashPayload(a) == HashPayload(b)
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.Property("any section change changes the hash", prop.ForAll(
		func(decision, suffix string) bool {
			base := map[string]string{"considerations": "c", "decision": decision}
			changed := map[string]string{"considerations": "c", "decision": decision + "x" + suffix}
			a, _ := CanonicalPayload(models.DocumentKindJudgment, "p", "u", base)
			b, _ := CanonicalPayload(models.DocumentKindJudgment, "p", "u", changed)
			return HashPayload(a) != HashPayload(b)
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestSealWritesPayloadAndFreezesDocument(t *testing.T) {
	f := newFixture(t)
	p := f.draft()
	storage := NewLocalStorage(t.TempDir())
	sealer := NewDocumentSealer(f.db, storage)
	sealer.Now = f.clock.Now

	var doc *models.LegalDocument
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		doc, err = newDocument(tx, p.ID, models.DocumentKindRuling, f.officerActor(), map[string]string{
			"ruling_type": "admit",
			"decision":    "admit",
			"grounds":     "<b>Reúne</b> los requisitos",
		})
		if err != nil {
			return err
		}
		return sealer.Seal(context.Background(), tx, doc)
	})
	require.NoError(t, err)

	assert.True(t, doc.IsSealed())
	assert.True(t, doc.NotifiedAt.Equal(monday))
	assert.Equal(t, "<b>Reúne</b> los requisitos", doc.Sections["grounds"])

	reader, contentType, err := storage.Get(context.Background(), doc.StorageLocator)
	require.NoError(t, err)
	defer reader.Close()
	stored, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, doc.ContentHash, HashPayload(stored))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(stored, &decoded))
	assert.Equal(t, p.ID, decoded["process_id"])
	assert.Equal(t, f.officer.ID, decoded["issuer_id"])

	err = f.db.Transaction(func(tx *gorm.DB) error {
		return sealer.Seal(context.Background(), tx, doc)
	})
	assert.ErrorIs(t, err, ErrDocumentAlreadySealed)

	// A stale copy that missed the first seal is refused by the database
	stale := *doc
	stale.NotifiedAt = nil
	err = f.db.Transaction(func(tx *gorm.DB) error {
		return sealer.Seal(context.Background(), tx, &stale)
	})
	assert.ErrorIs(t, err, ErrDocumentAlreadySealed)
}

func TestSealRetryAfterRollbackReusesLocator(t *testing.T) {
	f := newFixture(t)
	p := f.draft()
	storage := NewLocalStorage(t.TempDir())
	sealer := NewDocumentSealer(f.db, storage)
	sealer.Now = f.clock.Now
	sections := map[string]string{"ruling_type": "admit", "decision": "admit", "grounds": "Reúne los requisitos"}

	seal := func(abort bool) (*models.LegalDocument, error) {
		var doc *models.LegalDocument
		err := f.db.Transaction(func(tx *gorm.DB) error {
			var err error
			doc, err = newDocument(tx, p.ID, models.DocumentKindRuling, f.officerActor(), sections)
			if err != nil {
				return err
			}
			if err := sealer.Seal(context.Background(), tx, doc); err != nil {
				return err
			}
			if abort {
				return ErrPersistenceConflict
			}
			return nil
		})
		return doc, err
	}

	aborted, err := seal(true)
	require.ErrorIs(t, err, ErrPersistenceConflict)
	var count int64
	require.NoError(t, f.db.Model(&models.LegalDocument{}).Where("process_id = ? AND kind = ?", p.ID, models.DocumentKindRuling).Count(&count).Error)
	assert.Zero(t, count, "the rolled back document is gone")

	committed, err := seal(false)
	require.NoError(t, err)
	assert.Equal(t, aborted.StorageLocator, committed.StorageLocator)
	assert.Equal(t, aborted.ContentHash, committed.ContentHash)

	reader, _, err := storage.Get(context.Background(), committed.StorageLocator)
	require.NoError(t, err)
	defer reader.Close()
	stored, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, committed.ContentHash, HashPayload(stored))
}

func TestNewDocumentRejectsUnknownSections(t *testing.T) {
	f := newFixture(t)
	p := f.draft()

	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := newDocument(tx, p.ID, models.DocumentKindJudgment, f.officerActor(), map[string]string{"decision": "x", "signature": "y"})
		return err
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSingletonDocumentKinds(t *testing.T) {
	f := newFixture(t)
	p := f.draft()

	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := newDocument(tx, p.ID, models.DocumentKindFiling, f.filerActor(), completeFiling().Sections())
		return err
	})
	assert.ErrorIs(t, err, ErrAlreadyExists, "a process has one current filing")
}

func TestVerifyDocument(t *testing.T) {
	f := newFixture(t)
	p := f.filed()
	detail, err := f.wf.Processes.GetProcess(f.filerActor(), p.ID)
	require.NoError(t, err)
	filing := detail.Documents[0]

	verified, err := f.wf.Sealer.VerifyDocument(f.officerActor(), filing.ID)
	require.NoError(t, err)
	assert.Equal(t, filing.ContentHash, verified.ContentHash)

	tampered := filing.Sections
	tampered["claims"] = "Que se condene al doble"
	require.NoError(t, f.db.Model(&models.LegalDocument{}).Where("id = ?", filing.ID).Update("sections", tampered).Error)

	_, err = f.wf.Sealer.VerifyDocument(f.officerActor(), filing.ID)
	assert.ErrorIs(t, err, ErrContentMismatch)

	var stored models.LegalDocument
	require.NoError(t, f.db.First(&stored, "id = ?", filing.ID).Error)
	assert.Equal(t, filing.ContentHash, stored.ContentHash, "a mismatch is reported, never corrected")

	outsider := f.createUser(models.RoleFiler, "es")
	_, err = f.wf.Sealer.VerifyDocument(ActorFromUser(&outsider), filing.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.wf.Sealer.VerifyDocument(f.officerActor(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyUnsealedDocument(t *testing.T) {
	f := newFixture(t)
	p := f.draft()
	detail, err := f.wf.Processes.GetProcess(f.filerActor(), p.ID)
	require.NoError(t, err)

	_, err = f.wf.Sealer.VerifyDocument(f.filerActor(), detail.Documents[0].ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
