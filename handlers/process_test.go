package handlers

import (
	"net/http"
	"testing"

	"court_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndLogout(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser(t, models.RoleFiler, "secret123")

	rec := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": user.Email, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": user.Email, "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	rec = s.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, decode(t, rec)["id"])

	rec = s.do(t, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestProcessLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	officer := s.createUser(t, models.RolePresidingOfficer, "secret123")
	filer := s.createUser(t, models.RoleFiler, "secret123")
	officerToken := s.tokenFor(t, officer)
	filerToken := s.tokenFor(t, filer)

	// only filers open processes
	newProcess := map[string]interface{}{
		"filing_party_id":      "CC 1010",
		"responding_party_id":  "NIT 900123",
		"presiding_officer_id": officer.ID,
		"court_id":             "jc-01",
		"subject_matter":       "Incumplimiento contractual",
		"process_type":         "verbal",
		"claim_value":          5000000,
		"filing":               completeFiling(),
	}
	rec := s.do(t, http.MethodPost, "/api/processes", officerToken, newProcess)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/processes", filerToken, newProcess)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	processID := created["id"].(string)
	assert.Equal(t, "DRAFT", created["stage"])
	assert.Equal(t, "JC01-2026-00001", created["case_reference"])

	// admit is not allowed from Draft
	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/transitions", officerToken, map[string]string{"event": "admit"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode(t, rec)["error"])

	// component events cannot be requested
	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/transitions", officerToken, map[string]string{"event": "citation_succeeded"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// the officer cannot file on the filer's behalf
	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/transitions", officerToken, map[string]string{"event": "file"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/transitions", filerToken, map[string]string{"event": "file"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	process := decode(t, rec)["process"].(map[string]interface{})
	assert.Equal(t, "FILED", process["stage"])

	// the sealed filing can no longer be edited
	rec = s.do(t, http.MethodPut, "/api/processes/"+processID+"/filing", filerToken, completeFiling())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_sealed", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/transitions", officerToken, map[string]string{"event": "admit", "grounds": "Cumple requisitos"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// citation
	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/citations", filerToken, map[string]string{"method": "PERSONAL"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/citations", officerToken, map[string]string{"method": "PERSONAL"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	citationID := decode(t, rec)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/citations/"+citationID+"/attempts", filerToken,
		map[string]string{"date": "2026-03-02", "time": "09:30", "reason": "Nadie atendió"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode(t, rec)["escalation_advised"])

	rec = s.do(t, http.MethodPost, "/api/citations/"+citationID+"/success", officerToken, map[string]string{"notes": "Recibido personalmente"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deadline := decode(t, rec)["response_deadline"].(map[string]interface{})
	assert.Equal(t, "RESPONSE", deadline["category"])

	rec = s.do(t, http.MethodGet, "/api/processes/"+processID+"/deadlines", filerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"RESPONSE"`)

	rec = s.do(t, http.MethodGet, "/api/processes/"+processID+"/deadlines/export", filerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "docket-JC01-2026-00001.xlsx")

	// hearing
	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/hearings", officerToken, map[string]interface{}{
		"modality":     "VIRTUAL",
		"meeting_url":  "https://meet.court.test/jc01",
		"scheduled_at": "2026-03-10T15:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hearingID := decode(t, rec)["id"].(string)

	rec = s.do(t, http.MethodGet, "/api/hearings/"+hearingID+"/calendar.ics", filerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "DTSTART:20260310T150000Z")

	rec = s.do(t, http.MethodGet, "/api/processes/"+processID, filerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)
	assert.Equal(t, "PRELIMINARY_HEARING", detail["process"].(map[string]interface{})["stage"])

	rec = s.do(t, http.MethodGet, "/api/processes/"+processID+"/history", officerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hearing_scheduled"`)

	// outsiders see nothing
	outsider := s.createUser(t, models.RoleFiler, "secret123")
	rec = s.do(t, http.MethodGet, "/api/processes/"+processID, s.tokenFor(t, outsider), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFilingDocumentVerification(t *testing.T) {
	s := newTestServer(t)
	officer := s.createUser(t, models.RolePresidingOfficer, "secret123")
	filer := s.createUser(t, models.RoleFiler, "secret123")
	filerToken := s.tokenFor(t, filer)

	rec := s.do(t, http.MethodPost, "/api/processes", filerToken, map[string]interface{}{
		"filing_party_id":      "CC 1010",
		"responding_party_id":  "NIT 900123",
		"presiding_officer_id": officer.ID,
		"court_id":             "JC02",
		"subject_matter":       "Responsabilidad civil",
		"process_type":         "verbal",
		"filing":               completeFiling(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	processID := decode(t, rec)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/processes/"+processID+"/transitions", filerToken, map[string]string{"event": "file"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var filing models.LegalDocument
	require.NoError(t, s.db.Where("process_id = ? AND kind = ?", processID, models.DocumentKindFiling).First(&filing).Error)

	rec = s.do(t, http.MethodGet, "/api/documents/"+filing.ID+"/verify", filerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["valid"])

	// tamper with the stored content behind the sealer's back
	sections := filing.Sections
	sections["facts"] = "Hechos alterados"
	require.NoError(t, s.db.Model(&filing).Update("sections", sections).Error)

	rec = s.do(t, http.MethodGet, "/api/documents/"+filing.ID+"/verify", filerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "content_mismatch", decode(t, rec)["error"])

	rec = s.do(t, http.MethodGet, "/api/documents/unknown/verify", filerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
