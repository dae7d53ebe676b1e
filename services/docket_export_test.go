package services

import (
	"testing"

	"court_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportDocket(t *testing.T) {
	f := newFixture(t)
	p, _ := f.cited()
	f.clock.Set(day(2026, 4, 20))

	buf, filename, err := f.wf.Docket.ExportDocket(f.filerActor(), p.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, "docket-"+p.CaseReference+".xlsx", filename)

	wb, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Terms"}, wb.GetSheetList())
	title, _ := wb.GetCellValue("Terms", "A1")
	assert.Equal(t, "Terms of process "+p.CaseReference, title)

	rows, err := wb.GetRows("Terms")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Term", "Assigned to", "Start", "Expires", "Business days", "Days remaining", "Status"}, rows[2])
	assert.Equal(t, []string{"Response to the claim", "Responding party", "2026-03-02", "2026-04-13", "30", "-5", "Expired"}, rows[3])
}

func TestExportDocketInSpanish(t *testing.T) {
	f := newFixture(t)
	p, _ := f.cited()

	buf, _, err := f.wf.Docket.ExportDocket(f.officerActor(), p.ID, "es")
	require.NoError(t, err)
	wb, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer wb.Close()

	header, _ := wb.GetCellValue("Términos", "A3")
	assert.Equal(t, "Término", header)
	status, _ := wb.GetCellValue("Términos", "G4")
	assert.NotEmpty(t, status)
}

func TestExportDocketAuthorization(t *testing.T) {
	f := newFixture(t)
	p, _ := f.cited()

	outsider := f.createUser(models.RoleFiler, "en")
	_, _, err := f.wf.Docket.ExportDocket(ActorFromUser(&outsider), p.ID, "en")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = f.wf.Docket.ExportDocket(f.filerActor(), "missing", "en")
	assert.ErrorIs(t, err, ErrNotFound)
}
