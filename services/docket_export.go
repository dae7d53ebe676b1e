package services

import (
	"bytes"
	"fmt"
	"strings"

	"court_flow_app_go/models"
	"court_flow_app_go/services/i18n"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// DocketExporter renders the statutory terms of a process as a spreadsheet
type DocketExporter struct {
	DB        *gorm.DB
	Deadlines *DeadlineService
}

func NewDocketExporter(db *gorm.DB, deadlines *DeadlineService) *DocketExporter {
	return &DocketExporter{DB: db, Deadlines: deadlines}
}

var docketColumns = []string{"category", "assignee", "start_date", "expires_on", "business_days", "remaining_days", "status"}

// ExportDocket returns an xlsx workbook with one row per deadline, evaluated now
func (e *DocketExporter) ExportDocket(actor Actor, processID, lang string) (*bytes.Buffer, string, error) {
	var p models.Process
	if err := e.DB.First(&p, "id = ?", processID).Error; err != nil {
		return nil, "", lookupError(err, "process", processID)
	}
	views, err := e.Deadlines.ListForProcess(actor, processID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := i18n.Translate(lang, "docket.sheet", nil)
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", i18n.Translate(lang, "docket.title", map[string]interface{}{"case_reference": p.CaseReference}))
	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	for i, col := range docketColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(sheet, cell, i18n.Translate(lang, "docket.headers."+col, nil))
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(docketColumns), 3)
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A3", lastHeader, headerStyle)
	f.SetColWidth(sheet, "A", "G", 20)

	expiredStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "9C0006"}})
	for i, v := range views {
		row := i + 4
		values := []interface{}{
			i18n.Translate(lang, "docket.categories."+strings.ToLower(v.Category), nil),
			i18n.Translate(lang, "docket.assignees."+strings.ToLower(v.Assignee), nil),
			e.Deadlines.Calendar.DateOf(v.StartDate).Format(dateLayout),
			e.Deadlines.Calendar.DateOf(v.ExpiresOn).Format(dateLayout),
			v.BusinessDays,
			v.RemainingDays,
			i18n.Translate(lang, "docket.statuses."+strings.ToLower(v.EffectiveStatus), nil),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, value)
		}
		if v.EffectiveStatus == models.DeadlineStatusExpired {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(docketColumns), row)
			f.SetCellStyle(sheet, first, last, expiredStyle)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, fmt.Sprintf("docket-%s.xlsx", p.CaseReference), nil
}
