package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/jonassync/licensing_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	IncomeWorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	publishingSheet = "Publishing"
	recordingSheet  = "Recording"
)

var incomeHeadings = map[models.IncomeKind][]string{
	models.IncomeKindPublishing: {"Deal ID", "Project", "Composer", "Publisher", "Ownership %", "Full Share Fee", "Jonas Share", "Payment Date"},
	models.IncomeKindRecording:  {"Deal ID", "Project", "Artist", "Label", "Ownership %", "Full Share Fee", "Jonas Share", "Payment Date"},
}

func incomeRowValues(e models.IncomeEntry) []interface{} {
	var share interface{}
	if e.JonasShare != nil {
		share = e.JonasShare.InexactFloat64()
	}
	var paid interface{}
	if e.PaymentDate != nil {
		paid = e.PaymentDate.String()
	}
	return []interface{}{
		e.DealId,
		e.ProjectName,
		e.PartyName,
		e.Counterparty,
		e.OwnershipPercentage.InexactFloat64(),
		e.FullShareFee.InexactFloat64(),
		share,
		paid,
	}
}

func writeIncomeSheet(f *excelize.File, sheet string, kind models.IncomeKind, entries []models.IncomeEntry, total decimal.Decimal) error {
	headings := incomeHeadings[kind]
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := incomeRowValues(e)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	totalRow := len(entries) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("F%d", totalRow), "Total"); err != nil {
		return err
	}
	return f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), total.InexactFloat64())
}

// IncomeWorkbook lays the income report out as two sheets, publishing and
// recording, each ending with a total row.
func IncomeWorkbook(report *models.IncomeReport) (*excelize.File, error) {
	f := excelize.NewFile()
	// NewFile starts with Sheet1
	if err := f.SetSheetName("Sheet1", publishingSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(recordingSheet); err != nil {
		return nil, err
	}
	if err := writeIncomeSheet(f, publishingSheet, models.IncomeKindPublishing, report.Publishing, report.PublishingTotal); err != nil {
		return nil, err
	}
	if err := writeIncomeSheet(f, recordingSheet, models.IncomeKindRecording, report.Recording, report.RecordingTotal); err != nil {
		return nil, err
	}
	return f, nil
}

// ExportIncome writes the owner's income report as xlsx to w.
func ExportIncome(ctx context.Context, w io.Writer) error {
	report, err := models.GetIncomeReport(ctx)
	if err != nil {
		return err
	}
	f, err := IncomeWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}
