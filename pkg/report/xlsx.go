package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

const (
	tendersSheet = "Tenders"
	summarySheet = "Summary"
)

var xlsxHeader = []string{
	"Rank", "Score", "Priority", "ID", "Title", "Country", "Buyer",
	"CPV Codes", "Published", "Deadline", "Value", "Currency", "Notice Type", "URL",
}

// WriteXLSX writes the batch as a spreadsheet with a tenders sheet ranked
// by score and a summary sheet.
func WriteXLSX(path string, batch tenders.ScanBatch) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", tendersSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := setRow(f, tendersSheet, 1, toCells(xlsxHeader)); err != nil {
		return err
	}

	for _, r := range tenders.TopN(batch.Tenders, len(batch.Tenders)) {
		rec := r.Tender
		row := []interface{}{
			r.Rank,
			rec.ScoreValue(),
			string(rec.Priority()),
			rec.ID,
			rec.Title,
			rec.Country,
			rec.BuyerName,
			strings.Join(rec.CPVCodes, ", "),
			orEmpty(rec.PublicationDate),
			orEmpty(rec.Deadline),
			nil,
			orEmpty(rec.Currency),
			rec.NoticeType,
			rec.URL,
		}
		if rec.ContractValue != nil {
			row[10] = *rec.ContractValue
		}
		if err := setRow(f, tendersSheet, r.Rank+1, row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(tendersSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Timestamp", batch.Timestamp},
		{"Source", batch.Source},
		{"Total", batch.Stats.Total},
		{"High priority", batch.Stats.HighPriority},
		{"Medium priority", batch.Stats.MediumPriority},
		{"Low priority", batch.Stats.LowPriority},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
