package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

func tender(id string, score int) tenders.TenderRecord {
	return tenders.TenderRecord{
		ID:            id,
		Title:         "Title " + id,
		Description:   "Description " + id,
		Country:       "AT",
		BuyerName:     "Buyer " + id,
		CPVCodes:      []string{"72000000", "48000000"},
		URL:           "https://ted.europa.eu/en/notice/-/detail/" + id,
		PriorityScore: &score,
	}
}

func TestCreateLine(t *testing.T) {
	rec := tender("42", 25)
	tests := []struct {
		flags     string
		delimiter string
		want      string
	}{
		{"ist", " ", "42 25 Title 42"},
		{"pc", ",", "high,AT"},
		{"bu", " | ", "Buyer 42 | https://ted.europa.eu/en/notice/-/detail/42"},
		{"d", ";", "Description 42"},
	}
	for _, tt := range tests {
		t.Run(tt.flags, func(t *testing.T) {
			if got := createLine(rec, tt.flags, tt.delimiter); got != tt.want {
				t.Fatalf("createLine(%q) = %q, want %q", tt.flags, got, tt.want)
			}
		})
	}
}

func TestPrintTenders(t *testing.T) {
	var buf bytes.Buffer
	recs := []tenders.TenderRecord{tender("1", 5), tender("2", 15)}
	isNew := func(id string) bool { return id == "2" }
	if err := PrintTenders(&buf, recs, "is", " ", isNew); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1 5\n" + NewMarker + " 2 15\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}

	if err := PrintTenders(&buf, recs, "ix", " ", nil); err == nil {
		t.Fatalf("expected an error for an unknown flag")
	}
}

func TestPrintSummaryAndLeaderboard(t *testing.T) {
	batch := tenders.NewScanBatch(tenders.SourceTEDAPI, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		[]tenders.TenderRecord{tender("low", 3), tender("high", 30), tender("mid", 12)})

	var buf bytes.Buffer
	PrintSummary(&buf, batch)
	out := buf.String()
	for _, want := range []string{"Total tenders:      3", "High priority:   1", "Medium priority: 1", "Low priority:    1", "ted-api-v3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary is missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintLeaderboard(&buf, batch.Tenders, 2, nil)
	out = buf.String()
	if !strings.Contains(out, "Title high") || !strings.Contains(out, "Title mid") || strings.Contains(out, "Title low") {
		t.Fatalf("unexpected leaderboard:\n%s", out)
	}
	if strings.Index(out, "Title high") > strings.Index(out, "Title mid") {
		t.Fatalf("leaderboard is not ranked by score:\n%s", out)
	}

	buf.Reset()
	PrintLeaderboard(&buf, nil, 5, nil)
	if !strings.Contains(buf.String(), "No tenders found.") {
		t.Fatalf("unexpected output for an empty batch: %q", buf.String())
	}
}

func TestPrintRelevant(t *testing.T) {
	value := 125000.5
	currency := "EUR"
	rec := tender("r1", 10)
	rec.ContractValue = &value
	rec.Currency = &currency

	var buf bytes.Buffer
	PrintRelevant(&buf, "scan.json", 4, []tenders.Enhanced{{Tender: rec, EnhancedScore: 41}}, false, 20)
	out := buf.String()
	for _, want := range []string{"Found 1 relevant tenders (score ≥ 20)", "1. 🔴 [Score: 41]", "Value: 125000.5 EUR", "Published: Unknown"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output is missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintRelevant(&buf, "scan.json", 4, []tenders.Enhanced{{Tender: rec, EnhancedScore: 8}}, true, 20)
	out = buf.String()
	if !strings.Contains(out, "Showing top 1 by enhanced score") || !strings.Contains(out, "1. ⚪ [Score: 8]") || strings.Contains(out, "Value:") {
		t.Fatalf("unexpected fallback output:\n%s", out)
	}
}

func TestWriteXLSX(t *testing.T) {
	value := 50000.0
	rec := tender("B", 22)
	rec.ContractValue = &value
	batch := tenders.NewScanBatch(tenders.SourceManual, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		[]tenders.TenderRecord{tender("A", 4), rec})

	path := filepath.Join(t.TempDir(), "scan.xlsx")
	if err := WriteXLSX(path, batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(tendersSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected a header and 2 rows, got %d", len(rows))
	}
	if rows[0][4] != "Title" || rows[1][3] != "B" || rows[2][3] != "A" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[1][10] != "50000" || rows[1][7] != "72000000, 48000000" {
		t.Fatalf("unexpected value or cpv cells %v", rows[1])
	}

	total, err := f.GetCellValue(summarySheet, "B3")
	if err != nil || total != "2" {
		t.Fatalf("expected total 2 in the summary, got %q (%v)", total, err)
	}
}
