package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// DefaultOutputFlags prints id, score and title.
const DefaultOutputFlags = "ist"

// NewMarker is prepended to tenders that no earlier scan contained.
const NewMarker = "🆕"

const rule = "============================================================"

var icons = map[tenders.Priority]string{
	tenders.PriorityHigh:   "🔴",
	tenders.PriorityMedium: "🟡",
	tenders.PriorityLow:    "⚪",
}

// Icon returns the marker used for a priority band.
func Icon(p tenders.Priority) string {
	return icons[p]
}

// ValidateFlags checks line output flags before anything is printed.
func ValidateFlags(flags string) error {
	if flags == "" {
		return fmt.Errorf("empty output flags")
	}
	for _, f := range flags {
		if !strings.ContainsRune("itdspcbu", f) {
			return fmt.Errorf("invalid output flag %q", f)
		}
	}
	return nil
}

// PrintTenders writes one line per tender. isNew may be nil.
func PrintTenders(w io.Writer, records []tenders.TenderRecord, flags, delimiter string, isNew func(id string) bool) error {
	if err := ValidateFlags(flags); err != nil {
		return err
	}
	for _, rec := range records {
		line := createLine(rec, flags, delimiter)
		if isNew != nil && isNew(rec.ID) {
			line = NewMarker + " " + line
		}
		if len(line) > 0 {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func createLine(rec tenders.TenderRecord, flags, delimiter string) string {
	var line string
	for _, f := range flags {
		switch f {
		case 'i':
			line += rec.ID + delimiter
		case 't':
			line += rec.Title + delimiter
		case 'd':
			line += rec.Description + delimiter
		case 's':
			line += strconv.Itoa(rec.ScoreValue()) + delimiter
		case 'p':
			line += string(rec.Priority()) + delimiter
		case 'c':
			line += rec.Country + delimiter
		case 'b':
			line += rec.BuyerName + delimiter
		case 'u':
			line += rec.URL + delimiter
		}
	}
	return strings.TrimSuffix(line, delimiter)
}

// PrintSummary writes the per-band counts of a batch.
func PrintSummary(w io.Writer, batch tenders.ScanBatch) {
	s := batch.Stats
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "📊 RESULTS SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Source:             %s\n", batch.Source)
	fmt.Fprintf(w, "Scanned at:         %s\n", batch.Timestamp)
	fmt.Fprintf(w, "Total tenders:      %d\n", s.Total)
	fmt.Fprintf(w, "%s High priority:   %d (score ≥ %d)\n", Icon(tenders.PriorityHigh), s.HighPriority, tenders.HighThreshold)
	fmt.Fprintf(w, "%s Medium priority: %d (score %d-%d)\n", Icon(tenders.PriorityMedium), s.MediumPriority, tenders.MediumThreshold, tenders.HighThreshold-1)
	fmt.Fprintf(w, "%s Low priority:    %d (score < %d)\n", Icon(tenders.PriorityLow), s.LowPriority, tenders.MediumThreshold)
	fmt.Fprintln(w, rule)
}

// PrintLeaderboard renders the top n tenders as a table.
func PrintLeaderboard(w io.Writer, records []tenders.TenderRecord, n int, isNew func(id string) bool) {
	top := tenders.TopN(records, n)
	if len(top) == 0 {
		fmt.Fprintln(w, "No tenders found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "", "Score", "Title", "Country", "Buyer", "URL"})
	for _, r := range top {
		marker := Icon(r.Tender.Priority())
		if isNew != nil && isNew(r.Tender.ID) {
			marker += " " + NewMarker
		}
		t.AppendRow(table.Row{
			r.Rank,
			marker,
			r.Tender.ScoreValue(),
			text.Trim(r.Tender.Title, 60),
			r.Tender.Country,
			text.Trim(r.Tender.BuyerName, 30),
			r.Tender.URL,
		})
	}
	t.Render()
}
