package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// relevantIcon bands enhanced scores. The fallback listing uses lower
// bands because it is shown when nothing reached the threshold.
func relevantIcon(score int, fellBack bool) string {
	if fellBack {
		switch {
		case score >= 30:
			return "🔴"
		case score >= 20:
			return "🟡"
		default:
			return "⚪"
		}
	}
	switch {
	case score >= 40:
		return "🔴"
	case score >= 30:
		return "🟠"
	default:
		return "🟡"
	}
}

// PrintRelevant lists the result of tenders.FilterRelevant.
func PrintRelevant(w io.Writer, source string, total int, relevant []tenders.Enhanced, fellBack bool, threshold int) {
	bar := strings.Repeat("═", 70)
	fmt.Fprintln(w, "📊 RELEVANT TENDERS")
	fmt.Fprintln(w, bar)
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "Total tenders: %d\n", total)
	fmt.Fprintln(w, bar)
	fmt.Fprintln(w)

	if fellBack {
		fmt.Fprintf(w, "⚠️  No tenders reached an enhanced score of %d.\n", threshold)
		fmt.Fprintf(w, "Showing top %d by enhanced score instead:\n\n", len(relevant))
	} else {
		fmt.Fprintf(w, "✅ Found %d relevant tenders (score ≥ %d)\n\n", len(relevant), threshold)
	}

	for i, e := range relevant {
		rec := e.Tender
		fmt.Fprintf(w, "%d. %s [Score: %d]\n", i+1, relevantIcon(e.EnhancedScore, fellBack), e.EnhancedScore)
		fmt.Fprintf(w, "   %s\n", rec.Title)
		fmt.Fprintf(w, "   %s | Published: %s\n", rec.Country, orUnknown(rec.PublicationDate))
		if !fellBack && rec.ContractValue != nil {
			fmt.Fprintf(w, "   Value: %s %s\n", strconv.FormatFloat(*rec.ContractValue, 'f', -1, 64), orEmpty(rec.Currency))
		}
		fmt.Fprintf(w, "   %s\n\n", rec.URL)
	}
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return tenders.UnknownValue
	}
	return *s
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
