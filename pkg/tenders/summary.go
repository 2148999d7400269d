package tenders

import "sort"

// Classification thresholds.
const (
	HighThreshold   = 20
	MediumThreshold = 10
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Classify maps a score to its priority band.
func Classify(score int) Priority {
	switch {
	case score >= HighThreshold:
		return PriorityHigh
	case score >= MediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Stats counts records per priority band. The three bands always add up
// to Total.
type Stats struct {
	Total          int `json:"total"`
	HighPriority   int `json:"highPriority"`
	MediumPriority int `json:"mediumPriority"`
	LowPriority    int `json:"lowPriority"`
}

func Summarize(records []TenderRecord) Stats {
	s := Stats{Total: len(records)}
	for _, rec := range records {
		switch rec.Priority() {
		case PriorityHigh:
			s.HighPriority++
		case PriorityMedium:
			s.MediumPriority++
		default:
			s.LowPriority++
		}
	}
	return s
}

// SortByScore returns the records ordered by score, highest first. Equal
// scores keep their input order. The input slice is not modified.
func SortByScore(records []TenderRecord) []TenderRecord {
	out := append([]TenderRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoreValue() > out[j].ScoreValue()
	})
	return out
}

// Ranked is a leaderboard row. Rank starts at 1.
type Ranked struct {
	Rank   int          `json:"rank"`
	Tender TenderRecord `json:"tender"`
}

// TopN returns at most n records ranked by score.
func TopN(records []TenderRecord, n int) []Ranked {
	if n <= 0 {
		return nil
	}
	sorted := SortByScore(records)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]Ranked, 0, len(sorted))
	for i, rec := range sorted {
		out = append(out, Ranked{Rank: i + 1, Tender: rec})
	}
	return out
}
