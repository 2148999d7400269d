package storage

import (
	"time"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// Scan is one recorded run.
type Scan struct {
	ID         string        `json:"id"`
	ScannedAt  time.Time     `json:"scannedAt"`
	Source     string        `json:"source"`
	Stats      tenders.Stats `json:"stats"`
	NewTenders int           `json:"newTenders"`
	FilePath   string        `json:"filePath,omitempty"`
}

// ScanTender is the summary of a tender as it appeared in one scan.
type ScanTender struct {
	TenderID  string           `json:"id"`
	Title     string           `json:"title"`
	Country   string           `json:"country"`
	BuyerName string           `json:"buyerName"`
	Score     int              `json:"priorityScore"`
	Priority  tenders.Priority `json:"priority"`
	URL       string           `json:"url"`
	IsNew     bool             `json:"isNew"`
}

// SeenTender tracks a tender across scans.
type SeenTender struct {
	TenderID    string    `json:"id"`
	Title       string    `json:"title"`
	Country     string    `json:"country"`
	BuyerName   string    `json:"buyerName"`
	URL         string    `json:"url"`
	BestScore   int       `json:"bestScore"`
	ScanCount   int       `json:"scanCount"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// SaveResult is returned by SaveBatch.
type SaveResult struct {
	ScanID       string
	NewTenderIDs []string
}

// HistoryStats aggregates every scan in the database. Priority counts use
// each tender's best score.
type HistoryStats struct {
	Scans          int
	Tenders        int
	HighPriority   int
	MediumPriority int
	LowPriority    int
}
