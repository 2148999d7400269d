package tenders

import "time"

// TimestampLayout is ISO 8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Source labels written into ScanBatch.Source.
const (
	SourceTEDAPI  = "ted-api-v3"
	SourceTEDXML  = "ted-xml"
	SourceWebsite = "ted-website"
	SourceManual  = "manual-collection"
)

// ScanBatch is the persisted result of one run.
type ScanBatch struct {
	Timestamp string         `json:"timestamp"`
	Source    string         `json:"source"`
	Stats     Stats          `json:"stats"`
	Tenders   []TenderRecord `json:"tenders"`
}

// NewScanBatch builds a batch with stats computed from records.
func NewScanBatch(source string, at time.Time, records []TenderRecord) ScanBatch {
	if records == nil {
		records = []TenderRecord{}
	}
	return ScanBatch{
		Timestamp: at.UTC().Format(TimestampLayout),
		Source:    source,
		Stats:     Summarize(records),
		Tenders:   records,
	}
}

// Time parses the batch timestamp.
func (b ScanBatch) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, b.Timestamp)
}
