package tenders

// TenderRecord is the canonical shape of a public procurement notice after
// normalization. The JSON field names are the ones downstream consumers of
// scan batch files read.
type TenderRecord struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Country         string   `json:"country"`
	BuyerName       string   `json:"buyerName"`
	CPVCodes        []string `json:"cpvCodes"`
	PublicationDate *string  `json:"publicationDate"`
	Deadline        *string  `json:"deadline"`
	ContractValue   *float64 `json:"contractValue"`
	Currency        *string  `json:"currency"`
	URL             string   `json:"url"`
	NoticeType      string   `json:"noticeType,omitempty"`

	// PriorityScore stays nil until the scorer has run on the record.
	PriorityScore *int `json:"priorityScore,omitempty"`
}

// Scored reports whether a priority score has been assigned.
func (r TenderRecord) Scored() bool {
	return r.PriorityScore != nil
}

// ScoreValue returns the priority score, or 0 for unscored records.
func (r TenderRecord) ScoreValue() int {
	if r.PriorityScore == nil {
		return 0
	}
	return *r.PriorityScore
}

// Priority classifies the record's score. Unscored records are low.
func (r TenderRecord) Priority() Priority {
	return Classify(r.ScoreValue())
}

// clone returns a copy that shares no slices or pointers with r.
func (r TenderRecord) clone() TenderRecord {
	c := r
	c.CPVCodes = append([]string{}, r.CPVCodes...)
	c.PublicationDate = copyPtr(r.PublicationDate)
	c.Deadline = copyPtr(r.Deadline)
	c.ContractValue = copyPtr(r.ContractValue)
	c.Currency = copyPtr(r.Currency)
	c.PriorityScore = copyPtr(r.PriorityScore)
	return c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Raw is an untyped record as produced by a source adapter, before
// normalization. Values are whatever encoding/json or an adapter put there:
// strings, float64s, []any and map[string]any.
type Raw map[string]any

// ToRaw converts a record back to its raw form so it can be normalized
// again. The priority score is not carried over.
func ToRaw(r TenderRecord) Raw {
	raw := Raw{
		"id":          r.ID,
		"title":       r.Title,
		"description": r.Description,
		"country":     r.Country,
		"buyerName":   r.BuyerName,
		"url":         r.URL,
	}
	codes := make([]any, 0, len(r.CPVCodes))
	for _, c := range r.CPVCodes {
		codes = append(codes, c)
	}
	raw["cpvCodes"] = codes
	if r.PublicationDate != nil {
		raw["publicationDate"] = *r.PublicationDate
	}
	if r.Deadline != nil {
		raw["deadline"] = *r.Deadline
	}
	if r.ContractValue != nil {
		raw["contractValue"] = *r.ContractValue
	}
	if r.Currency != nil {
		raw["currency"] = *r.Currency
	}
	if r.NoticeType != "" {
		raw["noticeType"] = r.NoticeType
	}
	return raw
}
