package tenders

// Deduplicate drops records whose id was already seen earlier in the slice.
// The first occurrence wins and relative order is preserved.
func Deduplicate(records []TenderRecord) []TenderRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]TenderRecord, 0, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
