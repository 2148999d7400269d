package tenders

import (
	"sort"
	"strings"
)

// Primary scoring schedule.
const (
	HighKeywordPoints   = 10
	MediumKeywordPoints = 5
	CountryBonus        = 5
	CPVBonus            = 8

	// Only the first digits of a CPV code (its division and group) are
	// compared against the configured prefixes.
	CPVSignificantDigits = 4
)

// Secondary schedule used by the relevant-tenders report.
const (
	EnhancedHighPoints   = 15
	EnhancedMediumPoints = 8

	DefaultRelevanceThreshold = 20
	RelevantFallbackCount     = 10
)

// Score computes the primary priority score of a record. Every configured
// keyword contributes at most once, however often it occurs in the text.
func Score(rec TenderRecord, cfg ScoringConfig) int {
	text := searchText(rec)
	score := 0
	for _, kw := range cfg.HighPriorityKeywords {
		if containsKeyword(text, kw) {
			score += HighKeywordPoints
		}
	}
	for _, kw := range cfg.MediumPriorityKeywords {
		if containsKeyword(text, kw) {
			score += MediumKeywordPoints
		}
	}
	if inTargetCountry(rec, cfg) {
		score += CountryBonus
	}
	if matchesCPV(rec, cfg) {
		score += CPVBonus
	}
	return score
}

// ScoreAll validates cfg and returns copies of the records with a priority
// score. Records that already carry a score keep it.
func ScoreAll(records []TenderRecord, cfg ScoringConfig) ([]TenderRecord, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	out := make([]TenderRecord, 0, len(records))
	for _, rec := range records {
		rec = rec.clone()
		if !rec.Scored() {
			s := Score(rec, cfg)
			rec.PriorityScore = &s
		}
		out = append(out, rec)
	}
	return out, nil
}

// MatchedKeywords lists the configured keywords found in the record, in
// configuration order.
func MatchedKeywords(rec TenderRecord, cfg ScoringConfig) (high, medium []string) {
	text := searchText(rec)
	for _, kw := range cfg.HighPriorityKeywords {
		if containsKeyword(text, kw) {
			high = append(high, kw)
		}
	}
	for _, kw := range cfg.MediumPriorityKeywords {
		if containsKeyword(text, kw) {
			medium = append(medium, kw)
		}
	}
	return high, medium
}

func searchText(rec TenderRecord) string {
	return strings.ToLower(rec.Title + " " + rec.Description)
}

func containsKeyword(text, kw string) bool {
	kw = strings.ToLower(kw)
	return kw != "" && strings.Contains(text, kw)
}

func inTargetCountry(rec TenderRecord, cfg ScoringConfig) bool {
	for _, c := range cfg.TargetCountries {
		if strings.EqualFold(rec.Country, c) {
			return true
		}
	}
	return false
}

// matchesCPV reports whether any code of the record starts with the
// significant digits of any configured prefix. The bonus is flat.
func matchesCPV(rec TenderRecord, cfg ScoringConfig) bool {
	for _, code := range rec.CPVCodes {
		for _, prefix := range cfg.TargetCPVPrefixes {
			if len(prefix) > CPVSignificantDigits {
				prefix = prefix[:CPVSignificantDigits]
			}
			if prefix != "" && strings.HasPrefix(code, prefix) {
				return true
			}
		}
	}
	return false
}

// Enhanced pairs a record with its secondary relevance score.
type Enhanced struct {
	Tender        TenderRecord `json:"tender"`
	EnhancedScore int          `json:"enhancedScore"`
}

// EnhancedScore adds the secondary keyword schedule on top of the primary
// score (0 for unscored records).
func EnhancedScore(rec TenderRecord, rel RelevanceConfig) int {
	text := searchText(rec)
	score := rec.ScoreValue()
	for _, kw := range rel.HighKeywords {
		if containsKeyword(text, kw) {
			score += EnhancedHighPoints
		}
	}
	for _, kw := range rel.MediumKeywords {
		if containsKeyword(text, kw) {
			score += EnhancedMediumPoints
		}
	}
	return score
}

// RankEnhanced scores every record with the secondary schedule and sorts
// by that score, highest first. Ties keep input order.
func RankEnhanced(records []TenderRecord, rel RelevanceConfig) []Enhanced {
	out := make([]Enhanced, 0, len(records))
	for _, rec := range records {
		out = append(out, Enhanced{Tender: rec, EnhancedScore: EnhancedScore(rec, rel)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EnhancedScore > out[j].EnhancedScore
	})
	return out
}

// FilterRelevant keeps the records whose enhanced score reaches the
// threshold. When none does, the best RelevantFallbackCount records are
// returned instead and fellBack is true.
func FilterRelevant(records []TenderRecord, rel RelevanceConfig) (relevant []Enhanced, fellBack bool, err error) {
	rel, err = rel.Validate()
	if err != nil {
		return nil, false, err
	}
	ranked := RankEnhanced(records, rel)
	for _, e := range ranked {
		if e.EnhancedScore >= rel.Threshold {
			relevant = append(relevant, e)
		}
	}
	if len(relevant) > 0 {
		return relevant, false, nil
	}
	if len(ranked) > RelevantFallbackCount {
		ranked = ranked[:RelevantFallbackCount]
	}
	return ranked, true, nil
}
