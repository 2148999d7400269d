package tenders

import "strings"

// ScoringConfig is the caller-owned configuration the scorer reads. It is
// never modified by the engine.
type ScoringConfig struct {
	TargetCountries        []string `json:"targetCountries"`
	HighPriorityKeywords   []string `json:"highPriorityKeywords"`
	MediumPriorityKeywords []string `json:"mediumPriorityKeywords"`
	TargetCPVPrefixes      []string `json:"targetCpvPrefixes"`
}

// Validate returns a cleaned copy of the configuration: countries are
// trimmed and upper-cased, blank countries and CPV prefixes are dropped.
// Keyword lists are required, there are no implicit defaults.
func (c ScoringConfig) Validate() (ScoringConfig, error) {
	if len(c.HighPriorityKeywords) == 0 && len(c.MediumPriorityKeywords) == 0 {
		return ScoringConfig{}, &ConfigurationError{Reason: "no keyword lists configured"}
	}

	high, err := cleanKeywords("highPriorityKeywords", c.HighPriorityKeywords)
	if err != nil {
		return ScoringConfig{}, err
	}
	medium, err := cleanKeywords("mediumPriorityKeywords", c.MediumPriorityKeywords)
	if err != nil {
		return ScoringConfig{}, err
	}

	out := ScoringConfig{
		HighPriorityKeywords:   high,
		MediumPriorityKeywords: medium,
	}
	for _, country := range c.TargetCountries {
		country = strings.ToUpper(strings.TrimSpace(country))
		if country != "" {
			out.TargetCountries = append(out.TargetCountries, country)
		}
	}
	for _, prefix := range c.TargetCPVPrefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			out.TargetCPVPrefixes = append(out.TargetCPVPrefixes, prefix)
		}
	}
	return out, nil
}

// RelevanceConfig drives the secondary "relevant tenders" report.
type RelevanceConfig struct {
	HighKeywords   []string `json:"highKeywords"`
	MediumKeywords []string `json:"mediumKeywords"`
	Threshold      int      `json:"threshold"`
}

// Validate mirrors ScoringConfig.Validate for the enhanced keyword lists. A
// non-positive threshold means DefaultRelevanceThreshold.
func (c RelevanceConfig) Validate() (RelevanceConfig, error) {
	if len(c.HighKeywords) == 0 && len(c.MediumKeywords) == 0 {
		return RelevanceConfig{}, &ConfigurationError{Reason: "no relevance keyword lists configured"}
	}
	high, err := cleanKeywords("relevance.high", c.HighKeywords)
	if err != nil {
		return RelevanceConfig{}, err
	}
	medium, err := cleanKeywords("relevance.medium", c.MediumKeywords)
	if err != nil {
		return RelevanceConfig{}, err
	}
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}
	return RelevanceConfig{HighKeywords: high, MediumKeywords: medium, Threshold: threshold}, nil
}

// cleanKeywords trims and lower-cases keywords. A blank keyword would match
// every record, so it is rejected.
func cleanKeywords(field string, keywords []string) ([]string, error) {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return nil, &ConfigurationError{Field: field, Reason: "blank keyword"}
		}
		out = append(out, kw)
	}
	return out, nil
}
