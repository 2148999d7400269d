package tenders

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const (
	DefaultPrimaryLanguage   = "deu"
	DefaultSecondaryLanguage = "eng"
	DefaultBaseURL           = "https://ted.europa.eu"
	DefaultDetailURL         = "https://ted.europa.eu/en/notice/-/detail/%s"
	DefaultIDPrefix          = "UNKNOWN"

	NoTitle      = "No title"
	UnknownValue = "Unknown"
)

// NormalizerOptions controls language preference and link synthesis.
type NormalizerOptions struct {
	PrimaryLanguage   string
	SecondaryLanguage string
	BaseURL           string
	// DetailURL is a format string with a single %s for the notice id.
	DetailURL string
	IDPrefix  string
}

func DefaultNormalizerOptions() NormalizerOptions {
	return NormalizerOptions{
		PrimaryLanguage:   DefaultPrimaryLanguage,
		SecondaryLanguage: DefaultSecondaryLanguage,
		BaseURL:           DefaultBaseURL,
		DetailURL:         DefaultDetailURL,
		IDPrefix:          DefaultIDPrefix,
	}
}

// markup strips tags from free text. Block tags become spaces so that
// "<p>a</p><p>b</p>" does not collapse into "ab".
var markup = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// Normalizer turns raw records into TenderRecords. It keeps a sequence
// counter for synthesized ids, so a Normalizer must not be shared between
// goroutines.
type Normalizer struct {
	opts NormalizerOptions
	base *url.URL
	seq  int
}

// NewNormalizer fills unset options with their defaults.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	def := DefaultNormalizerOptions()
	if opts.PrimaryLanguage == "" {
		opts.PrimaryLanguage = def.PrimaryLanguage
	}
	if opts.SecondaryLanguage == "" {
		opts.SecondaryLanguage = def.SecondaryLanguage
	}
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.DetailURL == "" || strings.Count(opts.DetailURL, "%s") != 1 {
		opts.DetailURL = def.DetailURL
	}
	if opts.IDPrefix == "" {
		opts.IDPrefix = def.IDPrefix
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || !base.IsAbs() {
		opts.BaseURL = def.BaseURL
		base, _ = url.Parse(def.BaseURL)
	}
	return &Normalizer{opts: opts, base: base}
}

// IsGeneratedID reports whether id has the <prefix>-<seq> form the
// Normalizer synthesizes for records without a source id. Such ids are
// only unique within one batch.
func IsGeneratedID(id, prefix string) bool {
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	seq, ok := strings.CutPrefix(id, prefix+"-")
	if !ok || seq == "" {
		return false
	}
	for _, r := range seq {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Options returns the effective options.
func (n *Normalizer) Options() NormalizerOptions {
	return n.opts
}

// Normalize converts a single raw record. It only fails with a
// *MalformedRecordError, when the record has neither an id nor a title.
func (n *Normalizer) Normalize(raw Raw) (TenderRecord, error) {
	return n.normalize(-1, raw)
}

// NormalizeAll normalizes a batch, keeping input order. Malformed records
// are skipped and reported in the returned error slice.
func (n *Normalizer) NormalizeAll(raws []Raw) ([]TenderRecord, []error) {
	out := make([]TenderRecord, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		rec, err := n.normalize(i, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rec)
	}
	return out, errs
}

func (n *Normalizer) normalize(index int, raw Raw) (TenderRecord, error) {
	id, hasID := first(raw, scalar, idAccessors)
	title, hasTitle := first(raw, n.text, titleAccessors)
	if !hasID && !hasTitle {
		return TenderRecord{}, &MalformedRecordError{Index: index, Reason: "no id and no title"}
	}
	if !hasTitle {
		title = NoTitle
	}

	rec := TenderRecord{
		ID:       id,
		Title:    title,
		Country:  UnknownValue,
		CPVCodes: []string{},
	}
	if !hasID {
		n.seq++
		rec.ID = fmt.Sprintf("%s-%d", n.opts.IDPrefix, n.seq)
	}

	if desc, ok := first(raw, n.text, descriptionAccessors); ok {
		rec.Description = desc
	} else {
		rec.Description = rec.Title
	}
	if country, ok := first(raw, n.country, countryAccessors); ok {
		rec.Country = country
	}
	if buyer, ok := first(raw, n.text, buyerAccessors); ok {
		rec.BuyerName = buyer
	} else {
		rec.BuyerName = UnknownValue
	}
	if codes, ok := first(raw, cpvCodes, cpvAccessors); ok {
		rec.CPVCodes = codes
	}
	if d, ok := first(raw, isoDate, publishedAccessors); ok {
		rec.PublicationDate = &d
	}
	if d, ok := first(raw, isoDate, deadlineAccessors); ok {
		rec.Deadline = &d
	}
	if v, ok := first(raw, amount, valueAccessors); ok {
		rec.ContractValue = &v
	}
	if c, ok := first(raw, currencyCode, currencyAccessors); ok {
		rec.Currency = &c
	}
	if nt, ok := first(raw, n.text, noticeTypeAccessors); ok {
		rec.NoticeType = nt
	}

	switch link, ok := first(raw, n.link, urlAccessors); {
	case ok:
		rec.URL = link
	case hasID:
		rec.URL = fmt.Sprintf(n.opts.DetailURL, url.PathEscape(id))
	default:
		rec.URL = n.opts.BaseURL
	}

	return rec, nil
}

// text resolves plain strings, language maps and lists to cleaned text.
// Language maps prefer the primary language, then the secondary one, then
// any value in key order.
func (n *Normalizer) text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := cleanText(t)
		return s, s != ""
	case map[string]any:
		for _, lang := range []string{n.opts.PrimaryLanguage, n.opts.SecondaryLanguage} {
			if inner, ok := lookupFold(t, lang); ok {
				if s, ok := n.text(inner); ok {
					return s, true
				}
			}
		}
		for _, k := range sortedKeys(t) {
			if s, ok := n.text(t[k]); ok {
				return s, true
			}
		}
	case []any:
		for _, e := range t {
			if s, ok := n.text(e); ok {
				return s, true
			}
		}
	case []string:
		for _, e := range t {
			if s, ok := n.text(e); ok {
				return s, true
			}
		}
	}
	return "", false
}

func (n *Normalizer) country(v any) (string, bool) {
	s, ok := n.text(v)
	if !ok {
		return "", false
	}
	return countryCode(s)
}

// link picks an explicit notice link. Link maps (html/pdf/xml, each keyed
// by language) prefer the html rendition.
func (n *Normalizer) link(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return resolveURL(n.base, t)
	case []any:
		for _, e := range t {
			if s, ok := n.link(e); ok {
				return s, true
			}
		}
	case []string:
		for _, e := range t {
			if s, ok := n.link(e); ok {
				return s, true
			}
		}
	case map[string]any:
		for _, k := range []string{"html", n.opts.PrimaryLanguage, n.opts.SecondaryLanguage} {
			if inner, ok := lookupFold(t, k); ok {
				if s, ok := n.link(inner); ok {
					return s, true
				}
			}
		}
		for _, k := range sortedKeys(t) {
			if s, ok := n.link(t[k]); ok {
				return s, true
			}
		}
	}
	return "", false
}

// cleanText strips markup, decodes entities and collapses whitespace.
func cleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		s = html.UnescapeString(markup.Sanitize(s))
	}
	return strings.Join(strings.Fields(s), " ")
}
