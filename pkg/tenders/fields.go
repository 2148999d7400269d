package tenders

import (
	"encoding/json"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// accessor reads one candidate value for a field out of a raw record.
type accessor func(Raw) (any, bool)

// field probes a top-level key.
func field(name string) accessor {
	return func(r Raw) (any, bool) {
		v, ok := r[name]
		return v, ok && v != nil
	}
}

// nested probes a key inside a map-valued key, e.g. the currency carried
// next to an amount.
func nested(parent, name string) accessor {
	return func(r Raw) (any, bool) {
		m, ok := r[parent].(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[name]
		return v, ok && v != nil
	}
}

func fields(names ...string) []accessor {
	out := make([]accessor, 0, len(names))
	for _, n := range names {
		out = append(out, field(n))
	}
	return out
}

// Probe order per field. Canonical names come first so normalizing an
// already normalized record is a no-op.
var (
	idAccessors          = fields("id", "publication-number", "ND", "noticeId", "DOC_ID")
	titleAccessors       = fields("title", "notice-title", "TI")
	descriptionAccessors = fields("description", "description-proc", "short-description", "AC")
	countryAccessors     = fields("country", "buyer-country", "CY")
	buyerAccessors       = fields("buyerName", "buyer-name", "ON")
	cpvAccessors         = fields("cpvCodes", "classification-cpv", "CPV")
	publishedAccessors   = fields("publicationDate", "publication-date", "PD")
	deadlineAccessors    = fields("deadline", "deadline-receipt-tenders", "DD")
	valueAccessors       = fields("contractValue", "total-value", "VAL")
	currencyAccessors    = append(fields("currency", "total-value-cur", "CUR"),
		nested("contractValue", "currency"), nested("total-value", "currency"), nested("VAL", "currency"))
	urlAccessors        = fields("url", "links")
	noticeTypeAccessors = fields("noticeType", "notice-classification", "NC")
)

// first walks the accessors in order and returns the first value conv
// accepts.
func first[T any](r Raw, conv func(any) (T, bool), accessors []accessor) (T, bool) {
	for _, a := range accessors {
		v, ok := a(r)
		if !ok {
			continue
		}
		if out, ok := conv(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

// scalar converts strings and numbers to a trimmed string. Lists yield
// their first convertible element.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	case []any:
		for _, e := range t {
			if s, ok := scalar(e); ok {
				return s, true
			}
		}
	case []string:
		for _, e := range t {
			if s, ok := scalar(e); ok {
				return s, true
			}
		}
	}
	return "", false
}

// sortedKeys gives language maps a deterministic "any value" order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// cpvCodes flattens every shape CPV classifications arrive in.
func cpvCodes(v any) ([]string, bool) {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			for _, part := range strings.Split(t, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		case float64, int, int64, json.Number:
			if s, ok := scalar(t); ok {
				out = append(out, s)
			}
		case []any:
			for _, e := range t {
				walk(e)
			}
		case []string:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			for _, k := range []string{"code", "CODE", "value", "VALUE"} {
				if inner, ok := t[k]; ok {
					walk(inner)
					return
				}
			}
		}
	}
	walk(v)
	return out, len(out) > 0
}

var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02Z07:00",
	"20060102 15:04",
	"02.01.2006",
	"02/01/2006",
}

// isoDate reduces the date formats seen in notices to YYYY-MM-DD.
func isoDate(v any) (string, bool) {
	s, ok := scalar(v)
	if !ok {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	if len(s) > 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// amount accepts numbers, numeric strings with grouping characters, and
// maps carrying the number under amount or value.
func amount(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		return parseAmount(t)
	case []any:
		for _, e := range t {
			if f, ok := amount(e); ok {
				return f, true
			}
		}
	case map[string]any:
		for _, k := range []string{"amount", "value", "#text"} {
			if inner, ok := t[k]; ok {
				return amount(inner)
			}
		}
	}
	return 0, false
}

func parseAmount(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case dot >= 0:
		// "1.234.567" and "150.000" group thousands, "0.125" and "12.5" do not.
		if strings.Count(s, ".") > 1 || (len(s)-dot-1 == 3 && strings.Trim(s[:dot], "+-0") != "") {
			s = strings.ReplaceAll(s, ".", "")
		}
	case comma >= 0:
		// "1,234,567" groups thousands, "1234,50" is a decimal comma.
		if strings.Count(s, ",") > 1 || len(s)-comma-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

// finite drops NaN and infinities, which JSON cannot carry.
func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func currencyCode(v any) (string, bool) {
	s, ok := scalar(v)
	if !ok || len(s) != 3 {
		return "", false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	return strings.ToUpper(s), true
}

var iso3Countries = map[string]string{
	"AUT": "AT", "BEL": "BE", "BGR": "BG", "HRV": "HR", "CYP": "CY",
	"CZE": "CZ", "DNK": "DK", "EST": "EE", "FIN": "FI", "FRA": "FR",
	"DEU": "DE", "GRC": "GR", "HUN": "HU", "IRL": "IE", "ITA": "IT",
	"LVA": "LV", "LTU": "LT", "LUX": "LU", "MLT": "MT", "NLD": "NL",
	"POL": "PL", "PRT": "PT", "ROU": "RO", "SVK": "SK", "SVN": "SI",
	"ESP": "ES", "SWE": "SE", "ISL": "IS", "LIE": "LI", "NOR": "NO",
	"CHE": "CH", "GBR": "GB",
}

var countryNames = map[string]string{
	"germany":       "DE",
	"deutschland":   "DE",
	"austria":       "AT",
	"österreich":    "AT",
	"oesterreich":   "AT",
	"switzerland":   "CH",
	"schweiz":       "CH",
	"suisse":        "CH",
	"svizzera":      "CH",
	"liechtenstein": "LI",
	"france":        "FR",
	"frankreich":    "FR",
	"italy":         "IT",
	"italien":       "IT",
	"netherlands":   "NL",
	"niederlande":   "NL",
	"belgium":       "BE",
	"belgien":       "BE",
	"luxembourg":    "LU",
	"luxemburg":     "LU",
	"poland":        "PL",
	"polen":         "PL",
	"spain":         "ES",
	"spanien":       "ES",
}

// countryCode maps two-letter codes, alpha-3 codes and common country
// names to an upper-case ISO 3166 alpha-2 code.
func countryCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	if len(upper) == 2 && isASCIILetters(upper) {
		return upper, true
	}
	if code, ok := iso3Countries[upper]; ok {
		return code, true
	}
	lower := strings.ToLower(s)
	if code, ok := countryNames[lower]; ok {
		return code, true
	}
	// Free text such as "Berlin, Deutschland": the earliest mentioned name wins.
	best, bestAt := "", -1
	for name, code := range countryNames {
		at := strings.Index(lower, name)
		if at < 0 {
			continue
		}
		if bestAt < 0 || at < bestAt || (at == bestAt && code < best) {
			best, bestAt = code, at
		}
	}
	return best, bestAt >= 0
}

func isASCIILetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// resolveURL makes relative links absolute against base.
func resolveURL(base *url.URL, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if u.IsAbs() {
		return u.String(), true
	}
	if base == nil {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}
