package tenders

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeLanguagePreference(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
		want string
	}{
		{
			name: "secondary language when primary missing",
			raw:  Raw{"notice-title": map[string]any{"fra": "Titre", "eng": "Title"}},
			want: "Title",
		},
		{
			name: "primary language wins",
			raw:  Raw{"notice-title": map[string]any{"eng": "Title", "deu": "Titel"}},
			want: "Titel",
		},
		{
			name: "upper-case language keys",
			raw:  Raw{"TI": map[string]any{"ENG": "Title"}},
			want: "Title",
		},
		{
			name: "any language as last resort",
			raw:  Raw{"title": map[string]any{"ita": "Titolo", "fra": "Titre"}},
			want: "Titre",
		},
		{
			name: "language value is a list",
			raw:  Raw{"title": map[string]any{"deu": []any{"", "Erster Titel"}}},
			want: "Erster Titel",
		},
		{
			name: "nothing usable",
			raw:  Raw{"id": "1", "title": map[string]any{"deu": ""}},
			want: NoTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewNormalizer(NormalizerOptions{}).Normalize(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Title != tt.want {
				t.Fatalf("expected title %q, got %q", tt.want, rec.Title)
			}
		})
	}
}

func TestNormalizeFieldFallbacks(t *testing.T) {
	raw := Raw{
		"publication-number":       "123456-2026",
		"notice-title":             map[string]any{"deu": "Digitalisierung von Formularen"},
		"buyer-name":               map[string]any{"deu": []any{"Stadt Wien"}},
		"buyer-country":            []any{"AUT"},
		"classification-cpv":       "72260000, 48000000 ,,79999100",
		"publication-date":         "2026-01-08+01:00",
		"deadline-receipt-tenders": "20260215",
		"total-value":              "150.000,50",
		"total-value-cur":          "eur",
		"notice-classification":    "cn-standard",
	}

	rec, err := NewNormalizer(NormalizerOptions{}).Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID != "123456-2026" {
		t.Fatalf("expected id 123456-2026, got %q", rec.ID)
	}
	if rec.Country != "AT" {
		t.Fatalf("expected country AT, got %q", rec.Country)
	}
	if rec.BuyerName != "Stadt Wien" {
		t.Fatalf("expected buyer Stadt Wien, got %q", rec.BuyerName)
	}
	if rec.Description != rec.Title {
		t.Fatalf("expected description to fall back to title, got %q", rec.Description)
	}
	wantCPV := []string{"72260000", "48000000", "79999100"}
	if !reflect.DeepEqual(rec.CPVCodes, wantCPV) {
		t.Fatalf("unexpected cpv codes.\nwant: %#v\ngot:  %#v", wantCPV, rec.CPVCodes)
	}
	if rec.PublicationDate == nil || *rec.PublicationDate != "2026-01-08" {
		t.Fatalf("expected publication date 2026-01-08, got %v", rec.PublicationDate)
	}
	if rec.Deadline == nil || *rec.Deadline != "2026-02-15" {
		t.Fatalf("expected deadline 2026-02-15, got %v", rec.Deadline)
	}
	if rec.ContractValue == nil || *rec.ContractValue != 150000.5 {
		t.Fatalf("expected contract value 150000.5, got %v", rec.ContractValue)
	}
	if rec.Currency == nil || *rec.Currency != "EUR" {
		t.Fatalf("expected currency EUR, got %v", rec.Currency)
	}
	if rec.URL != "https://ted.europa.eu/en/notice/-/detail/123456-2026" {
		t.Fatalf("unexpected synthesized url %q", rec.URL)
	}
	if rec.NoticeType != "cn-standard" {
		t.Fatalf("expected notice type cn-standard, got %q", rec.NoticeType)
	}
	if rec.PriorityScore != nil {
		t.Fatalf("normalization must not set a score, got %d", *rec.PriorityScore)
	}
}

func TestNormalizeContractValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  *float64
	}{
		{"german grouping", "1.234", ptr(1234.0)},
		{"german grouping with decimals", "1.234,56", ptr(1234.56)},
		{"english grouping", "1,234", ptr(1234.0)},
		{"decimal comma", "1234,5", ptr(1234.5)},
		{"decimal dot", "12.5", ptr(12.5)},
		{"fraction below one", "0.125", ptr(0.125)},
		{"repeated dots", "1.234.567", ptr(1234567.0)},
		{"spaces and apostrophes", "1 250'000", ptr(1250000.0)},
		{"nan string", "NaN", nil},
		{"inf string", "Inf", nil},
		{"negative infinity string", "-infinity", nil},
		{"nan number", math.NaN(), nil},
		{"inf number", math.Inf(1), nil},
		{"nan json number", json.Number("NaN"), nil},
		{"nan amount in map", map[string]any{"amount": "NaN", "currency": "EUR"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewNormalizer(NormalizerOptions{}).Normalize(Raw{"id": "1", "title": "x", "contractValue": tt.value})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(rec.ContractValue, tt.want) {
				t.Fatalf("contract value: want %v, got %v", deref(tt.want), deref(rec.ContractValue))
			}
			batch := NewScanBatch(SourceManual, time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC), []TenderRecord{rec})
			if _, err := json.Marshal(batch); err != nil {
				t.Fatalf("batch does not marshal: %v", err)
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }

func deref(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func TestNormalizeDefaults(t *testing.T) {
	n := NewNormalizer(NormalizerOptions{})

	rec, err := n.Normalize(Raw{"title": "Scanning services"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "UNKNOWN-1" {
		t.Fatalf("expected synthesized id UNKNOWN-1, got %q", rec.ID)
	}
	if rec.Country != UnknownValue || rec.BuyerName != UnknownValue {
		t.Fatalf("expected Unknown country and buyer, got %q / %q", rec.Country, rec.BuyerName)
	}
	if rec.URL != DefaultBaseURL {
		t.Fatalf("expected base url without a source id, got %q", rec.URL)
	}
	if rec.CPVCodes == nil || len(rec.CPVCodes) != 0 {
		t.Fatalf("expected empty cpv list, got %#v", rec.CPVCodes)
	}
	if rec.PublicationDate != nil || rec.Deadline != nil || rec.ContractValue != nil || rec.Currency != nil {
		t.Fatalf("expected optional fields to stay nil, got %+v", rec)
	}

	second, _ := n.Normalize(Raw{"title": "Another one"})
	if second.ID != "UNKNOWN-2" {
		t.Fatalf("expected sequence to advance to UNKNOWN-2, got %q", second.ID)
	}
}

func TestIsGeneratedID(t *testing.T) {
	tests := []struct {
		id, prefix string
		want       bool
	}{
		{"UNKNOWN-1", "", true},
		{"UNKNOWN-42", "UNKNOWN", true},
		{"UNKNOWN-", "", false},
		{"UNKNOWN-1a", "", false},
		{"123456-2026", "", false},
		{"MANUAL-3", "MANUAL", true},
		{"UNKNOWN-3", "MANUAL", false},
	}
	for _, tt := range tests {
		if got := IsGeneratedID(tt.id, tt.prefix); got != tt.want {
			t.Fatalf("IsGeneratedID(%q, %q) = %v, want %v", tt.id, tt.prefix, got, tt.want)
		}
	}
}

func TestNormalizeLinks(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
		want string
	}{
		{
			name: "explicit url",
			raw:  Raw{"id": "1", "url": "https://example.org/notice/1"},
			want: "https://example.org/notice/1",
		},
		{
			name: "first of a link list",
			raw:  Raw{"id": "1", "links": []any{"https://a.example/1", "https://b.example/1"}},
			want: "https://a.example/1",
		},
		{
			name: "html rendition in primary language",
			raw: Raw{"id": "1", "links": map[string]any{
				"pdf":  map[string]any{"DEU": "https://ted.europa.eu/de/notice/1/pdf"},
				"html": map[string]any{"ENG": "https://ted.europa.eu/en/notice/1/html", "DEU": "https://ted.europa.eu/de/notice/1/html"},
			}},
			want: "https://ted.europa.eu/de/notice/1/html",
		},
		{
			name: "relative link resolved against base",
			raw:  Raw{"id": "1", "url": "/en/notice/-/detail/1"},
			want: "https://ted.europa.eu/en/notice/-/detail/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewNormalizer(NormalizerOptions{}).Normalize(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.URL != tt.want {
				t.Fatalf("expected url %q, got %q", tt.want, rec.URL)
			}
		})
	}
}

func TestNormalizeCountry(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"de", "DE"},
		{"DEU", "DE"},
		{[]any{"CHE"}, "CH"},
		{"Deutschland", "DE"},
		{"Vaduz, Liechtenstein", "LI"},
		{"Österreich", "AT"},
		{"Atlantis", UnknownValue},
		{"", UnknownValue},
	}

	for _, tt := range tests {
		rec, err := NewNormalizer(NormalizerOptions{}).Normalize(Raw{"id": "1", "country": tt.in})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Country != tt.want {
			t.Fatalf("country %#v: expected %q, got %q", tt.in, tt.want, rec.Country)
		}
	}
}

func TestNormalizeCleansMarkup(t *testing.T) {
	rec, err := NewNormalizer(NormalizerOptions{}).Normalize(Raw{
		"id":          "1",
		"title":       "  OCR &amp; Scanning\n\tServices ",
		"description": "<p>Erfassung</p><p>von <b>Formularen</b></p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Title != "OCR & Scanning Services" {
		t.Fatalf("unexpected title %q", rec.Title)
	}
	if rec.Description != "Erfassung von Formularen" {
		t.Fatalf("unexpected description %q", rec.Description)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := []Raw{
		{
			"publication-number":    "98765-2026",
			"notice-title":          map[string]any{"eng": "Handwriting recognition", "deu": "Handschrifterkennung"},
			"buyer-country":         "CHE",
			"buyer-name":            "Kanton Zürich",
			"classification-cpv":    []any{"72260000", float64(48000000)},
			"publication-date":      "20260108",
			"total-value":           float64(250000),
			"total-value-cur":       "CHF",
			"links":                 map[string]any{"html": map[string]any{"ENG": "https://ted.europa.eu/en/notice/98765-2026/html"}},
			"notice-classification": "cn-standard",
		},
		{"title": "<b>Document</b> processing &amp; archive"},
	}

	for i, raw := range raws {
		n := NewNormalizer(NormalizerOptions{})
		once, err := n.Normalize(raw)
		if err != nil {
			t.Fatalf("raw %d: unexpected error: %v", i, err)
		}
		twice, err := n.Normalize(ToRaw(once))
		if err != nil {
			t.Fatalf("raw %d: unexpected error on second pass: %v", i, err)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("raw %d: normalization is not idempotent.\nonce:  %+v\ntwice: %+v", i, once, twice)
		}
	}
}

func TestNormalizeJSONRoundTrip(t *testing.T) {
	n := NewNormalizer(NormalizerOptions{})
	once, err := n.Normalize(Raw{"id": "1", "title": "Scan", "contractValue": float64(1000), "currency": "EUR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := json.Marshal(once)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	twice, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("record changed after a JSON round trip.\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestNormalizeAllSkipsMalformed(t *testing.T) {
	raws := []Raw{
		{"id": "1", "title": "A"},
		{"id": "2"},
		{"description": "neither id nor title", "country": "DE"},
		{"title": "D"},
		{"ND": "5", "TI": "E"},
	}

	recs, errs := NewNormalizer(NormalizerOptions{}).NormalizeAll(raws)
	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !errors.Is(errs[0], ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", errs[0])
	}
	var mre *MalformedRecordError
	if !errors.As(errs[0], &mre) || mre.Index != 2 {
		t.Fatalf("expected malformed record at index 2, got %v", errs[0])
	}

	wantIDs := []string{"1", "2", "UNKNOWN-1", "5"}
	for i, rec := range recs {
		if rec.ID != wantIDs[i] {
			t.Fatalf("record %d: expected id %q, got %q", i, wantIDs[i], rec.ID)
		}
	}
}
