package tedhtml

import (
	"context"
	"testing"

	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

const resultsPage = `<html><body>
<main>
  <article data-notice-id="654321-2026">
    <h3>Handschrifterkennung für Meldeformulare</h3>
    <p class="description">Erfassung und OCR von Papierformularen</p>
    <span class="buyer-name">Bezirksamt Mitte</span>
    <span class="buyer-country">Deutschland</span>
    <span class="deadline">Frist: 20.02.2026</span>
    <a href="/en/notice/-/detail/654321-2026">Details</a>
  </article>
  <div class="search-result-item">
    <a href="https://ted.europa.eu/en/notice/-/detail/777777-2026">Archive scanning services</a>
    <p>Scanning of historical archives</p>
    <div class="country">Schweiz</div>
  </div>
  <div class="search-result-item"><span>no link here</span></div>
</main>
</body></html>`

const genericPage = `<html><body>
<div class="notice-card"><a href="/de/notice/111111-2026">Formularverarbeitung</a><p>Automatisierte Verarbeitung</p></div>
<div class="notice-card"><a href="https://ads.example.com/notice/999999-2026">Sponsored</a></div>
<div class="tender-item"><a href="https://www.ted.europa.eu/notice:222222-2026">Document capture</a></div>
</body></html>`

func TestParseResultPage(t *testing.T) {
	a, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raws, err := a.Parse(context.Background(), sources.Document{Name: "results.html", Body: []byte(resultsPage)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 notices, got %d: %v", len(raws), raws)
	}

	recs, errs := tenders.NewNormalizer(tenders.NormalizerOptions{}).NormalizeAll(raws)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	first := recs[0]
	if first.ID != "654321-2026" || first.Title != "Handschrifterkennung für Meldeformulare" {
		t.Fatalf("unexpected record %+v", first)
	}
	if first.Country != "DE" || first.BuyerName != "Bezirksamt Mitte" {
		t.Fatalf("unexpected country/buyer %q / %q", first.Country, first.BuyerName)
	}
	if first.Deadline == nil || *first.Deadline != "2026-02-20" {
		t.Fatalf("unexpected deadline %v", first.Deadline)
	}
	if first.URL != "https://ted.europa.eu/en/notice/-/detail/654321-2026" {
		t.Fatalf("unexpected url %q", first.URL)
	}

	second := recs[1]
	if second.ID != "777777-2026" || second.Title != "Archive scanning services" {
		t.Fatalf("unexpected record %+v", second)
	}
	if second.Description != "Scanning of historical archives" || second.Country != "CH" {
		t.Fatalf("unexpected description/country %q / %q", second.Description, second.Country)
	}
}

func TestParseGenericPageSameSiteOnly(t *testing.T) {
	a, err := New("https://ted.europa.eu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raws, err := a.Parse(context.Background(), sources.Document{Name: "generic.html", Body: []byte(genericPage)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 notices, got %d: %v", len(raws), raws)
	}
	if raws[0]["id"] != "111111-2026" || raws[0]["url"] != "https://ted.europa.eu/de/notice/111111-2026" {
		t.Fatalf("unexpected first notice %v", raws[0])
	}
	if raws[1]["id"] != "222222-2026" {
		t.Fatalf("expected the www subdomain to count as the same site, got %v", raws[1])
	}
}

func TestNewRejectsRelativeBase(t *testing.T) {
	if _, err := New("/relative"); err == nil {
		t.Fatalf("expected an error for a relative base URL")
	}
}
