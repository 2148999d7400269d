// Package tedhtml reads saved TED search result pages.
package tedhtml

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

var (
	noticeIDRe = regexp.MustCompile(`notice(?:/-/detail)?[/:-](\d+[-\w]+)`)
	dateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{2}[./]\d{2}[./]\d{4}`)
)

// Result page layouts, most specific first. The generic selector is only
// tried when neither of the others matched anything.
const (
	articleSelector = "article[data-notice-id]"
	resultSelector  = ".ted-search-result-item, .search-result-item"
	genericSelector = `.result-item, .tender-item, [class*="notice"]`
)

type Adapter struct {
	base   *url.URL
	domain string
}

// New returns an adapter resolving relative links against baseURL.
func New(baseURL string) (*Adapter, error) {
	if baseURL == "" {
		baseURL = tenders.DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	domain, err := publicsuffix.Domain(base.Hostname())
	if err != nil {
		domain = base.Hostname()
	}
	return &Adapter{base: base, domain: domain}, nil
}

func (a *Adapter) Name() string { return tenders.SourceWebsite }

func (a *Adapter) Parse(ctx context.Context, doc sources.Document) ([]tenders.Raw, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Name, err)
	}

	var raws []tenders.Raw
	seen := map[string]bool{}
	add := func(raw tenders.Raw) {
		if raw == nil {
			return
		}
		key := fmt.Sprint(raw["id"], "|", raw["url"])
		if seen[key] {
			return
		}
		seen[key] = true
		raws = append(raws, raw)
	}

	page.Find(articleSelector).Each(func(_ int, s *goquery.Selection) {
		add(a.fromArticle(s))
	})
	page.Find(resultSelector).Each(func(_ int, s *goquery.Selection) {
		add(a.fromResultItem(s))
	})
	if len(raws) == 0 {
		page.Find(genericSelector).Each(func(_ int, s *goquery.Selection) {
			add(a.fromGeneric(s))
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return raws, nil
}

func (a *Adapter) fromArticle(s *goquery.Selection) tenders.Raw {
	raw := tenders.Raw{}
	setText(raw, "id", strings.TrimSpace(s.AttrOr("data-notice-id", "")))
	setText(raw, "title", text(s.Find("h2, h3, .title").First()))
	setText(raw, "description", text(s.Find(".description, p").First()))
	a.details(raw, s)
	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		if link, ok := a.resolve(href); ok {
			raw["url"] = link
		}
	}
	return raw
}

func (a *Adapter) fromResultItem(s *goquery.Selection) tenders.Raw {
	link := s.Find(`a[href*="notice"]`).First()
	href, ok := link.Attr("href")
	if !ok {
		return nil
	}
	resolved, ok := a.resolve(href)
	if !ok {
		return nil
	}
	raw := tenders.Raw{"url": resolved}
	if m := noticeIDRe.FindStringSubmatch(href); m != nil {
		raw["id"] = m[1]
	}
	title := text(s.Find("h2, h3, .title").First())
	if title == "" {
		title = text(link)
	}
	setText(raw, "title", title)
	setText(raw, "description", text(s.Find(".description, p").First()))
	a.details(raw, s)
	return raw
}

// fromGeneric only accepts links to the same registrable domain as the
// base URL; generic class matches also hit navigation and ads.
func (a *Adapter) fromGeneric(s *goquery.Selection) tenders.Raw {
	link := s.Find(`a[href*="notice"]`).First()
	href, ok := link.Attr("href")
	if !ok {
		return nil
	}
	resolved, ok := a.resolve(href)
	if !ok || !a.sameSite(resolved) {
		return nil
	}
	raw := tenders.Raw{"url": resolved}
	if m := noticeIDRe.FindStringSubmatch(href); m != nil {
		raw["id"] = m[1]
	}
	setText(raw, "title", text(link))
	setText(raw, "description", text(s.Find("p").First()))
	a.details(raw, s)
	return raw
}

func (a *Adapter) details(raw tenders.Raw, s *goquery.Selection) {
	setText(raw, "buyerName", text(s.Find(`[class*="buyer"]`).First()))
	setText(raw, "country", text(s.Find(`[class*="country"]`).First()))
	deadline := text(s.Find(`[class*="deadline"]`).First())
	if m := dateRe.FindString(deadline); m != "" {
		deadline = m
	}
	setText(raw, "deadline", deadline)
	if d, ok := s.Find("time[datetime]").First().Attr("datetime"); ok {
		setText(raw, "publicationDate", d)
	}
}

func (a *Adapter) resolve(href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || href == "" {
		return "", false
	}
	return a.base.ResolveReference(u).String(), true
}

func (a *Adapter) sameSite(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	domain, err := publicsuffix.Domain(u.Hostname())
	if err != nil {
		return false
	}
	return domain == a.domain
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func setText(raw tenders.Raw, key, value string) {
	if value != "" {
		raw[key] = value
	}
}
