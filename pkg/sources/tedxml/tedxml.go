// Package tedxml reads TED_EXPORT notice documents as published in the
// daily XML packages.
package tedxml

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// NoticeURL is the legacy document link used when a notice lists no URI.
const NoticeURL = "https://ted.europa.eu/udl?uri=TED:NOTICE:%s"

// languages maps the two-letter LG attribute to the three-letter codes the
// normalizer's language preference uses.
var languages = map[string]string{
	"BG": "bul", "CS": "ces", "DA": "dan", "DE": "deu", "EL": "ell",
	"EN": "eng", "ES": "spa", "ET": "est", "FI": "fin", "FR": "fra",
	"GA": "gle", "HR": "hrv", "HU": "hun", "IT": "ita", "LT": "lit",
	"LV": "lav", "MT": "mlt", "NL": "nld", "PL": "pol", "PT": "por",
	"RO": "ron", "SK": "slk", "SL": "slv", "SV": "swe",
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Name() string { return tenders.SourceTEDXML }

// Parse extracts every TED_EXPORT element of the document.
func (a *Adapter) Parse(ctx context.Context, doc sources.Document) ([]tenders.Raw, error) {
	root, err := parseTree(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Name, err)
	}

	exports := root.find("TED_EXPORT")
	if len(exports) == 0 {
		exports = root.descendants("TED_EXPORT")
	}
	if len(exports) == 0 {
		return nil, fmt.Errorf("%s: no TED_EXPORT element", doc.Name)
	}

	raws := make([]tenders.Raw, 0, len(exports))
	for _, export := range exports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raws = append(raws, extract(export))
	}
	return raws, nil
}

func extract(export *node) tenders.Raw {
	raw := tenders.Raw{}
	coded := export.findFirst("CODED_DATA_SECTION")
	forms := export.find("FORM_SECTION", "*")

	id := export.attr("DOC_ID")
	if id == "" && coded != nil {
		id = coded.findFirst("NOTICE_DATA", "NO_DOC_OJS").content()
	}
	if id != "" {
		raw["id"] = id
	}

	titles := perLanguage(forms, "OBJECT_CONTRACT", "TITLE")
	if len(titles) == 0 {
		titles = perLanguage(forms, "CONTRACT", "TITLE")
	}
	if len(titles) == 0 {
		titles = translatedTitles(export)
	}
	if len(titles) > 0 {
		raw["title"] = titles
	}

	if descs := perLanguage(forms, "OBJECT_CONTRACT", "SHORT_DESCR"); len(descs) > 0 {
		raw["description"] = descs
	}

	var countries []any
	if coded != nil {
		if c := coded.findFirst("NOTICE_DATA", "ISO_COUNTRY").attr("VALUE"); c != "" {
			countries = append(countries, c)
		}
	}
	for _, f := range forms {
		if c := f.findFirst("CONTRACTING_BODY", "ADDRESS_CONTRACTING_BODY", "COUNTRY").attr("VALUE"); c != "" {
			countries = append(countries, c)
		}
	}
	if len(countries) > 0 {
		raw["country"] = countries
	}

	if buyers := perLanguage(forms, "CONTRACTING_BODY", "ADDRESS_CONTRACTING_BODY", "OFFICIALNAME"); len(buyers) > 0 {
		raw["buyerName"] = buyers
	}

	if codes := cpvCodes(forms, coded); len(codes) > 0 {
		raw["cpvCodes"] = codes
	}

	if coded != nil {
		if d := coded.findFirst("REF_OJS", "DATE_PUB").content(); d != "" {
			raw["publicationDate"] = d
		}
		if d := coded.findFirst("CODIF_DATA", "DT_DATE_FOR_SUBMISSION").content(); d != "" {
			raw["deadline"] = d
		}
		if nt := coded.findFirst("CODIF_DATA", "TD_DOCUMENT_TYPE").content(); nt != "" {
			raw["noticeType"] = nt
		}
		if u := coded.findFirst("NOTICE_DATA", "URI_LIST", "URI_DOC").content(); u != "" {
			raw["url"] = u
		}
	}
	if _, ok := raw["deadline"]; !ok {
		for _, f := range forms {
			if d := f.findFirst("PROCEDURE", "DATE_RECEIPT_TENDERS").content(); d != "" {
				raw["deadline"] = d
				break
			}
		}
	}
	if _, ok := raw["url"]; !ok && id != "" {
		raw["url"] = fmt.Sprintf(NoticeURL, url.QueryEscape(id))
	}

	for _, f := range forms {
		val := f.findFirst("OBJECT_CONTRACT", "VAL_TOTAL")
		if val == nil {
			val = f.findFirst("OBJECT_CONTRACT", "VAL_ESTIMATED_TOTAL")
		}
		if val == nil || val.content() == "" {
			continue
		}
		raw["contractValue"] = val.content()
		if cur := val.attr("CURRENCY"); cur != "" {
			raw["currency"] = cur
		}
		break
	}

	return raw
}

// perLanguage collects the text at path in every form, keyed by the form's
// language.
func perLanguage(forms []*node, path ...string) map[string]any {
	out := map[string]any{}
	for _, f := range forms {
		text := f.findFirst(path...).content()
		if text == "" {
			continue
		}
		lang := languageKey(f.attr("LG"))
		if _, seen := out[lang]; !seen {
			out[lang] = text
		}
	}
	return out
}

func translatedTitles(export *node) map[string]any {
	out := map[string]any{}
	for _, ti := range export.find("TRANSLATION_SECTION", "ML_TITLES", "ML_TI_DOC") {
		text := ti.findFirst("TI_TEXT").content()
		if text == "" {
			continue
		}
		out[languageKey(ti.attr("LG"))] = text
	}
	return out
}

func languageKey(lg string) string {
	lg = strings.ToUpper(strings.TrimSpace(lg))
	if lang, ok := languages[lg]; ok {
		return lang
	}
	if lg == "" {
		return "und"
	}
	return strings.ToLower(lg)
}

// cpvCodes gathers main and additional codes of all forms, falling back to
// the coded data section. Codes repeated across language versions of the
// same form are listed once.
func cpvCodes(forms []*node, coded *node) []any {
	seen := map[string]bool{}
	var out []any
	add := func(n *node) {
		code := n.attr("CODE")
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, code)
	}

	for _, f := range forms {
		for _, n := range f.find("OBJECT_CONTRACT", "CPV_MAIN", "CPV_CODE") {
			add(n)
		}
		for _, descr := range f.find("OBJECT_CONTRACT", "OBJECT_DESCR") {
			for _, n := range descr.find("CPV_ADDITIONAL", "CPV_CODE") {
				add(n)
			}
		}
	}
	if len(out) == 0 && coded != nil {
		for _, n := range coded.find("NOTICE_DATA", "ORIGINAL_CPV") {
			add(n)
		}
	}
	return out
}
