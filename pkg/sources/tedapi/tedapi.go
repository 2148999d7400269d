// Package tedapi reads search responses of the TED notices API (v3).
package tedapi

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// Fields is the field list a search request should ask for so that every
// normalizer accessor has something to read.
var Fields = []string{
	"publication-number",
	"notice-title",
	"buyer-name",
	"buyer-country",
	"publication-date",
	"deadline-receipt-tenders",
	"classification-cpv",
	"total-value",
	"total-value-cur",
	"notice-classification",
	"description-proc",
	"links",
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Name() string { return tenders.SourceTEDAPI }

// Parse accepts a search response ({"notices": [...]} or {"results": [...]})
// or a bare array of notices.
func (a *Adapter) Parse(ctx context.Context, doc sources.Document) ([]tenders.Raw, error) {
	if !gjson.ValidBytes(doc.Body) {
		return nil, fmt.Errorf("%s: invalid JSON", doc.Name)
	}

	root := gjson.ParseBytes(doc.Body)
	notices := root
	if !root.IsArray() {
		notices = root.Get("notices")
		if !notices.Exists() {
			notices = root.Get("results")
		}
		if !notices.IsArray() {
			return nil, fmt.Errorf("%s: no notices array in response", doc.Name)
		}
	}

	var raws []tenders.Raw
	var ctxErr error
	notices.ForEach(func(_, notice gjson.Result) bool {
		if ctxErr = ctx.Err(); ctxErr != nil {
			return false
		}
		if m, ok := notice.Value().(map[string]interface{}); ok {
			raws = append(raws, tenders.Raw(m))
		}
		return true
	})
	if ctxErr != nil {
		return nil, ctxErr
	}
	return raws, nil
}

// NextToken returns the iteration token of a paginated search response,
// or "" on the last page.
func NextToken(body []byte) string {
	return gjson.GetBytes(body, "iterationNextToken").String()
}

// TotalCount returns the total notice count reported by a search response.
func TotalCount(body []byte) int64 {
	return gjson.GetBytes(body, "totalNoticeCount").Int()
}
