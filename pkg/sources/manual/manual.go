// Package manual reads hand-collected tender lists and previously written
// scan batch files so they can be scored again.
package manual

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Name() string { return tenders.SourceManual }

// Parse accepts {"tenders": [...]} (which includes scan batch files) or a
// bare array of tender objects.
func (a *Adapter) Parse(ctx context.Context, doc sources.Document) ([]tenders.Raw, error) {
	if !gjson.ValidBytes(doc.Body) {
		return nil, fmt.Errorf("%s: invalid JSON", doc.Name)
	}
	list := gjson.ParseBytes(doc.Body)
	if !list.IsArray() {
		list = list.Get("tenders")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%s: expected a tenders array", doc.Name)
	}

	var raws []tenders.Raw
	for _, item := range list.Array() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, ok := item.Value().(map[string]interface{})
		if !ok {
			continue
		}
		raws = append(raws, tenders.Raw(m))
	}
	return raws, nil
}
