package sources

import (
	"context"
	"errors"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// ErrUnknownSource is returned when a caller asks for an adapter by a name
// no adapter answers to.
var ErrUnknownSource = errors.New("unknown source")

// Document is one unit of raw input handed to an adapter: a JSON response,
// an XML notice, a saved HTML page.
type Document struct {
	Name string
	Body []byte
}

// Adapter turns documents of one raw shape into raw records. Adapters do
// not normalize or score; that happens once for every source in the
// pipeline.
type Adapter interface {
	// Name is the label written into a scan batch's source field.
	Name() string
	Parse(ctx context.Context, doc Document) ([]tenders.Raw, error)
}

// Input pairs an adapter with the locations it should read.
type Input struct {
	Adapter   Adapter
	Locations []string
}
