package driven

import (
	"context"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// CollectionLookup maps a directory GUID to the collection the user may search
type CollectionLookup interface {
	LookupCollection(ctx context.Context, guid string) domain.CollectionLookup
}
