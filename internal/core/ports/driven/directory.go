package driven

import (
	"context"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// DirectoryLookup maps an email address to a directory GUID (LDAP / AD).
// It never returns an error: failures are reported through the lookup status
// so that they degrade to "no access".
type DirectoryLookup interface {
	LookupGUID(ctx context.Context, email string) domain.GUIDLookup
}
