package driven

import "github.com/custodia-labs/sercha-r2r/internal/core/domain"

// IdentityVerifier turns a caller-supplied identity token into an Identity.
// Tokens are issued by the host chat application.
type IdentityVerifier interface {
	VerifyIdentityToken(token string) (*domain.Identity, error)
}
