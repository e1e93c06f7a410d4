package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure MockIdentityVerifier implements IdentityVerifier
var _ driven.IdentityVerifier = (*MockIdentityVerifier)(nil)

// MockIdentityVerifier reads identities from base64-encoded JSON tokens.
// NOT secure - only for testing.
type MockIdentityVerifier struct{}

// NewMockIdentityVerifier creates a new MockIdentityVerifier
func NewMockIdentityVerifier() *MockIdentityVerifier {
	return &MockIdentityVerifier{}
}

// IssueToken encodes identity as a token this verifier accepts
func (m *MockIdentityVerifier) IssueToken(identity *domain.Identity) (string, error) {
	data, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal identity: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// VerifyIdentityToken decodes a token produced by IssueToken
func (m *MockIdentityVerifier) VerifyIdentityToken(token string) (*domain.Identity, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if !identity.HasUsableEmail() {
		return nil, domain.ErrTokenInvalid
	}
	return &identity, nil
}
