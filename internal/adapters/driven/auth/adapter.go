package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure Adapter implements IdentityVerifier
var _ driven.IdentityVerifier = (*Adapter)(nil)

// jwtClaims is the identity token body issued by the host chat application
type jwtClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Adapter verifies HS256 identity tokens with a shared secret
type Adapter struct {
	jwtSecret []byte
	issuer    string
}

// NewAdapter creates a new identity adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret)}
}

// NewAdapterWithIssuer creates an adapter that also requires the iss claim
func NewAdapterWithIssuer(jwtSecret, issuer string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret), issuer: issuer}
}

// GenerateToken signs an identity token valid for ttl. Used by tests and
// the CLI to mint tokens for local runs.
func (a *Adapter) GenerateToken(identity *domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	jc := jwtClaims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Name:   identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// VerifyIdentityToken validates a JWT and extracts the caller identity
func (a *Adapter) VerifyIdentityToken(tokenString string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	identity := &domain.Identity{
		Email:  strings.TrimSpace(claims.Email),
		UserID: claims.UserID,
		Name:   claims.Name,
	}
	if identity.UserID == "" {
		identity.UserID = claims.Subject
	}
	if !identity.HasUsableEmail() {
		return nil, fmt.Errorf("%w: missing email claim", domain.ErrTokenInvalid)
	}
	return identity, nil
}
