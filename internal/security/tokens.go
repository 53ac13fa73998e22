// Package security issues and validates the bearer tokens reporters present to the ingestion service.
package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSigningKey is returned by Issue when the provider only holds a public key.
	ErrNoSigningKey = errors.New("no signing key")
)

// ReporterClaims holds JWT claims for a reporter token. Subject names the reporter
// (a host or CI job); Entity, when set, restricts the token to reports for that entity.
type ReporterClaims struct {
	jwt.RegisteredClaims
	Entity string `json:"entity,omitempty"`
}

// Reporter is a validated reporter identity.
type Reporter struct {
	Subject   string
	Entity    string
	ExpiresAt time.Time
}

// TokenProvider issues and validates reporter JWTs using RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider. privateKey may be nil on services that only validate.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) *TokenProvider {
	if publicKey == nil && privateKey != nil {
		publicKey = privateKey.Public()
	}
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Issue signs a reporter token for subject, optionally scoped to entity.
// Returns the token string and its expiration time.
func (p *TokenProvider) Issue(subject, entity string) (token string, expiresAt time.Time, err error) {
	if p.privateKey == nil {
		return "", time.Time{}, ErrNoSigningKey
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidToken
	}
	now := p.now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := ReporterClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Entity: entity,
	}
	token, err = jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	return token, expiresAt, err
}

// Validate parses and validates a reporter token (signature, exp, iss, aud).
func (p *TokenProvider) Validate(tokenString string) (Reporter, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ReporterClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return Reporter{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*ReporterClaims)
	if !ok || !token.Valid {
		return Reporter{}, ErrInvalidToken
	}
	if claims.Issuer != p.issuer || !slices.Contains(claims.Audience, p.audience) {
		return Reporter{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Reporter{}, ErrInvalidToken
	}
	return Reporter{
		Subject:   claims.Subject,
		Entity:    claims.Entity,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
