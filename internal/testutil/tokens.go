package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pis-platform/pis/internal/services"
	"github.com/stretchr/testify/require"
)

// Test identity provider settings
const (
	TenantID = "11111111-2222-3333-4444-555555555555"
	ClientID = "66666666-7777-8888-9999-000000000000"
	KeyID    = "test-key"
)

// Signer mints RS256 tokens the way the identity provider does
type Signer struct {
	Key      *rsa.PrivateKey
	KeyID    string
	Issuer   string
	Audience string
}

// NewSigner generates a fresh signing key
func NewSigner(t testing.TB) *Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &Signer{
		Key:      key,
		KeyID:    KeyID,
		Issuer:   "https://sts.windows.net/" + TenantID + "/",
		Audience: "api://" + ClientID,
	}
}

// Verifier returns a verifier that trusts this signer's key
func (s *Signer) Verifier() *services.TokenVerifier {
	return &services.TokenVerifier{
		Keys:     services.StaticKeys{s.KeyID: &s.Key.PublicKey},
		Issuer:   s.Issuer,
		Audience: s.Audience,
	}
}

// Token mints a token for name that expires after ttl. A negative ttl
// yields an expired token.
func (s *Signer) Token(t testing.TB, name string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  s.Issuer,
		"aud":  s.Audience,
		"sub":  "subject-" + name,
		"name": name,
		"iat":  now.Add(-time.Minute).Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if ttl < 0 {
		claims["iat"] = now.Add(ttl - time.Hour).Unix()
	}
	return s.Sign(t, claims)
}

// Sign signs arbitrary claims
func (s *Signer) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.KeyID
	signed, err := token.SignedString(s.Key)
	require.NoError(t, err)
	return signed
}
