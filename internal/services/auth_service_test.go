package services_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pis-platform/pis/internal/services"
	"github.com/pis-platform/pis/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenVerifier(t *testing.T) {
	signer := testutil.NewSigner(t)
	verifier := signer.Verifier()
	ctx := context.Background()

	claims, err := verifier.Verify(ctx, signer.Token(t, "Dana Lee", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Dana Lee", services.EditorName(claims))

	_, err = verifier.Verify(ctx, "")
	assert.ErrorIs(t, err, services.ErrTokenMissing)

	_, err = verifier.Verify(ctx, signer.Token(t, "Dana Lee", -time.Hour))
	assert.ErrorIs(t, err, services.ErrTokenExpired)

	_, err = verifier.Verify(ctx, "not.a.token")
	assert.ErrorIs(t, err, services.ErrTokenInvalid)

	other := testutil.NewSigner(t)
	_, err = verifier.Verify(ctx, other.Token(t, "Mallory", time.Hour))
	assert.ErrorIs(t, err, services.ErrTokenInvalid, "signed by an unknown key")

	wrongAudience := signer.Sign(t, jwt.MapClaims{
		"iss": signer.Issuer,
		"aud": "api://someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = verifier.Verify(ctx, wrongAudience)
	assert.ErrorIs(t, err, services.ErrTokenInvalid)

	noExpiry := signer.Sign(t, jwt.MapClaims{"iss": signer.Issuer, "aud": signer.Audience})
	_, err = verifier.Verify(ctx, noExpiry)
	assert.ErrorIs(t, err, services.ErrTokenInvalid)
}

func TestEditorNameFallbacks(t *testing.T) {
	assert.Equal(t, "dana@example.com", services.EditorName(jwt.MapClaims{"preferred_username": "dana@example.com"}))
	assert.Equal(t, "unknown", services.EditorName(jwt.MapClaims{}))
}

func TestJWKSFetchesAndCaches(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{"kid": "ec", "kty": "EC"},
				{
					"kid": "k1",
					"kty": "RSA",
					"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
				},
			},
		})
	}))
	defer srv.Close()

	jwks := services.NewJWKS(srv.URL)
	ctx := context.Background()

	got, err := jwks.Key(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 0, key.PublicKey.N.Cmp(got.N))
	assert.Equal(t, key.PublicKey.E, got.E)

	_, err = jwks.Key(ctx, "k1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	_, err = jwks.Key(ctx, "missing")
	assert.Error(t, err)
	assert.EqualValues(t, 1, hits.Load(), "refetch is rate limited")
}
