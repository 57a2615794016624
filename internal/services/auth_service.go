package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pis-platform/pis/internal/config"
	"github.com/pis-platform/pis/internal/logging"
)

// Token failures. Their messages are what the API returns in 401 bodies and
// what clients match on.
var (
	ErrTokenMissing = errors.New("Missing token")
	ErrTokenExpired = errors.New("Token expired")
	ErrTokenInvalid = errors.New("Invalid token")
)

// KeySource resolves a signing key by key id
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// StaticKeys is a fixed key set
type StaticKeys map[string]*rsa.PublicKey

// Key implements KeySource
func (s StaticKeys) Key(_ context.Context, kid string) (*rsa.PublicKey, error) {
	if k, ok := s[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

// JWKS fetches and caches the identity provider's published signing keys.
// An unknown kid triggers a refetch, at most once per MinRefresh.
type JWKS struct {
	URL        string
	Client     *http.Client
	TTL        time.Duration
	MinRefresh time.Duration

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKS creates a JWKS key source for url
func NewJWKS(url string) *JWKS {
	return &JWKS{
		URL:        url,
		Client:     &http.Client{Timeout: 5 * time.Second},
		TTL:        time.Hour,
		MinRefresh: 30 * time.Second,
	}
}

// Key implements KeySource
func (j *JWKS) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	stale := time.Since(j.fetchedAt) > j.TTL
	if k, ok := j.keys[kid]; ok && !stale {
		return k, nil
	}
	if stale || time.Since(j.fetchedAt) > j.MinRefresh {
		if err := j.refresh(ctx); err != nil {
			if k, ok := j.keys[kid]; ok {
				logging.Logger.Warnf("Using cached signing key after JWKS refresh failed: %v", err)
				return k, nil
			}
			return nil, err
		}
	}
	if k, ok := j.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (j *JWKS) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.URL, nil)
	if err != nil {
		return err
	}
	resp, err := j.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch JWKS: status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			logging.Logger.Warnf("Skipping JWKS key %s: %v", k.Kid, err)
			continue
		}
		keys[k.Kid] = pub
	}

	j.keys = keys
	j.fetchedAt = time.Now()
	logging.Logger.Debugf("Loaded %d signing keys from %s", len(keys), j.URL)
	return nil
}

func (k jsonWebKey) publicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("bad modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("bad exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 {
		return nil, fmt.Errorf("bad exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// TokenVerifier validates Azure AD access tokens
type TokenVerifier struct {
	Keys     KeySource
	Issuer   string
	Audience string
}

// NewTokenVerifier builds a verifier from server configuration
func NewTokenVerifier(cfg *config.Config) *TokenVerifier {
	return &TokenVerifier{
		Keys:     NewJWKS(cfg.JWKSURL),
		Issuer:   cfg.Issuer(),
		Audience: cfg.Audience(),
	}
}

// Verify parses and validates a raw bearer token. Failures wrap one of
// ErrTokenMissing, ErrTokenExpired or ErrTokenInvalid.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (jwt.MapClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrTokenMissing
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid")
		}
		return v.Keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.Issuer),
		jwt.WithAudience(v.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

// EditorName picks the display name recorded in edit history
func EditorName(claims jwt.MapClaims) string {
	for _, key := range []string{"name", "preferred_username", "upn", "unique_name", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return "unknown"
}
