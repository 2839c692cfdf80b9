package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	corehttp "github.com/milan604/hr-console/pkg/http"
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// jwksCache keeps the issuer's RSA keys by kid and refetches on expiry or
// on an unknown kid.
type jwksCache struct {
	url    string
	ttl    time.Duration
	client corehttp.JSONGetter
	now    func() time.Time

	mu    sync.RWMutex
	keys  map[string]*rsa.PublicKey
	until time.Time
}

// NewJWKSVerifier verifies tokens against keys published at url.
func NewJWKSVerifier(url string, client corehttp.JSONGetter, ttl time.Duration, cfg VerifierConfig) Verifier {
	cache := newJWKSCache(url, client, ttl)
	return &jwtVerifier{
		cfg: cfg,
		lookup: func(ctx context.Context, t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return cache.key(ctx, kid)
		},
	}
}

func newJWKSCache(url string, client corehttp.JSONGetter, ttl time.Duration) *jwksCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &jwksCache{url: url, ttl: ttl, client: client, now: time.Now, keys: map[string]*rsa.PublicKey{}}
}

func (j *jwksCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	k, ok := j.keys[kid]
	fresh := j.now().Before(j.until)
	j.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}
	return j.refresh(ctx, kid)
}

func (j *jwksCache) refresh(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if k, ok := j.keys[kid]; ok && j.now().Before(j.until) {
		return k, nil
	}
	if j.url == "" {
		return nil, errors.New("jwks url is empty")
	}

	var doc jwksDocument
	if err := j.client.GetJSON(ctx, j.url, &doc); err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		pub, err := parseRSAPublicKeyFromModExp(k.N, k.E)
		if err == nil {
			keys[k.Kid] = pub
		}
	}
	j.keys = keys
	j.until = j.now().Add(j.ttl)

	if k, ok := keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("kid %q not found", kid)
}

// parseRSAPublicKeyFromModExp converts base64url modulus and exponent into rsa.PublicKey
func parseRSAPublicKeyFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	if len(nBytes) == 0 || len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, errors.New("malformed rsa jwk")
	}
	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
