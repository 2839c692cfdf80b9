package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/milan604/hr-console/pkg/config"
	corehttp "github.com/milan604/hr-console/pkg/http"
)

var (
	ErrMissingToken = errors.New("auth: authorization header missing")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// VerifierConfig holds the token checks shared by every verifier. ClientID
// selects which Keycloak client's roles are read from resource_access.
type VerifierConfig struct {
	Issuer    string
	Audiences []string
	Leeway    time.Duration
	ClientID  string
}

// keyFunc resolves the verification key for a parsed token.
type keyFunc func(ctx context.Context, token *jwt.Token) (any, error)

type jwtVerifier struct {
	cfg    VerifierConfig
	lookup keyFunc
}

func (v *jwtVerifier) Verify(ctx context.Context, tokenString string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.lookup(ctx, t)
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	if len(v.cfg.Audiences) > 0 {
		aud, err := claims.GetAudience()
		if err != nil || !audienceMatches(aud, v.cfg.Audiences) {
			return Claims{}, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
		}
	}

	out := mapClaimsToAuthClaims(claims, v.cfg.ClientID)
	if out.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return out, nil
}

func audienceMatches(have jwt.ClaimStrings, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// NewRSAVerifier verifies tokens signed by a single RSA key given as a
// base64-encoded PEM.
func NewRSAVerifier(pubKeyBase64 string, cfg VerifierConfig) (Verifier, error) {
	pubKeyBase64 = strings.TrimSpace(pubKeyBase64)
	if pubKeyBase64 == "" {
		return nil, fmt.Errorf("jwt authorizer: RSA public key not configured")
	}
	pem, err := base64.StdEncoding.DecodeString(pubKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("jwt authorizer: decode public key: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("jwt authorizer: parse public key: %w", err)
	}
	return &jwtVerifier{
		cfg: cfg,
		lookup: func(context.Context, *jwt.Token) (any, error) {
			return key, nil
		},
	}, nil
}

// NewVerifierFromConfig picks the JWKS verifier when auth.jwks_url is set,
// otherwise the RSA key verifier over auth.rsa_public_key.
func NewVerifierFromConfig(cfg *config.Config, client corehttp.JSONGetter) (Verifier, error) {
	vc := VerifierConfig{
		Issuer:    strings.TrimSpace(cfg.GetString("auth.issuer")),
		Audiences: cfg.GetStringsD("auth.audience", nil),
		Leeway:    cfg.GetDurationD("auth.leeway", 30*time.Second),
		ClientID:  strings.TrimSpace(cfg.GetString("auth.client_id")),
	}
	if url := strings.TrimSpace(cfg.GetString("auth.jwks_url")); url != "" {
		if client == nil {
			client = corehttp.NewClient()
		}
		return NewJWKSVerifier(url, client, cfg.GetDurationD("auth.jwks_ttl", 10*time.Minute), vc), nil
	}
	return NewRSAVerifier(cfg.GetString("auth.rsa_public_key"), vc)
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(header string) (string, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", ErrMissingToken
	}
	const prefix = "Bearer "
	if len(trimmed) <= len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return "", fmt.Errorf("%w: authorization header must be a bearer token", ErrInvalidToken)
	}
	token := strings.TrimSpace(trimmed[len(prefix):])
	if token == "" {
		return "", fmt.Errorf("%w: authorization header must be a bearer token", ErrInvalidToken)
	}
	return token, nil
}
