package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/milan604/hr-console/pkg/auth/keycloak"
)

// Claims captures the verified JWT context extracted from incoming requests.
type Claims struct {
	Subject  string
	Issuer   string
	Roles    []string
	TokenUse string
	Raw      map[string]any
}

// IsServiceToken reports whether the token represents a service credential.
func (c Claims) IsServiceToken() bool {
	return strings.EqualFold(strings.TrimSpace(c.TokenUse), "service")
}

// mapClaimsToAuthClaims converts jwt.MapClaims to our Claims struct. Roles
// come from the top-level "roles" claim, Keycloak realm roles and the roles
// Keycloak grants to clientID.
func mapClaimsToAuthClaims(claims jwt.MapClaims, clientID string) Claims {
	raw := make(map[string]any, len(claims))
	for k, v := range claims {
		raw[k] = v
	}

	tokenUse := stringClaim(raw, "token_use")
	if tokenUse == "" {
		tokenUse = "access"
	}

	roles := stringsClaim(raw["roles"])
	for _, r := range keycloak.ExtractRoles(raw, clientID) {
		if !contains(roles, r) {
			roles = append(roles, r)
		}
	}

	return Claims{
		Subject:  stringClaim(raw, "sub"),
		Issuer:   stringClaim(raw, "iss"),
		Roles:    roles,
		TokenUse: tokenUse,
		Raw:      raw,
	}
}

func stringClaim(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func stringsClaim(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && s != "" && !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
