// Package keycloak reads Keycloak's nested role claims.
package keycloak

// ExtractRoles returns the realm roles from `realm_access.roles` followed by
// the roles granted to clientID under `resource_access.<clientID>.roles`.
// Roles of other clients are ignored. An empty clientID yields realm roles
// only. Duplicates are dropped; order follows first appearance.
func ExtractRoles(claims map[string]any, clientID string) []string {
	out := make([]string, 0)
	seen := map[string]struct{}{}
	for _, set := range [][]any{realmRoles(claims), clientRoles(claims, clientID)} {
		for _, r := range set {
			s, ok := r.(string)
			if !ok || s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func realmRoles(claims map[string]any) []any {
	if ra, ok := claims["realm_access"].(map[string]any); ok {
		if roles, ok := ra["roles"].([]any); ok {
			return roles
		}
	}
	return nil
}

func clientRoles(claims map[string]any, clientID string) []any {
	if clientID == "" {
		return nil
	}
	if res, ok := claims["resource_access"].(map[string]any); ok {
		if m, ok := res[clientID].(map[string]any); ok {
			if roles, ok := m["roles"].([]any); ok {
				return roles
			}
		}
	}
	return nil
}
