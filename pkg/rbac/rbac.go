// Package rbac decides whether a principal may perform an action, given the
// roles the action requires and the roles the principal currently holds.
//
// Matching is by substring containment: a required role "admin" is satisfied
// by an assigned role "super-admin". Evaluation is fail-closed; an empty
// requirement, an unreadable role set or any panic during evaluation denies.
package rbac

import (
	"context"
	"strings"
)

// Role is a named permission label.
type Role string

// Status is the authentication state of a session.
type Status string

const (
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
	StatusPending         Status = "pending"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAuthenticated, StatusUnauthenticated, StatusPending:
		return true
	}
	return false
}

// SessionReader exposes the current principal's session state.
// Implementations are owned by the session layer; rbac only reads them.
type SessionReader interface {
	CurrentRoles(ctx context.Context) ([]string, error)
	AuthenticationStatus(ctx context.Context) Status
}

// HasAccess reports whether some assigned role contains some required role.
// An empty required set never grants access.
func HasAccess(required, assigned []string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	for _, r := range required {
		for _, a := range assigned {
			if strings.Contains(a, r) {
				return true
			}
		}
	}
	return false
}

// Strings converts typed roles to plain strings.
func Strings(roles ...Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
