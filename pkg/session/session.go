// Package session owns the signed-in state hr-console evaluates access
// against. Sessions are created from a verified identity-provider token,
// enriched with directory roles and stored in Redis (or memory for tests).
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/milan604/hr-console/pkg/rbac"
)

var (
	ErrNotFound         = errors.New("session: not found")
	ErrExpired          = errors.New("session: expired")
	ErrNotAuthenticated = errors.New("session: not authenticated")
	ErrInvalidSubject   = errors.New("session: subject is required")
	// ErrStaleRoles is returned from an Update function to leave the stored
	// session untouched because it already holds newer roles.
	ErrStaleRoles = errors.New("session: stored roles are newer")
	ErrConflict   = errors.New("session: concurrent update retries exhausted")
)

// Session is one signed-in principal.
type Session struct {
	ID      string      `json:"id"`
	Subject string      `json:"subject"`
	Roles   []string    `json:"roles"`
	Status  rbac.Status `json:"status"`

	// TokenRoles are the roles asserted by the identity provider at sign in.
	// They are merged back whenever directory roles change.
	TokenRoles []string `json:"token_roles,omitempty"`

	// RolesVersion counts role writes. RolesAsOf is the time the directory
	// was read for the current roles; older writes are discarded.
	RolesVersion uint64    `json:"roles_version"`
	RolesAsOf    time.Time `json:"roles_as_of"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Roles = append([]string(nil), s.Roles...)
	cp.TokenRoles = append([]string(nil), s.TokenRoles...)
	return &cp
}

// Store persists sessions. Get returns ErrNotFound for unknown or expired ids.
// Update loads a session, applies fn and writes the result atomically; when fn
// returns an error nothing is written and that error is returned.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
	IDsForSubject(ctx context.Context, subject string) ([]string, error)
}

// NormalizeRoles trims, drops blanks, dedupes and sorts.
func NormalizeRoles(roles ...[]string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, set := range roles {
		for _, r := range set {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}
