package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/rbac"
)

// RoleResolver looks up the directory roles assigned to a subject.
type RoleResolver interface {
	RolesFor(ctx context.Context, subject string) ([]string, error)
}

// RoleResolverFunc adapts a function to RoleResolver.
type RoleResolverFunc func(ctx context.Context, subject string) ([]string, error)

func (f RoleResolverFunc) RolesFor(ctx context.Context, subject string) ([]string, error) {
	return f(ctx, subject)
}

// DefaultTTL is the session lifetime when WithTTL is not given.
const DefaultTTL = 8 * time.Hour

// Manager creates, updates and destroys sessions.
type Manager struct {
	store    Store
	resolver RoleResolver
	ttl      time.Duration
	log      logger.LogManager
	now      func() time.Time
	newID    func() string
}

type ManagerOption func(*Manager)

func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithLogger(log logger.LogManager) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager. resolver may be nil, in which case sessions
// carry only the token roles.
func NewManager(store Store, resolver RoleResolver, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		resolver: resolver,
		ttl:      DefaultTTL,
		log:      logger.NewNop(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the backing store.
func (m *Manager) Store() Store { return m.store }

// Create saves a pending session for subject, resolves directory roles and
// marks it authenticated. When resolution fails the pending session is
// returned along with the error so callers can report the state. A role
// change applied while resolution was in flight wins over the resolved roles.
func (m *Manager) Create(ctx context.Context, subject string, tokenRoles []string) (*Session, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrInvalidSubject
	}
	now := m.now()
	s := &Session{
		ID:         m.newID(),
		Subject:    subject,
		Roles:      []string{},
		TokenRoles: NormalizeRoles(tokenRoles),
		Status:     rbac.StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save pending session: %w", err)
	}

	asOf := m.now()
	var directory []string
	if m.resolver != nil {
		roles, err := m.resolver.RolesFor(ctx, subject)
		if err != nil {
			m.log.WarnFCtx(ctx, "role resolution failed for %s, session %s stays pending: %v", subject, s.ID, err)
			return s, fmt.Errorf("resolve roles: %w", err)
		}
		directory = roles
	}

	stored, err := m.store.Update(ctx, s.ID, func(cur *Session) error {
		if cur.RolesVersion > 0 && !cur.RolesAsOf.Before(asOf) {
			return ErrStaleRoles
		}
		cur.Roles = NormalizeRoles(cur.TokenRoles, directory)
		cur.Status = rbac.StatusAuthenticated
		cur.RolesVersion++
		cur.RolesAsOf = asOf
		return nil
	})
	if errors.Is(err, ErrStaleRoles) {
		m.log.DebugFCtx(ctx, "session %s received newer roles during sign in", s.ID)
		stored, err = m.store.Get(ctx, s.ID)
	}
	if err != nil {
		return s, fmt.Errorf("save authenticated session: %w", err)
	}
	m.log.InfoFCtx(ctx, "session %s created for %s with %d roles", stored.ID, subject, len(stored.Roles))
	return stored, nil
}

// Destroy removes a session. Unknown ids are not an error.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// SetRoles replaces the directory roles on every live session of subject.
// asOf is when roles were read from the directory; sessions already holding
// roles read later are left alone. A zero asOf means now. Token roles are
// kept and pending sessions become authenticated. It returns the number of
// sessions updated.
func (m *Manager) SetRoles(ctx context.Context, subject string, roles []string, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = m.now()
	}
	ids, err := m.store.IDsForSubject(ctx, subject)
	if err != nil {
		return 0, fmt.Errorf("list sessions for %s: %w", subject, err)
	}
	var errs []error
	updated := 0
	for _, id := range ids {
		_, err := m.store.Update(ctx, id, func(s *Session) error {
			if s.RolesAsOf.After(asOf) {
				return ErrStaleRoles
			}
			s.Roles = NormalizeRoles(s.TokenRoles, roles)
			if s.Status == rbac.StatusPending {
				s.Status = rbac.StatusAuthenticated
			}
			s.RolesVersion++
			s.RolesAsOf = asOf
			return nil
		})
		switch {
		case err == nil:
			updated++
		case errors.Is(err, ErrNotFound):
		case errors.Is(err, ErrStaleRoles):
			m.log.DebugFCtx(ctx, "skipping role change from %s for session %s: newer roles stored", asOf.Format(time.RFC3339Nano), id)
		default:
			errs = append(errs, fmt.Errorf("update session %s: %w", id, err))
		}
	}
	return updated, errors.Join(errs...)
}
