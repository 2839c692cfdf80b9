package session

import (
	"context"
	"time"

	"github.com/milan604/hr-console/pkg/rbac"
)

// Reader exposes one stored session as an rbac.SessionReader. Every call
// goes back to the Store, so role updates are visible without rebuilding
// checks built over the reader.
type Reader struct {
	store Store
	id    string
	now   func() time.Time
}

var _ rbac.SessionReader = (*Reader)(nil)

func NewReader(store Store, id string) *Reader {
	return &Reader{store: store, id: id, now: time.Now}
}

// ID returns the bound session id.
func (r *Reader) ID() string { return r.id }

// Session loads the bound session. Expired sessions report ErrExpired.
func (r *Reader) Session(ctx context.Context) (*Session, error) {
	if r == nil || r.store == nil || r.id == "" {
		return nil, ErrNotFound
	}
	s, err := r.store.Get(ctx, r.id)
	if err != nil {
		return nil, err
	}
	if s.Expired(r.now()) {
		return nil, ErrExpired
	}
	return s, nil
}

// CurrentRoles returns the roles of an authenticated, unexpired session.
func (r *Reader) CurrentRoles(ctx context.Context) ([]string, error) {
	s, err := r.Session(ctx)
	if err != nil {
		return nil, err
	}
	if s.Status != rbac.StatusAuthenticated {
		return nil, ErrNotAuthenticated
	}
	return s.Roles, nil
}

// AuthenticationStatus reports unauthenticated when the session cannot be read.
func (r *Reader) AuthenticationStatus(ctx context.Context) rbac.Status {
	s, err := r.Session(ctx)
	if err != nil || !s.Status.Valid() {
		return rbac.StatusUnauthenticated
	}
	return s.Status
}
