package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milan604/hr-console/pkg/rbac"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "hrconsole:", time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	s := &Session{ID: "s1", Subject: "alice", Roles: []string{"admin"}, Status: rbac.StatusAuthenticated, ExpiresAt: time.Now().Add(10 * time.Minute)}
	require.NoError(t, store.Save(ctx, s))
	assert.True(t, mr.Exists("hrconsole:session:s1"))
	ok, err := mr.SIsMember("hrconsole:subject:alice", "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Subject)
	assert.Equal(t, []string{"admin"}, got.Roles)
	assert.Equal(t, rbac.StatusAuthenticated, got.Status)

	ids, err := store.IDsForSubject(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	ids, err = store.IDsForSubject(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStoreTTLAndPrune(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Save(ctx, &Session{ID: "short", Subject: "bob", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.Save(ctx, &Session{ID: "long", Subject: "bob", ExpiresAt: time.Now().Add(30 * time.Minute)}))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := store.IDsForSubject(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, ids)

	members, err := mr.Members("hrconsole:subject:bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, members)
}

func TestRedisStoreRejectsExpired(t *testing.T) {
	store, _ := newRedisStore(t)
	err := store.Save(context.Background(), &Session{ID: "x", Subject: "c", ExpiresAt: time.Now().Add(-time.Second)})
	assert.ErrorIs(t, err, ErrExpired)
}

func TestRedisStoreBackedManager(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	m := NewManager(store, RoleResolverFunc(func(context.Context, string) ([]string, error) {
		return []string{"hr-viewer"}, nil
	}))

	s, err := m.Create(ctx, "dana", nil)
	require.NoError(t, err)
	check := rbac.NewCheck(NewReader(store, s.ID), "hr-manager")
	assert.False(t, check.Allowed(ctx))

	_, err = m.SetRoles(ctx, "dana", []string{"hr-manager"}, time.Time{})
	require.NoError(t, err)
	assert.True(t, check.Allowed(ctx))
}

func TestRedisStoreServerDownDenies(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	require.NoError(t, store.Save(ctx, &Session{ID: "s", Subject: "e", Roles: []string{"admin"}, Status: rbac.StatusAuthenticated, ExpiresAt: time.Now().Add(time.Hour)}))

	mr.Close()
	r := NewReader(store, "s")
	assert.False(t, rbac.NewCheck(r, "admin").Allowed(ctx))
	assert.Equal(t, rbac.StatusUnauthenticated, r.AuthenticationStatus(ctx))
}

func TestRedisStoreRevokeDuringCreateWins(t *testing.T) {
	store, _ := newRedisStore(t)
	assertRevokeDuringCreateDenies(t, store)
}

func TestRedisStoreUpdateRetriesAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	require.NoError(t, store.Save(ctx, &Session{ID: "w", Subject: "mia", Roles: []string{"employee"}, ExpiresAt: time.Now().Add(time.Hour)}))

	attempts := 0
	got, err := store.Update(ctx, "w", func(s *Session) error {
		attempts++
		if attempts == 1 {
			// a second writer commits between the watched read and the write
			_, err := store.Update(ctx, "w", func(other *Session) error {
				other.Roles = []string{}
				other.RolesVersion++
				return nil
			})
			require.NoError(t, err)
		}
		if s.RolesVersion > 0 {
			return ErrStaleRoles
		}
		s.Roles = []string{"admin"}
		return nil
	})
	assert.ErrorIs(t, err, ErrStaleRoles)
	assert.Nil(t, got)
	assert.Equal(t, 2, attempts)

	stored, err := store.Get(ctx, "w")
	require.NoError(t, err)
	assert.Empty(t, stored.Roles)
}

func TestRedisStoreUpdateMissing(t *testing.T) {
	store, _ := newRedisStore(t)
	_, err := store.Update(context.Background(), "nope", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}
