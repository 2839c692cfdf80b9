package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as JSON under <prefix>session:<id> with the
// session's remaining lifetime as TTL, plus a set of ids per subject.
type RedisStore struct {
	client   redis.UniversalClient
	prefix   string
	indexTTL time.Duration
	now      func() time.Time
}

// NewRedisStore returns a store using client. indexTTL bounds how long a
// subject index outlives its newest session write.
func NewRedisStore(client redis.UniversalClient, prefix string, indexTTL time.Duration) *RedisStore {
	if indexTTL <= 0 {
		indexTTL = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, indexTTL: indexTTL, now: time.Now}
}

func (r *RedisStore) sessionKey(id string) string { return r.prefix + "session:" + id }
func (r *RedisStore) subjectKey(s string) string  { return r.prefix + "subject:" + s }

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}
	if s.Expired(r.now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// maxUpdateAttempts bounds optimistic retries when a watched key changes
// between read and write.
const maxUpdateAttempts = 8

func (r *RedisStore) encode(s *Session) ([]byte, time.Duration, error) {
	ttl := s.ExpiresAt.Sub(r.now())
	if s.ExpiresAt.IsZero() {
		ttl = r.indexTTL
	}
	if ttl <= 0 {
		return nil, 0, ErrExpired
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, 0, fmt.Errorf("session: encode: %w", err)
	}
	return raw, ttl, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	raw, ttl, err := r.encode(s)
	if err != nil {
		return err
	}
	indexTTL := r.indexTTL
	if ttl > indexTTL {
		indexTTL = ttl
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(s.ID), raw, ttl)
	pipe.SAdd(ctx, r.subjectKey(s.Subject), s.ID)
	pipe.Expire(ctx, r.subjectKey(s.Subject), indexTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis save: %w", err)
	}
	return nil
}

// Update runs fn under WATCH on the session key and retries when another
// writer commits first.
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := r.sessionKey(id)
	var out *Session
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("session: redis get: %w", err)
		}
		var s Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("session: decode %s: %w", id, err)
		}
		if s.Expired(r.now()) {
			return ErrNotFound
		}
		subject := s.Subject
		if err := fn(&s); err != nil {
			return err
		}
		s.ID, s.Subject = id, subject
		next, ttl, err := r.encode(&s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &s
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrConflict
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return r.client.Del(ctx, r.sessionKey(id)).Err()
	}
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	pipe.SRem(ctx, r.subjectKey(s.Subject), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	return nil
}

// IDsForSubject returns live session ids and prunes ids whose session key expired.
func (r *RedisStore) IDsForSubject(ctx context.Context, subject string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.subjectKey(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("session: redis members: %w", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	pipe := r.client.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, r.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("session: redis exists: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []interface{}
	for i, id := range ids {
		if exists[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.subjectKey(subject), stale...).Err(); err != nil {
			return nil, fmt.Errorf("session: redis prune: %w", err)
		}
	}
	return live, nil
}
