package session

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker around a Store.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	OnStateChange       func(name string, from, to gobreaker.State)
}

// BreakerStore guards a Store with a circuit breaker. While the breaker is
// open every call fails fast with gobreaker.ErrOpenState.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerStore(next Store, cfg BreakerConfig) *BreakerStore {
	if cfg.Name == "" {
		cfg.Name = "session-store"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	threshold := cfg.ConsecutiveFailures
	return &BreakerStore{
		next: next,
		cb: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: cfg.OnStateChange,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) ||
					errors.Is(err, ErrStaleRoles)
			},
		}),
	}
}

// State exposes the breaker state for health reporting.
func (b *BreakerStore) State() gobreaker.State { return b.cb.State() }

func (b *BreakerStore) Get(ctx context.Context, id string) (*Session, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (b *BreakerStore) Save(ctx context.Context, s *Session) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Save(ctx, s)
	})
	return err
}

func (b *BreakerStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Update(ctx, id, fn)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (b *BreakerStore) Delete(ctx context.Context, id string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Delete(ctx, id)
	})
	return err
}

func (b *BreakerStore) IDsForSubject(ctx context.Context, subject string) ([]string, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.IDsForSubject(ctx, subject)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
