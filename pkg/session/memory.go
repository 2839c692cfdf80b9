package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]*Session
	bySubject map[string]map[string]struct{}
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*Session),
		bySubject: make(map[string]map[string]struct{}),
		now:       time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok || s.Expired(m.now()) {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s.Expired(m.now()) {
		return ErrExpired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s.Clone()
	ids, ok := m.bySubject[s.Subject]
	if !ok {
		ids = make(map[string]struct{})
		m.bySubject[s.Subject] = ids
	}
	ids[s.ID] = struct{}{}
	return nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.Expired(m.now()) {
		return nil, ErrNotFound
	}
	next := s.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID, next.Subject = s.ID, s.Subject
	m.byID[id] = next.Clone()
	return next, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil
	}
	delete(m.byID, id)
	if ids, ok := m.bySubject[s.Subject]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m.bySubject, s.Subject)
		}
	}
	return nil
}

func (m *MemoryStore) IDsForSubject(_ context.Context, subject string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make([]string, 0, len(m.bySubject[subject]))
	for id := range m.bySubject[subject] {
		if s, ok := m.byID[id]; ok && !s.Expired(now) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}
