package permissions

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Metadata is what a guard needs to decide a permission code.
type Metadata struct {
	Code          string
	Name          string
	RequiredRoles []string
}

// Loader is a function that loads permissions from an external source.
type Loader func(ctx context.Context) (map[string]Metadata, error)

var (
	// ErrLoaderNotConfigured is returned when a loader is not configured.
	ErrLoaderNotConfigured = errors.New("permission loader not configured")
)

// Store manages in-memory permission metadata with thread-safe access.
type Store struct {
	mu     sync.RWMutex
	byCode map[string]Metadata
	loader Loader
}

// NewStore creates a new permission store with an optional loader.
func NewStore(loader Loader) *Store {
	return &Store{
		byCode: make(map[string]Metadata),
		loader: loader,
	}
}

// SetLoader updates the loader function for the store.
func (s *Store) SetLoader(loader Loader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loader = loader
}

// Load fetches permissions using the configured loader and updates the store.
func (s *Store) Load(ctx context.Context) (map[string]Metadata, error) {
	s.mu.RLock()
	loader := s.loader
	s.mu.RUnlock()

	if loader == nil {
		return nil, ErrLoaderNotConfigured
	}

	data, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	s.Replace(data)
	return s.Snapshot(), nil
}

// Replace replaces all permissions in the store with the provided map.
// Role slices are copied so later edits by the caller are not observed.
func (s *Store) Replace(perms map[string]Metadata) {
	updated := make(map[string]Metadata, len(perms))
	for code, meta := range perms {
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		meta.Code = trimmed
		meta.RequiredRoles = append([]string(nil), meta.RequiredRoles...)
		updated[trimmed] = meta
	}

	s.mu.Lock()
	s.byCode = updated
	s.mu.Unlock()
}

// Lookup retrieves permission metadata by code.
func (s *Store) Lookup(code string) (Metadata, bool) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Metadata{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.byCode[trimmed]
	if ok {
		meta.RequiredRoles = append([]string(nil), meta.RequiredRoles...)
	}
	return meta, ok
}

// RequiredRoles returns the roles gating code. Unknown codes return nil,
// which every check treats as deny.
func (s *Store) RequiredRoles(code string) []string {
	meta, ok := s.Lookup(code)
	if !ok {
		return nil
	}
	return meta.RequiredRoles
}

// Snapshot returns a copy of all permissions in the store.
func (s *Store) Snapshot() map[string]Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Metadata, len(s.byCode))
	for code, meta := range s.byCode {
		meta.RequiredRoles = append([]string(nil), meta.RequiredRoles...)
		out[code] = meta
	}

	return out
}

// Count returns the number of permissions in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCode)
}
