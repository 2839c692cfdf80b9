package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/milan604/hr-console/pkg/events"
	"github.com/milan604/hr-console/pkg/logger"
)

var (
	ErrUnknownRole    = errors.New("roles: unknown role")
	ErrInvalidSubject = errors.New("roles: subject is required")
)

// Service manages assignments and announces every change.
type Service struct {
	repo      Repository
	catalog   *Catalog
	publisher events.Publisher
	log       logger.LogManager
	now       func() time.Time
}

func NewService(repo Repository, catalog *Catalog, publisher events.Publisher, log logger.LogManager) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{repo: repo, catalog: catalog, publisher: publisher, log: log, now: time.Now}
}

// Catalog returns the roles the service accepts.
func (s *Service) Catalog() *Catalog { return s.catalog }

// RolesFor returns the directory roles of subject. It satisfies
// session.RoleResolver.
func (s *Service) RolesFor(ctx context.Context, subject string) ([]string, error) {
	return s.repo.RolesFor(ctx, subject)
}

// Assign grants role to subject and returns the subject's new role set.
func (s *Service) Assign(ctx context.Context, subject, role, grantedBy string) ([]string, error) {
	subject, role, err := s.validate(subject, role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Assign(ctx, subject, role, grantedBy); err != nil {
		return nil, err
	}
	return s.announce(ctx, subject, role, events.ActionAssigned)
}

// Revoke removes role from subject and returns the subject's new role set.
func (s *Service) Revoke(ctx context.Context, subject, role string) ([]string, error) {
	subject, role, err := s.validate(subject, role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Revoke(ctx, subject, role); err != nil {
		return nil, err
	}
	return s.announce(ctx, subject, role, events.ActionRevoked)
}

func (s *Service) validate(subject, role string) (string, string, error) {
	subject = strings.TrimSpace(subject)
	role = strings.TrimSpace(role)
	if subject == "" {
		return "", "", ErrInvalidSubject
	}
	if !s.catalog.Contains(role) {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return subject, role, nil
}

// announce publishes the full current role set. A failed publish is logged,
// not returned: the assignment is already stored and new sessions pick it up.
func (s *Service) announce(ctx context.Context, subject, role string, action events.Action) ([]string, error) {
	asOf := s.now().UTC()
	current, err := s.repo.RolesFor(ctx, subject)
	if err != nil {
		return nil, err
	}
	change := events.RoleChange{
		Subject:    subject,
		Action:     action,
		Role:       role,
		Roles:      current,
		OccurredAt: asOf,
	}
	if err := s.publisher.PublishRoleChange(ctx, change); err != nil {
		s.log.ErrorFCtx(ctx, "failed to publish role change %s %s for %s: %v", action, role, subject, err)
	}
	s.log.InfoFCtx(ctx, "role %s %s for %s", role, action, subject)
	return current, nil
}
