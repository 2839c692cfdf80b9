// Package events carries role-assignment changes between hr-console
// instances so live sessions pick up new roles without signing in again.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTopic is the Kafka topic role changes are published on.
const DefaultTopic = "hr.role-changes"

// Action describes what happened to a subject's roles.
type Action string

const (
	ActionAssigned Action = "assigned"
	ActionRevoked  Action = "revoked"
)

// RoleChange is published after a role assignment changes. Roles is the
// subject's complete directory role set after the change, so consumers can
// replace rather than patch.
type RoleChange struct {
	Subject    string    `json:"subject"`
	Action     Action    `json:"action"`
	Role       string    `json:"role"`
	Roles      []string  `json:"roles"`
	OccurredAt time.Time `json:"occurred_at"`
}

var ErrInvalidEvent = errors.New("events: invalid role change")

// Validate checks the fields every consumer relies on.
func (e RoleChange) Validate() error {
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("%w: subject is empty", ErrInvalidEvent)
	}
	switch e.Action {
	case ActionAssigned, ActionRevoked:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, e.Action)
	}
	return nil
}

// Encode serialises e as JSON.
func Encode(e RoleChange) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Decode parses and validates a JSON payload.
func Decode(raw []byte) (RoleChange, error) {
	var e RoleChange
	if err := json.Unmarshal(raw, &e); err != nil {
		return RoleChange{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return RoleChange{}, err
	}
	return e, nil
}

// Publisher emits role changes.
type Publisher interface {
	PublishRoleChange(ctx context.Context, e RoleChange) error
}

// Handler consumes a decoded role change.
type Handler func(ctx context.Context, e RoleChange) error

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishRoleChange(context.Context, RoleChange) error { return nil }

// LocalPublisher hands events straight to a Handler in process. Used when
// no broker is configured so a single node still refreshes its sessions.
type LocalPublisher struct {
	Handler Handler
}

func (p LocalPublisher) PublishRoleChange(ctx context.Context, e RoleChange) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if p.Handler == nil {
		return nil
	}
	return p.Handler(ctx, e)
}
