package session

import (
	"context"

	"github.com/milan604/hr-console/pkg/events"
	"github.com/milan604/hr-console/pkg/logger"
)

// Refresher applies role-change events to live sessions.
type Refresher struct {
	manager *Manager
	log     logger.LogManager
}

func NewRefresher(manager *Manager, log logger.LogManager) *Refresher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Refresher{manager: manager, log: log}
}

// HandleRoleChange matches events.Handler.
func (r *Refresher) HandleRoleChange(ctx context.Context, change events.RoleChange) error {
	n, err := r.manager.SetRoles(ctx, change.Subject, change.Roles, change.OccurredAt)
	if err != nil {
		return err
	}
	r.log.DebugFCtx(ctx, "role change %s %s for %s applied to %d sessions", change.Action, change.Role, change.Subject, n)
	return nil
}
