package roles

import (
	"context"
	"fmt"

	"github.com/milan604/hr-console/pkg/logger"
)

// Bootstrap validates the catalog and upserts it into the roles table.
func Bootstrap(ctx context.Context, repo Repository, catalog *Catalog, log logger.LogManager) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = logger.NewNop()
	}
	if catalog == nil || catalog.Count() == 0 {
		log.WarnFCtx(ctx, "No role definitions provided, skipping roles sync")
		return nil
	}

	valid := make([]Definition, 0, catalog.Count())
	for _, def := range catalog.Definitions() {
		if !def.IsValid() {
			log.WarnFCtx(ctx, "Skipping invalid role definition: %q", def.Name)
			continue
		}
		valid = append(valid, def)
	}

	if err := repo.EnsureDefinitions(ctx, valid); err != nil {
		return fmt.Errorf("failed to sync roles: %w", err)
	}
	log.InfoFCtx(ctx, "Roles sync completed. Synced %d roles", len(valid))
	return nil
}
