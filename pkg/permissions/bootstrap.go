package permissions

import (
	"context"
	"fmt"

	"github.com/milan604/hr-console/pkg/config"
	"github.com/milan604/hr-console/pkg/logger"
)

// Bootstrap loads the catalog, applies config overrides and fills store.
// Entries left without required roles are logged; they deny everyone.
func Bootstrap(ctx context.Context, catalog *Catalog, cfg *config.Config, log logger.LogManager, store *Store) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if store == nil {
		return fmt.Errorf("permission store not configured")
	}
	if log == nil {
		log = logger.NewNop()
	}

	store.SetLoader(LoaderFromConfig(cfg, LoaderFromCatalog(catalog)))
	loaded, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	for code, meta := range loaded {
		if len(meta.RequiredRoles) == 0 {
			log.WarnFCtx(ctx, "permission %s has no required roles and will deny every caller", code)
		}
	}
	log.InfoFCtx(ctx, "Loaded %d permissions", len(loaded))
	return nil
}
