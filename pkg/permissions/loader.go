package permissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/milan604/hr-console/pkg/config"
)

// RulesKey is the config key holding code -> required roles overrides.
const RulesKey = "access.rules"

// LoaderFromCatalog loads the required roles declared in the catalog.
func LoaderFromCatalog(catalog *Catalog) Loader {
	return func(ctx context.Context) (map[string]Metadata, error) {
		if catalog == nil {
			return nil, fmt.Errorf("permission catalog not configured")
		}
		out := make(map[string]Metadata, catalog.Count())
		for _, def := range catalog.All() {
			code := def.Reference.Code()
			out[code] = Metadata{Code: code, Name: def.Name, RequiredRoles: cleanRoles(def.RequiredRoles)}
		}
		return out, nil
	}
}

// LoaderFromConfig layers the access.rules map from cfg over base. Rules may
// name codes that base does not know; those become new entries.
func LoaderFromConfig(cfg *config.Config, base Loader) Loader {
	return func(ctx context.Context) (map[string]Metadata, error) {
		out := map[string]Metadata{}
		if base != nil {
			loaded, err := base(ctx)
			if err != nil {
				return nil, err
			}
			for k, v := range loaded {
				out[k] = v
			}
		}
		if cfg == nil || !cfg.IsSet(RulesKey) {
			return out, nil
		}
		for code, roles := range cfg.GetStringMapStringSlice(RulesKey) {
			code = strings.ToLower(strings.TrimSpace(code))
			if code == "" {
				continue
			}
			meta := out[code]
			meta.Code = code
			meta.RequiredRoles = cleanRoles(roles)
			out[code] = meta
		}
		return out, nil
	}
}

func cleanRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
