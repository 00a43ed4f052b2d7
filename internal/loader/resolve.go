package loader

import (
	"context"
	"fmt"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// LoadResolvers snapshots every entity type referenced by d.
func LoadResolvers(ctx context.Context, kl KeyLoader, catalog *entity.Catalog, d *entity.Descriptor) (Resolvers, error) {
	resolvers := make(Resolvers)
	for _, name := range d.References() {
		ref, ok := catalog.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%s references %q: %w", d.Name, name, erpsync.ErrUnknownEntity)
		}
		keys, err := kl.LoadKeys(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s keys: %w", name, err)
		}
		resolvers[name] = keys
	}
	return resolvers, nil
}

// resolve replaces every reference value of rec with the referenced identity.
// A NULL optional reference stays NULL.
func resolve(d *entity.Descriptor, rec *entity.Record, resolvers Resolvers) error {
	for i, f := range d.Fields {
		if f.Ref == "" {
			continue
		}
		v := rec.Values[i]
		if v == nil {
			if f.Required {
				return fmt.Errorf("%w: %s is required", erpsync.ErrReferenceNotFound, f.Name)
			}
			continue
		}
		id, ok := resolvers[f.Ref][entity.EncodeKey(v)]
		if !ok {
			return fmt.Errorf("%w: %s %q", erpsync.ErrReferenceNotFound, f.Ref, v)
		}
		rec.Values[i] = id
	}
	return nil
}
