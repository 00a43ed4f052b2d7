package loader

import (
	"context"

	"github.com/vvka-141/erpsync/internal/entity"
)

// Rows is a one-shot positional row iterator over the source query.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
}

// KeyLoader snapshots the target of an entity type.
type KeyLoader interface {
	// LoadKeys returns encoded natural key -> identity for every target row.
	LoadKeys(ctx context.Context, d *entity.Descriptor) (map[string]any, error)
}

// Writer is the write scope of one entity type, usually one transaction.
//
// InsertBatch and Update must leave the scope usable after a row-level
// failure and report such failures wrapped in erpsync.ErrWrite. Any other
// error is treated as fatal for the entity type.
type Writer interface {
	KeyLoader

	// InsertBatch inserts records, ignoring natural-key conflicts, and returns
	// the number of rows actually inserted.
	InsertBatch(ctx context.Context, d *entity.Descriptor, recs []entity.Record) (int, error)

	// Update overwrites the payload of the row with the given identity and
	// reports whether any column changed.
	Update(ctx context.Context, d *entity.Descriptor, identity any, rec entity.Record) (bool, error)
}

// Resolver maps an encoded natural key of a referenced entity to its identity.
type Resolver map[string]any

// Resolvers holds one Resolver per referenced entity name.
type Resolvers map[string]Resolver
