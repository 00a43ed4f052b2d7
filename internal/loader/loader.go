package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Loader runs the reconciliation of one entity type at a time.
type Loader struct {
	logger    erpsync.Logger
	batchSize int
}

// New creates a Loader. Panics if logger is nil.
func New(logger erpsync.Logger, batchSize int) *Loader {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = erpsync.DefaultBatchSize
	}
	return &Loader{logger: logger, batchSize: batchSize}
}

type update struct {
	identity any
	rec      entity.Record
}

// Sync reconciles rows into the target through w.
//
// passStart is the lastmodified value for rows that do not carry one.
// The returned result is valid even when err is non-nil; the caller is
// expected to discard the writes of a failed entity type.
func (l *Loader) Sync(ctx context.Context, w Writer, d *entity.Descriptor, rows Rows, resolvers Resolvers, passStart time.Time) (erpsync.SyncResult, error) {
	started := time.Now()
	result, err := l.sync(ctx, w, d, rows, resolvers, passStart)
	result.Duration = time.Since(started)
	return result, err
}

func (l *Loader) sync(ctx context.Context, w Writer, d *entity.Descriptor, rows Rows, resolvers Resolvers, passStart time.Time) (erpsync.SyncResult, error) {
	result := erpsync.SyncResult{Entity: d.Name}

	for _, ref := range d.References() {
		if _, ok := resolvers[ref]; !ok {
			return result, fmt.Errorf("%s: no resolver loaded for %s", d.Name, ref)
		}
	}

	existing, err := w.LoadKeys(ctx, d)
	if err != nil {
		return result, fmt.Errorf("failed to load %s snapshot: %w", d.Name, err)
	}
	l.logger.Verbose("%s: %d existing rows in %s", d.Name, len(existing), d.Table)

	queued := make(map[string]bool)
	var inserts []entity.Record
	var updates []update

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Read++

		// Values never fails on a bad column value, only on a broken result set.
		raw, err := rows.Values()
		if err != nil {
			return result, fmt.Errorf("failed to read %s row %d: %w", d.Name, result.Read, err)
		}

		rec, err := entity.Convert(d, result.Read, raw, passStart)
		if err != nil {
			l.rowError(&result, erpsync.RowError{Row: rec.Row, Err: err})
			continue
		}
		if err := resolve(d, &rec, resolvers); err != nil {
			l.rowError(&result, erpsync.RowError{Row: rec.Row, Key: entity.DisplayKey(rec.Key), Err: err})
			continue
		}

		if queued[rec.Key] {
			result.Skipped++
			l.logger.Verbose("%s: row %d repeats key %s, skipped", d.Name, rec.Row, entity.DisplayKey(rec.Key))
			continue
		}
		queued[rec.Key] = true

		if id, ok := existing[rec.Key]; ok {
			updates = append(updates, update{identity: id, rec: rec})
		} else {
			inserts = append(inserts, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("failed to read %s rows: %w", d.Name, err)
	}

	if err := l.insert(ctx, w, d, inserts, &result); err != nil {
		return result, err
	}
	if err := l.update(ctx, w, d, updates, &result); err != nil {
		return result, err
	}

	return result, nil
}

func (l *Loader) insert(ctx context.Context, w Writer, d *entity.Descriptor, recs []entity.Record, result *erpsync.SyncResult) error {
	for start := 0; start < len(recs); start += l.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+l.batchSize, len(recs))
		chunk := recs[start:end]

		n, err := w.InsertBatch(ctx, d, chunk)
		if err == nil {
			result.Inserted += n
			result.Skipped += len(chunk) - n
			continue
		}
		if !errors.Is(err, erpsync.ErrWrite) {
			return fmt.Errorf("failed to insert %s rows: %w", d.Name, err)
		}

		l.logger.Verbose("%s: batch of %d rows failed, retrying one by one: %v", d.Name, len(chunk), err)
		for _, rec := range chunk {
			n, err := w.InsertBatch(ctx, d, []entity.Record{rec})
			if err != nil {
				if !errors.Is(err, erpsync.ErrWrite) {
					return fmt.Errorf("failed to insert %s row %d: %w", d.Name, rec.Row, err)
				}
				l.rowError(result, erpsync.RowError{Row: rec.Row, Key: entity.DisplayKey(rec.Key), Err: err})
				continue
			}
			result.Inserted += n
			result.Skipped += 1 - n
		}
	}
	return nil
}

func (l *Loader) update(ctx context.Context, w Writer, d *entity.Descriptor, updates []update, result *erpsync.SyncResult) error {
	for _, u := range updates {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := w.Update(ctx, d, u.identity, u.rec)
		if err != nil {
			if !errors.Is(err, erpsync.ErrWrite) {
				return fmt.Errorf("failed to update %s row %d: %w", d.Name, u.rec.Row, err)
			}
			l.rowError(result, erpsync.RowError{Row: u.rec.Row, Key: entity.DisplayKey(u.rec.Key), Err: err})
			continue
		}
		if changed {
			result.Updated++
		} else {
			result.Unchanged++
		}
	}
	return nil
}

func (l *Loader) rowError(result *erpsync.SyncResult, re erpsync.RowError) {
	result.AddRowError(re)
	if result.Errors <= erpsync.MaxRowErrorSamples {
		l.logger.Verbose("%s: %v", result.Entity, re)
	}
}
