package erpsync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RowError records why one source row was not written.
type RowError struct {
	// Row is the 1-based position of the row in the source result set.
	Row int
	// Key is the encoded natural key, empty when the row failed before key extraction.
	Key string
	Err error
}

func (e RowError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Key, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// SyncResult holds the outcome of reconciling one entity type.
type SyncResult struct {
	Entity string

	// Read is the number of source rows consumed.
	Read int
	// Inserted rows did not exist in the target before this pass.
	Inserted int
	// Updated rows existed and had at least one payload column changed.
	Updated int
	// Unchanged rows existed with an identical payload.
	Unchanged int
	// Skipped rows repeated a key already handled in this pass or lost an insert race.
	Skipped int
	// Errors counts rows dropped for conversion, reference or write errors.
	Errors int

	// RowErrors keeps the first MaxRowErrorSamples row errors.
	RowErrors []RowError

	Duration time.Duration
}

// AddRowError counts a dropped row and keeps a bounded sample of the reasons.
func (r *SyncResult) AddRowError(re RowError) {
	r.Errors++
	if len(r.RowErrors) < MaxRowErrorSamples {
		r.RowErrors = append(r.RowErrors, re)
	}
}

// Written returns the number of rows inserted or updated.
func (r *SyncResult) Written() int {
	return r.Inserted + r.Updated
}

// String returns a one-line summary for logs.
func (r *SyncResult) String() string {
	return fmt.Sprintf("%s: read %d, inserted %d, updated %d, unchanged %d, skipped %d, errors %d (%s)",
		r.Entity, r.Read, r.Inserted, r.Updated, r.Unchanged, r.Skipped, r.Errors, r.Duration.Round(time.Millisecond))
}

// EntityOutcome is a SyncResult plus the entity-level error that aborted it, if any.
type EntityOutcome struct {
	Result SyncResult
	// Err is set when the entity type was rolled back.
	Err error
}

// SyncReport summarizes a whole pass.
type SyncReport struct {
	RunID    uuid.UUID
	TaskID   int64
	Status   TaskStatus
	Message  string
	Started  time.Time
	Finished time.Time
	Entities []EntityOutcome
}

// Failed returns the names of entity types that were rolled back.
func (r *SyncReport) Failed() []string {
	var names []string
	for _, e := range r.Entities {
		if e.Err != nil {
			names = append(names, e.Result.Entity)
		}
	}
	return names
}

// Totals sums the per-entity counters.
func (r *SyncReport) Totals() SyncResult {
	total := SyncResult{Entity: "total"}
	for _, e := range r.Entities {
		total.Read += e.Result.Read
		total.Inserted += e.Result.Inserted
		total.Updated += e.Result.Updated
		total.Unchanged += e.Result.Unchanged
		total.Skipped += e.Result.Skipped
		total.Errors += e.Result.Errors
		total.Duration += e.Result.Duration
	}
	return total
}
