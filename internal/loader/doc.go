// Package loader reconciles one entity type of ERP rows against frePPLe.
//
// Sync snapshots the natural keys already present in the target, converts and
// resolves every source row, then writes new rows in bulk insert-ignore
// chunks and existing rows with per-row updates. Row-level problems are
// counted and sampled in the SyncResult; anything else aborts the entity type
// and is returned so the caller can roll back its transaction.
package loader
