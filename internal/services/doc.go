// Package services runs sync passes.
//
// SyncService drives one pass against a frePPLe database: it takes the
// single-flight guards, claims or creates the execute_log task, opens the ERP
// source and reconciles every selected entity type in catalog order, each in
// its own transaction. The task record is finalized on every exit path.
//
// Thread-Safety: a SyncService may be shared, but two passes against the same
// target database are refused with erpsync.ErrSyncInProgress.
package services
