// Package store writes to the frePPLe database.
//
// Store.Begin opens the transaction an entity type is reconciled in; Tx
// implements loader.Writer on top of it. Bulk inserts and row updates each
// run inside a savepoint so a rejected row rolls back only itself.
// TaskStore keeps the job record in frePPLe's execute_log table.
package store
