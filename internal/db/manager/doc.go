// Package manager provides frePPLe database housekeeping for a sync pass:
//   - Acquiring the session-level advisory lock that keeps passes single-flight
//   - Checking that the input tables a pass writes to exist
//
// Table names are checked with to_regclass, so schema-qualified and quoted
// names are resolved the way PostgreSQL resolves them.
//
// # Example Usage
//
//	mgr := manager.New()
//
//	unlock, err := mgr.TryLock(ctx, conn, "erp2frepple")
//	if err != nil {
//	    return err // erpsync.ErrSyncInProgress when another pass holds it
//	}
//	defer unlock(context.WithoutCancel(ctx))
//
//	missing, err := mgr.MissingTables(ctx, conn, []string{"item", "execute_log"})
package manager
