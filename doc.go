// Package moss is the Composition Root for the moss offline-first notes core.
//
// It connects the core state machine (pkg/core) with the infrastructure
// adapters: a durable key/value store (filesystem, SQLite or memory), a
// remote (stub or CouchDB) and a connectivity source (network probe or a
// pinned state).
//
// Every mutation is applied locally, persisted, and recorded in a queue of
// pending changes. When the device comes back online the queue is sent to
// the remote in one batch; on success everything that was sent is marked
// synced.
//
// Usage:
//
//	rt, err := moss.New(ctx, "./.moss",
//		moss.WithStore("sqlite"),
//		moss.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//
//	note := rt.Service.AddNote(ctx, "Groceries", "milk, eggs")
//	res := rt.Service.Reconcile(ctx)
package moss
