// Package store provides SQLite-backed storage for test run results.
//
// A run is written inside a single transaction: BeginRun inserts the run
// row, RunTx.WriteResult appends one row per test case and Commit makes the
// whole run visible at once. An aborted run leaves nothing behind.
//
// # Ordering
//
// Runs and results carry a seq column assigned at write time. Every query
// orders by seq, never by timestamps, so reports are stable across
// machines and clock changes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool holds a single connection. Other Store methods block while a
// RunTx is open, so read the baseline before beginning a run.
package store
