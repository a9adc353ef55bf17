// Package store keeps the history of bench runs in SQLite.
//
// Three tables are maintained:
//   - runs: one row per RunAll, with its final status and counters
//   - results: every reported line of a run, in report order
//   - conflicts: resource conflicts that aborted a run
//
// # Ordering
//
// Results carry a per-run seq assigned at insert time. Queries order by
// seq, never by timestamp, so two lines reported within the same clock tick
// keep their order.
//
// # Database Configuration
//
//   - WAL mode: the CLI can read history while a run is writing
//   - synchronous=NORMAL
//   - busy_timeout: configurable, 5000ms by default
//   - foreign_keys=ON: results and conflicts belong to a run
package store
