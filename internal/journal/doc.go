// Package journal provides SQLite-backed storage for scheduler pacing data.
//
// A journal holds sessions, one per host run, each identified by a UUIDv7,
// and one row per completed scheduler iteration recording how many updates
// ran, whether catch-up bailed and how many ticks were dropped.
//
// Iteration rows are written by a Recorder, which implements
// scheduler.Observer and batches inserts in transactions so journaling does
// not cost a disk sync per frame. Write failures are logged and counted but
// never interrupt pacing.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
