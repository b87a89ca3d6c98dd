// Package store provides the SQLite-backed metadata and session store.
//
// One store file holds everything a pipeline run works with:
//   - Packages: loaded protocol-metadata and generation-template packages
//   - Clusters: canonical protocol entities contributed by metadata packages
//   - Extensions: package-scoped (entity, key) -> value lookup tables
//   - Sessions: configuration instances with their package links
//
// # Lifecycle
//
// Lifecycle resolves one file per logical mode name, optionally deletes it
// before a run (clean), and initializes it. Open refuses files written by a
// different schema version; a mismatch is fatal for the caller.
//
// # Transactions
//
// Update binds a Store to one transaction. Multi-statement writes made
// through a bound Store join that transaction instead of committing on
// their own. With a single connection, code inside Update must only use the
// bound Store.
//
// # Invariants
//
//   - Package rows are never updated after insert. Reloading a changed file
//     produces a new row; reloading an identical file reuses the old one.
//   - Extension default keys are normalized (NFC, case folded). Duplicates
//     are stored and resolved first-match-wins by insertion order.
//
// # Database Configuration
//
//   - WAL mode
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - a single open connection; the store has no locking of its own, so the
//     caller serializes mutations
package store
