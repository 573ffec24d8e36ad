// Package storage defines the repository contracts the rest of the system
// persists through, plus the shared backend configuration.
//
// Two backends implement the contracts:
//
//   - memory: mutex-guarded in-process maps, used by tests and local
//     development
//   - postgres: database/sql against PostgreSQL via lib/pq, used in
//     production
//
// All repositories share one persistence shape for aggregates: a save
// writes the root row and replaces the aggregate's child collections
// (members, invitations, assignments) wholesale inside a transaction.
// Collections are never patched row by row.
//
// Lookups for identifiers that do not exist return ErrNotFound wrapped
// with context; callers branch with errors.Is.
package storage
